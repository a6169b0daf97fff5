package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fathima-sithara/messaging-service/internal/api"
	"github.com/fathima-sithara/messaging-service/internal/auth"
	"github.com/fathima-sithara/messaging-service/internal/chat"
	"github.com/fathima-sithara/messaging-service/internal/config"
	"github.com/fathima-sithara/messaging-service/internal/events"
	"github.com/fathima-sithara/messaging-service/internal/logger"
	"github.com/fathima-sithara/messaging-service/internal/media"
	"github.com/fathima-sithara/messaging-service/internal/metrics"
	"github.com/fathima-sithara/messaging-service/internal/presence"
	"github.com/fathima-sithara/messaging-service/internal/repository"
	"github.com/fathima-sithara/messaging-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: cfg.App.Development})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	metrics.Init()

	mc, err := repository.NewMongoClient(cfg.Mongo.URI)
	if err != nil {
		zlog.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	db := mc.Database(cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	var typing presence.TypingStore = presence.Noop{}
	if cfg.Redis.Addr != "" {
		typing = presence.NewRedisTyping(rdb, cfg.Redis.Prefix, cfg.TypingTTL)
	}

	var publisher chat.Publisher
	var producer *events.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher = producer
	}

	validator, err := auth.NewValidator(cfg.JWT.Secret)
	if err != nil {
		zlog.Fatalw("jwt init", "err", err)
	}

	convs := repository.NewMongoConversationStore(db)
	msgs := repository.NewMongoMessageStore(db)
	users := repository.NewMongoUserDirectory(db)
	guard := chat.NewGuard(convs)

	hub := ws.NewHub(zlog)
	cleaner := media.NewCleaner(cfg.Media.CleanupURL, cfg.MediaTimeout, zlog)
	engine := chat.NewEngine(convs, msgs, users, guard, hub, publisher, cleaner, chat.Policy{
		EditWindow:   cfg.EditWindow,
		DeleteWindow: cfg.DeleteWindow,
		PageSize:     int64(cfg.Policy.PageSize),
		PageSizeMax:  int64(cfg.Policy.PageSizeMax),
	}, zlog)

	wsrv := ws.NewServer(engine, typing, hub, validator, cfg.Policy.WSEventsPerSecond, zlog)
	app := api.NewServer(cfg, engine, wsrv, validator, zlog)

	go func() {
		if err := http.ListenAndServe(":"+cfg.App.MetricsPort, metrics.Handler()); err != nil {
			zlog.Warnw("metrics listener stopped", "err", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			zlog.Fatalw("server listen", "err", err)
		}
	}()
	zlog.Infow("messaging-service started", "port", cfg.App.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)
	if producer != nil {
		_ = producer.Close()
	}
	zlog.Infow("messaging-service stopped")
}
