package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/messaging-service/internal/auth"
	"github.com/fathima-sithara/messaging-service/internal/chat"
	"github.com/fathima-sithara/messaging-service/internal/config"
	"github.com/fathima-sithara/messaging-service/internal/ws"
)

// NewServer wires the REST surface and the websocket upgrade endpoint onto
// one fiber app.
func NewServer(cfg *config.Config, engine *chat.Engine, wsrv *ws.Server, validator *auth.Validator, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	app.Use(recover.New())
	app.Use(NewIPRateLimiter(cfg.Policy.RateLimitPerMin, log).Handler())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Websocket endpoint; token is validated inside the handler.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsrv.HandleWS()))

	h := NewHandlers(engine, log)
	v1 := app.Group("/api/v1", validator.Middleware(log))
	v1.Post("/conversations", h.createConversation)
	v1.Get("/conversations", h.listConversations)
	v1.Get("/conversations/:id/messages", h.history)

	return app
}
