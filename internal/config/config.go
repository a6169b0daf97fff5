package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Name        string `mapstructure:"name"`
	Port        string `mapstructure:"port"`
	MetricsPort string `mapstructure:"metrics_port"`
	Development bool   `mapstructure:"development"`
}

type ServerCfg struct {
	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
}

type MongoCfg struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaCfg struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type JwtCfg struct {
	Secret string `mapstructure:"secret"`
}

type MediaCfg struct {
	CleanupURL     string `mapstructure:"cleanup_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PolicyCfg holds product rules rather than infrastructure settings. The
// edit/delete windows bound how long a sender can rewrite history.
type PolicyCfg struct {
	EditWindowHours   int `mapstructure:"edit_window_hours"`
	DeleteWindowHours int `mapstructure:"delete_window_hours"`
	TypingTTLSeconds  int `mapstructure:"typing_ttl_seconds"`
	PageSize          int `mapstructure:"page_size"`
	PageSizeMax       int `mapstructure:"page_size_max"`
	RateLimitPerMin   int `mapstructure:"rate_limit_per_min"`
	WSEventsPerSecond int `mapstructure:"ws_events_per_second"`
}

type Config struct {
	App    AppCfg    `mapstructure:"app"`
	Server ServerCfg `mapstructure:"server"`
	Mongo  MongoCfg  `mapstructure:"mongo"`
	Redis  RedisCfg  `mapstructure:"redis"`
	Kafka  KafkaCfg  `mapstructure:"kafka"`
	JWT    JwtCfg    `mapstructure:"jwt"`
	Media  MediaCfg  `mapstructure:"media"`
	Policy PolicyCfg `mapstructure:"policy"`

	// Derived
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EditWindow   time.Duration
	DeleteWindow time.Duration
	TypingTTL    time.Duration
	MediaTimeout time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.MetricsPort == "" {
		cfg.App.MetricsPort = "9090"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 15
	}
	if cfg.Policy.EditWindowHours == 0 {
		cfg.Policy.EditWindowHours = 24
	}
	if cfg.Policy.DeleteWindowHours == 0 {
		cfg.Policy.DeleteWindowHours = 48
	}
	if cfg.Policy.TypingTTLSeconds == 0 {
		cfg.Policy.TypingTTLSeconds = 6
	}
	if cfg.Policy.PageSize == 0 {
		cfg.Policy.PageSize = 50
	}
	if cfg.Policy.PageSizeMax == 0 {
		cfg.Policy.PageSizeMax = 100
	}
	if cfg.Policy.RateLimitPerMin == 0 {
		cfg.Policy.RateLimitPerMin = 300
	}
	if cfg.Policy.WSEventsPerSecond == 0 {
		cfg.Policy.WSEventsPerSecond = 20
	}
	if cfg.Media.TimeoutSeconds == 0 {
		cfg.Media.TimeoutSeconds = 5
	}

	cfg.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	cfg.EditWindow = time.Duration(cfg.Policy.EditWindowHours) * time.Hour
	cfg.DeleteWindow = time.Duration(cfg.Policy.DeleteWindowHours) * time.Hour
	cfg.TypingTTL = time.Duration(cfg.Policy.TypingTTLSeconds) * time.Second
	cfg.MediaTimeout = time.Duration(cfg.Media.TimeoutSeconds) * time.Second
}
