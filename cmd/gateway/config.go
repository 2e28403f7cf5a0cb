package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type config struct {
	ListenAddr         string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
	LogAcceptedEntries bool   `env:"LOG_ACCEPTED_ENTRIES" envDefault:"false"`

	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	ModerationURL     string        `env:"MODERATION_URL" envDefault:"https://api.openai.com/v1/moderations"`
	ModerationTimeout time.Duration `env:"MODERATION_TIMEOUT" envDefault:"5s"`

	// postgres | sqlite | memory
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`

	QuotaLimit  int           `env:"QUOTA_LIMIT" envDefault:"5"`
	QuotaWindow time.Duration `env:"QUOTA_WINDOW" envDefault:"1h"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	NotifyEnabled bool   `env:"NOTIFY_ENABLED" envDefault:"false"`
	NotifyChannel string `env:"NOTIFY_CHANNEL" envDefault:"guestbook:entries"`

	StatsEnabled bool          `env:"STATS_ENABLED" envDefault:"false"`
	StatsPrefix  string        `env:"STATS_PREFIX" envDefault:"guestbook:stats"`
	StatsTTL     time.Duration `env:"STATS_TTL" envDefault:"24h"`
	StatsBucket  string        `env:"STATS_BUCKET" envDefault:"minute"`

	// IMPORTANTE: o throttle é só contra rajadas de anônimos; a cota de 5/hora é do gateway.
	ThrottleEnabled    bool          `env:"THROTTLE_ENABLED" envDefault:"true"`
	ThrottleRPS        float64       `env:"THROTTLE_RPS" envDefault:"0.5"`
	ThrottleBurst      int           `env:"THROTTLE_BURST" envDefault:"3"`
	RetryAfter         time.Duration `env:"RETRY_AFTER" envDefault:"2s"`
	AddThrottleHeaders bool          `env:"ADD_THROTTLE_HEADERS" envDefault:"false"`
	ConcurrencyMax     int           `env:"CONCURRENCY_MAX" envDefault:"100"`
	ConcurrencyTimeout time.Duration `env:"CONCURRENCY_TIMEOUT" envDefault:"0s"`

	SourceHeader      string `env:"SOURCE_HEADER"`
	TrustXFF          bool   `env:"TRUST_XFF" envDefault:"false"`
	TrustClientSource bool   `env:"TRUST_CLIENT_SOURCE" envDefault:"false"`

	IdentityJWTSecret string `env:"IDENTITY_JWT_SECRET"`
	IdentityIssuer    string `env:"IDENTITY_ISSUER"`
}

func readConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case "postgres", "sqlite", "memory":
	default:
		return config{}, fmt.Errorf("STORE_DRIVER must be postgres, sqlite or memory, got %q", cfg.StoreDriver)
	}

	if cfg.NotifyEnabled && strings.TrimSpace(cfg.RedisAddr) == "" {
		return config{}, errors.New("REDIS_ADDR is required when NOTIFY_ENABLED is true")
	}
	if cfg.QuotaLimit <= 0 {
		return config{}, errors.New("QUOTA_LIMIT must be > 0")
	}
	if cfg.QuotaWindow <= 0 {
		return config{}, errors.New("QUOTA_WINDOW must be > 0")
	}
	if cfg.ThrottleEnabled && cfg.ThrottleRPS <= 0 {
		return config{}, errors.New("THROTTLE_RPS must be > 0")
	}
	if cfg.ThrottleEnabled && cfg.ThrottleBurst <= 0 {
		return config{}, errors.New("THROTTLE_BURST must be > 0")
	}
	if cfg.ConcurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// storeDSN é a credencial do store exigida pelo gateway.
func (c config) storeDSN() string {
	if c.StoreDriver == "memory" {
		return "memory://"
	}
	return strings.TrimSpace(c.DatabaseURL)
}

// useRedis indica se algum recurso precisa do cliente Redis.
// Stats sem REDIS_ADDR ficam em memória.
func (c config) useRedis() bool {
	return c.NotifyEnabled || (c.StatsEnabled && strings.TrimSpace(c.RedisAddr) != "")
}
