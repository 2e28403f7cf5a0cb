package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guestbook-gateway/guestbook"
	"guestbook-gateway/guestbook/application"
	"guestbook-gateway/guestbook/domain"
	"guestbook-gateway/guestbook/infra"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	lvl, _ := parseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("store open error", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer func() { _ = closeStore.Close() }()

	var rdb *redis.Client
	if cfg.useRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			logger.Error("redis ping error", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
	}

	if store != nil && cfg.NotifyEnabled {
		store = infra.NewPublishingStore(store, infra.NewRedisPublisher(rdb, infra.WithPublishChannel(cfg.NotifyChannel)), logger)
	}

	var (
		stats     domain.OutcomeStats
		statsView func() any
	)
	switch {
	case cfg.StatsEnabled && rdb != nil:
		stats = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.StatsPrefix),
			infra.WithStatsTTL(cfg.StatsTTL),
			infra.WithStatsBucket(cfg.StatsBucket),
		)
	case cfg.StatsEnabled:
		mem := infra.NewMemoryStatsStore()
		stats = mem
		statsView = func() any { return mem.Snapshot() }
		logger.Warn("stats kept in memory; counters are lost on restart")
	}

	gwCfg := application.GatewayConfig{
		Credentials: application.Credentials{
			ModerationAPIKey: cfg.OpenAIAPIKey,
			StoreDSN:         cfg.storeDSN(),
		},
		Quota: application.QuotaService{
			Limit:  cfg.QuotaLimit,
			Window: cfg.QuotaWindow,
		},
		Store:              store,
		Stats:              stats,
		Logger:             logger,
		LogAcceptedEntries: cfg.LogAcceptedEntries,
	}
	if cfg.OpenAIAPIKey != "" {
		gwCfg.Classifier = infra.NewModerationClient(
			cfg.OpenAIAPIKey,
			infra.WithModerationURL(cfg.ModerationURL),
			infra.WithModerationTimeout(cfg.ModerationTimeout),
			infra.WithModerationLogger(logger),
		)
	}
	gw := application.NewGateway(gwCfg)
	if err := gw.ConfigErr(); err != nil {
		// sobe mesmo assim: toda submissão responde configuration_error
		logger.Error("gateway not configured", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sourceFn := guestbook.DefaultSourceFunc(cfg.SourceHeader, cfg.TrustXFF)

	var throttle guestbook.ThrottleOptions
	if cfg.ThrottleEnabled {
		burst := infra.NewBurstStore(cfg.ThrottleRPS, cfg.ThrottleBurst)
		burst.StartJanitor(ctx)
		throttle = guestbook.ThrottleOptions{
			Limiter:       burst,
			MinRetryAfter: cfg.RetryAfter,
			AddHeaders:    cfg.AddThrottleHeaders,
		}
	}
	var slots guestbook.SlotOptions
	if cfg.ConcurrencyMax > 0 {
		slots = guestbook.SlotOptions{
			Pool:           infra.NewSlotPool(cfg.ConcurrencyMax),
			AcquireTimeout: cfg.ConcurrencyTimeout,
		}
	}

	h := guestbook.NewRouter(guestbook.Options{
		Gateway:           gw,
		Identity:          guestbook.NewIdentityVerifier(cfg.IdentityJWTSecret, guestbook.WithIssuer(cfg.IdentityIssuer)),
		SourceFn:          sourceFn,
		TrustClientSource: cfg.TrustClientSource,
		Throttle:          throttle,
		Slots:             slots,
		Stats:             stats,
		StatsView:         statsView,
		Logger:            logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("guestbook gateway listening",
		"addr", cfg.ListenAddr,
		"store", cfg.StoreDriver,
		"moderation_url", cfg.ModerationURL,
		"moderation_timeout", cfg.ModerationTimeout,
	)
	logger.Info("abuse controls",
		"quota_limit", cfg.QuotaLimit,
		"quota_window", cfg.QuotaWindow,
		"throttle_enabled", cfg.ThrottleEnabled,
		"throttle_rps", cfg.ThrottleRPS,
		"throttle_burst", cfg.ThrottleBurst,
		"concurrency_max", cfg.ConcurrencyMax,
		"trust_xff", cfg.TrustXFF,
		"trust_client_source", cfg.TrustClientSource,
	)
	logger.Info("redis",
		"notify_enabled", cfg.NotifyEnabled,
		"notify_channel", cfg.NotifyChannel,
		"stats_enabled", cfg.StatsEnabled,
		"stats_backend", statsBackend(stats),
		"stats_bucket", cfg.StatsBucket,
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore abre o store do driver escolhido. Sem DATABASE_URL devolve store
// nil: o gateway sobe e responde configuration_error.
func openStore(cfg config, logger *slog.Logger) (domain.EntryStore, io.Closer, error) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; entries are lost on restart")
		return infra.NewMemoryStore(), nopCloser{}, nil
	case "sqlite":
		if cfg.storeDSN() == "" {
			return nil, nopCloser{}, nil
		}
		s, err := infra.OpenSQLite(cfg.storeDSN())
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		if cfg.storeDSN() == "" {
			return nil, nopCloser{}, nil
		}
		s, err := infra.OpenPostgres(cfg.storeDSN())
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

func statsBackend(s domain.OutcomeStats) string {
	switch s.(type) {
	case *infra.RedisStatsStore:
		return "redis"
	case *infra.MemoryStatsStore:
		return "memory"
	default:
		return "off"
	}
}
