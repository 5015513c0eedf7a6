package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/5w1tchy/reading-list/internal/api/apperr"
	"github.com/5w1tchy/reading-list/internal/api/router"
	"github.com/5w1tchy/reading-list/internal/config"
	"github.com/5w1tchy/reading-list/internal/logging"
	"github.com/5w1tchy/reading-list/internal/maintenance"
	"github.com/5w1tchy/reading-list/internal/ratelimit"
	"github.com/5w1tchy/reading-list/internal/storage/s3"
	"github.com/5w1tchy/reading-list/internal/store/books"
	"github.com/redis/go-redis/v9"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	apperr.SetAuditLogger(logging.Audit(logger))

	for _, w := range cfg.Warnings() {
		logger.Warn("config", "warning", w)
	}
	red := cfg.Redacted()
	logger.Info("starting",
		"addr", cfg.Addr,
		"env", cfg.AppEnv,
		"storage", cfg.StorageBackend,
		"database_url", red.DatabaseURL,
		"rate_limit", cfg.RateLimit.Backend,
		"tls", cfg.TLS(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := books.Open(ctx, cfg.StorageBackend, cfg.DatabaseURL, cfg.EnsureSchema)
	if err != nil {
		return err
	}
	defer store.Close()

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	if cfg.Snapshot.Enabled() {
		up, err := s3.New(ctx, s3.Options{
			Bucket:   cfg.Snapshot.Bucket,
			Region:   cfg.Snapshot.Region,
			Endpoint: cfg.Snapshot.Endpoint,
		})
		if err != nil {
			return err
		}
		h, m, _ := config.ParseClock(cfg.Snapshot.At)
		maintenance.StartSnapshots(ctx, store, up, h, m, cfg.Snapshot.TZ, logger)
		logger.Info("snapshots scheduled", "bucket", cfg.Snapshot.Bucket, "at", cfg.Snapshot.At, "tz", cfg.Snapshot.TZ)
	}

	server := &http.Server{
		Addr: cfg.Addr,
		Handler: router.New(router.Options{
			Store:        store,
			Limiter:      limiter,
			Logger:       logger,
			MaxBodyBytes: cfg.MaxBodyBytes,
			TrustProxy:   cfg.RateLimit.TrustProxy,
			CORSOrigins:  cfg.CORSOrigins,
			StrictSec:    cfg.StrictSecurity,
		}),
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if cfg.TLS() {
			errc <- server.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "grace", shutdownGrace)
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLimiter(ctx context.Context, cfg config.Config, logger *slog.Logger) (ratelimit.Store, func(), error) {
	rule := ratelimit.DefaultRule()
	rule.Window = cfg.RateLimit.Window
	rule.ScopedLimit = cfg.RateLimit.PostLimit
	rule.GlobalLimit = cfg.RateLimit.GlobalLimit

	if cfg.RateLimit.Backend != config.BackendRedis {
		mem := ratelimit.NewMemoryStore(rule,
			ratelimit.WithIdleTTL(cfg.RateLimit.IdleTTL),
			ratelimit.WithSweepEvery(cfg.RateLimit.SweepEvery),
		)
		mem.StartJanitor(ctx)
		return mem, func() {}, nil
	}

	rdb, err := newRedis(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	// unreachable Redis is not fatal: the limiter fails open
	if err := rdb.Ping(pctx).Err(); err != nil {
		logger.Warn("redis ping failed; rate limiting will fail open until it recovers", "err", err)
	} else {
		logger.Info("connected to redis")
	}
	return ratelimit.NewRedisStore(rdb, rule), func() { _ = rdb.Close() }, nil
}

func newRedis(rc config.Redis) (*redis.Client, error) {
	if rc.URL != "" {
		// e.g. rediss://default:<token>@host:port
		opt, err := redis.ParseURL(rc.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opt.DialTimeout = 5 * time.Second
		opt.ReadTimeout = 1 * time.Second
		opt.WriteTimeout = 1 * time.Second
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         rc.Addr,
		Username:     rc.User,
		Password:     rc.Password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	}), nil
}
