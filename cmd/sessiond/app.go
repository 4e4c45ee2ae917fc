package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/saraha-app/sessionkit"
	"github.com/saraha-app/sessionkit/cleanup"
	"github.com/saraha-app/sessionkit/credential"
	"github.com/saraha-app/sessionkit/metrics/export/prometheus"
	"github.com/saraha-app/sessionkit/notify"
)

type app struct {
	settings  settings
	logger    *slog.Logger
	engine    *sessionkit.Engine
	scheduler *cleanup.Scheduler
	server    *http.Server
	closers   []func()
}

func newApp(ctx context.Context, s settings, cfg sessionkit.Config, logger *slog.Logger) (*app, error) {
	a := &app{settings: s, logger: logger}

	if s.RedisAddr == "" && cfg.Security.EnableLoginRateLimit {
		logger.Warn("login rate limiting needs redis; disabled")
		cfg.Security.EnableLoginRateLimit = false
	}

	builder := sessionkit.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithNotifier(a.notifier()).
		WithAuditSink(sessionkit.SlogSink{Logger: logger})

	var sweeper credential.Sweeper
	var blacklist credential.Blacklist

	if s.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		builder = builder.WithRedis(rdb)

		if s.DatabaseURL == "" {
			store := credential.NewRedisStore(rdb, credential.WithRedisPrefix(cfg.Security.RedisPrefix))
			builder = builder.WithStore(store)
			sweeper, blacklist = store, store
		}
	}

	if s.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, s.DatabaseURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := credential.RunMigrations(ctx, pool); err != nil {
			a.close()
			return nil, err
		}
		store := credential.NewPostgresStore(pool)
		builder = builder.WithStore(store).WithBlacklist(store)
		sweeper, blacklist = store, store
	}

	engine, err := builder.Build()
	if err != nil {
		a.close()
		return nil, err
	}
	a.engine = engine

	a.scheduler, err = cleanup.New(cfg.Cleanup, sweeper, blacklist, cleanup.WithLogger(logger))
	if err != nil {
		a.close()
		engine.Close()
		return nil, err
	}

	router := newRouter(engine, routerOptions{
		SecureCookies: s.SecureCookies,
		TrustProxy:    s.TrustProxy,
		Metrics:       prometheus.NewCollector(engine).Handler(),
	})
	a.server = &http.Server{
		Addr:              s.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

func (a *app) notifier() sessionkit.Notifier {
	logNotifier := notify.LogNotifier{Logger: a.logger}
	if a.settings.SMTPHost == "" {
		return logNotifier
	}
	smtp, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     a.settings.SMTPHost,
		Port:     a.settings.SMTPPort,
		Username: a.settings.SMTPUsername,
		Password: a.settings.SMTPPassword,
		From:     a.settings.SMTPFrom,
	})
	if err != nil {
		a.logger.Warn("smtp notifier disabled", "error", err)
		return logNotifier
	}
	return notify.Chain(smtp, logNotifier)
}

func (a *app) run(ctx context.Context) error {
	defer a.close()
	defer a.engine.Close()

	a.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", "addr", a.settings.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.settings.ShutdownTimeout)
	defer cancel()

	a.logger.Info("shutting down")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown", "error", err)
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Error("cleanup shutdown", "error", err)
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
