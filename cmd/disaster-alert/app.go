package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr1hm/disaster-reports/internal/auth"
	"github.com/mr1hm/disaster-reports/internal/config"
	"github.com/mr1hm/disaster-reports/internal/metrics"
	"github.com/mr1hm/disaster-reports/internal/repository"
	"github.com/mr1hm/disaster-reports/internal/service"
)

// app holds the wired services shared by the subcommands.
type app struct {
	cfg     *config.Config
	db      *repository.SQLiteDB
	revoker auth.Revoker
	metrics *metrics.Metrics

	alerts     *service.AlertService
	query      *service.QueryService
	moderation *service.ModerationService
	sessions   *service.SessionService

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &app{
		cfg:     cfg,
		db:      db,
		metrics: metrics.New(),
		closers: []func() error{db.Close},
	}

	if cfg.Redis.Addr != "" {
		rr := auth.NewRedisRevoker(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rr.Ping(pingCtx); err != nil {
			rr.Close()
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.revoker = rr
		a.closers = append(a.closers, rr.Close)
		slog.Info("using redis revocation list", "addr", cfg.Redis.Addr)
	} else {
		a.revoker = auth.NewMemoryRevoker(10 * time.Minute)
		slog.Info("using in-process revocation list")
	}

	limits := service.PageLimits{
		Default: cfg.Pagination.DefaultLimit,
		Max:     cfg.Pagination.MaxLimit,
	}
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	a.alerts = service.NewAlertService(db, a.metrics)
	a.query = service.NewQueryService(db, db, limits)
	a.moderation = service.NewModerationService(db, db, a.revoker, a.metrics, service.ModerationConfig{
		RevokeFor:      cfg.Auth.TokenTTL,
		CascadeWorkers: cfg.Worker.Count,
		Limits:         limits,
	})
	a.sessions = service.NewSessionService(db, tokens, hasher, a.revoker, a.metrics)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("close failed", "error", err)
		}
	}
}
