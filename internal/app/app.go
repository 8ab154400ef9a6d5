// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package app wires configuration, storage, services and HTTP routing into
// a running newsdesk instance. Both the server and newsctl bootstrap
// through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/olegiv/newsdesk/internal/cache"
	"github.com/olegiv/newsdesk/internal/config"
	"github.com/olegiv/newsdesk/internal/logging"
	"github.com/olegiv/newsdesk/internal/media"
	"github.com/olegiv/newsdesk/internal/retry"
	"github.com/olegiv/newsdesk/internal/store"
)

// Cache key prefix shared by every instance of one deployment.
const cachePrefix = "newsdesk:"

// NewLogger returns the process logger: JSON in production, text
// elsewhere, at the configured level.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.New(w, logging.Options{
		Level: cfg.SlogLevel(),
		JSON:  cfg.IsProduction(),
	})
}

// Time kept free of database work inside a request, for encoding the
// response.
const requestHeadroom = time.Second

// MinWriteTimeout is the smallest write timeout the server uses. Uploads
// stream for longer than a typical JSON request.
const MinWriteTimeout = 60 * time.Second

// StorePolicy derives the store retry policy from cfg. When requests are
// bounded, the per-attempt timeout is lowered so that every attempt and
// backoff fit inside REQUEST_TIMEOUT and the last retry is not cut off by
// the request timeout.
func StorePolicy(cfg *config.Config) retry.Policy {
	p := retry.DefaultPolicy(cfg.IsProduction())
	if cfg.DBTimeout > 0 {
		p.Timeout = cfg.DBTimeout
	}
	p.MaxRetries = cfg.DBMaxRetries

	if cfg.RequestTimeout > 0 {
		budget := cfg.RequestTimeout - requestHeadroom - time.Duration(p.MaxRetries)*p.MaxDelay
		perAttempt := budget / time.Duration(p.MaxRetries+1)
		if perAttempt < time.Second {
			perAttempt = time.Second
		}
		if p.Timeout > perAttempt {
			p.Timeout = perAttempt
		}
	}
	return p
}

// WriteTimeout returns the HTTP server write timeout for cfg: the request
// timeout plus a margin, never below MinWriteTimeout.
func WriteTimeout(cfg *config.Config) time.Duration {
	return max(cfg.RequestTimeout+5*time.Second, MinWriteTimeout)
}

// OpenStore opens the database pool described by cfg. The server is not
// contacted; use Ping for that.
func OpenStore(cfg *config.Config, logger *slog.Logger) (*store.Manager, error) {
	m, err := store.Open(store.Options{
		URL:        cfg.DatabaseURL,
		Production: cfg.IsProduction(),
		Policy:     StorePolicy(cfg),
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return m, nil
}

// Prepare applies pending migrations and seeds the default categories.
func Prepare(ctx context.Context, q *store.Queries, logger *slog.Logger) error {
	applied, err := q.Manager().Migrate(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", "versions", applied)
	}

	if _, err := store.SeedCategories(ctx, q); err != nil {
		return fmt.Errorf("seeding categories: %w", err)
	}
	return nil
}

// OpenCache returns the shared cache: Redis when REDIS_URL is set and
// reachable, memory otherwise.
func OpenCache(cfg *config.Config, logger *slog.Logger) cache.Store {
	cc := cache.DefaultConfig()
	cc.RedisURL = cfg.RedisURL
	cc.Prefix = cachePrefix
	c, _ := cache.Open(cc, logger)
	return c
}

// OpenUploader returns the configured media uploader. A provider without
// credentials yields nil and a warning so that the server still starts;
// uploads then answer UPLOAD_NOT_CONFIGURED.
func OpenUploader(cfg *config.Config, logger *slog.Logger) (media.Uploader, error) {
	u, err := media.New(cfg, logger)
	if errors.Is(err, media.ErrNotConfigured) {
		logger.Warn("image uploads disabled", "provider", cfg.MediaProvider, "reason", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("initializing media provider: %w", err)
	}
	logger.Info("media provider ready", "provider", u.Provider())
	return u, nil
}
