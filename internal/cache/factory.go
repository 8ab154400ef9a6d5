// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"net/url"
	"time"
)

// Config holds configuration for store creation.
type Config struct {
	// RedisURL selects the Redis store when set.
	// Example: redis://localhost:6379/0
	RedisURL string

	// Prefix is the key prefix for Redis.
	Prefix string

	// DefaultTTL is the default TTL for entries.
	DefaultTTL time.Duration

	// MaxItems bounds the memory store (0 = unlimited).
	MaxItems int

	// CleanupInterval is the interval for expired entry cleanup in memory.
	CleanupInterval time.Duration
}

// DefaultConfig returns the default memory-backed configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:      time.Hour,
		MaxItems:        10000,
		CleanupInterval: time.Minute,
	}
}

// Open creates a store from cfg. When RedisURL is set but Redis cannot be
// reached, Open logs a warning and falls back to memory so that a cache
// outage never prevents startup. The returned string names the backend.
func Open(cfg Config, logger *slog.Logger) (Store, string) {
	if cfg.RedisURL != "" {
		opts := DefaultRedisOptions()
		opts.URL = cfg.RedisURL
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		if cfg.DefaultTTL > 0 {
			opts.DefaultTTL = cfg.DefaultTTL
		}

		s, err := NewRedisStore(opts)
		if err == nil {
			logger.Info("cache backend ready", "backend", "redis", "url", SanitizeRedisURL(cfg.RedisURL))
			return s, "redis"
		}
		logger.Warn("redis unavailable, falling back to memory cache",
			"url", SanitizeRedisURL(cfg.RedisURL),
			"error", err,
		)
	}

	return NewMemoryStore(MemoryOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxItems:        cfg.MaxItems,
		CleanupInterval: cfg.CleanupInterval,
	}), "memory"
}

// SanitizeRedisURL masks the password in a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
