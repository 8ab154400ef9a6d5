// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultJWTSecret is the fallback signing key. It is accepted only outside
// production.
const DefaultJWTSecret = "your-secret-key-change-in-production"

// dbPasswordPlaceholder is substituted with DB_PASSWORD in DATABASE_URL.
const dbPasswordPlaceholder = "<db_password>"

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	DefaultJWTSecret,
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Media providers.
const (
	MediaCloudinary = "cloudinary"
	MediaSupabase   = "supabase"
	MediaLocal      = "local"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	DBPassword  string `env:"DB_PASSWORD"`
	JWTSecret   string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	Env         string `env:"NODE_ENV" envDefault:"development"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"localhost"`
	ServerPort  int    `env:"SERVER_PORT" envDefault:"3000"`
	LogLevel    string `env:"LOG_LEVEL"` // empty: derived from NODE_ENV

	// Store call bounds; zero values fall back to per-environment defaults.
	DBTimeout    time.Duration `env:"DB_TIMEOUT"`
	DBMaxRetries int           `env:"DB_MAX_RETRIES" envDefault:"1"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	// Media upload configuration
	MediaProvider  string `env:"MEDIA_PROVIDER" envDefault:"cloudinary"`
	UploadMaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"4718592"` // 4.5MB
	UploadsDir     string `env:"UPLOADS_DIR" envDefault:"./uploads"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	SupabaseURL    string `env:"SUPABASE_URL"`
	SupabaseKey    string `env:"SUPABASE_KEY"`
	SupabaseBucket string `env:"SUPABASE_BUCKET" envDefault:"newsblogs"`

	// Optional Redis URL for sharing login lockouts between instances
	RedisURL string `env:"REDIS_URL"`

	// Source of newsctl import-mongo. Accepts the <db_password> placeholder.
	LegacyMongoURL string `env:"LEGACY_MONGO_URL"`

	// Extra host[:port] values trusted for cross-origin writes
	CSRFTrustedOrigins []string `env:"CSRF_TRUSTED_ORIGINS" envSeparator:","`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if the application is running in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedis returns true if a Redis URL is configured.
func (c Config) UseRedis() bool {
	return c.RedisURL != ""
}

// CloudinaryConfigured returns true if all Cloudinary credentials are set.
func (c Config) CloudinaryConfigured() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// SupabaseConfigured returns true if Supabase storage is configured.
func (c Config) SupabaseConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// SlogLevel returns the configured log level. Without LOG_LEVEL,
// development logs at debug and everything else at info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if c.IsDevelopment() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// EnvStatus reports whether each recognized variable is set, without
// exposing values.
func (c Config) EnvStatus() map[string]bool {
	return map[string]bool{
		"DATABASE_URL":          c.DatabaseURL != "",
		"JWT_SECRET":            c.JWTSecret != "" && c.JWTSecret != DefaultJWTSecret,
		"CLOUDINARY_CLOUD_NAME": c.CloudinaryCloudName != "",
		"CLOUDINARY_API_KEY":    c.CloudinaryAPIKey != "",
		"CLOUDINARY_API_SECRET": c.CloudinaryAPISecret != "",
		"SUPABASE_URL":          c.SupabaseURL != "",
		"SUPABASE_KEY":          c.SupabaseKey != "",
		"REDIS_URL":             c.RedisURL != "",
		"NODE_ENV":              c.Env != "",
	}
}

// MinJWTSecretLength is the minimum signing key length accepted in production.
const MinJWTSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	var err error
	if cfg.DatabaseURL, err = cfg.expandPassword("DATABASE_URL", cfg.DatabaseURL); err != nil {
		return nil, err
	}
	if cfg.LegacyMongoURL, err = cfg.expandPassword("LEGACY_MONGO_URL", cfg.LegacyMongoURL); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandPassword substitutes DB_PASSWORD for the placeholder in raw.
func (c *Config) expandPassword(name, raw string) (string, error) {
	if !strings.Contains(raw, dbPasswordPlaceholder) {
		return raw, nil
	}
	if c.DBPassword == "" {
		return "", errors.New(name + " contains " + dbPasswordPlaceholder + " but DB_PASSWORD is not set")
	}
	return strings.ReplaceAll(raw, dbPasswordPlaceholder, url.QueryEscape(c.DBPassword)), nil
}

// Validate checks cross-field rules that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "production", "test":
	default:
		return fmt.Errorf("NODE_ENV must be one of development, production, test; got %q", c.Env)
	}

	switch c.MediaProvider {
	case MediaCloudinary, MediaSupabase, MediaLocal:
	default:
		return fmt.Errorf("MEDIA_PROVIDER must be one of cloudinary, supabase, local; got %q", c.MediaProvider)
	}

	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.UploadMaxBytes)
	}
	if c.DBMaxRetries < 0 {
		return fmt.Errorf("DB_MAX_RETRIES must not be negative, got %d", c.DBMaxRetries)
	}

	if c.IsProduction() {
		// Reject known weak/default secrets
		for _, weak := range knownWeakSecrets {
			if c.JWTSecret == weak {
				return errors.New("JWT_SECRET is a known default value and must be overridden in production; " +
					"generate a secure secret with: openssl rand -base64 32")
			}
		}
		if len(c.JWTSecret) < MinJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d bytes long in production, got %d bytes",
				MinJWTSecretLength, len(c.JWTSecret))
		}
	} else if c.JWTSecret == DefaultJWTSecret {
		slog.Warn("JWT_SECRET is not set; using the insecure development default")
	}

	// Warn about low-entropy secrets
	if c.JWTSecret != DefaultJWTSecret && !hasMinimumEntropy(c.JWTSecret) {
		slog.Warn("JWT_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
