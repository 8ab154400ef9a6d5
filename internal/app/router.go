// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package app

import (
	"crypto/sha256"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/newsdesk/internal/auth"
	"github.com/olegiv/newsdesk/internal/cache"
	"github.com/olegiv/newsdesk/internal/config"
	"github.com/olegiv/newsdesk/internal/handler"
	"github.com/olegiv/newsdesk/internal/handler/api"
	"github.com/olegiv/newsdesk/internal/media"
	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/version"
)

// Per-IP request budget of the API.
const (
	apiRateLimit = 20
	apiRateBurst = 40
)

// Deps are the collaborators NewRouter mounts.
type Deps struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *store.Manager
	// Cache backs login lockouts and the home page. Nil uses memory.
	Cache cache.Store
	// Uploader may be nil; uploads then report they are not configured.
	Uploader media.Uploader
	Version  version.Info
}

// NewRouter builds the HTTP handler of the server: health probes, the JSON
// API under /api and, with local media storage, the uploaded files.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logger := d.Logger
	if d.Cache == nil {
		d.Cache = cache.NewMemoryStore(cache.MemoryOptions{})
	}

	queries := store.New(d.Store)
	articles := service.NewArticleService(queries, logger)
	categories := service.NewCategoryService(queries, logger)
	site := service.NewSiteService(articles, categories)
	authenticator := auth.NewAuthenticator(queries, auth.NewTokenIssuer(cfg.JWTSecret), logger)

	lockout := middleware.DefaultLoginProtectionConfig()
	lockout.Store = d.Cache
	loginProtection := middleware.NewLoginProtection(lockout)

	apiHandler := api.NewHandler(api.Deps{
		Articles:   articles,
		Categories: categories,
		Site:       site,
		Auth:       authenticator,
		Lockout:    loginProtection,
		Uploader:   d.Uploader,
		Cache:      d.Cache,
		Logger:     logger,
	}, api.Options{
		UploadMaxBytes: cfg.UploadMaxBytes,
		SecureCookies:  cfg.IsProduction(),
		EnvStatus:      cfg.EnvStatus,
	})

	uploadsDir := ""
	if cfg.MediaProvider == config.MediaLocal {
		uploadsDir = cfg.UploadsDir
	}
	health := handler.NewHealthHandler(d.Store, uploadsDir, d.Version.Short())

	r := chi.NewRouter()
	r.NotFound(api.NotFound)
	r.MethodNotAllowed(api.MethodNotAllowed)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.Recoverer(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.LoadUser(authenticator))

	r.Get("/health", health.Health)
	r.Get("/health/ready", health.Readiness)

	// The CSRF key only needs to be stable per deployment.
	csrfKey := sha256.Sum256([]byte("csrf:" + cfg.JWTSecret))
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRateLimiter("api", apiRateLimit, apiRateBurst).Middleware)
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig(csrfKey[:], cfg.IsDevelopment(), cfg.CSRFTrustedOrigins)))
		r.Mount("/api", apiHandler.Routes())
	})

	if uploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads", uploadsFileServer(uploadsDir)))
	}

	logger.Info("router ready",
		"media_provider", cfg.MediaProvider,
		"uploads_enabled", d.Uploader != nil,
		"request_timeout", cfg.RequestTimeout.String(),
	)
	return r
}

// uploadsFileServer serves files below dir without directory listings.
func uploadsFileServer(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := filepath.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		info, err := os.Stat(filepath.Join(dir, clean))
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		// Upload names are unique, so a stored file never changes.
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	})
}
