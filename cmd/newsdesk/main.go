// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/olegiv/newsdesk/internal/app"
	"github.com/olegiv/newsdesk/internal/config"
	"github.com/olegiv/newsdesk/internal/handler/api"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func buildInfo() version.Info {
	return version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showRoutes := flag.Bool("routes", false, "Print the API route table as Markdown and exit")
	migrate := flag.Bool("migrate", false, "Apply migrations and seed categories before serving, in any environment")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "newsdesk - news and blog publishing backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DATABASE_URL     postgres:// URL or sqlite: path (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DB_PASSWORD      Substituted for <db_password> in DATABASE_URL\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JWT_SECRET       Session token signing key (min 32 bytes in production)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NODE_ENV         development|production|test (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SERVER_PORT      Server port (default: 3000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MEDIA_PROVIDER   cloudinary|supabase|local (default: cloudinary)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REDIS_URL        Redis URL for shared caching and lockouts (optional)\n")
	}
	flag.Parse()

	if *showVersion {
		_, _ = fmt.Println("newsdesk", buildInfo().String())
		os.Exit(0)
	}
	if *showRoutes {
		r := chi.NewRouter()
		r.Mount("/api", api.NewHandler(api.Deps{}, api.Options{}).Routes())
		_, _ = fmt.Println(api.RoutesDoc(r))
		os.Exit(0)
	}

	if err := run(*migrate); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(forceMigrate bool) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := app.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	m, err := app.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	ctx := context.Background()
	if err := m.Ping(ctx); err != nil {
		if !cfg.IsProduction() {
			return fmt.Errorf("connecting to database: %w", err)
		}
		// Reads degrade while the database is away; the pool recovers on
		// its own once it is reachable.
		slog.Warn("database not reachable at startup", "error", err)
	} else if cfg.IsDevelopment() || forceMigrate {
		if err := app.Prepare(ctx, store.New(m), logger); err != nil {
			return err
		}
	}

	uploader, err := app.OpenUploader(cfg, logger)
	if err != nil {
		return err
	}

	cacheStore := app.OpenCache(cfg, logger)
	defer func() { _ = cacheStore.Close() }()

	router := app.NewRouter(app.Deps{
		Config:   cfg,
		Logger:   logger,
		Store:    m,
		Cache:    cacheStore,
		Uploader: uploader,
		Version:  buildInfo(),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       30 * time.Second, // multipart uploads up to the size limit
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      app.WriteTimeout(cfg),
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", appVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
