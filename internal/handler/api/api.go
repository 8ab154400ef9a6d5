// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON REST API of newsdesk: blogs, categories,
// authentication, image upload and the composed reader-site pages.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/olegiv/newsdesk/internal/apperr"
	"github.com/olegiv/newsdesk/internal/auth"
	"github.com/olegiv/newsdesk/internal/cache"
	"github.com/olegiv/newsdesk/internal/media"
	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/service"
)

// Error codes that are not derived from an apperr.Kind.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInvalidJSON      = "INVALID_JSON"
)

// DefaultHomeCacheTTL bounds how stale a cached home page may get between
// article writes.
const DefaultHomeCacheTTL = 30 * time.Second

// Deps are the collaborators of the API handlers.
type Deps struct {
	Articles   *service.ArticleService
	Categories *service.CategoryService
	Site       *service.SiteService
	Auth       *auth.Authenticator
	Lockout    *middleware.LoginProtection
	// Uploader may be nil when no media provider is configured.
	Uploader media.Uploader
	// Cache holds the composed home page. Nil disables caching.
	Cache  cache.Store
	Logger *slog.Logger
}

// Options tune handler behavior.
type Options struct {
	UploadMaxBytes int64
	SecureCookies  bool
	HomeCacheTTL   time.Duration
	// EnvStatus reports which environment variables are set.
	EnvStatus func() map[string]bool
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	articles   *service.ArticleService
	categories *service.CategoryService
	site       *service.SiteService
	auth       *auth.Authenticator
	lockout    *middleware.LoginProtection
	uploader   media.Uploader
	home       *cache.Typed[service.Home]
	opts       Options
	logger     *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps, opts Options) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = DefaultUploadMaxBytes
	}
	if opts.HomeCacheTTL <= 0 {
		opts.HomeCacheTTL = DefaultHomeCacheTTL
	}

	h := &Handler{
		articles:   d.Articles,
		categories: d.Categories,
		site:       d.Site,
		auth:       d.Auth,
		lockout:    d.Lockout,
		uploader:   d.Uploader,
		opts:       opts,
		logger:     logger.With("component", "api"),
	}
	if d.Cache != nil {
		h.home = cache.NewTyped[service.Home](d.Cache, opts.HomeCacheTTL)
	}
	return h
}

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	HTTPStatusCode int `json:"-"`

	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// Render implements render.Renderer.
func (e *ErrorResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, r *http.Request, statusCode int, v any) {
	render.Status(r, statusCode)
	render.JSON(w, r, v)
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, message, code string) {
	_ = render.Render(w, r, &ErrorResponse{
		HTTPStatusCode: statusCode,
		Error:          message,
		Code:           code,
	})
}

// WriteResult writes the error half of a service result. Errors that are
// not classified become a generic 500 so internal detail never reaches the
// caller.
func WriteResult(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.From(err)
	WriteError(w, r, ae.Kind.Status(), ae.Message, ae.Code)
}

// fail logs server-side failures and writes err.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.From(err)
	switch ae.Kind {
	case apperr.KindInternal, apperr.KindUnavailable:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", ae.Kind,
			"error", err,
		)
	}
	WriteResult(w, r, ae)
}

// decode binds the JSON body into v. A malformed body is a validation error.
func decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.New(apperr.KindTooLarge, "Request body is too large")
		}
		return apperr.Validation("Invalid JSON body").WithCode(CodeInvalidJSON)
	}
	return nil
}

// NotFound is the JSON 404 for unknown API routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusNotFound, "Not found", CodeNotFound)
}

// MethodNotAllowed is the JSON 405 for known routes with another method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusMethodNotAllowed, "Method not allowed", CodeMethodNotAllowed)
}

// CheckEnvResponse reports which recognized variables are set.
type CheckEnvResponse struct {
	Success   bool              `json:"success"`
	Variables map[string]string `json:"variables"`
}

// CheckEnv handles GET /api/check-env.
func (h *Handler) CheckEnv(w http.ResponseWriter, r *http.Request) {
	vars := map[string]string{}
	if h.opts.EnvStatus != nil {
		for name, set := range h.opts.EnvStatus() {
			if set {
				vars[name] = "Set"
			} else {
				vars[name] = "Missing"
			}
		}
	}
	WriteJSON(w, r, http.StatusOK, CheckEnvResponse{Success: true, Variables: vars})
}
