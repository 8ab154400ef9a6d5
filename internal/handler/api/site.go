// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mileusna/useragent"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/service"
)

const homeCacheKey = "site:home"

// errSparseHome keeps a degraded home page out of the cache.
var errSparseHome = errors.New("home page has no articles")

// HomeResponse is the body of GET /api/site/home.
type HomeResponse struct {
	Success bool `json:"success"`
	*service.Home
}

// ArticlePageResponse is the body of GET /api/site/articles/{slug}.
type ArticlePageResponse struct {
	Success bool `json:"success"`
	*service.ArticlePage
}

// CategoryPageResponse is the body of GET /api/site/categories/{slug}.
type CategoryPageResponse struct {
	Success bool `json:"success"`
	*service.CategoryPage
}

// SearchResponse is the body of GET /api/site/search.
type SearchResponse struct {
	Success bool            `json:"success"`
	Query   string          `json:"query"`
	Results []model.Article `json:"results"`
}

// Home handles GET /api/site/home.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, r, http.StatusOK, HomeResponse{Success: true, Home: h.loadHome(r.Context())})
}

func (h *Handler) loadHome(ctx context.Context) *service.Home {
	if h.home == nil {
		return h.site.Home(ctx)
	}

	var fresh *service.Home
	home, err := h.home.GetOrLoad(ctx, homeCacheKey, func(ctx context.Context) (*service.Home, error) {
		fresh = h.site.Home(ctx)
		if len(fresh.Latest) == 0 {
			return nil, errSparseHome
		}
		return fresh, nil
	})
	if err != nil {
		if fresh != nil {
			return fresh
		}
		return h.site.Home(ctx)
	}
	return home
}

// ArticlePage handles GET /api/site/articles/{slug}.
func (h *Handler) ArticlePage(w http.ResponseWriter, r *http.Request) {
	page, err := h.site.Article(r.Context(), chi.URLParam(r, "slug"), countableView(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, r, http.StatusOK, ArticlePageResponse{Success: true, ArticlePage: page})
}

// CategoryPage handles GET /api/site/categories/{slug}.
func (h *Handler) CategoryPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, err := h.site.Category(r.Context(),
		chi.URLParam(r, "slug"),
		q.Get("subcategory"),
		min(max(limit, 0), MaxListLimit),
		max(offset, 0),
	)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, r, http.StatusOK, CategoryPageResponse{Success: true, CategoryPage: page})
}

// Search handles GET /api/site/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	WriteJSON(w, r, http.StatusOK, SearchResponse{
		Success: true,
		Query:   query,
		Results: h.site.Search(r.Context(), query, limit),
	})
}

// prefetchHeaders mark speculative loads that must not count as reads.
var prefetchHeaders = map[string]string{
	"Purpose":     "prefetch",
	"Sec-Purpose": "prefetch",
	"X-Purpose":   "preview",
	"X-Moz":       "prefetch",
}

// countableView reports whether r is a human page view: not a prefetch
// and not from a crawler or an empty user agent.
func countableView(r *http.Request) bool {
	for name, value := range prefetchHeaders {
		if strings.Contains(strings.ToLower(r.Header.Get(name)), value) {
			return false
		}
	}

	raw := strings.TrimSpace(r.UserAgent())
	if raw == "" {
		return false
	}
	return !useragent.Parse(raw).Bot
}
