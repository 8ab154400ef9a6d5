// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsdesk/internal/apperr"
	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/util"
)

// MaxListLimit caps the limit query parameter of blog listings.
const MaxListLimit = 100

// BlogsResponse is the body of a blog listing.
type BlogsResponse struct {
	Success bool            `json:"success"`
	Blogs   []model.Article `json:"blogs"`
}

// BlogResponse is the body of a single blog.
type BlogResponse struct {
	Success bool           `json:"success"`
	Blog    *model.Article `json:"blog"`
}

// ViewResponse is the body of a view count request.
type ViewResponse struct {
	Success bool `json:"success"`
	Counted bool `json:"counted"`
}

// SuccessResponse is a body carrying only the success flag.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ListBlogs handles GET /api/blogs.
// Anonymous callers only ever see published articles.
func (h *Handler) ListBlogs(w http.ResponseWriter, r *http.Request) {
	f := parseArticleFilter(r)
	if middleware.GetUser(r) == nil {
		f.Published = model.Bool(true)
	}
	WriteJSON(w, r, http.StatusOK, BlogsResponse{
		Success: true,
		Blogs:   h.articles.List(r.Context(), f),
	})
}

// CreateBlog handles POST /api/blogs.
func (h *Handler) CreateBlog(w http.ResponseWriter, r *http.Request) {
	var in model.ArticleInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(in.Author) == "" {
		if user := middleware.GetUser(r); user != nil && user.Name != "" {
			in.Author = user.Name
		}
	}

	a, err := h.articles.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidateHome(r.Context())

	h.logger.Info("blog created", "id", a.ID, "slug", a.Slug, "user_id", middleware.GetUserID(r))
	WriteJSON(w, r, http.StatusCreated, BlogResponse{Success: true, Blog: a})
}

// GetBlogBySlug handles GET /api/blogs/slug/{slug}.
func (h *Handler) GetBlogBySlug(w http.ResponseWriter, r *http.Request) {
	a, err := h.articles.GetBySlug(r.Context(), chi.URLParam(r, "slug"), false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !visible(r, a) {
		WriteResult(w, r, apperr.NotFound(service.MsgBlogNotFound))
		return
	}
	WriteJSON(w, r, http.StatusOK, BlogResponse{Success: true, Blog: a})
}

// CountBlogView handles POST /api/blogs/slug/{slug}/view. Counting is best
// effort: bots, prefetches and unknown slugs answer success without
// counting.
func (h *Handler) CountBlogView(w http.ResponseWriter, r *http.Request) {
	counted := false
	if countableView(r) {
		counted = h.articles.IncrementViews(r.Context(), chi.URLParam(r, "slug"))
	}
	WriteJSON(w, r, http.StatusOK, ViewResponse{Success: true, Counted: counted})
}

// GetBlog handles GET /api/blogs/{id}.
func (h *Handler) GetBlog(w http.ResponseWriter, r *http.Request) {
	a, err := h.articles.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !visible(r, a) {
		WriteResult(w, r, apperr.NotFound(service.MsgBlogNotFound))
		return
	}
	WriteJSON(w, r, http.StatusOK, BlogResponse{Success: true, Blog: a})
}

// UpdateBlog handles PUT /api/blogs/{id}.
func (h *Handler) UpdateBlog(w http.ResponseWriter, r *http.Request) {
	id, ok := util.ParseID(chi.URLParam(r, "id"))
	if !ok {
		WriteResult(w, r, apperr.NotFound(service.MsgBlogNotFound))
		return
	}

	var patch model.ArticlePatch
	if err := decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	a, err := h.articles.Update(r.Context(), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !patch.IsEmpty() {
		h.invalidateHome(r.Context())
	}
	WriteJSON(w, r, http.StatusOK, BlogResponse{Success: true, Blog: a})
}

// DeleteBlog handles DELETE /api/blogs/{id}.
func (h *Handler) DeleteBlog(w http.ResponseWriter, r *http.Request) {
	id, ok := util.ParseID(chi.URLParam(r, "id"))
	if !ok {
		WriteResult(w, r, apperr.NotFound(service.MsgBlogNotFound))
		return
	}

	removed, err := h.articles.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !removed {
		WriteResult(w, r, apperr.NotFound(service.MsgBlogNotFound))
		return
	}
	h.invalidateHome(r.Context())

	h.logger.Info("blog deleted", "id", id, "user_id", middleware.GetUserID(r))
	WriteJSON(w, r, http.StatusOK, SuccessResponse{Success: true})
}

// visible reports whether a may be shown to the caller. Drafts are
// visible to signed-in users only.
func visible(r *http.Request, a *model.Article) bool {
	if a == nil {
		return false
	}
	return a.Published || middleware.GetUser(r) != nil
}

// parseArticleFilter reads the listing query parameters. Malformed values
// are ignored.
func parseArticleFilter(r *http.Request) model.ArticleFilter {
	q := r.URL.Query()
	f := model.ArticleFilter{
		Published:   parseBool(q.Get("published")),
		Featured:    parseBool(q.Get("featured")),
		Category:    strings.TrimSpace(q.Get("category")),
		Subcategory: strings.TrimSpace(q.Get("subcategory")),
		Search:      strings.TrimSpace(q.Get("search")),
		ExcludeSlug: strings.TrimSpace(q.Get("exclude")),
	}
	if q.Get("sort") == model.SortMostViewed {
		f.Sort = model.SortMostViewed
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = min(n, MaxListLimit)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		f.Offset = n
	}
	return f
}

func parseBool(s string) *bool {
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}

// invalidateHome drops the cached home page after an article write.
func (h *Handler) invalidateHome(ctx context.Context) {
	if h.home == nil {
		return
	}
	if err := h.home.Delete(ctx, homeCacheKey); err != nil {
		h.logger.Warn("invalidating home page cache failed", "error", err)
	}
}
