// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/docgen"
	"github.com/go-chi/render"

	"github.com/olegiv/newsdesk/internal/middleware"
)

// MaxJSONBodyBytes bounds JSON request bodies.
const MaxJSONBodyBytes int64 = 1 << 20

// Routes returns the router mounted at /api. It expects LoadUser to have
// run so that protected routes can see the current user.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	// Upload bodies are bounded by the handler itself.
	r.With(middleware.RequireUser).Post("/upload", h.Upload)

	r.Group(func(r chi.Router) {
		r.Use(chimw.RequestSize(MaxJSONBodyBytes))

		r.Route("/blogs", func(r chi.Router) {
			r.Get("/", h.ListBlogs)
			r.With(middleware.RequireUser).Post("/", h.CreateBlog)
			r.Get("/slug/{slug}", h.GetBlogBySlug)
			r.Post("/slug/{slug}/view", h.CountBlogView)
			r.Get("/{id}", h.GetBlog)
			r.With(middleware.RequireUser).Put("/{id}", h.UpdateBlog)
			r.With(middleware.RequireUser).Delete("/{id}", h.DeleteBlog)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Get("/{id}", h.GetCategory)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Post("/", h.CreateCategory)
				r.Put("/{id}", h.UpdateCategory)
				r.Delete("/{id}", h.DeleteCategory)
				r.Post("/{id}/subcategories", h.CreateSubcategory)
			})
		})

		r.Route("/subcategories", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Put("/{id}", h.UpdateSubcategory)
			r.Delete("/{id}", h.DeleteSubcategory)
		})

		r.Route("/auth", func(r chi.Router) {
			if h.lockout != nil {
				r.With(h.lockout.Middleware()).Post("/login", h.Login)
			} else {
				r.Post("/login", h.Login)
			}
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
		})

		r.Route("/site", func(r chi.Router) {
			r.Get("/home", h.Home)
			r.Get("/articles/{slug}", h.ArticlePage)
			r.Get("/categories/{slug}", h.CategoryPage)
			r.Get("/search", h.Search)
		})

		r.With(middleware.RequireUser).Get("/check-env", h.CheckEnv)
	})

	return r
}

// RoutesDoc renders the route tree of r as Markdown.
func RoutesDoc(r chi.Router) string {
	return docgen.MarkdownRoutesDoc(r, docgen.MarkdownOpts{
		ProjectPath: "github.com/olegiv/newsdesk",
		Intro:       "Routes served by the newsdesk server.",
	})
}
