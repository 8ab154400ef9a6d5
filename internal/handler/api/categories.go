// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsdesk/internal/apperr"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/util"
)

// CategoriesResponse is the body of a category listing.
type CategoriesResponse struct {
	Success    bool             `json:"success"`
	Categories []model.Category `json:"categories"`
}

// CategoryResponse is the body of a single category.
type CategoryResponse struct {
	Success  bool            `json:"success"`
	Category *model.Category `json:"category"`
}

// SubcategoryResponse is the body of a single subcategory.
type SubcategoryResponse struct {
	Success     bool               `json:"success"`
	Subcategory *model.Subcategory `json:"subcategory"`
}

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	WriteJSON(w, r, http.StatusOK, CategoriesResponse{
		Success:    true,
		Categories: h.categories.List(r.Context(), activeOnly),
	})
}

// GetCategory handles GET /api/categories/{id}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.MsgCategoryNotFound)
	if !ok {
		return
	}
	c, err := h.categories.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, r, http.StatusOK, CategoryResponse{Success: true, Category: c})
}

// CreateCategory handles POST /api/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in model.CategoryInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.categories.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidateHome(r.Context())
	WriteJSON(w, r, http.StatusCreated, CategoryResponse{Success: true, Category: c})
}

// UpdateCategory handles PUT /api/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.MsgCategoryNotFound)
	if !ok {
		return
	}
	var in model.CategoryInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.categories.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidateHome(r.Context())
	WriteJSON(w, r, http.StatusOK, CategoryResponse{Success: true, Category: c})
}

// DeleteCategory handles DELETE /api/categories/{id}. Subcategories go
// with it; articles keep their category name but lose the link.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.MsgCategoryNotFound)
	if !ok {
		return
	}
	h.deleted(w, r, service.MsgCategoryNotFound)(h.categories.Delete(r.Context(), id))
}

// CreateSubcategory handles POST /api/categories/{id}/subcategories.
func (h *Handler) CreateSubcategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.MsgCategoryNotFound)
	if !ok {
		return
	}
	var in model.CategoryInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	sub, err := h.categories.CreateSubcategory(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, r, http.StatusCreated, SubcategoryResponse{Success: true, Subcategory: sub})
}

// UpdateSubcategory handles PUT /api/subcategories/{id}.
func (h *Handler) UpdateSubcategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.MsgSubcategoryNotFound)
	if !ok {
		return
	}
	var in model.CategoryInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	sub, err := h.categories.UpdateSubcategory(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, r, http.StatusOK, SubcategoryResponse{Success: true, Subcategory: sub})
}

// DeleteSubcategory handles DELETE /api/subcategories/{id}.
func (h *Handler) DeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.MsgSubcategoryNotFound)
	if !ok {
		return
	}
	h.deleted(w, r, service.MsgSubcategoryNotFound)(h.categories.DeleteSubcategory(r.Context(), id))
}

// pathID parses the {id} URL parameter. A malformed id answers 404 with
// notFound, the same as a missing row.
func pathID(w http.ResponseWriter, r *http.Request, notFound string) (int64, bool) {
	id, ok := util.ParseID(chi.URLParam(r, "id"))
	if !ok {
		WriteResult(w, r, apperr.NotFound(notFound))
		return 0, false
	}
	return id, true
}

// deleted returns a writer for the result of a delete call.
func (h *Handler) deleted(w http.ResponseWriter, r *http.Request, notFound string) func(bool, error) {
	return func(removed bool, err error) {
		switch {
		case err != nil:
			h.fail(w, r, err)
		case !removed:
			WriteResult(w, r, apperr.NotFound(notFound))
		default:
			h.invalidateHome(r.Context())
			WriteJSON(w, r, http.StatusOK, SuccessResponse{Success: true})
		}
	}
}
