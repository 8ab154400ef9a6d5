// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/olegiv/newsdesk/internal/apperr"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/util"
)

// Category messages returned to API callers.
const (
	MsgCategoryNotFound    = "Category not found"
	MsgSubcategoryNotFound = "Subcategory not found"
	MsgCategoryExists      = "A category with this name or slug already exists"
	MsgSubcategoryExists   = "A subcategory with this slug already exists in the category"
)

// CategoryService manages categories and their subcategories.
type CategoryService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(queries *store.Queries, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		queries: queries,
		logger:  logger.With("component", "categories"),
	}
}

// List returns categories with nested subcategories. Like article lists it
// degrades to an empty result when the store fails.
func (s *CategoryService) List(ctx context.Context, activeOnly bool) []model.Category {
	list, err := s.queries.ListCategories(ctx, activeOnly)
	if err != nil {
		s.logger.Warn("listing categories failed, returning empty list", "error", err)
		return []model.Category{}
	}
	return list
}

// Get returns the category with id.
func (s *CategoryService) Get(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.queries.GetCategory(ctx, id)
	return c, s.readError(err, MsgCategoryNotFound)
}

// GetBySlug returns the category with slug.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	c, err := s.queries.GetCategoryBySlug(ctx, slug)
	return c, s.readError(err, MsgCategoryNotFound)
}

// Create validates in and stores a new category.
func (s *CategoryService) Create(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	p, err := categoryParams(in)
	if err != nil {
		return nil, err
	}
	c, err := s.queries.CreateCategory(ctx, p)
	if err != nil {
		return nil, s.writeError("creating category", err, MsgCategoryExists)
	}
	return &c, nil
}

// Update replaces the fields of the category with id.
func (s *CategoryService) Update(ctx context.Context, id int64, in model.CategoryInput) (*model.Category, error) {
	p, err := categoryParams(in)
	if err != nil {
		return nil, err
	}
	c, err := s.queries.UpdateCategory(ctx, id, p)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(MsgCategoryNotFound)
	}
	if err != nil {
		return nil, s.writeError("updating category", err, MsgCategoryExists)
	}
	return c, nil
}

// Delete removes the category with id together with its subcategories.
func (s *CategoryService) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := s.queries.DeleteCategory(ctx, id)
	if err != nil {
		return false, s.writeError("deleting category", err, "")
	}
	return removed, nil
}

// CreateSubcategory stores a new subcategory under categoryID.
func (s *CategoryService) CreateSubcategory(ctx context.Context, categoryID int64, in model.CategoryInput) (*model.Subcategory, error) {
	p, err := categoryParams(in)
	if err != nil {
		return nil, err
	}
	sub, err := s.queries.CreateSubcategory(ctx, categoryID, p)
	if errors.Is(err, store.ErrInvalidForeign) {
		return nil, apperr.NotFound(MsgCategoryNotFound)
	}
	if err != nil {
		return nil, s.writeError("creating subcategory", err, MsgSubcategoryExists)
	}
	return &sub, nil
}

// UpdateSubcategory replaces the fields of the subcategory with id.
func (s *CategoryService) UpdateSubcategory(ctx context.Context, id int64, in model.CategoryInput) (*model.Subcategory, error) {
	p, err := categoryParams(in)
	if err != nil {
		return nil, err
	}
	sub, err := s.queries.UpdateSubcategory(ctx, id, p)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(MsgSubcategoryNotFound)
	}
	if err != nil {
		return nil, s.writeError("updating subcategory", err, MsgSubcategoryExists)
	}
	return sub, nil
}

// DeleteSubcategory removes the subcategory with id.
func (s *CategoryService) DeleteSubcategory(ctx context.Context, id int64) (bool, error) {
	removed, err := s.queries.DeleteSubcategory(ctx, id)
	if err != nil {
		return false, s.writeError("deleting subcategory", err, "")
	}
	return removed, nil
}

func categoryParams(in model.CategoryInput) (store.CategoryParams, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return store.CategoryParams{}, apperr.Validation("Name is required")
	}
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = util.Slugify(name)
	}
	if !util.IsValidSlug(slug) {
		return store.CategoryParams{}, apperr.Validation(MsgInvalidSlug)
	}

	var desc *string
	if in.Description != nil {
		if d := strings.TrimSpace(*in.Description); d != "" {
			desc = &d
		}
	}
	return store.CategoryParams{
		Name:        name,
		Slug:        slug,
		Description: desc,
		OrderIndex:  in.OrderIndex,
		Active:      in.IsActive(),
	}, nil
}

func (s *CategoryService) readError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(notFound)
	default:
		return apperr.Unavailable(MsgDatabaseDown, err)
	}
}

func (s *CategoryService) writeError(op string, err error, duplicate string) error {
	if errors.Is(err, store.ErrDuplicate) && duplicate != "" {
		return apperr.Conflict(duplicate)
	}
	s.logger.Error(op+" failed", "error", err)
	return apperr.Unavailable(MsgDatabaseDown, err)
}
