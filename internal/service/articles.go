// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the application policies that sit between the HTTP
// handlers and the store: validation, defaults, content processing and the
// degrade-or-propagate rules for store failures.
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

// Messages returned to API callers.
const (
	MsgBlogNotFound     = "Blog not found"
	MsgDatabaseDown     = "Database is currently unavailable. Please try again later."
	MsgSlugTaken        = "A blog with this slug already exists"
	MsgInvalidSlug      = "Slug may only contain lowercase letters, numbers and hyphens"
	MsgUnknownCategory  = "Category or subcategory does not exist"
	MsgSubcategoryScope = "Subcategory does not belong to the selected category"
)

// ArticleService implements the article operations.
type ArticleService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewArticleService creates a new article service.
func NewArticleService(queries *store.Queries, logger *slog.Logger) *ArticleService {
	return &ArticleService{
		queries: queries,
		logger:  logger.With("component", "articles"),
	}
}

// List returns the articles matching f. A store failure is logged and
// yields an empty list so that read pages render without content instead
// of failing.
func (s *ArticleService) List(ctx context.Context, f model.ArticleFilter) []model.Article {
	articles, err := s.queries.ListArticles(ctx, f)
	if err != nil {
		s.logger.Warn("listing articles failed, returning empty list", "error", err)
		return []model.Article{}
	}
	return articles
}

// GetBySlug returns the article with slug, or nil if there is none. With
// incrementView set, the view counter is bumped after the read and the
// returned record carries the new count; a failed increment is logged and
// the read still succeeds.
func (s *ArticleService) GetBySlug(ctx context.Context, slug string, incrementView bool) (*model.Article, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}

	a, err := s.queries.GetArticleBySlug(ctx, slug)
	if err != nil {
		return nil, apperr.Unavailable(MsgDatabaseDown, err)
	}
	if a == nil || !incrementView {
		return a, nil
	}

	views, err := s.queries.IncrementArticleViews(ctx, slug)
	if err != nil {
		s.logger.Warn("incrementing views failed", "slug", slug, "error", err)
		return a, nil
	}
	a.Views = views
	return a, nil
}

// IncrementViews bumps the view counter of the article with slug and
// reports whether an article was counted. Failures are logged only.
func (s *ArticleService) IncrementViews(ctx context.Context, slug string) bool {
	if _, err := s.queries.IncrementArticleViews(ctx, slug); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("incrementing views failed", "slug", slug, "error", err)
		}
		return false
	}
	return true
}

// GetByID returns the article with the given raw id. A malformed id is
// treated like a missing article and yields nil.
func (s *ArticleService) GetByID(ctx context.Context, rawID string) (*model.Article, error) {
	id, ok := util.ParseID(rawID)
	if !ok {
		return nil, nil
	}
	a, err := s.queries.GetArticleByID(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(MsgDatabaseDown, err)
	}
	return a, nil
}

// Create validates in, applies defaults and stores a new article.
func (s *ArticleService) Create(ctx context.Context, in model.ArticleInput) (*model.Article, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	in.Slug = strings.TrimSpace(in.Slug)

	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Slug == "" {
		missing = append(missing, "slug")
	}
	if in.Excerpt == "" {
		missing = append(missing, "excerpt")
	}
	if strings.TrimSpace(in.Content) == "" {
		missing = append(missing, "content")
	}
	if in.FeaturedImage == "" {
		missing = append(missing, "featuredImage")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("Missing required fields: " + strings.Join(missing, ", "))
	}
	if !util.IsValidSlug(in.Slug) {
		return nil, apperr.Validation(MsgInvalidSlug)
	}

	body, err := renderBody(in.Content, in.ContentFormat)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	p := store.CreateArticleParams{
		Title:         in.Title,
		Slug:          in.Slug,
		Excerpt:       in.Excerpt,
		Content:       body,
		BodyText:      PlainText(body),
		FeaturedImage: in.FeaturedImage,
		Photos:        cleanList(in.Photos),
		Category:      strings.TrimSpace(in.Category),
		CategoryID:    in.CategoryID,
		SubcategoryID: in.SubcategoryID,
		Tags:          in.Tags,
		Author:        strings.TrimSpace(in.Author),
		Published:     in.Published != nil && *in.Published,
		Featured:      in.Featured != nil && *in.Featured,
	}
	if p.Author == "" {
		p.Author = model.DefaultAuthor
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if err := s.resolveCategory(ctx, &p.Category, &p.CategoryID, p.SubcategoryID); err != nil {
		return nil, err
	}

	a, err := s.queries.CreateArticle(ctx, p)
	if err != nil {
		return nil, s.writeError("creating article", err)
	}
	s.logger.Info("article created", "id", a.ID, "slug", a.Slug)
	return &a, nil
}

// Update applies the non-nil fields of patch to the article with id. An
// empty patch returns the current record untouched.
func (s *ArticleService) Update(ctx context.Context, id int64, patch model.ArticlePatch) (*model.Article, error) {
	if patch.IsEmpty() {
		a, err := s.queries.GetArticleByID(ctx, id)
		if err != nil {
			return nil, apperr.Unavailable(MsgDatabaseDown, err)
		}
		if a == nil {
			return nil, apperr.NotFound(MsgBlogNotFound)
		}
		return a, nil
	}

	var p store.UpdateArticleParams
	if patch.Title != nil {
		v := strings.TrimSpace(*patch.Title)
		if v == "" {
			return nil, apperr.Validation("Title cannot be empty")
		}
		p.Title = &v
	}
	if patch.Slug != nil {
		v := strings.TrimSpace(*patch.Slug)
		if !util.IsValidSlug(v) {
			return nil, apperr.Validation(MsgInvalidSlug)
		}
		p.Slug = &v
	}
	if patch.Excerpt != nil {
		v := strings.TrimSpace(*patch.Excerpt)
		if v == "" {
			return nil, apperr.Validation("Excerpt cannot be empty")
		}
		p.Excerpt = &v
	}
	if patch.Content != nil {
		body, err := renderBody(*patch.Content, patch.ContentFormat)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		if strings.TrimSpace(body) == "" {
			return nil, apperr.Validation("Content cannot be empty")
		}
		text := PlainText(body)
		p.Content = &body
		p.BodyText = &text
	}
	if patch.FeaturedImage != nil {
		v := strings.TrimSpace(*patch.FeaturedImage)
		if v == "" {
			return nil, apperr.Validation("Featured image cannot be empty")
		}
		p.FeaturedImage = &v
	}
	if patch.Photos != nil {
		v := cleanList(*patch.Photos)
		p.Photos = &v
	}
	if patch.Tags != nil {
		v := *patch.Tags
		p.Tags = &v
	}
	if patch.Author != nil {
		v := strings.TrimSpace(*patch.Author)
		if v == "" {
			v = model.DefaultAuthor
		}
		p.Author = &v
	}
	p.Published = patch.Published
	p.Featured = patch.Featured

	if patch.Category != nil || patch.CategoryID != nil || patch.SubcategoryID != nil {
		if err := s.resolvePatchCategory(ctx, id, patch, &p); err != nil {
			return nil, err
		}
	}

	a, err := s.queries.UpdateArticle(ctx, id, p)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(MsgBlogNotFound)
	}
	if err != nil {
		return nil, s.writeError("updating article", err)
	}
	return a, nil
}

// Delete removes the article with id and reports whether it existed.
func (s *ArticleService) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := s.queries.DeleteArticle(ctx, id)
	if err != nil {
		return false, s.writeError("deleting article", err)
	}
	return removed, nil
}

// resolveCategory fills in the category name from the linked category row,
// or links the row matching the name. An unlinked article without a name
// goes to the default category.
func (s *ArticleService) resolveCategory(ctx context.Context, name *string, categoryID **int64, subcategoryID *int64) error {
	if *categoryID == nil && subcategoryID != nil {
		sub, err := s.queries.GetSubcategory(ctx, *subcategoryID)
		if err != nil {
			return s.lookupError(err)
		}
		parent := sub.CategoryID
		*categoryID = &parent
	}

	if *categoryID != nil {
		c, err := s.queries.GetCategory(ctx, **categoryID)
		if err != nil {
			return s.lookupError(err)
		}
		if subcategoryID != nil && !hasSubcategory(c, *subcategoryID) {
			return apperr.Validation(MsgSubcategoryScope)
		}
		*name = c.Name
		return nil
	}

	if *name == "" {
		*name = model.DefaultCategory
	}
	c, err := s.queries.GetCategoryByName(ctx, *name)
	switch {
	case err == nil:
		*name = c.Name
		*categoryID = &c.ID
	case errors.Is(err, store.ErrNotFound):
		// Free-form category names are allowed without a row.
	default:
		return apperr.Unavailable(MsgDatabaseDown, err)
	}
	return nil
}

// resolvePatchCategory works out the category columns of a partial update
// against the stored article. Only the columns whose value changes are set
// in p. A subcategory that no longer belongs to the article's category is
// dropped unless the patch named it, which is a validation error.
func (s *ArticleService) resolvePatchCategory(ctx context.Context, id int64, patch model.ArticlePatch, p *store.UpdateArticleParams) error {
	cur, err := s.queries.GetArticleByID(ctx, id)
	if err != nil {
		return apperr.Unavailable(MsgDatabaseDown, err)
	}
	if cur == nil {
		return apperr.NotFound(MsgBlogNotFound)
	}

	name := cur.Category
	categoryID := cur.CategoryID
	subcategoryID := cur.SubcategoryID
	subFromPatch := false
	relinkByName := false

	// Zero ids unlink.
	if patch.SubcategoryID != nil {
		subcategoryID = positiveID(patch.SubcategoryID)
		subFromPatch = subcategoryID != nil
	}
	switch {
	case patch.CategoryID != nil:
		categoryID = positiveID(patch.CategoryID)
		if patch.Category != nil {
			name = strings.TrimSpace(*patch.Category)
		}
		if categoryID == nil {
			if subFromPatch {
				return apperr.Validation(MsgSubcategoryScope)
			}
			subcategoryID = nil
		}
	case patch.Category != nil:
		name = strings.TrimSpace(*patch.Category)
		categoryID = nil
		relinkByName = true
	}

	switch {
	case categoryID != nil:
		c, err := s.queries.GetCategory(ctx, *categoryID)
		if err != nil {
			return s.lookupError(err)
		}
		name = c.Name
		if subcategoryID != nil && !hasSubcategory(c, *subcategoryID) {
			if subFromPatch {
				return apperr.Validation(MsgSubcategoryScope)
			}
			subcategoryID = nil
		}
	case subcategoryID != nil:
		sub, err := s.queries.GetSubcategory(ctx, *subcategoryID)
		if err != nil {
			return s.lookupError(err)
		}
		parent, err := s.queries.GetCategory(ctx, sub.CategoryID)
		if err != nil {
			return s.lookupError(err)
		}
		categoryID = &parent.ID
		name = parent.Name
	case relinkByName:
		if name == "" {
			name = model.DefaultCategory
		}
		c, err := s.queries.GetCategoryByName(ctx, name)
		switch {
		case err == nil:
			name = c.Name
			categoryID = &c.ID
			if subcategoryID != nil && !hasSubcategory(c, *subcategoryID) {
				subcategoryID = nil
			}
		case errors.Is(err, store.ErrNotFound):
			// Free-form category names are allowed without a row.
			subcategoryID = nil
		default:
			return apperr.Unavailable(MsgDatabaseDown, err)
		}
	}
	if name == "" {
		name = model.DefaultCategory
	}

	if name != cur.Category {
		p.Category = &name
	}
	if !sameID(categoryID, cur.CategoryID) {
		v := util.NullInt64FromPtr(categoryID)
		p.CategoryID = &v
	}
	if !sameID(subcategoryID, cur.SubcategoryID) {
		v := util.NullInt64FromPtr(subcategoryID)
		p.SubcategoryID = &v
	}
	return nil
}

func positiveID(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *ArticleService) lookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Validation(MsgUnknownCategory)
	}
	return apperr.Unavailable(MsgDatabaseDown, err)
}

// writeError maps a store failure on a write path to an application error.
func (s *ArticleService) writeError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflict(MsgSlugTaken)
	case errors.Is(err, store.ErrInvalidForeign):
		return apperr.Validation(MsgUnknownCategory)
	}
	s.logger.Error(op+" failed", "error", err)
	return apperr.Unavailable(MsgDatabaseDown, err)
}

func hasSubcategory(c *model.Category, id int64) bool {
	for _, sub := range c.Subcategories {
		if sub.ID == id {
			return true
		}
	}
	return false
}

// cleanList trims entries and drops empty ones.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
