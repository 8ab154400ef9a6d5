// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/olegiv/newsdesk/internal/apperr"
	"github.com/olegiv/newsdesk/internal/model"
)

// Reader site section sizes.
const (
	HomeTrendingCount   = 5
	HomeLatestCount     = 6
	HomeSectionCount    = 4
	RelatedCount        = 3
	CategoryPageSize    = 12
	SearchResultsLimit  = 20
	homeFetchConcurrent = 4
)

// CategorySection is one category block on the home page.
type CategorySection struct {
	Category model.Category  `json:"category"`
	Articles []model.Article `json:"articles"`
}

// Home is the composed reader home page.
type Home struct {
	Featured *model.Article    `json:"featured"`
	Trending []model.Article   `json:"trending"`
	Latest   []model.Article   `json:"latest"`
	Sections []CategorySection `json:"sections"`
}

// ArticlePage is a published article with related reading.
type ArticlePage struct {
	Article *model.Article  `json:"article"`
	Related []model.Article `json:"related"`
}

// CategoryPage lists the published articles of a category.
type CategoryPage struct {
	Category    *model.Category `json:"category"`
	Subcategory string          `json:"subcategory,omitempty"`
	Articles    []model.Article `json:"articles"`
}

// SiteService composes the public reader pages from the article and
// category services. Every page degrades to empty sections when the store
// is unavailable.
type SiteService struct {
	articles   *ArticleService
	categories *CategoryService
}

// NewSiteService creates a new site service.
func NewSiteService(articles *ArticleService, categories *CategoryService) *SiteService {
	return &SiteService{articles: articles, categories: categories}
}

// Home assembles the home page: the newest featured article, the most
// viewed articles, the latest articles other than the featured one and a
// short section per active category.
func (s *SiteService) Home(ctx context.Context) *Home {
	published := model.Bool(true)

	featured := s.articles.List(ctx, model.ArticleFilter{
		Published: published,
		Featured:  model.Bool(true),
		Limit:     1,
	})

	home := &Home{}
	latestFilter := model.ArticleFilter{Published: published, Limit: HomeLatestCount}
	if len(featured) > 0 {
		home.Featured = &featured[0]
		latestFilter.ExcludeSlug = featured[0].Slug
	}

	categories := s.categories.List(ctx, true)
	home.Sections = make([]CategorySection, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(homeFetchConcurrent)
	g.Go(func() error {
		home.Trending = s.articles.List(gctx, model.ArticleFilter{
			Published: published,
			Sort:      model.SortMostViewed,
			Limit:     HomeTrendingCount,
		})
		return nil
	})
	g.Go(func() error {
		home.Latest = s.articles.List(gctx, latestFilter)
		return nil
	})
	for i, c := range categories {
		g.Go(func() error {
			home.Sections[i] = CategorySection{
				Category: c,
				Articles: s.articles.List(gctx, model.ArticleFilter{
					Published: published,
					Category:  c.Name,
					Limit:     HomeSectionCount,
				}),
			}
			return nil
		})
	}
	_ = g.Wait()

	return home
}

// Article returns the published article with slug and up to RelatedCount
// other articles from its category. countView bumps the view counter.
func (s *SiteService) Article(ctx context.Context, slug string, countView bool) (*ArticlePage, error) {
	a, err := s.articles.GetBySlug(ctx, slug, false)
	if err != nil {
		return nil, err
	}
	if a == nil || !a.Published {
		return nil, apperr.NotFound(MsgBlogNotFound)
	}
	if countView && s.articles.IncrementViews(ctx, a.Slug) {
		a.Views++
	}

	related := s.articles.List(ctx, model.ArticleFilter{
		Published:   model.Bool(true),
		Category:    a.Category,
		ExcludeSlug: a.Slug,
		Limit:       RelatedCount,
	})
	return &ArticlePage{Article: a, Related: related}, nil
}

// Category lists published articles of the category with slug, optionally
// narrowed to a subcategory slug or tag.
func (s *SiteService) Category(ctx context.Context, slug, subcategory string, limit, offset int) (*CategoryPage, error) {
	c, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, apperr.NotFound(MsgCategoryNotFound)
	}
	if limit == 0 {
		limit = CategoryPageSize
	}

	articles := s.articles.List(ctx, model.ArticleFilter{
		Published:   model.Bool(true),
		Category:    c.Name,
		Subcategory: strings.TrimSpace(subcategory),
		Limit:       limit,
		Offset:      offset,
	})
	return &CategoryPage{Category: c, Subcategory: subcategory, Articles: articles}, nil
}

// Search returns published articles matching query. A blank query yields
// no results.
func (s *SiteService) Search(ctx context.Context, query string, limit int) []model.Article {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Article{}
	}
	if limit <= 0 || limit > SearchResultsLimit {
		limit = SearchResultsLimit
	}
	return s.articles.List(ctx, model.ArticleFilter{
		Published: model.Bool(true),
		Search:    query,
		Limit:     limit,
	})
}
