// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Article defaults applied on create.
const (
	DefaultCategory = "General"
	DefaultAuthor   = "Admin"
)

// Listing limits.
const (
	DefaultListLimit = 10
	// NoLimit asks List for every matching article.
	NoLimit = -1
)

// Article sort orders for List.
const (
	SortNewest     = ""
	SortMostViewed = "views"
)

// Body formats accepted on create and update.
const (
	ContentFormatHTML     = "html"
	ContentFormatMarkdown = "markdown"
)

// Article is a news story or blog post.
type Article struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Excerpt       string    `json:"excerpt"`
	Content       string    `json:"content"`
	FeaturedImage string    `json:"featuredImage"`
	Photos        []string  `json:"photos"`
	Category      string    `json:"category"`
	CategoryID    *int64    `json:"categoryId,omitempty"`
	SubcategoryID *int64    `json:"subcategoryId,omitempty"`
	Subcategory   string    `json:"subcategory,omitempty"`
	Tags          []string  `json:"tags"`
	Author        string    `json:"author"`
	Published     bool      `json:"published"`
	Featured      bool      `json:"featured"`
	Views         int64     `json:"views"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ArticleFilter selects articles for List. All set fields must match.
type ArticleFilter struct {
	Published   *bool
	Featured    *bool
	Category    string // category name, case-insensitive
	Subcategory string // subcategory slug or tag, case-insensitive
	Search      string // substring of title, excerpt, body text or tags
	ExcludeSlug string
	Sort        string // SortNewest or SortMostViewed
	Limit       int    // 0 means DefaultListLimit, NoLimit means unbounded
	Offset      int
}

// EffectiveLimit resolves the zero value to DefaultListLimit.
func (f ArticleFilter) EffectiveLimit() int {
	switch {
	case f.Limit == 0:
		return DefaultListLimit
	case f.Limit < 0:
		return NoLimit
	default:
		return f.Limit
	}
}

// ArticleInput holds the fields accepted when creating an article.
type ArticleInput struct {
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	Excerpt       string   `json:"excerpt"`
	Content       string   `json:"content"`
	ContentFormat string   `json:"contentFormat,omitempty"`
	FeaturedImage string   `json:"featuredImage"`
	Photos        []string `json:"photos,omitempty"`
	Category      string   `json:"category,omitempty"`
	CategoryID    *int64   `json:"categoryId,omitempty"`
	SubcategoryID *int64   `json:"subcategoryId,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Author        string   `json:"author,omitempty"`
	Published     *bool    `json:"published,omitempty"`
	Featured      *bool    `json:"featured,omitempty"`
}

// ArticlePatch holds the fields of a partial update. Nil fields are left
// unchanged. A zero CategoryID or SubcategoryID unlinks the article.
type ArticlePatch struct {
	Title         *string   `json:"title,omitempty"`
	Slug          *string   `json:"slug,omitempty"`
	Excerpt       *string   `json:"excerpt,omitempty"`
	Content       *string   `json:"content,omitempty"`
	ContentFormat string    `json:"contentFormat,omitempty"`
	FeaturedImage *string   `json:"featuredImage,omitempty"`
	Photos        *[]string `json:"photos,omitempty"`
	Category      *string   `json:"category,omitempty"`
	CategoryID    *int64    `json:"categoryId,omitempty"`
	SubcategoryID *int64    `json:"subcategoryId,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	Author        *string   `json:"author,omitempty"`
	Published     *bool     `json:"published,omitempty"`
	Featured      *bool     `json:"featured,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ArticlePatch) IsEmpty() bool {
	return p.Title == nil && p.Slug == nil && p.Excerpt == nil && p.Content == nil &&
		p.FeaturedImage == nil && p.Photos == nil && p.Category == nil &&
		p.CategoryID == nil && p.SubcategoryID == nil && p.Tags == nil &&
		p.Author == nil && p.Published == nil && p.Featured == nil
}

// Bool returns a pointer to b, for filters and patches.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s, for patches.
func String(s string) *string { return &s }
