// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package legacy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/util"
)

// excerptRunes bounds excerpts derived from the body of imported blogs.
const excerptRunes = 200

// BlogDocument is a document of the legacy blogs collection.
type BlogDocument struct {
	ID            primitive.ObjectID `bson:"_id"`
	Title         string             `bson:"title"`
	Slug          string             `bson:"slug"`
	Excerpt       string             `bson:"excerpt"`
	Content       string             `bson:"content"`
	FeaturedImage string             `bson:"featuredImage"`
	Photos        []string           `bson:"photos"`
	Category      string             `bson:"category"`
	Tags          []string           `bson:"tags"`
	Author        string             `bson:"author"`
	Published     bool               `bson:"published"`
	Featured      bool               `bson:"featured"`
	Views         int64              `bson:"views"`
	// Dates were written both as BSON dates and as ISO strings.
	CreatedAt bson.RawValue `bson:"createdAt"`
}

// UserDocument is a document of the legacy users collection.
type UserDocument struct {
	ID       primitive.ObjectID `bson:"_id"`
	Email    string             `bson:"email"`
	Password string             `bson:"password"` // bcrypt
	Name     string             `bson:"name"`
	Role     string             `bson:"role"`
}

// Options tune an import run.
type Options struct {
	// DryRun decodes and validates every document without writing.
	DryRun bool
}

// Result summarizes an import run.
type Result struct {
	BlogsImported int `json:"blogsImported"`
	BlogsSkipped  int `json:"blogsSkipped"`
	UsersImported int `json:"usersImported"`
	UsersSkipped  int `json:"usersSkipped"`
	Failed        int `json:"failed"`
	// CategoriesCreated counts categories named by blogs that did not exist.
	CategoriesCreated int `json:"categoriesCreated"`
	// ArticleIDs maps legacy ObjectId hex strings to new article ids.
	ArticleIDs map[string]int64 `json:"articleIds"`
}

// Importer copies legacy documents into the store. Records whose slug or
// email already exist are skipped, so a run can be repeated.
type Importer struct {
	source  Source
	queries *store.Queries
	logger  *slog.Logger
	opts    Options
}

// NewImporter creates an importer reading from source.
func NewImporter(source Source, queries *store.Queries, logger *slog.Logger, opts Options) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		source:  source,
		queries: queries,
		logger:  logger.With("component", "legacy_import"),
		opts:    opts,
	}
}

// Run imports users, then blogs. A document that cannot be decoded or
// stored is counted as failed and logged; store outages abort the run.
func (im *Importer) Run(ctx context.Context) (*Result, error) {
	res := &Result{ArticleIDs: make(map[string]int64)}

	if err := im.importUsers(ctx, res); err != nil {
		return res, err
	}
	if err := im.importBlogs(ctx, res); err != nil {
		return res, err
	}

	im.logger.Info("legacy import finished",
		"blogs_imported", res.BlogsImported,
		"blogs_skipped", res.BlogsSkipped,
		"users_imported", res.UsersImported,
		"users_skipped", res.UsersSkipped,
		"categories_created", res.CategoriesCreated,
		"failed", res.Failed,
		"dry_run", im.opts.DryRun,
	)
	return res, nil
}

func (im *Importer) importUsers(ctx context.Context, res *Result) error {
	cursor, err := im.source.Users(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cursor.Close(ctx) }()

	for cursor.Next(ctx) {
		var doc UserDocument
		if err := cursor.Decode(&doc); err != nil {
			im.logger.Warn("skipping undecodable user", "error", err)
			res.Failed++
			continue
		}
		imported, err := im.importUser(ctx, doc)
		if err != nil {
			return err
		}
		if imported {
			res.UsersImported++
		} else {
			res.UsersSkipped++
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("reading users: %w", err)
	}
	return nil
}

func (im *Importer) importUser(ctx context.Context, doc UserDocument) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(doc.Email))
	if email == "" || doc.Password == "" {
		im.logger.Warn("skipping user without email or password", "legacy_id", doc.ID.Hex())
		return false, nil
	}

	_, err := im.queries.GetUserByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("checking user %s: %w", email, err)
	}
	if im.opts.DryRun {
		return true, nil
	}

	role := model.RoleEditor
	if strings.EqualFold(doc.Role, model.RoleAdmin) {
		role = model.RoleAdmin
	}
	// The bcrypt hash is kept; it is upgraded on the first successful login.
	_, err = im.queries.CreateUser(ctx, store.CreateUserParams{
		Email:        email,
		PasswordHash: doc.Password,
		Name:         strings.TrimSpace(doc.Name),
		Role:         role,
	})
	if err != nil {
		return false, fmt.Errorf("creating user %s: %w", email, err)
	}
	return true, nil
}

func (im *Importer) importBlogs(ctx context.Context, res *Result) error {
	cursor, err := im.source.Blogs(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cursor.Close(ctx) }()

	categories := make(map[string]*int64)
	for cursor.Next(ctx) {
		var doc BlogDocument
		if err := cursor.Decode(&doc); err != nil {
			im.logger.Warn("skipping undecodable blog", "error", err)
			res.Failed++
			continue
		}

		p, ok := blogParams(doc)
		if !ok {
			im.logger.Warn("skipping blog without title", "legacy_id", doc.ID.Hex())
			res.Failed++
			continue
		}

		exists, err := im.queries.ArticleSlugExists(ctx, p.Slug, 0)
		if err != nil {
			return fmt.Errorf("checking slug %s: %w", p.Slug, err)
		}
		if exists {
			res.BlogsSkipped++
			continue
		}
		if im.opts.DryRun {
			res.BlogsImported++
			continue
		}

		p.CategoryID, err = im.categoryID(ctx, p.Category, categories, res)
		if err != nil {
			return err
		}
		a, err := im.queries.CreateArticle(ctx, p)
		if errors.Is(err, store.ErrDuplicate) {
			res.BlogsSkipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("creating article %s: %w", p.Slug, err)
		}
		res.BlogsImported++
		if !doc.ID.IsZero() {
			res.ArticleIDs[doc.ID.Hex()] = a.ID
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("reading blogs: %w", err)
	}
	return nil
}

// categoryID links name to a category, creating it on first sight.
func (im *Importer) categoryID(ctx context.Context, name string, seen map[string]*int64, res *Result) (*int64, error) {
	key := strings.ToLower(name)
	if id, ok := seen[key]; ok {
		return id, nil
	}

	c, err := im.queries.GetCategoryByName(ctx, name)
	switch {
	case err == nil:
		seen[key] = &c.ID
		return &c.ID, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("looking up category %s: %w", name, err)
	}

	slug := util.Slugify(name)
	if slug == "" {
		seen[key] = nil
		return nil, nil
	}
	created, err := im.queries.CreateCategory(ctx, store.CategoryParams{Name: name, Slug: slug, Active: true})
	if errors.Is(err, store.ErrDuplicate) {
		// The slug belongs to a differently named category.
		seen[key] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating category %s: %w", name, err)
	}
	res.CategoriesCreated++
	im.logger.Info("category created for imported blogs", "name", name, "slug", slug)
	seen[key] = &created.ID
	return &created.ID, nil
}

// blogParams maps doc onto the article columns. It reports false when the
// document has no title.
func blogParams(doc BlogDocument) (store.CreateArticleParams, bool) {
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		return store.CreateArticleParams{}, false
	}

	slug := strings.TrimSpace(doc.Slug)
	if !util.IsValidSlug(slug) {
		slug = util.Slugify(firstNonEmpty(slug, title))
	}
	if slug == "" && !doc.ID.IsZero() {
		slug = "post-" + doc.ID.Hex()
	}

	body := service.SanitizeBody(doc.Content)
	text := service.PlainText(body)
	excerpt := strings.TrimSpace(doc.Excerpt)
	if excerpt == "" {
		excerpt = service.Excerpt(text, excerptRunes)
	}

	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	views := doc.Views
	if views < 0 {
		views = 0
	}

	return store.CreateArticleParams{
		Title:         title,
		Slug:          slug,
		Excerpt:       excerpt,
		Content:       body,
		BodyText:      text,
		FeaturedImage: strings.TrimSpace(doc.FeaturedImage),
		Photos:        nonEmpty(doc.Photos),
		Category:      firstNonEmpty(strings.TrimSpace(doc.Category), model.DefaultCategory),
		Tags:          tags,
		Author:        firstNonEmpty(strings.TrimSpace(doc.Author), model.DefaultAuthor),
		Published:     doc.Published,
		Featured:      doc.Featured,
		Views:         views,
		CreatedAt:     createdAt(doc),
	}, true
}

// createdAt reads the document date, falling back to the ObjectId
// timestamp. A zero result lets the store stamp the current time.
func createdAt(doc BlogDocument) time.Time {
	if t, ok := doc.CreatedAt.TimeOK(); ok {
		return t
	}
	if s, ok := doc.CreatedAt.StringValueOK(); ok {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	if !doc.ID.IsZero() {
		return doc.ID.Timestamp()
	}
	return time.Time{}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
