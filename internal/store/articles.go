package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/util"
)

const articleSelect = `SELECT a.id, a.title, a.slug, a.excerpt, a.content, a.featured_image, a.photos,
	a.category, a.category_id, a.subcategory_id, COALESCE(s.slug, ''), a.author,
	a.published, a.featured, a.views, a.created_at, a.updated_at
FROM articles a
LEFT JOIN subcategories s ON s.id = a.subcategory_id`

// CreateArticleParams holds a fully resolved article ready for insertion.
type CreateArticleParams struct {
	Title         string
	Slug          string
	Excerpt       string
	Content       string
	BodyText      string // plain-text projection of Content used by search
	FeaturedImage string
	Photos        []string
	Category      string
	CategoryID    *int64
	SubcategoryID *int64
	Tags          []string
	Author        string
	Published     bool
	Featured      bool
	Views         int64
	CreatedAt     time.Time // zero means now; set by imports
}

// UpdateArticleParams holds the columns of a partial update. Nil fields
// are left unchanged.
type UpdateArticleParams struct {
	Title         *string
	Slug          *string
	Excerpt       *string
	Content       *string
	BodyText      *string
	FeaturedImage *string
	Photos        *[]string
	Category      *string
	CategoryID    *sql.NullInt64 // an invalid NullInt64 clears the link
	SubcategoryID *sql.NullInt64
	Tags          *[]string
	Author        *string
	Published     *bool
	Featured      *bool
}

// ListArticles returns the articles matching f.
func (q *Queries) ListArticles(ctx context.Context, f model.ArticleFilter) ([]model.Article, error) {
	var ps params
	var where []string

	if f.Published != nil {
		where = append(where, "a.published = "+ps.add(*f.Published))
	}
	if f.Featured != nil {
		where = append(where, "a.featured = "+ps.add(*f.Featured))
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		where = append(where, "LOWER(a.category) = "+ps.add(strings.ToLower(c)))
	}
	if sc := strings.TrimSpace(f.Subcategory); sc != "" {
		lower := strings.ToLower(sc)
		where = append(where, "(LOWER(s.slug) = "+ps.add(lower)+
			" OR EXISTS (SELECT 1 FROM article_tags t WHERE t.article_id = a.id AND LOWER(t.tag) = "+ps.add(lower)+"))")
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := likePattern(term)
		where = append(where, "(LOWER(a.title) LIKE "+ps.add(pattern)+` ESCAPE '\'`+
			" OR LOWER(a.excerpt) LIKE "+ps.add(pattern)+` ESCAPE '\'`+
			" OR LOWER(a.body_text) LIKE "+ps.add(pattern)+` ESCAPE '\'`+
			" OR EXISTS (SELECT 1 FROM article_tags t WHERE t.article_id = a.id AND LOWER(t.tag) LIKE "+ps.add(pattern)+` ESCAPE '\'))`)
	}
	if f.ExcludeSlug != "" {
		where = append(where, "a.slug <> "+ps.add(f.ExcludeSlug))
	}

	var sb strings.Builder
	sb.WriteString(articleSelect)
	if len(where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	sb.WriteString("\nORDER BY ")
	if f.Sort == model.SortMostViewed {
		sb.WriteString("a.views DESC, ")
	}
	if f.Featured != nil && *f.Featured {
		sb.WriteString("a.featured DESC, ")
	}
	sb.WriteString("a.created_at DESC, a.id DESC")

	limit := f.EffectiveLimit()
	switch {
	case limit != model.NoLimit:
		sb.WriteString("\nLIMIT " + ps.add(limit))
	case f.Offset > 0 && q.m.Dialect() == DialectSQLite:
		// SQLite requires LIMIT before OFFSET
		sb.WriteString("\nLIMIT -1")
	}
	if f.Offset > 0 {
		sb.WriteString(" OFFSET " + ps.add(f.Offset))
	}

	var articles []model.Article
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, sb.String(), ps.args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		articles = articles[:0]
		for rows.Next() {
			a, err := scanArticle(rows)
			if err != nil {
				return err
			}
			articles = append(articles, a)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return loadTags(ctx, db, articles)
	})
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	if articles == nil {
		articles = []model.Article{}
	}
	return articles, nil
}

// GetArticleBySlug returns the article with slug, or nil if there is none.
func (q *Queries) GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	return q.getArticle(ctx, "a.slug", slug)
}

// GetArticleByID returns the article with id, or nil if there is none.
func (q *Queries) GetArticleByID(ctx context.Context, id int64) (*model.Article, error) {
	return q.getArticle(ctx, "a.id", id)
}

func (q *Queries) getArticle(ctx context.Context, column string, value any) (*model.Article, error) {
	var found *model.Article
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		a, err := getArticleWith(ctx, db, column, value)
		found = a
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getting article by %s: %w", strings.TrimPrefix(column, "a."), err)
	}
	return found, nil
}

// getArticleWith reads one article and its tags; it returns nil, nil when
// no row matches.
func getArticleWith(ctx context.Context, db queryer, column string, value any) (*model.Article, error) {
	var ps params
	query := articleSelect + "\nWHERE " + column + " = " + ps.add(value)

	a, err := scanArticle(db.QueryRowContext(ctx, query, ps.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	list := []model.Article{a}
	if err := loadTags(ctx, db, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// IncrementArticleViews adds one to the view counter of the article with
// slug and returns the new count.
func (q *Queries) IncrementArticleViews(ctx context.Context, slug string) (int64, error) {
	var views int64
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		var ps params
		query := "UPDATE articles SET views = views + 1 WHERE slug = " + ps.add(slug) + " RETURNING views"
		return db.QueryRowContext(ctx, query, ps.args...).Scan(&views)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("incrementing views: %w", err)
	}
	return views, nil
}

// CreateArticle inserts an article with a zero view count.
func (q *Queries) CreateArticle(ctx context.Context, p CreateArticleParams) (model.Article, error) {
	now := q.timestamp()
	created := now
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.UTC().Truncate(time.Microsecond)
	}
	tags := normalizeTags(p.Tags)
	photos := p.Photos
	if photos == nil {
		photos = []string{}
	}

	var id int64
	err := q.m.ExecuteTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var ps params
		values := []string{
			ps.add(p.Title),
			ps.add(p.Slug),
			ps.add(p.Excerpt),
			ps.add(p.Content),
			ps.add(p.BodyText),
			ps.add(p.FeaturedImage),
			ps.add(encodePhotos(photos)),
			ps.add(p.Category),
			ps.add(util.NullInt64FromPtr(p.CategoryID)),
			ps.add(util.NullInt64FromPtr(p.SubcategoryID)),
			ps.add(p.Author),
			ps.add(p.Published),
			ps.add(p.Featured),
			ps.add(p.Views),
			ps.add(created),
			ps.add(now),
		}
		query := `INSERT INTO articles (title, slug, excerpt, content, body_text, featured_image, photos,
	category, category_id, subcategory_id, author, published, featured, views, created_at, updated_at)
VALUES (` + strings.Join(values, ", ") + `)
RETURNING id`

		if err := tx.QueryRowContext(ctx, query, ps.args...).Scan(&id); err != nil {
			return err
		}
		return replaceTags(ctx, tx, id, tags)
	})
	if err != nil {
		return model.Article{}, fmt.Errorf("creating article: %w", mapError(err))
	}

	a := model.Article{
		ID:            id,
		Title:         p.Title,
		Slug:          p.Slug,
		Excerpt:       p.Excerpt,
		Content:       p.Content,
		FeaturedImage: p.FeaturedImage,
		Photos:        photos,
		Category:      p.Category,
		CategoryID:    p.CategoryID,
		SubcategoryID: p.SubcategoryID,
		Tags:          tags,
		Author:        p.Author,
		Published:     p.Published,
		Featured:      p.Featured,
		Views:         p.Views,
		CreatedAt:     created,
		UpdatedAt:     now,
	}
	return a, nil
}

// UpdateArticle applies p to the article with id, refreshes its update
// timestamp and returns the stored result. It returns ErrNotFound when no
// article has that id.
func (q *Queries) UpdateArticle(ctx context.Context, id int64, p UpdateArticleParams) (*model.Article, error) {
	now := q.timestamp()

	var ps params
	var sets []string
	set := func(column string, v any) {
		sets = append(sets, column+" = "+ps.add(v))
	}
	if p.Title != nil {
		set("title", *p.Title)
	}
	if p.Slug != nil {
		set("slug", *p.Slug)
	}
	if p.Excerpt != nil {
		set("excerpt", *p.Excerpt)
	}
	if p.Content != nil {
		set("content", *p.Content)
	}
	if p.BodyText != nil {
		set("body_text", *p.BodyText)
	}
	if p.FeaturedImage != nil {
		set("featured_image", *p.FeaturedImage)
	}
	if p.Photos != nil {
		set("photos", encodePhotos(*p.Photos))
	}
	if p.Category != nil {
		set("category", *p.Category)
	}
	if p.CategoryID != nil {
		set("category_id", *p.CategoryID)
	}
	if p.SubcategoryID != nil {
		set("subcategory_id", *p.SubcategoryID)
	}
	if p.Author != nil {
		set("author", *p.Author)
	}
	if p.Published != nil {
		set("published", *p.Published)
	}
	if p.Featured != nil {
		set("featured", *p.Featured)
	}
	set("updated_at", now)
	query := "UPDATE articles SET " + strings.Join(sets, ", ") + " WHERE id = " + ps.add(id)

	var updated *model.Article
	err := q.m.ExecuteTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, ps.args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if p.Tags != nil {
			if err := replaceTags(ctx, tx, id, normalizeTags(*p.Tags)); err != nil {
				return err
			}
		}
		updated, err = getArticleWith(ctx, tx, "a.id", id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating article: %w", mapError(err))
	}
	return updated, nil
}

// DeleteArticle removes the article with id and reports whether a row was removed.
func (q *Queries) DeleteArticle(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		var ps params
		res, err := db.ExecContext(ctx, "DELETE FROM articles WHERE id = "+ps.add(id), ps.args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		removed = n > 0
		return err
	})
	if err != nil {
		return false, fmt.Errorf("deleting article: %w", err)
	}
	return removed, nil
}

// ArticleSlugExists reports whether any article other than excludeID uses slug.
func (q *Queries) ArticleSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		var ps params
		query := "SELECT COUNT(*) FROM articles WHERE slug = " + ps.add(slug) + " AND id <> " + ps.add(excludeID)
		var n int64
		if err := db.QueryRowContext(ctx, query, ps.args...).Scan(&n); err != nil {
			return err
		}
		exists = n > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (model.Article, error) {
	var (
		a             model.Article
		photos        string
		categoryID    sql.NullInt64
		subcategoryID sql.NullInt64
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.Content, &a.FeaturedImage, &photos,
		&a.Category, &categoryID, &subcategoryID, &a.Subcategory, &a.Author,
		&a.Published, &a.Featured, &a.Views, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return model.Article{}, err
	}
	a.Photos = decodePhotos(photos)
	a.CategoryID = util.Int64Ptr(categoryID)
	a.SubcategoryID = util.Int64Ptr(subcategoryID)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	a.Tags = []string{}
	return a, nil
}

// loadTags fills the Tags field of every article in list.
func loadTags(ctx context.Context, db queryer, list []model.Article) error {
	if len(list) == 0 {
		return nil
	}

	index := make(map[int64]int, len(list))
	ids := make([]int64, 0, len(list))
	for i := range list {
		index[list[i].ID] = i
		ids = append(ids, list[i].ID)
	}

	var ps params
	query := "SELECT article_id, tag FROM article_tags WHERE article_id IN " + ps.in(ids) +
		" ORDER BY article_id, position"
	rows, err := db.QueryContext(ctx, query, ps.args...)
	if err != nil {
		return fmt.Errorf("loading tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			articleID int64
			tag       string
		)
		if err := rows.Scan(&articleID, &tag); err != nil {
			return err
		}
		if i, ok := index[articleID]; ok {
			list[i].Tags = append(list[i].Tags, tag)
		}
	}
	return rows.Err()
}

func replaceTags(ctx context.Context, tx *sql.Tx, articleID int64, tags []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM article_tags WHERE article_id = $1", articleID); err != nil {
		return fmt.Errorf("clearing tags: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}

	var ps params
	rows := make([]string, len(tags))
	for i, tag := range tags {
		rows[i] = "(" + ps.add(articleID) + ", " + ps.add(tag) + ", " + ps.add(i) + ")"
	}
	query := "INSERT INTO article_tags (article_id, tag, position) VALUES " + strings.Join(rows, ", ")
	if _, err := tx.ExecContext(ctx, query, ps.args...); err != nil {
		return fmt.Errorf("inserting tags: %w", err)
	}
	return nil
}

// normalizeTags trims tags and drops empty and case-insensitive duplicates,
// keeping first occurrences in order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func encodePhotos(photos []string) string {
	if len(photos) == 0 {
		return "[]"
	}
	data, err := json.Marshal(photos)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodePhotos(raw string) []string {
	photos := []string{}
	if raw == "" {
		return photos
	}
	if err := json.Unmarshal([]byte(raw), &photos); err != nil {
		// Tolerate a bare comma-separated list written by older imports.
		photos = photos[:0]
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				photos = append(photos, p)
			}
		}
	}
	return photos
}
