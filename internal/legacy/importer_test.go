// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package legacy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/testutil"
)

// sliceCursor serves documents marshalled to BSON, so decoding goes
// through the driver's codecs.
type sliceCursor struct {
	docs [][]byte
	pos  int
	err  error
}

func newSliceCursor(t *testing.T, docs ...bson.M) *sliceCursor {
	t.Helper()
	c := &sliceCursor{pos: -1}
	for _, d := range docs {
		raw, err := bson.Marshal(d)
		require.NoError(t, err)
		c.docs = append(c.docs, raw)
	}
	return c
}

func (c *sliceCursor) Next(context.Context) bool {
	c.pos++
	return c.pos < len(c.docs)
}

func (c *sliceCursor) Decode(v any) error { return bson.Unmarshal(c.docs[c.pos], v) }
func (c *sliceCursor) Err() error { return c.err }
func (c *sliceCursor) Close(context.Context) error { return nil }

type fakeSource struct {
	blogs, users func() (Cursor, error)
}

func (s fakeSource) Blogs(context.Context) (Cursor, error) { return s.blogs() }
func (s fakeSource) Users(context.Context) (Cursor, error) { return s.users() }

func sourceOf(t *testing.T, blogs, users []bson.M) fakeSource {
	return fakeSource{
		blogs: func() (Cursor, error) { return newSliceCursor(t, blogs...), nil },
		users: func() (Cursor, error) { return newSliceCursor(t, users...), nil },
	}
}

func legacyBlogs(created time.Time) []bson.M {
	return []bson.M{
		{
			"_id":           primitive.NewObjectID(),
			"title":         "Rates held steady",
			"slug":          "rates-held-steady",
			"excerpt":       "The central bank paused.",
			"content":       `<p>Markets <script>alert(1)</script>rallied.</p>`,
			"featuredImage": "https://res.cloudinary.com/demo/rates.jpg",
			"category":      "Business",
			"tags":          bson.A{"economy", "rates"},
			"author":        "Desk",
			"published":     true,
			"featured":      true,
			"views":         int32(42),
			"createdAt":     primitive.NewDateTimeFromTime(created),
		},
		{
			"_id":       primitive.NewObjectID(),
			"title":     "Año nuevo en Málaga",
			"content":   "<p>Fireworks over the harbour lit up the night for the crowds gathered on the promenade.</p>",
			"published": false,
			"createdAt": "2024-01-01T00:30:00Z",
		},
		{
			"_id":   primitive.NewObjectID(),
			"title": "   ",
		},
		{
			"_id":   primitive.NewObjectID(),
			"title": bson.A{"not", "a", "string"},
		},
	}
}

func legacyUsers() []bson.M {
	return []bson.M{
		{"_id": primitive.NewObjectID(), "email": " Admin@NewsBlogs.com ", "password": "$2a$10$abcdefghijklmnopqrstuuM9u7mQAIy4cH3cV9ZJ8rC1Lw3tqF5eW", "name": "Admin", "role": "admin"},
		{"_id": primitive.NewObjectID(), "email": "writer@newsblogs.com", "password": "$2b$10$abcdefghijklmnopqrstuuM9u7mQAIy4cH3cV9ZJ8rC1Lw3tqF5eW", "role": "author"},
		{"_id": primitive.NewObjectID(), "email": "nopass@newsblogs.com"},
	}
}

func TestImporter_Run(t *testing.T) {
	ctx := context.Background()
	q := testutil.TestQueries(t)
	created := time.Date(2023, 5, 17, 9, 30, 0, 0, time.UTC)
	blogs := legacyBlogs(created)

	im := NewImporter(sourceOf(t, blogs, legacyUsers()), q, testutil.TestLoggerSilent(), Options{})
	res, err := im.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, res.BlogsImported)
	assert.Equal(t, 0, res.BlogsSkipped)
	assert.Equal(t, 2, res.UsersImported)
	assert.Equal(t, 1, res.UsersSkipped)
	assert.Equal(t, 2, res.Failed, "blank title and undecodable title")
	assert.Equal(t, 2, res.CategoriesCreated, "Business and General")

	first := blogs[0]["_id"].(primitive.ObjectID).Hex()
	require.Contains(t, res.ArticleIDs, first)

	a, err := q.GetArticleBySlug(ctx, "rates-held-steady")
	require.NoError(t, err)
	assert.Equal(t, res.ArticleIDs[first], a.ID)
	assert.Equal(t, int64(42), a.Views)
	assert.True(t, a.CreatedAt.Equal(created), "createdAt = %v", a.CreatedAt)
	assert.NotContains(t, a.Content, "<script>")
	assert.Equal(t, "Business", a.Category)
	require.NotNil(t, a.CategoryID)
	assert.ElementsMatch(t, []string{"economy", "rates"}, a.Tags)
	assert.True(t, a.Featured)

	b, err := q.GetArticleBySlug(ctx, "ano-nuevo-en-malaga")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCategory, b.Category)
	assert.Equal(t, model.DefaultAuthor, b.Author)
	assert.False(t, b.Published)
	assert.Contains(t, b.Excerpt, "Fireworks over the harbour")
	assert.Equal(t, 2024, b.CreatedAt.Year())

	admin, err := q.GetUserByEmail(ctx, "admin@newsblogs.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	writer, err := q.GetUserByEmail(ctx, "writer@newsblogs.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleEditor, writer.Role)
	_, err = q.GetUserByEmail(ctx, "nopass@newsblogs.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImporter_RunTwiceSkipsExisting(t *testing.T) {
	ctx := context.Background()
	q := testutil.TestQueries(t)
	src := sourceOf(t, legacyBlogs(time.Now()), legacyUsers())

	_, err := NewImporter(src, q, testutil.TestLoggerSilent(), Options{}).Run(ctx)
	require.NoError(t, err)

	res, err := NewImporter(src, q, testutil.TestLoggerSilent(), Options{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.BlogsImported)
	assert.Equal(t, 2, res.BlogsSkipped)
	assert.Equal(t, 0, res.UsersImported)
	assert.Equal(t, 3, res.UsersSkipped)
	assert.Equal(t, 0, res.CategoriesCreated)
	assert.Empty(t, res.ArticleIDs)
}

func TestImporter_DryRun(t *testing.T) {
	ctx := context.Background()
	q := testutil.TestQueries(t)

	res, err := NewImporter(sourceOf(t, legacyBlogs(time.Now()), legacyUsers()), q, testutil.TestLoggerSilent(), Options{DryRun: true}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.BlogsImported)
	assert.Equal(t, 2, res.UsersImported)

	n, err := q.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	list, err := q.ListArticles(ctx, model.ArticleFilter{Limit: model.NoLimit})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImporter_SourceErrors(t *testing.T) {
	q := testutil.TestQueries(t)
	boom := errors.New("server selection timeout")

	src := fakeSource{
		users: func() (Cursor, error) { return nil, boom },
		blogs: func() (Cursor, error) { return newSliceCursor(t), nil },
	}
	_, err := NewImporter(src, q, testutil.TestLoggerSilent(), Options{}).Run(context.Background())
	assert.ErrorIs(t, err, boom)

	src = fakeSource{
		users: func() (Cursor, error) { return &sliceCursor{pos: -1, err: boom}, nil },
		blogs: func() (Cursor, error) { return newSliceCursor(t), nil },
	}
	_, err = NewImporter(src, q, testutil.TestLoggerSilent(), Options{}).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCreatedAt(t *testing.T) {
	id := primitive.NewObjectIDFromTimestamp(time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		doc  bson.M
		want time.Time
	}{
		{"bson date", bson.M{"_id": id, "createdAt": primitive.NewDateTimeFromTime(time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC))}, time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"iso string", bson.M{"_id": id, "createdAt": "2020-06-15T12:00:00.000Z"}, time.Date(2020, 6, 15, 12, 0, 0, 0, time.UTC)},
		{"date only", bson.M{"_id": id, "createdAt": "2019-12-31"}, time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"object id fallback", bson.M{"_id": id}, time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"garbage falls back", bson.M{"_id": id, "createdAt": "yesterday"}, time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(tt.doc)
			require.NoError(t, err)
			var doc BlogDocument
			require.NoError(t, bson.Unmarshal(raw, &doc))
			assert.True(t, createdAt(doc).Equal(tt.want), "got %v, want %v", createdAt(doc), tt.want)
		})
	}
}

func TestBlogParams_Slug(t *testing.T) {
	tests := []struct {
		name  string
		doc   BlogDocument
		want  string
		valid bool
	}{
		{"kept", BlogDocument{Title: "X", Slug: "kept-slug"}, "kept-slug", true},
		{"derived from title", BlogDocument{Title: "Hello, World!"}, "hello-world", true},
		{"cleaned", BlogDocument{Title: "X", Slug: "Bad Slug_Here"}, "bad-slug-here", true},
		{"no title", BlogDocument{Slug: "orphan"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := blogParams(tt.doc)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, p.Slug)
		})
	}
}

func TestBlogParams_Mapping(t *testing.T) {
	id := primitive.NewObjectIDFromTimestamp(time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC))
	content := "<p>Markets <b>rallied</b> today.</p><script>alert(1)</script>"
	doc := BlogDocument{
		ID:       id,
		Title:    "  Markets rally  ",
		Slug:     "markets-rally",
		Content:  content,
		Photos:   []string{" https://img.example/a.jpg ", "", "https://img.example/b.jpg"},
		Category: "Business",
		Views:    -4,
	}

	got, ok := blogParams(doc)
	require.True(t, ok)

	want := store.CreateArticleParams{
		Title:     "Markets rally",
		Slug:      "markets-rally",
		Excerpt:   "Markets rallied today.",
		Content:   "<p>Markets <b>rallied</b> today.</p>",
		BodyText:  "Markets rallied today.",
		Photos:    []string{"https://img.example/a.jpg", "https://img.example/b.jpg"},
		Category:  "Business",
		Tags:      []string{},
		Author:    model.DefaultAuthor,
		CreatedAt: id.Timestamp(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("blogParams mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenMongo_RejectsURL(t *testing.T) {
	ctx := context.Background()

	_, err := OpenMongo(ctx, "not-a-mongo-url", testutil.TestPolicy())
	assert.Error(t, err)

	_, err = OpenMongo(ctx, "mongodb://localhost:27017", testutil.TestPolicy())
	assert.ErrorContains(t, err, "must name a database")
}
