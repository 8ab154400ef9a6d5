// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsdesk/internal/auth"
	"github.com/olegiv/newsdesk/internal/cache"
	"github.com/olegiv/newsdesk/internal/media"
	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/testutil"
)

const testSecret = "api-test-secret-api-test-secret-0123"

// testEnv is a handler wired to a fresh SQLite database.
type testEnv struct {
	t        *testing.T
	queries  *store.Queries
	handler  *Handler
	router   http.Handler
	auth     *auth.Authenticator
	uploader *fakeUploader
	admin    *model.User
	token    string
}

// fakeUploader records uploads instead of storing them.
type fakeUploader struct {
	err     error
	uploads []media.File
	bodies  [][]byte
}

func (f *fakeUploader) Upload(_ context.Context, file media.File) (*media.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(file.Body)
	if err != nil {
		return nil, err
	}
	f.uploads = append(f.uploads, file)
	f.bodies = append(f.bodies, data)
	return &media.Result{
		URL:      "https://cdn.example.com/newsblogs/" + file.Filename,
		PublicID: "newsblogs/" + file.Filename,
	}, nil
}

func (f *fakeUploader) Provider() string { return "fake" }

// newTestEnv creates a handler with an admin user and a signed token.
func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	logger := testutil.TestLoggerSilent()
	queries := testutil.TestQueries(t)
	articles := service.NewArticleService(queries, logger)
	categories := service.NewCategoryService(queries, logger)
	authn := auth.NewAuthenticator(queries, auth.NewTokenIssuer(testSecret), logger)

	hash, err := auth.HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin, err := queries.CreateUser(context.Background(), store.CreateUserParams{
		Email:        "admin@example.com",
		PasswordHash: hash,
		Name:         "Admin User",
		Role:         model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, _, err := authn.Tokens().Issue(&admin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	uploader := &fakeUploader{}
	h := NewHandler(Deps{
		Articles:   articles,
		Categories: categories,
		Site:       service.NewSiteService(articles, categories),
		Auth:       authn,
		Lockout: middleware.NewLoginProtection(middleware.LoginProtectionConfig{
			IPRateLimit:       1000,
			IPBurst:           1000,
			MaxFailedAttempts: 3,
		}),
		Uploader: uploader,
		Cache:    cache.NewMemoryStore(cache.MemoryOptions{}),
		Logger:   logger,
	}, opts)

	r := chi.NewRouter()
	r.Use(middleware.LoadUser(authn))
	r.Mount("/api", h.Routes())

	return &testEnv{
		t:        t,
		queries:  queries,
		handler:  h,
		router:   r,
		auth:     authn,
		uploader: uploader,
		admin:    &admin,
		token:    token,
	}
}

// do serves a request with an optional JSON body. authed attaches the
// admin session cookie.
func (e *testEnv) do(method, path string, body any, authed bool) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	if authed {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: e.token})
	}
	return e.serve(req)
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// createArticle stores an article directly through the service.
func (e *testEnv) createArticle(slug string, published, featured bool) *model.Article {
	e.t.Helper()
	a, err := e.handler.articles.Create(context.Background(), model.ArticleInput{
		Title:         "Title " + slug,
		Slug:          slug,
		Excerpt:       "Excerpt " + slug,
		Content:       "<p>Body of " + slug + "</p>",
		FeaturedImage: "https://img.example.com/" + slug + ".jpg",
		Published:     model.Bool(published),
		Featured:      model.Bool(featured),
	})
	if err != nil {
		e.t.Fatalf("create article %s: %v", slug, err)
	}
	return a
}

// decodeBody decodes a JSON response and fails on any other content type.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type = %q, want application/json; body: %s", ct, rec.Body.String())
	}
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body: %v; body: %s", err, rec.Body.String())
	}
	return v
}
