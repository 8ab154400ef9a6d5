// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/newsdesk/internal/model"
)

func TestSiteHome(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.createArticle("lead", true, true)
	env.createArticle("other", true, false)

	rec := env.do(http.MethodGet, "/api/site/home", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	type homeBody struct {
		Success  bool            `json:"success"`
		Featured *model.Article  `json:"featured"`
		Latest   []model.Article `json:"latest"`
	}
	home := decodeBody[homeBody](t, rec)

	if !home.Success || home.Featured == nil || home.Featured.Slug != "lead" {
		t.Fatalf("home = %+v", home)
	}
	if len(home.Latest) != 1 || home.Latest[0].Slug != "other" {
		t.Errorf("latest = %+v, want only other", home.Latest)
	}
}

func TestSiteHomeCacheInvalidatedOnWrite(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.createArticle("one", true, false)

	type homeBody struct {
		Latest []model.Article `json:"latest"`
	}
	first := decodeBody[homeBody](t, env.do(http.MethodGet, "/api/site/home", nil, false))
	if len(first.Latest) != 1 {
		t.Fatalf("latest = %d, want 1", len(first.Latest))
	}

	// Written behind the handler's back: the cached page is still served.
	env.createArticle("two", true, false)
	cached := decodeBody[homeBody](t, env.do(http.MethodGet, "/api/site/home", nil, false))
	if len(cached.Latest) != 1 {
		t.Errorf("cached latest = %d, want 1", len(cached.Latest))
	}

	rec := env.do(http.MethodPost, "/api/blogs", map[string]any{
		"title":         "Three",
		"slug":          "three",
		"excerpt":       "e",
		"content":       "<p>c</p>",
		"featuredImage": "https://img.example.com/3.jpg",
		"published":     true,
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}

	fresh := decodeBody[homeBody](t, env.do(http.MethodGet, "/api/site/home", nil, false))
	if len(fresh.Latest) != 3 {
		t.Errorf("latest after write = %d, want 3", len(fresh.Latest))
	}
}

func TestSiteArticlePage(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.createArticle("story", true, false)
	env.createArticle("related-one", true, false)
	env.createArticle("draft-story", false, false)

	rec := env.do(http.MethodGet, "/api/site/articles/story", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	page := decodeBody[struct {
		Article *model.Article  `json:"article"`
		Related []model.Article `json:"related"`
	}](t, rec)
	if page.Article.Slug != "story" || page.Article.Views != 1 {
		t.Errorf("article = %+v, want story with one view", page.Article)
	}
	if len(page.Related) != 1 || page.Related[0].Slug != "related-one" {
		t.Errorf("related = %+v", page.Related)
	}

	bot := httptest.NewRequest(http.MethodGet, "/api/site/articles/story", nil)
	bot.Header.Set("User-Agent", "Mozilla/5.0 (compatible; bingbot/2.0; +http://www.bing.com/bingbot.htm)")
	botPage := decodeBody[struct {
		Article *model.Article `json:"article"`
	}](t, env.serve(bot))
	if botPage.Article.Views != 1 {
		t.Errorf("views after bot read = %d, want 1", botPage.Article.Views)
	}

	if rec := env.do(http.MethodGet, "/api/site/articles/draft-story", nil, false); rec.Code != http.StatusNotFound {
		t.Errorf("draft: status = %d, want 404", rec.Code)
	}
}

func TestSiteCategoryAndSearch(t *testing.T) {
	env := newTestEnv(t, Options{})
	if rec := env.do(http.MethodPost, "/api/categories", model.CategoryInput{Name: "Technology"}, true); rec.Code != http.StatusCreated {
		t.Fatalf("create category: status = %d", rec.Code)
	}
	rec := env.do(http.MethodPost, "/api/blogs", map[string]any{
		"title":         "Chip shortage eases",
		"slug":          "chip-shortage-eases",
		"excerpt":       "Supply recovers.",
		"content":       "<p>Foundries report capacity.</p>",
		"featuredImage": "https://img.example.com/chip.jpg",
		"category":      "Technology",
		"published":     true,
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create blog: status = %d; body: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/site/categories/technology", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("category: status = %d", rec.Code)
	}
	page := decodeBody[struct {
		Category *model.Category `json:"category"`
		Articles []model.Article `json:"articles"`
	}](t, rec)
	if page.Category.Name != "Technology" || len(page.Articles) != 1 {
		t.Errorf("category page = %+v", page)
	}

	if rec := env.do(http.MethodGet, "/api/site/categories/nowhere", nil, false); rec.Code != http.StatusNotFound {
		t.Errorf("unknown category: status = %d, want 404", rec.Code)
	}

	results := decodeBody[SearchResponse](t, env.do(http.MethodGet, "/api/site/search?q=foundries", nil, false))
	if !results.Success || len(results.Results) != 1 {
		t.Errorf("search = %+v", results)
	}
	empty := decodeBody[SearchResponse](t, env.do(http.MethodGet, "/api/site/search?q=+", nil, false))
	if len(empty.Results) != 0 || empty.Results == nil {
		t.Errorf("blank search = %+v, want an empty list", empty)
	}
}

func TestCountableView(t *testing.T) {
	const browser = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"

	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{"browser", map[string]string{"User-Agent": browser}, true},
		{"empty agent", nil, false},
		{"crawler", map[string]string{"User-Agent": "Googlebot/2.1 (+http://www.google.com/bot.html)"}, false},
		{"purpose prefetch", map[string]string{"User-Agent": browser, "Purpose": "prefetch"}, false},
		{"firefox prefetch", map[string]string{"User-Agent": browser, "X-Moz": "prefetch"}, false},
		{"safari preview", map[string]string{"User-Agent": browser, "X-Purpose": "preview"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Del("User-Agent")
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := countableView(r); got != tt.want {
				t.Errorf("countableView = %v, want %v", got, tt.want)
			}
		})
	}
}
