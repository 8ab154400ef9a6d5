// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/olegiv/newsdesk/internal/model"
)

// bodySanitizer is the policy applied to every stored article body. It
// allows the tags a rich-text editor produces and strips scripts, event
// handlers and javascript: URLs.
var bodySanitizer = newBodySanitizer()

func newBodySanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("loading").Matching(bluemonday.SpaceSeparatedTokens).OnElements("img")
	p.AllowElements("figure", "figcaption")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// renderBody converts content in the given format to sanitized HTML.
func renderBody(content, format string) (string, error) {
	switch format {
	case "", model.ContentFormatHTML:
	case model.ContentFormatMarkdown:
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(content), &buf); err != nil {
			return "", fmt.Errorf("rendering markdown: %w", err)
		}
		content = buf.String()
	default:
		return "", fmt.Errorf("unsupported content format %q", format)
	}
	return bodySanitizer.Sanitize(content), nil
}

// SanitizeBody applies the article body policy to stored HTML that did not
// come through Create or Update.
func SanitizeBody(content string) string {
	return bodySanitizer.Sanitize(content)
}

// PlainText extracts the readable text of an HTML fragment with block
// boundaries turned into spaces and whitespace collapsed.
func PlainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(bluemonday.StrictPolicy().Sanitize(fragment)), " ")
	}
	doc.Find("script, style").Remove()
	doc.Find("p, div, li, br, h1, h2, h3, h4, h5, h6, blockquote, figcaption, td").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Excerpt returns at most maxRunes runes of text, cut at a word boundary
// and suffixed with an ellipsis when shortened.
func Excerpt(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:maxRunes])
	if i := strings.LastIndexByte(cut, ' '); i > maxRunes/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
