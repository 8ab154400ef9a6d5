package util

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple title",
			input:    "Hello World",
			expected: "hello-world",
		},
		{
			name:     "with special characters",
			input:    "Breaking: Markets Rally!",
			expected: "breaking-markets-rally",
		},
		{
			name:     "with numbers",
			input:    "Breaking News 1",
			expected: "breaking-news-1",
		},
		{
			name:     "with accents",
			input:    "Café résumé",
			expected: "cafe-resume",
		},
		{
			name:     "with multiple spaces and tabs",
			input:    "Hello \t  World",
			expected: "hello-world",
		},
		{
			name:     "with hyphens",
			input:    "Hello - World",
			expected: "hello-world",
		},
		{
			name:     "with underscores",
			input:    "snake_case_title",
			expected: "snake-case-title",
		},
		{
			name:     "with leading/trailing spaces",
			input:    "  Hello World  ",
			expected: "hello-world",
		},
		{
			name:     "all special characters",
			input:    "!@#$%^&*()",
			expected: "",
		},
		{
			name:     "german umlauts",
			input:    "Über München",
			expected: "uber-munchen",
		},
		{
			name:     "cyrillic",
			input:    "Привет мир",
			expected: "privet-mir",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Slugify(tt.input)
			if result != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSlugify_NonLatinProducesValidSlug(t *testing.T) {
	result := Slugify("日本語タイトル")
	if result == "" || !IsValidSlug(result) {
		t.Errorf("Slugify produced %q, want a non-empty valid slug", result)
	}
}

func TestSlugify_TruncatesAtWordBoundary(t *testing.T) {
	long := strings.Repeat("election results ", 20)
	result := Slugify(long)

	if len(result) > MaxSlugLength {
		t.Errorf("len = %d, want <= %d", len(result), MaxSlugLength)
	}
	if strings.HasSuffix(result, "-") || strings.HasSuffix(result, "-electi") {
		t.Errorf("slug %q was not cut at a word boundary", result)
	}
	if !IsValidSlug(result) {
		t.Errorf("slug %q is not valid", result)
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid simple slug", "hello-world", true},
		{"valid slug with numbers", "breaking-news-1", true},
		{"valid numbers only", "123", true},
		{"invalid - empty", "", false},
		{"invalid - uppercase", "Hello-World", false},
		{"invalid - spaces", "hello world", false},
		{"invalid - special chars", "hello!world", false},
		{"invalid - starts with hyphen", "-hello", false},
		{"invalid - ends with hyphen", "hello-", false},
		{"invalid - consecutive hyphens", "hello--world", false},
		{"invalid - path", "../etc/passwd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidSlug(tt.input); got != tt.expected {
				t.Errorf("IsValidSlug(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
