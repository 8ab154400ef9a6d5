// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleFilterEffectiveLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ArticleFilter{}.EffectiveLimit())
	assert.Equal(t, 25, ArticleFilter{Limit: 25}.EffectiveLimit())
	assert.Equal(t, NoLimit, ArticleFilter{Limit: -5}.EffectiveLimit())
}

func TestArticlePatchIsEmpty(t *testing.T) {
	assert.True(t, ArticlePatch{}.IsEmpty())
	assert.True(t, ArticlePatch{ContentFormat: ContentFormatMarkdown}.IsEmpty())
	assert.False(t, ArticlePatch{Featured: Bool(false)}.IsEmpty())

	var patch ArticlePatch
	require.NoError(t, json.Unmarshal([]byte(`{"tags":[]}`), &patch))
	assert.False(t, patch.IsEmpty(), "an explicit empty tag list is a change")
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	u := User{ID: 1, Email: "admin@newsblogs.com", PasswordHash: "$argon2id$secret", Role: RoleAdmin}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "argon2id")
	assert.True(t, u.IsAdmin())
	assert.True(t, ValidRole(RoleEditor))
	assert.False(t, ValidRole("superuser"))
}

func TestCategoryInputIsActive(t *testing.T) {
	assert.True(t, CategoryInput{}.IsActive())
	assert.False(t, CategoryInput{Active: Bool(false)}.IsActive())
}
