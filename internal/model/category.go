// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Category groups articles on the reader site.
type Category struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Description   *string       `json:"description,omitempty"`
	OrderIndex    int           `json:"orderIndex"`
	Active        bool          `json:"active"`
	Subcategories []Subcategory `json:"subcategories"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Subcategory belongs to exactly one category and is deleted with it.
type Subcategory struct {
	ID          int64     `json:"id"`
	CategoryID  int64     `json:"categoryId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	OrderIndex  int       `json:"orderIndex"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CategoryInput holds the fields accepted when creating or replacing a
// category or subcategory. A nil Active means active.
type CategoryInput struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
	OrderIndex  int     `json:"orderIndex"`
	Active      *bool   `json:"active,omitempty"`
}

// IsActive resolves the default for Active.
func (in CategoryInput) IsActive() bool {
	return in.Active == nil || *in.Active
}
