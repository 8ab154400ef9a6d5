package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/util"
)

// Default admin account created by SeedAdmin.
const (
	DefaultAdminEmail = "admin@newsblogs.com"
	DefaultAdminName  = "Administrator"
)

// DefaultCategories are the reader-site sections created on first run.
var DefaultCategories = []string{"India", "World", "Sports", "Entertainment", "Technology", "Business"}

// SeedCategories creates any of DefaultCategories that do not exist yet and
// returns how many were created.
func SeedCategories(ctx context.Context, q *Queries) (int, error) {
	created := 0
	for i, name := range DefaultCategories {
		_, err := q.GetCategoryByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, fmt.Errorf("checking category %q: %w", name, err)
		}

		if _, err := q.CreateCategory(ctx, CategoryParams{
			Name:       name,
			Slug:       util.Slugify(name),
			OrderIndex: i,
			Active:     true,
		}); err != nil {
			return created, fmt.Errorf("creating category %q: %w", name, err)
		}
		created++
	}

	if created > 0 {
		slog.Info("seeded categories", "created", created)
	}
	return created, nil
}

// SeedAdmin creates an admin user with email and an already hashed
// password unless one with that email exists. It reports whether a user
// was created.
func SeedAdmin(ctx context.Context, q *Queries, email, passwordHash string) (bool, error) {
	if email == "" {
		email = DefaultAdminEmail
	}

	_, err := q.GetUserByEmail(ctx, email)
	if err == nil {
		slog.Info("admin user already exists, skipping seed", "email", email)
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("checking for admin user: %w", err)
	}

	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         DefaultAdminName,
		Role:         model.RoleAdmin,
	})
	if err != nil {
		return false, fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created admin user", "id", user.ID, "email", user.Email)
	return true, nil
}
