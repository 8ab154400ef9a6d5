package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/util"
)

const userSelect = `SELECT id, email, password_hash, name, role, last_login_at, created_at, updated_at FROM users`

// CreateUserParams holds the columns of a new user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
	Role         string
}

// GetUserByEmail returns the user with email, matched case-insensitively.
// It returns ErrNotFound when there is none.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return q.getUser(ctx, "email = $1", normalizeEmail(email))
}

// GetUserByID returns the user with id or ErrNotFound.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return q.getUser(ctx, "id = $1", id)
}

func (q *Queries) getUser(ctx context.Context, cond string, arg any) (*model.User, error) {
	var u model.User
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		var lastLogin sql.NullTime
		err := db.QueryRowContext(ctx, userSelect+" WHERE "+cond, arg).Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return err
		}
		u.LastLoginAt = util.TimePtr(lastLogin)
		if u.LastLoginAt != nil {
			t := u.LastLoginAt.UTC()
			u.LastLoginAt = &t
		}
		u.CreatedAt = u.CreatedAt.UTC()
		u.UpdatedAt = u.UpdatedAt.UTC()
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a user. The email is stored lowercased.
func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) (model.User, error) {
	now := q.timestamp()
	u := model.User{
		Email:        normalizeEmail(p.Email),
		PasswordHash: p.PasswordHash,
		Name:         p.Name,
		Role:         p.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, `INSERT INTO users (email, password_hash, name, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			u.Email, u.PasswordHash, u.Name, u.Role, now, now,
		).Scan(&u.ID)
	})
	if err != nil {
		return model.User{}, fmt.Errorf("creating user: %w", mapError(err))
	}
	return u, nil
}

// UpdateUserPassword replaces the password hash of the user with id.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, hash string) error {
	return q.execOne(ctx, "updating password",
		"UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3", hash, q.timestamp(), id)
}

// TouchUserLogin records a successful login.
func (q *Queries) TouchUserLogin(ctx context.Context, id int64) error {
	return q.execOne(ctx, "recording login",
		"UPDATE users SET last_login_at = $1 WHERE id = $2", q.timestamp(), id)
}

// CountUsers returns the number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// execOne runs a statement that must touch exactly one row.
func (q *Queries) execOne(ctx context.Context, what, query string, args ...any) error {
	var n int64
	err := q.m.Execute(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
