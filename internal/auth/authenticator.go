// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/newsdesk/internal/apperr"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
)

// Login failure messages. Both credential failures share one message so
// callers cannot tell an unknown email from a wrong password.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgAuthUnavailable    = "Authentication is temporarily unavailable. Please try again later."
)

// Login errors.
var (
	ErrInvalidCredentials = apperr.Unauthorized(MsgInvalidCredentials)
	ErrAuthUnavailable    = apperr.New(apperr.KindUnavailable, MsgAuthUnavailable)
)

// UserStore is the subset of store.Queries the authenticator needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	UpdateUserPassword(ctx context.Context, id int64, hash string) error
	TouchUserLogin(ctx context.Context, id int64) error
}

// Session is the result of a successful login.
type Session struct {
	User  *model.User
	Token string
}

// Authenticator verifies credentials and resolves the user behind a
// request's session token.
type Authenticator struct {
	users  UserStore
	tokens *TokenIssuer
	logger *slog.Logger
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(users UserStore, tokens *TokenIssuer, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		users:  users,
		tokens: tokens,
		logger: logger.With("component", "auth"),
	}
}

// Tokens returns the token issuer.
func (a *Authenticator) Tokens() *TokenIssuer {
	return a.tokens
}

// Login checks email and password and issues a token. It returns
// ErrInvalidCredentials for an unknown email or a wrong password and
// ErrAuthUnavailable when the user store cannot be reached.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	user, err := a.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// Spend comparable time on unknown emails.
		_, _ = CheckPassword(password, dummyHash)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		a.logger.Warn("login lookup failed", "error", err)
		return nil, ErrAuthUnavailable
	}

	ok, err := CheckPassword(password, user.PasswordHash)
	if err != nil {
		a.logger.Warn("stored password hash is unreadable", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if NeedsRehash(user.PasswordHash) {
		a.rehash(ctx, user, password)
	}
	if err := a.users.TouchUserLogin(ctx, user.ID); err != nil {
		a.logger.Debug("recording login time failed", "user_id", user.ID, "error", err)
	}

	token, _, err := a.tokens.Issue(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	a.logger.Info("user logged in", "user_id", user.ID)
	return &Session{User: user, Token: token}, nil
}

// ResolveCurrentUser returns the user behind the request's token, or nil.
// A missing or invalid token yields nil. So does a store failure while
// re-checking the user; that case is logged at debug level only because it
// runs on almost every request.
func (a *Authenticator) ResolveCurrentUser(r *http.Request) *model.User {
	token := TokenFromRequest(r)
	if token == "" {
		return nil
	}
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return nil
	}

	user, err := a.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Debug("resolving current user failed", "error", err)
		}
		return nil
	}
	return user
}

// TokenFromRequest returns the session token from the auth cookie, falling
// back to an Authorization bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (a *Authenticator) rehash(ctx context.Context, user *model.User, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		a.logger.Warn("rehashing password failed", "user_id", user.ID, "error", err)
		return
	}
	if err := a.users.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		a.logger.Warn("storing rehashed password failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
}

// dummyHash is verified against on unknown emails.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$bm90LWEtcmVhbC1zYWx0$F9vGp0bCw2ibC2L7b3xbT3Rb0pQH2xJm1Q8m1TbpQ7c"
