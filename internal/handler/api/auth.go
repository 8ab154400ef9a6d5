// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/newsdesk/internal/auth"
	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse carries the signed-in user.
type UserResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
}

// Login handles POST /api/auth/login. Unknown emails and wrong passwords
// get the same answer; repeated failures lock the account for a while.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ctx := r.Context()

	if h.lockout != nil && email != "" {
		if locked, remaining := h.lockout.IsAccountLocked(ctx, email); locked {
			w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Round(time.Second).Seconds())))
			WriteError(w, r, http.StatusTooManyRequests, middleware.MsgAccountLocked, middleware.CodeAccountLocked)
			return
		}
	}

	session, err := h.auth.Login(ctx, email, req.Password)
	if err != nil {
		if h.lockout != nil && errors.Is(err, auth.ErrInvalidCredentials) {
			if locked, d := h.lockout.RecordFailedAttempt(ctx, email); locked {
				h.logger.Warn("account locked after failed logins",
					"email", email,
					"duration", d,
					"ip", middleware.GetClientIP(r),
				)
			}
		}
		h.fail(w, r, err)
		return
	}

	if h.lockout != nil {
		h.lockout.RecordSuccessfulLogin(ctx, email)
	}
	http.SetCookie(w, h.sessionCookie(session.Token, int(auth.TokenTTL.Seconds())))
	WriteJSON(w, r, http.StatusOK, UserResponse{Success: true, User: session.User})
}

// Logout handles POST /api/auth/logout by expiring the session cookie.
// Tokens are not revoked server-side.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1))
	WriteJSON(w, r, http.StatusOK, SuccessResponse{Success: true})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		WriteError(w, r, http.StatusUnauthorized, middleware.MsgUnauthorized, middleware.CodeUnauthorized)
		return
	}
	WriteJSON(w, r, http.StatusOK, UserResponse{Success: true, User: user})
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
