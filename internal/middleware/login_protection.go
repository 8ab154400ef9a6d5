package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/newsdesk/internal/cache"
)

// Lockout response.
const (
	CodeAccountLocked = "ACCOUNT_LOCKED"
	MsgAccountLocked  = "Too many failed login attempts. Please try again later."
)

const (
	attemptKeyPrefix = "login:"
	maxLockout       = 24 * time.Hour
)

// LoginProtection provides combined IP rate limiting and account lockout
// protection. Attempt counters live in a cache.Store so that several
// instances sharing Redis see the same lockouts.
type LoginProtection struct {
	ipLimiters *limiterCache[string]

	attempts cache.Store
	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex

	maxFailedAttempts int           // Lock account after this many failures
	lockoutDuration   time.Duration // Base lockout duration (doubles with each lockout)
	attemptWindow     time.Duration // Window to count failed attempts
	now               func() time.Time
}

// loginAttempt tracks failed login attempts for an account.
type loginAttempt struct {
	Count       int       `json:"count"`
	FirstFailed time.Time `json:"first_failed"`
	LockedUntil time.Time `json:"locked_until"`
	Lockouts    int       `json:"lockouts"` // for exponential backoff
}

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is requests per second per IP (default: 0.5 = 1 request per 2 seconds)
	IPRateLimit float64
	// IPBurst is the maximum burst size for IP rate limiting (default: 5)
	IPBurst int
	// MaxFailedAttempts before account lockout (default: 5)
	MaxFailedAttempts int
	// LockoutDuration is base lockout time, doubles with each lockout (default: 15 minutes)
	LockoutDuration time.Duration
	// AttemptWindow is the time window for counting failed attempts (default: 15 minutes)
	AttemptWindow time.Duration
	// Store holds attempt counters (default: a private memory store)
	Store cache.Store
}

// DefaultLoginProtectionConfig returns sensible defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates a new login protection instance.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = 0.5
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = 5
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = 15 * time.Minute
	}
	if cfg.Store == nil {
		cfg.Store = cache.NewMemoryStore(cache.MemoryOptions{
			DefaultTTL:      cfg.AttemptWindow,
			MaxItems:        maxTrackedClients,
			CleanupInterval: 10 * time.Minute,
		})
	}

	return &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		attempts:          cfg.Store,
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
		now:               time.Now,
	}
}

// CheckIPRateLimit reports whether a login request from ip may proceed.
func (lp *LoginProtection) CheckIPRateLimit(ip string) bool {
	if lp.ipLimiters.clearIfExceeds(maxTrackedClients) {
		slog.Info("cleared login IP rate limiters due to size")
	}
	return lp.ipLimiters.get(ip).Allow()
}

// IsAccountLocked returns whether email is locked and for how much longer.
func (lp *LoginProtection) IsAccountLocked(ctx context.Context, email string) (bool, time.Duration) {
	attempt, ok := lp.load(ctx, email)
	if !ok {
		return false, 0
	}
	if now := lp.now(); now.Before(attempt.LockedUntil) {
		return true, attempt.LockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailedAttempt records a failed login attempt.
// Returns (locked, lockDuration) if the account is now locked.
func (lp *LoginProtection) RecordFailedAttempt(ctx context.Context, email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := lp.now()
	attempt, ok := lp.load(ctx, email)

	switch {
	case !ok:
		attempt = loginAttempt{Count: 1, FirstFailed: now}
	case now.Sub(attempt.FirstFailed) > lp.attemptWindow:
		attempt.Count = 1
		attempt.FirstFailed = now
	default:
		attempt.Count++
	}
	slog.Debug("login attempt recorded", "email", email, "count", attempt.Count)

	var lockDuration time.Duration
	if attempt.Count >= lp.maxFailedAttempts {
		lockDuration = lp.lockoutDuration
		for i := 0; i < attempt.Lockouts && lockDuration < maxLockout; i++ {
			lockDuration *= 2
		}
		lockDuration = min(lockDuration, maxLockout)

		attempt.LockedUntil = now.Add(lockDuration)
		attempt.Lockouts++
		attempt.Count = 0

		slog.Warn("account locked due to failed attempts",
			"email", email,
			"lockouts", attempt.Lockouts,
			"duration", lockDuration,
		)
	}

	lp.save(ctx, email, attempt, now)
	return lockDuration > 0, lockDuration
}

// RecordSuccessfulLogin clears failed attempt tracking for an account.
func (lp *LoginProtection) RecordSuccessfulLogin(ctx context.Context, email string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if err := lp.attempts.Delete(ctx, attemptKey(email)); err != nil {
		slog.Debug("clearing login attempts failed", "error", err)
	}
}

// GetRemainingAttempts returns the number of remaining attempts before lockout.
func (lp *LoginProtection) GetRemainingAttempts(ctx context.Context, email string) int {
	attempt, ok := lp.load(ctx, email)
	if !ok || lp.now().Sub(attempt.FirstFailed) > lp.attemptWindow {
		return lp.maxFailedAttempts
	}
	return max(lp.maxFailedAttempts-attempt.Count, 0)
}

// Middleware returns HTTP middleware for IP rate limiting on login.
// This should be applied to the login POST route.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := GetClientIP(r)
			if !lp.CheckIPRateLimit(ip) {
				slog.Warn("login rate limit exceeded", "ip", ip)
				writeError(w, r, http.StatusTooManyRequests, MsgRateLimited, CodeRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func attemptKey(email string) string {
	return attemptKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

func (lp *LoginProtection) load(ctx context.Context, email string) (loginAttempt, bool) {
	var attempt loginAttempt
	data, err := lp.attempts.Get(ctx, attemptKey(email))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Debug("loading login attempts failed", "error", err)
		}
		return attempt, false
	}
	if err := json.Unmarshal(data, &attempt); err != nil {
		return attempt, false
	}
	return attempt, true
}

// save keeps the entry until both the lockout and the attempt window have
// passed, plus one base lockout so the backoff level survives a short gap.
func (lp *LoginProtection) save(ctx context.Context, email string, attempt loginAttempt, now time.Time) {
	until := attempt.FirstFailed.Add(lp.attemptWindow)
	if attempt.LockedUntil.After(until) {
		until = attempt.LockedUntil
	}
	ttl := until.Sub(now) + lp.lockoutDuration

	data, err := json.Marshal(attempt)
	if err != nil {
		return
	}
	if err := lp.attempts.Set(ctx, attemptKey(email), data, ttl); err != nil {
		slog.Debug("storing login attempts failed", "error", err)
	}
}
