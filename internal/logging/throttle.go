// Package logging builds the application logger.
//
// Records pass through a ThrottleHandler so that a failure repeated on every
// request, such as an unreachable database, produces one line per window
// instead of one per request.
package logging

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultThrottleWindow is the interval during which identical records are collapsed.
const DefaultThrottleWindow = 30 * time.Second

// SuppressedKey is the attribute added to a record that follows suppressed duplicates.
const SuppressedKey = "suppressed"

// Options configures New.
type Options struct {
	Level        slog.Level
	JSON         bool          // JSON output instead of text
	Throttle     time.Duration // zero uses DefaultThrottleWindow, negative disables
	ThrottleFrom slog.Level    // records below this level are never throttled
}

// New creates a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: opts.Level}

	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}

	switch {
	case opts.Throttle < 0:
		return slog.New(h)
	case opts.Throttle == 0:
		opts.Throttle = DefaultThrottleWindow
	}
	return slog.New(NewThrottleHandlerWithLevel(h, opts.Throttle, opts.ThrottleFrom))
}

type throttleEntry struct {
	last       time.Time
	suppressed int
}

// throttleState is shared by a handler and all handlers derived from it.
type throttleState struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*throttleEntry
	now     func() time.Time
}

// ThrottleHandler is a slog.Handler that drops records identical in level
// and message to one already emitted within the window.
type ThrottleHandler struct {
	inner slog.Handler
	state *throttleState
	level slog.Level // Minimum level to throttle (default: DEBUG)
}

// NewThrottleHandler wraps inner, throttling records of every level.
func NewThrottleHandler(inner slog.Handler, window time.Duration) *ThrottleHandler {
	return NewThrottleHandlerWithLevel(inner, window, slog.LevelDebug)
}

// NewThrottleHandlerWithLevel wraps inner, throttling only records at or above level.
func NewThrottleHandlerWithLevel(inner slog.Handler, window time.Duration, level slog.Level) *ThrottleHandler {
	return &ThrottleHandler{
		inner: inner,
		state: &throttleState{
			window:  window,
			entries: make(map[string]*throttleEntry),
			now:     time.Now,
		},
		level: level,
	}
}

// Enabled implements slog.Handler.
func (h *ThrottleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ThrottleHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.level {
		return h.inner.Handle(ctx, r)
	}

	suppressed, emit := h.state.admit(r.Level.String() + "|" + r.Message)
	if !emit {
		return nil
	}
	if suppressed > 0 {
		r = r.Clone()
		r.AddAttrs(slog.Int(SuppressedKey, suppressed))
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ThrottleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ThrottleHandler{
		inner: h.inner.WithAttrs(attrs),
		state: h.state,
		level: h.level,
	}
}

// WithGroup implements slog.Handler.
func (h *ThrottleHandler) WithGroup(name string) slog.Handler {
	return &ThrottleHandler{
		inner: h.inner.WithGroup(name),
		state: h.state,
		level: h.level,
	}
}

// admit decides whether a record with key should be emitted, returning the
// number of duplicates dropped since the last emitted one.
func (s *throttleState) admit(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok {
		s.entries[key] = &throttleEntry{last: now}
		s.prune(now)
		return 0, true
	}
	if now.Sub(e.last) < s.window {
		e.suppressed++
		return 0, false
	}
	n := e.suppressed
	e.last = now
	e.suppressed = 0
	return n, true
}

// prune drops idle entries so the map does not grow with unique messages.
func (s *throttleState) prune(now time.Time) {
	if len(s.entries) < 1024 {
		return
	}
	for k, e := range s.entries {
		if now.Sub(e.last) >= s.window && e.suppressed == 0 {
			delete(s.entries, k)
		}
	}
}
