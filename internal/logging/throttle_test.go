package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingHandler is a slog.Handler that keeps every record it receives.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// fakeClock lets tests move time forward by hand.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestHandler(window time.Duration) (*ThrottleHandler, *recordingHandler, *fakeClock) {
	inner := &recordingHandler{}
	h := NewThrottleHandler(inner, window)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	h.state.now = clock.now
	return h, inner, clock
}

func TestThrottleHandler_CollapsesDuplicates(t *testing.T) {
	h, inner, _ := newTestHandler(time.Minute)
	logger := slog.New(h)

	for range 10 {
		logger.Warn("database unreachable", "error", "connection refused")
	}

	if got := inner.count(); got != 1 {
		t.Errorf("records = %d, want 1", got)
	}
}

func TestThrottleHandler_ReportsSuppressedCount(t *testing.T) {
	h, inner, clock := newTestHandler(time.Minute)
	logger := slog.New(h)

	for range 5 {
		logger.Warn("database unreachable")
	}
	clock.advance(2 * time.Minute)
	logger.Warn("database unreachable")

	if got := inner.count(); got != 2 {
		t.Fatalf("records = %d, want 2", got)
	}

	var suppressed int64
	inner.records[1].Attrs(func(a slog.Attr) bool {
		if a.Key == SuppressedKey {
			suppressed = a.Value.Int64()
		}
		return true
	})
	if suppressed != 4 {
		t.Errorf("suppressed = %d, want 4", suppressed)
	}
}

func TestThrottleHandler_DistinctMessagesPass(t *testing.T) {
	h, inner, _ := newTestHandler(time.Minute)
	logger := slog.New(h)

	logger.Warn("first")
	logger.Warn("second")
	logger.Error("first")

	if got := inner.count(); got != 3 {
		t.Errorf("records = %d, want 3", got)
	}
}

func TestThrottleHandler_SharedAcrossWithAttrs(t *testing.T) {
	h, inner, _ := newTestHandler(time.Minute)

	slog.New(h).Warn("pool reset")
	slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "store")})).Warn("pool reset")

	if got := inner.count(); got != 1 {
		t.Errorf("records = %d, want 1", got)
	}
}

func TestThrottleHandler_BelowLevelNeverThrottled(t *testing.T) {
	inner := &recordingHandler{}
	logger := slog.New(NewThrottleHandlerWithLevel(inner, time.Minute, slog.LevelWarn))

	for range 3 {
		logger.Info("request served")
	}

	if got := inner.count(); got != 3 {
		t.Errorf("records = %d, want 3", got)
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: slog.LevelInfo, JSON: true})

	logger.Info("server started", "addr", "localhost:3000")
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, `"msg":"server started"`) {
		t.Errorf("output %q does not contain JSON message", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record should be filtered: %q", out)
	}
}

func TestNew_ThrottleDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: slog.LevelInfo, Throttle: -1})

	logger.Warn("again")
	logger.Warn("again")

	if n := strings.Count(buf.String(), "again"); n != 2 {
		t.Errorf("lines = %d, want 2", n)
	}
}
