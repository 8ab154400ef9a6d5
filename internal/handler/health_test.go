// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/testutil"
)

type fakePinger struct {
	err   error
	calls int
}

func (p *fakePinger) Ping(context.Context) error {
	p.calls++
	return p.err
}

func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q; want application/json", ct)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func asAdmin(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), &model.User{ID: 1, Role: model.RoleAdmin}))
}

func TestHealthHandler_Liveness(t *testing.T) {
	db := &fakePinger{err: errors.New("down")}
	h := NewHealthHandler(db, "", "v1.2.3")

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assertStatus(t, w.Code, http.StatusOK)
	if resp := decodeMap(t, w); resp["status"] != "alive" {
		t.Errorf("status = %v; want alive", resp["status"])
	}
	if db.calls != 0 {
		t.Errorf("liveness pinged the database %d times", db.calls)
	}
}

func TestHealthHandler_Detail_Public(t *testing.T) {
	h := NewHealthHandler(&fakePinger{}, "", "")

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health?detail=1&verbose=true", nil))

	assertStatus(t, w.Code, http.StatusOK)
	resp := decodeMap(t, w)
	if resp["status"] != "healthy" {
		t.Errorf("status = %v; want healthy", resp["status"])
	}
	for _, field := range []string{"uptime", "version", "checks", "timestamp", "system"} {
		if _, ok := resp[field]; ok {
			t.Errorf("public response should not contain %s", field)
		}
	}
}

func TestHealthHandler_Detail_Admin(t *testing.T) {
	h := NewHealthHandler(&fakePinger{}, t.TempDir(), "v1.2.3")

	w := httptest.NewRecorder()
	h.Health(w, asAdmin(httptest.NewRequest(http.MethodGet, "/health?detail=1&verbose=true", nil)))

	assertStatus(t, w.Code, http.StatusOK)
	var status HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if status.Version != "v1.2.3" {
		t.Errorf("version = %q", status.Version)
	}
	if status.Checks["database"].Status != statusHealthy {
		t.Errorf("database check = %+v", status.Checks["database"])
	}
	if _, ok := status.Checks["disk"]; !ok {
		t.Error("disk check missing with an uploads directory")
	}
	if status.System == nil || status.System.NumCPU == 0 {
		t.Errorf("system info = %+v", status.System)
	}
}

func TestHealthHandler_Detail_DatabaseDown(t *testing.T) {
	h := NewHealthHandler(&fakePinger{err: errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")}, "", "")

	w := httptest.NewRecorder()
	h.Health(w, asAdmin(httptest.NewRequest(http.MethodGet, "/health?detail=1", nil)))

	assertStatus(t, w.Code, http.StatusServiceUnavailable)
	var status HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if status.Status != statusDegraded {
		t.Errorf("status = %q; want degraded", status.Status)
	}
	if msg := status.Checks["database"].Message; msg != "Database unreachable" {
		t.Errorf("database message = %q; the cause must not be exposed", msg)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	m := testutil.TestManager(t)
	h := NewHealthHandler(m, "", "")

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assertStatus(t, w.Code, http.StatusOK)
	if resp := decodeMap(t, w); resp["status"] != "ready" {
		t.Errorf("status = %v; want ready", resp["status"])
	}

	_ = m.Close()
	w = httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assertStatus(t, w.Code, http.StatusServiceUnavailable)
	if resp := decodeMap(t, w); resp["status"] != "not_ready" {
		t.Errorf("status = %v; want not_ready", resp["status"])
	}
}

func TestHealthHandler_DiskCheckMissingDir(t *testing.T) {
	h := NewHealthHandler(&fakePinger{}, "/nonexistent/newsdesk/uploads", "")
	if c := h.checkDiskSpace(); c.Status != statusHealthy {
		t.Errorf("missing uploads dir: %+v", c)
	}
}

func TestHealthHandler_StartTime(t *testing.T) {
	before := time.Now()
	h := NewHealthHandler(&fakePinger{}, "", "")
	if h.StartTime().Before(before) || h.StartTime().After(time.Now()) {
		t.Errorf("StartTime = %v", h.StartTime())
	}
	if h.version != "dev" {
		t.Errorf("default version = %q; want dev", h.version)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{0, "0 B"},
		{500, "500 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{1572864, "1.50 MB"},
		{1073741824, "1.00 GB"},
		{1610612736, "1.50 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := formatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("formatBytes(%d) = %q; want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
