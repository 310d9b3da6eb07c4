// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/firesync/firesync/internal/config"
	"github.com/firesync/firesync/internal/ledger"
	"github.com/firesync/firesync/internal/syncer"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	led, err := ledger.Open(filepath.Join(t.TempDir(), "ledger"))
	if err != nil {
		t.Fatalf("opening ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })

	scheduler := syncer.NewScheduler(nil, time.Hour)
	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: 9272, Timeout: 10 * time.Second}
	return NewServer(cfg, scheduler, led, "test")
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version field = %v, want test", body["version"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if running, ok := body["cycle_running"].(bool); !ok || running {
		t.Errorf("cycle_running = %v, want false", body["cycle_running"])
	}
}

func TestSyncEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("empty body queues manual sync", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))

		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", rec.Code)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["queued"] != true {
			t.Errorf("queued = %v, want true", body["queued"])
		}
	})

	t.Run("second request coalesces", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		first := httptest.NewRecorder()
		srv.Routes().ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))

		second := httptest.NewRecorder()
		srv.Routes().ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))

		if second.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202 even when coalesced", second.Code)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(second.Body.Bytes(), &body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["queued"] != false {
			t.Errorf("queued = %v, want false for coalesced request", body["queued"])
		}
	})

	t.Run("transcript ids accepted", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync",
			strings.NewReader(`{"transcript_ids": ["t1", "t2"]}`))
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", rec.Code)
		}
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", strings.NewReader(`{not json`))
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sync_scheduler_state") {
		t.Errorf("metrics output missing sync_scheduler_state gauge")
	}
}
