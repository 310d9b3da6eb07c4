// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

package fireflies

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/firesync/firesync/internal/config"
)

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	return NewClient(&config.FirefliesConfig{
		APIKey:             "test-key",
		URL:                url,
		Timeout:            5 * time.Second,
		MaxRetries:         2,
		RetryBaseDelay:     time.Millisecond,
		RateLimitPerMinute: 6000,
	})
}

func graphQLHandler(t *testing.T, fn func(r *http.Request, req graphQLRequest) (int, string)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		code, body := fn(r, req)
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}
}

func TestClientAuthHeader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(graphQLHandler(t, func(r *http.Request, _ graphQLRequest) (int, string) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		return http.StatusOK, `{"data": {"transcripts": []}}`
	}))
	defer srv.Close()

	if err := testClient(t, srv.URL).Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestGetTranscript(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(graphQLHandler(t, func(_ *http.Request, req graphQLRequest) (int, string) {
		if req.Variables["transcriptId"] != "t1" {
			t.Errorf("transcriptId = %v, want t1", req.Variables["transcriptId"])
		}
		return http.StatusOK, `{"data": {"transcript": {
			"id": "t1",
			"title": "Standup",
			"date": 1767972600000,
			"duration": 15.5,
			"organizer_email": "org@example.com",
			"participants": ["org@example.com"],
			"meeting_info": {"summary_status": "processed"},
			"sentences": [{"index": 0, "speaker_name": "Org", "text": "hi", "start_time": 0, "end_time": 1}],
			"summary": {"overview": "short", "action_items": "- do it"},
			"transcript_url": "https://app.fireflies.ai/view/t1"
		}}}`
	}))
	defer srv.Close()

	got, err := testClient(t, srv.URL).GetTranscript(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetTranscript() error = %v", err)
	}

	if got.ID != "t1" || got.Title != "Standup" {
		t.Errorf("unexpected header: %+v", got)
	}
	if !got.Ready() {
		t.Errorf("Ready() = false for processed transcript")
	}
	if want := time.Date(2026, 1, 9, 15, 30, 0, 0, time.UTC); !got.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", got.Date, want)
	}
	if len(got.Summary.ActionItems) != 1 || got.Summary.ActionItems[0] != "do it" {
		t.Errorf("ActionItems = %v", got.Summary.ActionItems)
	}
}

func TestGetTranscriptNotFound(t *testing.T) {
	t.Parallel()

	t.Run("null transcript", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(graphQLHandler(t, func(_ *http.Request, _ graphQLRequest) (int, string) {
			return http.StatusOK, `{"data": {"transcript": null}}`
		}))
		defer srv.Close()

		_, err := testClient(t, srv.URL).GetTranscript(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound match", err)
		}
	})

	t.Run("graphql error code", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(graphQLHandler(t, func(_ *http.Request, _ graphQLRequest) (int, string) {
			return http.StatusOK, `{"errors": [{"message": "no", "extensions": {"code": "object_not_found"}}]}`
		}))
		defer srv.Close()

		_, err := testClient(t, srv.URL).GetTranscript(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound match", err)
		}
	})
}

func TestClientRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(graphQLHandler(t, func(_ *http.Request, _ graphQLRequest) (int, string) {
		if calls.Add(1) < 3 {
			return http.StatusInternalServerError, "boom"
		}
		return http.StatusOK, `{"data": {"transcripts": []}}`
	}))
	defer srv.Close()

	if err := testClient(t, srv.URL).Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v after transient failures", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestClientDoesNotRetryPermanentErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(graphQLHandler(t, func(_ *http.Request, _ graphQLRequest) (int, string) {
		calls.Add(1)
		return http.StatusForbidden, "bad key"
	}))
	defer srv.Close()

	err := testClient(t, srv.URL).Ping(context.Background())
	if err == nil {
		t.Fatalf("Ping() error = nil, want forbidden")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Category != CategoryForbidden {
		t.Errorf("error = %v, want forbidden APIError", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1 (no retries)", got)
	}
}

func TestClientExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(graphQLHandler(t, func(_ *http.Request, _ graphQLRequest) (int, string) {
		calls.Add(1)
		return http.StatusInternalServerError, "boom"
	}))
	defer srv.Close()

	err := testClient(t, srv.URL).Ping(context.Background())
	if err == nil {
		t.Fatalf("Ping() error = nil, want retries exhausted")
	}
	if !strings.Contains(err.Error(), "retries exhausted") {
		t.Errorf("error = %v, want retries exhausted", err)
	}
	// MaxRetries=2 means 3 total attempts.
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestClientHonorsRetryAfter(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	start := time.Now()
	srv := httptest.NewServer(func() http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data": {"transcripts": []}}`))
		}
	}())
	defer srv.Close()

	if err := testClient(t, srv.URL).Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	// The base delay is 1ms; a full second of waiting proves the header won.
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("elapsed = %v, want >= 1s from Retry-After", elapsed)
	}
}

func TestClientContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(graphQLHandler(t, func(_ *http.Request, _ graphQLRequest) (int, string) {
		return http.StatusInternalServerError, "boom"
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	client.retryBaseDelay = time.Minute // force a long backoff wait

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Ping(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestListTranscriptsPagination(t *testing.T) {
	t.Parallel()

	page := func(ids ...string) string {
		rows := make([]string, len(ids))
		for i, id := range ids {
			rows[i] = `{"id": "` + id + `", "title": "m", "date": 1767972600000, "duration": 10}`
		}
		return `{"data": {"transcripts": [` + strings.Join(rows, ",") + `]}}`
	}

	srv := httptest.NewServer(graphQLHandler(t, func(_ *http.Request, req graphQLRequest) (int, string) {
		skip := int(req.Variables["skip"].(float64))
		switch skip {
		case 0:
			return http.StatusOK, page("t1", "t2")
		case 2:
			return http.StatusOK, page("t3")
		default:
			t.Errorf("unexpected skip %d", skip)
			return http.StatusOK, page()
		}
	}))
	defer srv.Close()

	got, err := testClient(t, srv.URL).ListTranscriptsSince(context.Background(), time.Now().Add(-time.Hour), 2)
	if err != nil {
		t.Fatalf("ListTranscriptsSince() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if got[i].ID != want {
			t.Errorf("transcript %d = %q, want %q", i, got[i].ID, want)
		}
	}
}

func TestListTranscriptsBoundedRange(t *testing.T) {
	t.Parallel()

	until := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(graphQLHandler(t, func(_ *http.Request, req graphQLRequest) (int, string) {
		if got, want := req.Variables["toDate"], "2026-02-01T00:00:00.000Z"; got != want {
			t.Errorf("toDate = %v, want %v", got, want)
		}
		return http.StatusOK, `{"data": {"transcripts": []}}`
	}))
	defer srv.Close()

	if _, err := testClient(t, srv.URL).ListTranscripts(context.Background(), until.AddDate(0, -1, 0), until, 25); err != nil {
		t.Fatalf("ListTranscripts() error = %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	if got := parseRetryAfter("30"); got != 30*time.Second {
		t.Errorf("parseRetryAfter(30) = %v, want 30s", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("parseRetryAfter(empty) = %v, want 0", got)
	}
	if got := parseRetryAfter("garbage"); got != 0 {
		t.Errorf("parseRetryAfter(garbage) = %v, want 0", got)
	}

	future := time.Now().Add(45 * time.Second).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got < 40*time.Second || got > 45*time.Second {
		t.Errorf("parseRetryAfter(http-date) = %v, want ~45s", got)
	}

	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(past); got != 0 {
		t.Errorf("parseRetryAfter(past date) = %v, want 0", got)
	}
}

func TestRetryBackoffDoubles(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var hits []time.Time
	srv := httptest.NewServer(graphQLHandler(t, func(_ *http.Request, _ graphQLRequest) (int, string) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		return http.StatusInternalServerError, `{"errors": [{"message": "boom"}]}`
	}))
	defer srv.Close()

	base := 50 * time.Millisecond
	client := NewClient(&config.FirefliesConfig{
		APIKey:             "test-key",
		URL:                srv.URL,
		Timeout:            5 * time.Second,
		MaxRetries:         2,
		RetryBaseDelay:     base,
		RateLimitPerMinute: 6000,
	})

	if _, err := client.GetTranscript(context.Background(), "t1"); err == nil {
		t.Fatal("GetTranscript() error = nil, want retries exhausted")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(hits) != 3 {
		t.Fatalf("attempts = %d, want 3", len(hits))
	}
	first, second := hits[1].Sub(hits[0]), hits[2].Sub(hits[1])
	if first < base {
		t.Errorf("first retry delay = %v, want at least %v", first, base)
	}
	if second < 2*base {
		t.Errorf("second retry delay = %v, want at least %v", second, 2*base)
	}
	if second <= first {
		t.Errorf("delays %v then %v, want second retry to wait longer", first, second)
	}
}
