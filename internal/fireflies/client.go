// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

/*
client.go - Fireflies GraphQL API Client

This file provides the core Client struct and HTTP communication layer for
the Fireflies.ai GraphQL API.

Client Features:
  - Bearer-token authentication
  - Token-bucket rate limiting (per-minute budget, blocking waits)
  - Automatic retry with exponential backoff for transient failures
  - Retry-After honoring for HTTP 429 responses
  - Error classification into retryable/permanent categories
  - Context support for cancellation during waits and requests

Resilience Mechanisms:
  - Rate Limiting: x/time/rate limiter sized to the configured per-minute
    budget; calls over budget block until the limiter releases them, they
    are never dropped
  - Retries: delay = retry_base_delay x 2^attempt, up to max_retries;
    a server Retry-After hint overrides the computed delay
  - Permanent failures (forbidden, not-found, invalid arguments) fail
    immediately without retry

Related Files:
  - queries.go: GraphQL query strings and wire types
  - errors.go: APIError taxonomy
  - circuit_breaker.go: gobreaker wrapper around this client
*/

//nolint:staticcheck // File documentation, not package doc
package fireflies

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/firesync/firesync/internal/config"
	"github.com/firesync/firesync/internal/logging"
	"github.com/firesync/firesync/internal/metrics"
	"github.com/firesync/firesync/internal/models"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024 // 64KB

// API is the remote-client contract consumed by the sync cycle controller.
// Implemented by Client and BreakerClient, and by mocks in tests.
//
// All methods are safe for concurrent use and accept a context for
// cancellation, including during rate-limit and backoff waits.
type API interface {
	// ListTranscriptsSince pages through all transcript headers newer than
	// since. Headers carry no readiness information.
	ListTranscriptsSince(ctx context.Context, since time.Time, pageSize int) ([]models.Transcript, error)

	// GetTranscript fetches the full transcript including readiness state.
	// Returns an error matching ErrNotFound when the id is unknown or not
	// accessible. A non-ready transcript is NOT an error; callers check
	// Transcript.Ready().
	GetTranscript(ctx context.Context, id string) (*models.Transcript, error)

	// Ping verifies connectivity and credentials with a minimal listing.
	Ping(ctx context.Context) error
}

// Client talks to the Fireflies GraphQL endpoint.
type Client struct {
	endpoint       string
	apiKey         string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

var _ API = (*Client)(nil)

// NewClient creates a Fireflies API client from configuration.
func NewClient(cfg *config.FirefliesConfig) *Client {
	return &Client{
		endpoint: cfg.URL,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		// Budget replenishes smoothly across the minute; burst allows the
		// full budget to be consumed back-to-back after a quiet period.
		limiter:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimitPerMinute)), cfg.RateLimitPerMinute),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
}

// graphQLRequest is the POST body for every API call.
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphQLError is one error in a GraphQL response envelope.
type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// graphQLResponse is the GraphQL response envelope.
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// do executes one GraphQL operation with rate limiting and retry/backoff,
// decoding the data envelope into out.
func (c *Client) do(ctx context.Context, op, query string, vars map[string]interface{}, out interface{}) error {
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err := c.roundTrip(ctx, query, vars, out)
		if err == nil {
			metrics.ObserveAPIRequest(op, "success", time.Since(start))
			return nil
		}

		// Context errors propagate as-is; they are a caller decision,
		// not an upstream failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err

		var apiErr *APIError
		retryable := errors.As(err, &apiErr) && apiErr.Temporary()
		if !retryable {
			metrics.ObserveAPIRequest(op, "permanent", time.Since(start))
			return fmt.Errorf("%s: %w", op, err)
		}
		if attempt == c.maxRetries {
			break
		}

		delay := c.retryBaseDelay << uint(attempt)
		if apiErr.RetryAfter > 0 {
			delay = apiErr.RetryAfter
		}
		metrics.APIRetries.WithLabelValues(op).Inc()
		logging.Warn().
			Str("operation", op).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("API call failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	metrics.ObserveAPIRequest(op, "transient", time.Since(start))
	return fmt.Errorf("%s: retries exhausted after %d attempts: %w", op, c.maxRetries+1, lastErr)
}

// roundTrip performs a single HTTP exchange, classifying failures.
func (c *Client) roundTrip(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if time.Since(waitStart) > 5*time.Millisecond {
		metrics.RateLimitWaits.Inc()
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return &APIError{Category: CategoryInvalidArgument, Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &APIError{Category: CategoryInvalidArgument, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transientErr("request failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return decodeGraphQL(resp.Body, out)

	case resp.StatusCode == http.StatusTooManyRequests:
		return &APIError{
			Category:   CategoryRateLimited,
			Code:       "too_many_requests",
			Message:    "rate limit exceeded (HTTP 429)",
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}

	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return &APIError{
			Category: CategoryForbidden,
			Code:     "forbidden",
			Message:  fmt.Sprintf("API key rejected (HTTP %d)", resp.StatusCode),
		}

	case resp.StatusCode >= 500:
		return transientErr("HTTP %d: %s", resp.StatusCode, readBodyForError(resp.Body))

	default:
		return &APIError{
			Category: CategoryInvalidArgument,
			Message:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, readBodyForError(resp.Body)),
		}
	}
}

// decodeGraphQL parses the response envelope and either surfaces the first
// GraphQL error or unmarshals data into out.
func decodeGraphQL(r io.Reader, out interface{}) error {
	var envelope graphQLResponse
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return transientErr("decode response: %v", err)
	}

	if len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		return newCodeError(first.Extensions.Code, first.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return transientErr("decode data: %v", err)
	}
	return nil
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms (RFC 9110).
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// readBodyForError reads up to maxErrorBodySize of a response body for
// diagnostics.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	if len(body) == maxErrorBodySize {
		return string(body) + "... (truncated)"
	}
	return string(body)
}

// firefliesTimeFormat is the DateTime format the GraphQL schema accepts.
const firefliesTimeFormat = "2006-01-02T15:04:05.000Z"

// ListTranscriptsSince pages through all transcript headers newer than since.
func (c *Client) ListTranscriptsSince(ctx context.Context, since time.Time, pageSize int) ([]models.Transcript, error) {
	return c.ListTranscripts(ctx, since, time.Time{}, pageSize)
}

// ListTranscripts pages through transcript headers in [since, until]. A zero
// until leaves the range open-ended. Pagination uses limit/skip; a page
// shorter than pageSize terminates the walk. pageSize is clamped to the API
// maximum of 50.
func (c *Client) ListTranscripts(ctx context.Context, since, until time.Time, pageSize int) ([]models.Transcript, error) {
	if pageSize < 1 || pageSize > 50 {
		pageSize = 50
	}

	var all []models.Transcript
	for skip := 0; ; skip += pageSize {
		vars := map[string]interface{}{
			"fromDate": since.UTC().Format(firefliesTimeFormat),
			"limit":    pageSize,
			"skip":     skip,
		}
		if !until.IsZero() {
			vars["toDate"] = until.UTC().Format(firefliesTimeFormat)
		}

		var page struct {
			Transcripts []transcriptHeader `json:"transcripts"`
		}
		if err := c.do(ctx, "list_transcripts", listTranscriptsQuery, vars, &page); err != nil {
			return nil, err
		}

		for i := range page.Transcripts {
			all = append(all, page.Transcripts[i].toModel())
		}
		if len(page.Transcripts) < pageSize {
			break
		}
	}

	logging.Debug().Int("count", len(all)).Time("since", since).Msg("listed transcripts")
	return all, nil
}

// GetTranscript fetches the full transcript detail for one id.
func (c *Client) GetTranscript(ctx context.Context, id string) (*models.Transcript, error) {
	vars := map[string]interface{}{"transcriptId": id}

	var data struct {
		Transcript *transcriptDetail `json:"transcript"`
	}
	if err := c.do(ctx, "get_transcript", transcriptDetailQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.Transcript == nil {
		return nil, newCodeError("object_not_found", "transcript not accessible: "+id)
	}
	return data.Transcript.toModel(), nil
}

// Ping verifies connectivity and credentials with a one-item listing.
func (c *Client) Ping(ctx context.Context) error {
	vars := map[string]interface{}{
		"fromDate": time.Now().UTC().AddDate(0, 0, -1).Format(firefliesTimeFormat),
		"limit":    1,
		"skip":     0,
	}
	if err := c.do(ctx, "ping", listTranscriptsQuery, vars, nil); err != nil {
		return fmt.Errorf("fireflies ping failed: %w", err)
	}
	return nil
}
