// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

package fireflies

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/firesync/firesync/internal/logging"
	"github.com/firesync/firesync/internal/metrics"
	"github.com/firesync/firesync/internal/models"
)

// BreakerClient wraps an API client with a circuit breaker so a dead or
// degraded Fireflies endpoint stops consuming the retry and rate-limit
// budget. While the circuit is open, calls fail fast with a transient error
// and the affected transcripts are simply retried on a later cycle.
//
// The breaker uses real time for its interval and timeout; tests exercise
// the wrapped client directly.
type BreakerClient struct {
	api  API
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

var _ API = (*BreakerClient)(nil)

// NewBreakerClient wraps api with a circuit breaker.
// Configuration:
//   - Opens after >= 60% failures over a minimum of 10 requests
//   - 1 minute measurement window while closed
//   - 2 minute open period before probing with up to 3 half-open requests
func NewBreakerClient(api API) *BreakerClient {
	cbName := "fireflies-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("opening circuit to Fireflies API")
			}
			return shouldTrip
		},

		// Application-level rejections (unknown id, bad arguments) say
		// nothing about upstream health; only transport-level failures
		// count against the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && !apiErr.Temporary()
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerClient{api: api, cb: cb, name: cbName}
}

// execute runs one API call through the breaker, translating breaker
// rejections into transient APIErrors.
func (b *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return nil, transientErr("circuit breaker open: %v", err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// ListTranscriptsSince implements API.
func (b *BreakerClient) ListTranscriptsSince(ctx context.Context, since time.Time, pageSize int) ([]models.Transcript, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.api.ListTranscriptsSince(ctx, since, pageSize)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Transcript), nil
}

// GetTranscript implements API.
func (b *BreakerClient) GetTranscript(ctx context.Context, id string) (*models.Transcript, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.api.GetTranscript(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Transcript), nil
}

// Ping implements API.
func (b *BreakerClient) Ping(ctx context.Context) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.api.Ping(ctx)
	})
	return err
}

// stateToFloat maps breaker states onto the state gauge.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
