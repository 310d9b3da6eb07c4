// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

// Package metrics provides Prometheus instrumentation for:
//   - Fireflies API request latency, retries and rate-limit waits
//   - Circuit breaker state
//   - Sync cycle outcomes and duration
//   - Ledger size
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fireflies API metrics

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fireflies_api_request_duration_seconds",
			Help:    "Duration of Fireflies GraphQL requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fireflies_api_requests_total",
			Help: "Total Fireflies GraphQL requests by operation and outcome",
		},
		[]string{"operation", "status"}, // status: success, transient, permanent
	)

	APIRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fireflies_api_retries_total",
			Help: "Total retry attempts against the Fireflies API",
		},
		[]string{"operation"},
	)

	RateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fireflies_rate_limit_waits_total",
			Help: "Total API calls that blocked waiting for the rate limiter",
		},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Circuit breaker request outcomes",
		},
		[]string{"name", "outcome"}, // outcome: success, failure, rejected
	)

	// Sync cycle metrics

	SyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_cycles_total",
			Help: "Completed sync cycles by trigger reason",
		},
		[]string{"reason"},
	)

	SyncCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_cycle_duration_seconds",
			Help:    "Duration of a full sync cycle in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	RecordsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_records_processed_total",
			Help: "Transcripts materialized as vault notes",
		},
	)

	RecordsSkippedNotReady = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_records_skipped_not_ready_total",
			Help: "Transcripts skipped because their summary is not ready yet",
		},
	)

	RecordFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_record_failures_total",
			Help: "Per-transcript failures by pipeline stage",
		},
		[]string{"stage"}, // stage: fetch, format, write, mark
	)

	TriggersCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_triggers_coalesced_total",
			Help: "Manual sync triggers merged into an already-pending cycle",
		},
	)

	SchedulerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_scheduler_state",
			Help: "Scheduler state (0=idle, 1=cycle running, 2=shutting down)",
		},
	)

	// Ledger metrics

	LedgerSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_entries",
			Help: "Number of transcript ids recorded as processed",
		},
	)

	NotesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_notes_written_total",
			Help: "Notes written to the vault, split by whether the desired name collided",
		},
		[]string{"collision"}, // "0" or "1"
	)
)

// ObserveAPIRequest records one completed API request.
func ObserveAPIRequest(operation, status string, duration time.Duration) {
	APIRequests.WithLabelValues(operation, status).Inc()
	APIRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
