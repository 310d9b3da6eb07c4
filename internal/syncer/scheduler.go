// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

/*
scheduler.go - Sync Scheduler

Owns the cadence of sync cycles. One worker goroutine consumes triggers from
a single-slot channel, so at most one cycle runs at a time and any triggers
arriving mid-cycle collapse into one pending request.

Trigger sources: the interval ticker, an immediate startup pass, and
RequestSync calls from the signal gateway and the HTTP API.
*/

package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/firesync/firesync/internal/logging"
	"github.com/firesync/firesync/internal/metrics"
	"github.com/firesync/firesync/internal/models"
)

// Scheduler state gauge values.
const (
	stateIdle         = 0
	stateCycleRunning = 1
	stateShuttingDown = 2
)

// Status is a point-in-time snapshot of the scheduler for the status API.
type Status struct {
	Running    bool                `json:"cycle_running"`
	LastReport *models.CycleReport `json:"last_report,omitempty"`
	NextPoll   time.Time           `json:"next_poll"`
}

// Scheduler serializes sync cycles. Implements suture.Service.
type Scheduler struct {
	controller *Controller
	interval   time.Duration

	// trigger holds at most one pending request. A send that finds the
	// slot occupied is dropped; the pending cycle covers it.
	trigger chan models.SyncRequest

	mu       sync.RWMutex
	running  bool
	last     *models.CycleReport
	nextPoll time.Time
}

// NewScheduler builds a scheduler around a cycle controller.
func NewScheduler(controller *Controller, interval time.Duration) *Scheduler {
	return &Scheduler{
		controller: controller,
		interval:   interval,
		trigger:    make(chan models.SyncRequest, 1),
	}
}

// RequestSync queues a cycle. Returns false when a request was already
// pending and this one coalesced into it.
func (s *Scheduler) RequestSync(req models.SyncRequest) bool {
	select {
	case s.trigger <- req:
		logging.Info().Str("reason", string(req.Reason)).Msg("sync requested")
		return true
	default:
		metrics.TriggersCoalesced.Inc()
		logging.Debug().Str("reason", string(req.Reason)).Msg("sync trigger coalesced into pending request")
		return false
	}
}

// Status reports the scheduler's current state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Running:    s.running,
		LastReport: s.last,
		NextPoll:   s.nextPoll,
	}
}

// Serve runs the scheduler loop until ctx is cancelled. An initial cycle
// fires immediately so a restart never waits a full interval to catch up.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Msg("sync scheduler started")
	metrics.SchedulerState.Set(stateIdle)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.setNextPoll(time.Now().Add(s.interval))

	s.runCycle(ctx, models.SyncRequest{Reason: models.ReasonStartup})

	for {
		select {
		case <-ctx.Done():
			metrics.SchedulerState.Set(stateShuttingDown)
			logging.Info().Msg("sync scheduler stopping")
			return ctx.Err()

		case <-ticker.C:
			s.setNextPoll(time.Now().Add(s.interval))
			s.runCycle(ctx, models.SyncRequest{Reason: models.ReasonScheduled})

		case req := <-s.trigger:
			s.runCycle(ctx, req)
		}
	}
}

// runCycle executes one cycle and records its report. Cycle-level errors are
// logged here; the loop keeps running on the next trigger.
func (s *Scheduler) runCycle(ctx context.Context, req models.SyncRequest) {
	if ctx.Err() != nil {
		return
	}

	s.setRunning(true)
	metrics.SchedulerState.Set(stateCycleRunning)

	report, err := s.controller.RunCycle(ctx, req)
	if err != nil {
		logging.Error().Err(err).Str("reason", string(req.Reason)).Msg("sync cycle failed")
	}

	s.mu.Lock()
	s.running = false
	s.last = report
	s.mu.Unlock()
	metrics.SchedulerState.Set(stateIdle)
}

func (s *Scheduler) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

func (s *Scheduler) setNextPoll(t time.Time) {
	s.mu.Lock()
	s.nextPoll = t
	s.mu.Unlock()
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "sync-scheduler"
}
