// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/firesync/firesync/internal/models"
)

func TestRequestSyncCoalesces(t *testing.T) {
	t.Parallel()

	// No worker is draining the channel, so the slot stays occupied.
	s := NewScheduler(nil, time.Hour)

	if !s.RequestSync(models.SyncRequest{Reason: models.ReasonManual}) {
		t.Fatalf("first RequestSync() = false, want queued")
	}
	for i := 0; i < 3; i++ {
		if s.RequestSync(models.SyncRequest{Reason: models.ReasonManual}) {
			t.Errorf("RequestSync() #%d = true with a pending request, want coalesced", i+2)
		}
	}
}

func TestSchedulerRunsStartupCycle(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	fx := newFixture(t, api)
	s := NewScheduler(fx.controller, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	deadline := time.After(5 * time.Second)
	for s.Status().LastReport == nil {
		select {
		case <-deadline:
			t.Fatalf("startup cycle never completed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if got := s.Status().LastReport.Reason; got != models.ReasonStartup {
		t.Errorf("first cycle reason = %v, want startup", got)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve() did not return after cancellation")
	}
}

func TestSchedulerRunsManualTrigger(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		headers: []models.Transcript{header("t1")},
		details: map[string]*models.Transcript{"t1": readyTranscript("t1", "Manual")},
	}
	fx := newFixture(t, api)
	s := NewScheduler(fx.controller, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Serve(ctx) }()

	// Wait for the startup cycle so the trigger is consumed by the loop.
	deadline := time.After(5 * time.Second)
	for s.Status().LastReport == nil {
		select {
		case <-deadline:
			t.Fatalf("startup cycle never completed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.RequestSync(models.SyncRequest{Reason: models.ReasonManual})

	for s.Status().LastReport.Reason != models.ReasonManual {
		select {
		case <-deadline:
			t.Fatalf("manual cycle never ran, last report: %+v", s.Status().LastReport)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSchedulerStatusSnapshot(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, time.Hour)
	st := s.Status()

	if st.Running {
		t.Errorf("Running = true before Serve")
	}
	if st.LastReport != nil {
		t.Errorf("LastReport = %+v before any cycle, want nil", st.LastReport)
	}
}
