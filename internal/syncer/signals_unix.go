// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

//go:build unix

package syncer

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/firesync/firesync/internal/logging"
	"github.com/firesync/firesync/internal/models"
)

// SignalGateway turns SIGUSR1 into manual sync requests. Implements
// suture.Service.
type SignalGateway struct {
	scheduler *Scheduler
}

// NewSignalGateway builds a gateway that feeds the given scheduler.
func NewSignalGateway(scheduler *Scheduler) *SignalGateway {
	return &SignalGateway{scheduler: scheduler}
}

// Serve listens for SIGUSR1 until ctx is cancelled. Signals arriving while
// a request is already pending coalesce inside RequestSync.
func (g *SignalGateway) Serve(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	defer signal.Stop(ch)

	logging.Info().Int("pid", os.Getpid()).Msg("signal gateway listening for SIGUSR1")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			logging.Info().Msg("SIGUSR1 received, requesting manual sync")
			g.scheduler.RequestSync(models.SyncRequest{Reason: models.ReasonManual})
		}
	}
}

func (g *SignalGateway) String() string {
	return "signal-gateway"
}
