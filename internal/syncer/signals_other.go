// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

//go:build !unix

package syncer

import "context"

// SignalGateway is a no-op on platforms without SIGUSR1. Manual syncs still
// work through the HTTP API.
type SignalGateway struct{}

func NewSignalGateway(*Scheduler) *SignalGateway {
	return &SignalGateway{}
}

func (g *SignalGateway) Serve(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (g *SignalGateway) String() string {
	return "signal-gateway"
}
