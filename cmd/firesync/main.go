// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

// Package main is the entry point for the Firesync daemon.
//
// Firesync keeps an Obsidian vault in sync with Fireflies.ai meeting
// transcripts. It polls the Fireflies GraphQL API on an interval, writes
// each finished transcript as a Markdown note with YAML frontmatter, and
// records completed work in a durable ledger so a note is materialized at
// most once.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered loading (defaults, YAML file, env)
//  2. Logging: zerolog with configured level and format
//  3. Ledger: BadgerDB processed-transcript ledger (unreadable is fatal)
//  4. Fireflies client: rate-limited, retrying, optionally circuit-broken
//  5. Supervisor tree: sync scheduler, signal gateway, ops HTTP server
//
// # Triggers
//
// Sync cycles run on the configured interval, immediately at startup, on
// SIGUSR1, and on POST /api/v1/sync. Triggers arriving while a cycle runs
// coalesce into a single pending cycle.
//
// # Signal Handling
//
// SIGINT and SIGTERM shut the daemon down gracefully: the running cycle
// stops at the next record boundary, so a written note is always recorded
// in the ledger before exit.
//
// # Example Usage
//
// Run as a daemon:
//
//	export FIREFLIES_API_KEY=your-api-key
//	export VAULT_PATH=$HOME/Obsidian/Main
//	./firesync
//
// One-shot sync of specific transcripts:
//
//	./firesync -once -transcripts id1,id2
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/firesync/firesync/internal/api"
	"github.com/firesync/firesync/internal/config"
	"github.com/firesync/firesync/internal/fireflies"
	"github.com/firesync/firesync/internal/ledger"
	"github.com/firesync/firesync/internal/logging"
	"github.com/firesync/firesync/internal/models"
	"github.com/firesync/firesync/internal/notify"
	"github.com/firesync/firesync/internal/supervisor"
	"github.com/firesync/firesync/internal/syncer"
	"github.com/firesync/firesync/internal/vault"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	once := flag.Bool("once", false, "run a single sync cycle and exit")
	transcripts := flag.String("transcripts", "", "comma-separated transcript ids to sync (implies restricted cycles)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("firesync " + version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("vault", cfg.Vault.Path).
		Dur("interval", cfg.Sync.Interval).
		Msg("Starting Firesync")

	if *transcripts != "" {
		cfg.Sync.TranscriptIDs = splitIDs(*transcripts)
	}

	// An unreadable ledger is fatal. Running without it would re-sync
	// every transcript in the lookback window as duplicates.
	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Ledger.Path).Msg("Failed to open ledger")
	}
	closeLedger := func() {
		if err := led.Close(); err != nil {
			logging.Warn().Err(err).Msg("Ledger close failed")
		}
	}
	defer closeLedger()
	logging.Info().Int("records", led.Len()).Msg("Ledger loaded")

	var client fireflies.API = fireflies.NewClient(&cfg.Fireflies)
	if cfg.Fireflies.BreakerEnabled {
		client = fireflies.NewBreakerClient(client)
	}

	// A failed ping is logged, not fatal: the API may be briefly down while
	// the daemon starts, and cycles retry on their own.
	pingCtx, cancelPing := context.WithTimeout(context.Background(), cfg.Fireflies.Timeout)
	if err := client.Ping(pingCtx); err != nil {
		logging.Warn().Err(err).Msg("Fireflies API not reachable at startup")
	} else {
		logging.Info().Msg("Fireflies API reachable")
	}
	cancelPing()

	notifier := notify.New(&cfg.Notifications)
	writer := vault.NewWriter(&cfg.Vault)
	controller := syncer.NewController(&cfg.Sync, client, led, writer, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		// os.Exit skips defers, so the ledger is closed by hand first.
		if code := runOnce(ctx, controller, cfg.Sync.TranscriptIDs); code != 0 {
			closeLedger()
			stop()
			os.Exit(code)
		}
		return
	}

	scheduler := syncer.NewScheduler(controller, cfg.Sync.Interval)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSyncService(scheduler)
	tree.AddSyncService(syncer.NewSignalGateway(scheduler))
	if cfg.Server.Enabled {
		tree.AddAPIService(api.NewServer(&cfg.Server, scheduler, led, version))
	}

	err = tree.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}

	if unstopped, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	logging.Info().Msg("Firesync stopped")
}

// runOnce executes a single cycle for -once mode and returns the process
// exit code: non-zero when the cycle itself or any record failed.
func runOnce(ctx context.Context, controller *syncer.Controller, ids []string) int {
	report, err := controller.RunCycle(ctx, models.SyncRequest{
		Reason:        models.ReasonManual,
		TranscriptIDs: ids,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Sync cycle failed")
		return 1
	}
	logging.Info().
		Int("processed", report.Processed).
		Int("failed", report.Failed).
		Msg("One-shot sync complete")
	if report.Failed > 0 {
		return 1
	}
	return 0
}

func splitIDs(s string) []string {
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
