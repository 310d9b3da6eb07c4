// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

/*
controller.go - Sync Cycle Controller

Runs one sync cycle end to end: enumerate candidates, skip what the ledger
already recorded, fetch full transcripts, skip what the remote has not
finished summarizing, then materialize each ready transcript and record it.

Ordering per record is fixed: write the note, then mark the ledger. A crash
between the two leaves a note without a ledger entry; the next cycle writes
a versioned duplicate rather than losing data or overwriting.

Per-record failures never abort the cycle. Context cancellation is honored
only between records, so a record that has written its note always reaches
MarkDone.
*/

package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firesync/firesync/internal/config"
	"github.com/firesync/firesync/internal/fireflies"
	"github.com/firesync/firesync/internal/ledger"
	"github.com/firesync/firesync/internal/logging"
	"github.com/firesync/firesync/internal/markdown"
	"github.com/firesync/firesync/internal/metrics"
	"github.com/firesync/firesync/internal/models"
	"github.com/firesync/firesync/internal/notify"
	"github.com/firesync/firesync/internal/vault"
)

// Controller executes sync cycles. Safe for use by a single goroutine; the
// scheduler serializes calls to RunCycle.
type Controller struct {
	client    fireflies.API
	ledger    *ledger.Ledger
	writer    *vault.Writer
	formatter *markdown.Formatter
	notifier  notify.Notifier

	lookback time.Duration
	pageSize int

	// restrictIDs, when configured, pins every cycle to these transcript
	// ids instead of listing from the lookback horizon.
	restrictIDs []string
}

// NewController wires a cycle controller from its collaborators.
func NewController(cfg *config.SyncConfig, client fireflies.API, led *ledger.Ledger, writer *vault.Writer, notifier notify.Notifier) *Controller {
	return &Controller{
		client:      client,
		ledger:      led,
		writer:      writer,
		formatter:   markdown.NewFormatter(),
		notifier:    notifier,
		lookback:    cfg.Lookback,
		pageSize:    cfg.PageSize,
		restrictIDs: cfg.TranscriptIDs,
	}
}

// RunCycle performs one full sync pass. The returned report is always
// non-nil; the error covers cycle-level failures only (candidate
// enumeration), never per-record ones.
func (c *Controller) RunCycle(ctx context.Context, req models.SyncRequest) (*models.CycleReport, error) {
	report := &models.CycleReport{
		Reason:  req.Reason,
		Started: time.Now().UTC(),
	}
	metrics.SyncCycles.WithLabelValues(string(req.Reason)).Inc()

	log := logging.With().Str("reason", string(req.Reason)).Logger()
	log.Info().Msg("sync cycle started")

	candidates, listed, err := c.candidates(ctx, req)
	if err != nil {
		report.Duration = time.Since(report.Started)
		c.notifier.SyncError(fmt.Sprintf("listing transcripts: %v", err))
		return report, fmt.Errorf("listing transcripts: %w", err)
	}
	report.Candidates = len(candidates)

	for _, id := range candidates {
		// Cancellation is checked only at record boundaries.
		if err := ctx.Err(); err != nil {
			log.Warn().Int("remaining", report.Candidates-report.Processed-report.SkippedDone-report.SkippedNotReady-report.Failed).
				Msg("cycle interrupted by shutdown")
			break
		}

		if c.ledger.Contains(id) {
			report.SkippedDone++
			continue
		}
		c.processOne(ctx, id, listed, report)
	}

	report.Duration = time.Since(report.Started)
	metrics.SyncCycleDuration.Observe(report.Duration.Seconds())

	log.Info().
		Int("candidates", report.Candidates).
		Int("processed", report.Processed).
		Int("skipped_done", report.SkippedDone).
		Int("skipped_not_ready", report.SkippedNotReady).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("sync cycle finished")

	if report.Processed > 0 || report.Failed > 0 {
		c.notifier.SyncSummary(report.Processed, report.Failed)
	}
	return report, nil
}

// candidates resolves the cycle's transcript id set. An explicit id list in
// the request bypasses the lookback listing entirely. The listed flag is
// true only when the ids came from a same-cycle listing.
func (c *Controller) candidates(ctx context.Context, req models.SyncRequest) ([]string, bool, error) {
	if len(req.TranscriptIDs) > 0 {
		return req.TranscriptIDs, false, nil
	}
	if len(c.restrictIDs) > 0 {
		return c.restrictIDs, false, nil
	}

	since := time.Now().UTC().Add(-c.lookback)
	headers, err := c.client.ListTranscriptsSince(ctx, since, c.pageSize)
	if err != nil {
		return nil, false, err
	}

	ids := make([]string, 0, len(headers))
	for i := range headers {
		ids = append(ids, headers[i].ID)
	}
	return ids, true, nil
}

// processOne runs the fetch/format/write/mark pipeline for a single
// transcript and folds the outcome into the report. listed says whether the
// id came from a same-cycle listing rather than an explicit id set.
func (c *Controller) processOne(ctx context.Context, id string, listed bool, report *models.CycleReport) {
	t, err := c.client.GetTranscript(ctx, id)
	if err != nil {
		if errors.Is(err, fireflies.ErrNotFound) && listed {
			// Listed but gone on detail fetch. Leave it unrecorded; if it
			// reappears a later cycle picks it up. Explicit ids take the
			// failure path below instead, so a typo'd id is reported.
			logging.Warn().Str("transcript", id).Msg("transcript vanished between listing and fetch")
			report.SkippedNotReady++
			metrics.RecordsSkippedNotReady.Inc()
			return
		}
		c.recordFailure(report, id, models.StageFetch, err)
		return
	}

	if !t.Ready() {
		// Summary still cooking on the remote side. The ledger stays
		// untouched so the next cycle retries.
		logging.Debug().Str("transcript", id).Str("readiness", string(t.Readiness)).
			Msg("transcript not ready, deferring")
		report.SkippedNotReady++
		metrics.RecordsSkippedNotReady.Inc()
		return
	}

	content, err := c.formatter.Format(t)
	if err != nil {
		c.recordFailure(report, id, models.StageFormat, err)
		return
	}

	path, err := c.writer.WriteNote(markdown.Filename(t), content)
	if err != nil {
		c.recordFailure(report, id, models.StageWrite, err)
		return
	}

	if err := c.ledger.MarkDone(id); err != nil {
		// The note exists but the ledger write failed. Do not remove the
		// note; the next cycle will produce a versioned duplicate.
		logging.Error().Err(err).Str("transcript", id).Str("path", path).
			Msg("note written but ledger record failed")
		c.recordFailure(report, id, models.StageMark, err)
		return
	}

	report.Processed++
	metrics.RecordsProcessed.Inc()
	logging.Info().Str("transcript", id).Str("title", t.Title).Str("path", path).Msg("transcript synced")
	c.notifier.MeetingSynced(t)
}

func (c *Controller) recordFailure(report *models.CycleReport, id string, stage models.FailureStage, err error) {
	report.Failed++
	report.Failures = append(report.Failures, models.RecordFailure{
		TranscriptID: id,
		Stage:        stage,
		Err:          err.Error(),
	})
	metrics.RecordFailures.WithLabelValues(string(stage)).Inc()
	logging.Error().Err(err).Str("transcript", id).Str("stage", string(stage)).Msg("transcript sync failed")
}
