// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

// Package notify reports sync outcomes to the user. Notification failures
// are logged and swallowed; they must never affect the sync engine.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/firesync/firesync/internal/config"
	"github.com/firesync/firesync/internal/logging"
	"github.com/firesync/firesync/internal/models"
)

// Notifier receives sync outcome events.
type Notifier interface {
	// MeetingSynced fires after one transcript is materialized.
	MeetingSynced(t *models.Transcript)

	// SyncSummary fires after a cycle that processed or failed anything.
	SyncSummary(processed, failed int)

	// SyncError fires for cycle-level problems worth the user's attention.
	SyncError(message string)
}

// New selects a Notifier from configuration.
func New(cfg *config.NotificationConfig) Notifier {
	if !cfg.Enabled {
		return NopNotifier{}
	}
	if cfg.Desktop {
		return NewDesktopNotifier()
	}
	return LogNotifier{}
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) MeetingSynced(*models.Transcript) {}
func (NopNotifier) SyncSummary(int, int)             {}
func (NopNotifier) SyncError(string)                 {}

// LogNotifier reports events through the structured log only.
type LogNotifier struct{}

func (LogNotifier) MeetingSynced(t *models.Transcript) {
	logging.Info().Str("transcript", t.ID).Str("title", t.Title).Msg("meeting synced")
}

func (LogNotifier) SyncSummary(processed, failed int) {
	logging.Info().Int("processed", processed).Int("failed", failed).Msg("sync summary")
}

func (LogNotifier) SyncError(message string) {
	logging.Error().Str("reason", message).Msg("sync error")
}

// notifyTimeout bounds how long a desktop notification command may hang.
const notifyTimeout = 5 * time.Second

// DesktopNotifier sends OS desktop notifications: osascript on macOS,
// notify-send elsewhere. Falls back to log-only when neither tool exists.
type DesktopNotifier struct {
	log  LogNotifier
	tool string // "osascript", "notify-send", or "" when unavailable
}

// NewDesktopNotifier probes for a usable notification tool.
func NewDesktopNotifier() *DesktopNotifier {
	n := &DesktopNotifier{}

	candidate := "notify-send"
	if runtime.GOOS == "darwin" {
		candidate = "osascript"
	}
	if _, err := exec.LookPath(candidate); err == nil {
		n.tool = candidate
	} else {
		logging.Warn().Str("tool", candidate).Msg("desktop notification tool not found, logging only")
	}
	return n
}

func (n *DesktopNotifier) MeetingSynced(t *models.Transcript) {
	n.log.MeetingSynced(t)
	n.send("Meeting Synced", fmt.Sprintf("%s is now in your vault", titleFor(t)))
}

func (n *DesktopNotifier) SyncSummary(processed, failed int) {
	n.log.SyncSummary(processed, failed)
	msg := fmt.Sprintf("%d meeting(s) synced", processed)
	if failed > 0 {
		msg += fmt.Sprintf(", %d failed", failed)
	}
	n.send("Firesync", msg)
}

func (n *DesktopNotifier) SyncError(message string) {
	n.log.SyncError(message)
	n.send("Firesync Error", message)
}

// send dispatches one notification; errors are logged and dropped.
func (n *DesktopNotifier) send(title, message string) {
	if n.tool == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	var cmd *exec.Cmd
	if n.tool == "osascript" {
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		cmd = exec.CommandContext(ctx, n.tool, "-e", script)
	} else {
		cmd = exec.CommandContext(ctx, n.tool, title, message)
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		logging.Warn().Err(err).Str("output", strings.TrimSpace(string(out))).Msg("desktop notification failed")
	}
}

func titleFor(t *models.Transcript) string {
	if t.Title == "" {
		return "Untitled Meeting"
	}
	return t.Title
}
