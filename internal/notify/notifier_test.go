// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

package notify

import (
	"testing"
	"time"

	"github.com/firesync/firesync/internal/config"
	"github.com/firesync/firesync/internal/models"
)

func TestNewSelectsNotifier(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.NotificationConfig
		want string
	}{
		{"disabled", config.NotificationConfig{Enabled: false}, "notify.NopNotifier"},
		{"log only", config.NotificationConfig{Enabled: true}, "notify.LogNotifier"},
		{"desktop", config.NotificationConfig{Enabled: true, Desktop: true}, "*notify.DesktopNotifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(&tt.cfg)
			if typeName(got) != tt.want {
				t.Errorf("New() = %s, want %s", typeName(got), tt.want)
			}
		})
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case NopNotifier:
		return "notify.NopNotifier"
	case LogNotifier:
		return "notify.LogNotifier"
	case *DesktopNotifier:
		return "*notify.DesktopNotifier"
	default:
		return "unknown"
	}
}

func TestNotifiersDoNotPanic(t *testing.T) {
	t.Parallel()

	tr := &models.Transcript{
		ID:    "t1",
		Title: "Standup",
		Date:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	for _, n := range []Notifier{NopNotifier{}, LogNotifier{}} {
		n.MeetingSynced(tr)
		n.SyncSummary(3, 1)
		n.SyncError("upstream unavailable")
	}
}

func TestDesktopNotifierMissingTool(t *testing.T) {
	// An empty PATH guarantees the probe fails on any platform.
	t.Setenv("PATH", "")

	n := NewDesktopNotifier()
	if n.tool != "" {
		t.Fatalf("tool = %q, want empty with no PATH", n.tool)
	}

	// With no tool, events still reach the log without error.
	n.MeetingSynced(&models.Transcript{ID: "t1", Title: "Standup"})
	n.SyncSummary(1, 0)
	n.SyncError("boom")
}
