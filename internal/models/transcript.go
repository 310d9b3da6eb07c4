// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

// Package models defines the domain types shared across Firesync: the
// transcript record fetched from Fireflies, its readiness state, and the
// request/report types exchanged between the scheduler and the cycle
// controller.
package models

import "time"

// ReadinessState is the upstream processing status of a transcript's
// AI-generated summary. Only StateReady transcripts may be materialized.
type ReadinessState string

const (
	StatePending ReadinessState = "pending"
	StateReady   ReadinessState = "ready"
	StateFailed  ReadinessState = "failed"
	StateSkipped ReadinessState = "skipped"
)

// ReadinessFromSummaryStatus maps the Fireflies meeting_info.summary_status
// field onto a ReadinessState. Unknown or missing values map to StatePending
// so the transcript is retried on a later cycle rather than lost.
func ReadinessFromSummaryStatus(status string) ReadinessState {
	switch status {
	case "processed":
		return StateReady
	case "failed":
		return StateFailed
	case "skipped":
		return StateSkipped
	default: // "processing", "", anything new the API grows
		return StatePending
	}
}

// Attendee is one meeting participant as reported by Fireflies.
type Attendee struct {
	DisplayName string
	Email       string
}

// Speaker identifies a voice in the transcript.
type Speaker struct {
	ID   string
	Name string
}

// Sentence is one utterance with timing in seconds from meeting start.
type Sentence struct {
	Index       int
	SpeakerName string
	Text        string
	StartTime   float64
	EndTime     float64
}

// Summary is the AI-generated meeting summary.
type Summary struct {
	Overview        string
	ShorthandBullet string
	ActionItems     []string
	Keywords        []string
	Outline         string
}

// Transcript is one source record from the Fireflies API. Listing calls
// populate only the header fields; detail calls populate everything.
// A Transcript is immutable once fetched within a cycle.
type Transcript struct {
	// ID is the opaque, globally unique, stable Fireflies transcript id.
	ID string

	Title          string
	Date           time.Time // meeting start, UTC
	DurationMins   float64
	OrganizerEmail string

	Participants  []string
	Attendees     []Attendee
	Speakers      []Speaker
	Sentences     []Sentence
	Summary       Summary
	TranscriptURL string

	Readiness ReadinessState
}

// Ready reports whether the transcript may be materialized.
func (t *Transcript) Ready() bool {
	return t.Readiness == StateReady
}

// SyncReason records what triggered a cycle.
type SyncReason string

const (
	ReasonScheduled SyncReason = "scheduled"
	ReasonManual    SyncReason = "manual"
	ReasonStartup   SyncReason = "startup"
)

// SyncRequest is one trigger unit. Created by the scheduler, consumed exactly
// once by the cycle controller.
type SyncRequest struct {
	Reason SyncReason

	// TranscriptIDs, when non-empty, restricts the cycle to exactly these
	// ids (test mode) instead of listing from the lookback horizon.
	TranscriptIDs []string
}

// FailureStage identifies where in the pipeline a record failed.
type FailureStage string

const (
	StageFetch  FailureStage = "fetch"
	StageFormat FailureStage = "format"
	StageWrite  FailureStage = "write"
	StageMark   FailureStage = "mark"
)

// RecordFailure describes one per-transcript failure within a cycle.
type RecordFailure struct {
	TranscriptID string       `json:"transcript_id"`
	Stage        FailureStage `json:"stage"`
	Err          string       `json:"error"`
}

// CycleReport aggregates the outcome of one sync cycle. Per-record errors are
// caught at the cycle controller boundary and land here; they never abort the
// cycle.
type CycleReport struct {
	Reason          SyncReason      `json:"reason"`
	Started         time.Time       `json:"started"`
	Duration        time.Duration   `json:"duration"`
	Candidates      int             `json:"candidates"`
	Processed       int             `json:"processed"`
	SkippedNotReady int             `json:"skipped_not_ready"`
	SkippedDone     int             `json:"skipped_done"`
	Failed          int             `json:"failed"`
	Failures        []RecordFailure `json:"failures,omitempty"`
}
