// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

// Package markdown renders a fetched transcript into an Obsidian-ready
// Markdown document: YAML frontmatter, meeting details, attendees, the
// AI-generated summary, and the speaker-attributed transcript body.
package markdown

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/firesync/firesync/internal/models"
)

// frontmatter is the YAML block at the top of every note. transcript_id is
// what makes a note traceable back to its source record.
type frontmatter struct {
	TranscriptID    string   `yaml:"transcript_id"`
	Title           string   `yaml:"title"`
	Date            string   `yaml:"date"`
	DurationMinutes float64  `yaml:"duration_minutes"`
	Organizer       string   `yaml:"organizer,omitempty"`
	Attendees       []string `yaml:"attendees,omitempty"`
	TranscriptURL   string   `yaml:"transcript_url,omitempty"`
	Tags            []string `yaml:"tags"`
}

// Formatter renders transcripts to Markdown. A Formatter is stateless and
// safe for concurrent use.
type Formatter struct{}

// NewFormatter creates a Formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format renders one transcript into a complete Markdown document.
func (f *Formatter) Format(t *models.Transcript) (string, error) {
	var b strings.Builder

	if err := f.writeFrontmatter(&b, t); err != nil {
		return "", err
	}
	f.writeHeader(&b, t)
	f.writeDetails(&b, t)
	f.writeAttendees(&b, t)
	f.writeSummary(&b, t)
	f.writeTranscript(&b, t)

	return b.String(), nil
}

func (f *Formatter) writeFrontmatter(b *strings.Builder, t *models.Transcript) error {
	fm := frontmatter{
		TranscriptID:    t.ID,
		Title:           titleOrDefault(t.Title),
		Date:            t.Date.UTC().Format(time.RFC3339),
		DurationMinutes: t.DurationMins,
		Organizer:       t.OrganizerEmail,
		Attendees:       attendeeEmails(t),
		TranscriptURL:   t.TranscriptURL,
		Tags:            []string{"meeting", "fireflies"},
	}

	encoded, err := yaml.Marshal(&fm)
	if err != nil {
		return fmt.Errorf("marshal frontmatter for %s: %w", t.ID, err)
	}

	b.WriteString("---\n")
	b.Write(encoded)
	b.WriteString("---\n\n")
	return nil
}

func (f *Formatter) writeHeader(b *strings.Builder, t *models.Transcript) {
	fmt.Fprintf(b, "# %s\n\n", titleOrDefault(t.Title))
	fmt.Fprintf(b, "**Date:** %s\n\n", t.Date.UTC().Format("Monday, 2 January 2006 15:04 MST"))
}

func (f *Formatter) writeDetails(b *strings.Builder, t *models.Transcript) {
	b.WriteString("## Meeting Details\n\n")
	fmt.Fprintf(b, "- **Duration:** %s\n", formatDuration(t.DurationMins))
	if t.OrganizerEmail != "" {
		fmt.Fprintf(b, "- **Organizer:** %s\n", t.OrganizerEmail)
	}
	if t.TranscriptURL != "" {
		fmt.Fprintf(b, "- **Transcript:** [View in Fireflies](%s)\n", t.TranscriptURL)
	}
	b.WriteString("\n")
}

func (f *Formatter) writeAttendees(b *strings.Builder, t *models.Transcript) {
	b.WriteString("## Attendees\n\n")

	switch {
	case len(t.Attendees) > 0:
		for _, a := range t.Attendees {
			name := a.DisplayName
			if name == "" {
				name = "Unknown"
			}
			if a.Email != "" {
				fmt.Fprintf(b, "- **%s** (%s)\n", name, a.Email)
			} else {
				fmt.Fprintf(b, "- **%s**\n", name)
			}
		}
	case len(t.Participants) > 0:
		for _, p := range t.Participants {
			fmt.Fprintf(b, "- %s\n", p)
		}
	default:
		b.WriteString("- No attendee information available\n")
	}
	b.WriteString("\n")
}

func (f *Formatter) writeSummary(b *strings.Builder, t *models.Transcript) {
	s := t.Summary
	b.WriteString("## Summary\n\n")

	if s.Overview != "" {
		b.WriteString("### Overview\n\n")
		b.WriteString(s.Overview)
		b.WriteString("\n\n")
	}
	if s.ShorthandBullet != "" {
		b.WriteString("### Key Points\n\n")
		b.WriteString(s.ShorthandBullet)
		b.WriteString("\n\n")
	}
	if len(s.ActionItems) > 0 {
		b.WriteString("### Action Items\n\n")
		for _, item := range s.ActionItems {
			fmt.Fprintf(b, "- [ ] %s\n", item)
		}
		b.WriteString("\n")
	}
	if s.Outline != "" {
		b.WriteString("### Outline\n\n")
		b.WriteString(s.Outline)
		b.WriteString("\n\n")
	}
	if len(s.Keywords) > 0 {
		b.WriteString("### Keywords\n\n")
		b.WriteString(strings.Join(s.Keywords, ", "))
		b.WriteString("\n\n")
	}
}

// writeTranscript emits the sentence stream, starting a new speaker block
// whenever the voice changes.
func (f *Formatter) writeTranscript(b *strings.Builder, t *models.Transcript) {
	if len(t.Sentences) == 0 {
		return
	}

	b.WriteString("## Transcript\n\n")

	lastSpeaker := ""
	for _, s := range t.Sentences {
		if s.SpeakerName != lastSpeaker {
			if lastSpeaker != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(b, "**%s** [%s]:\n", speakerOrDefault(s.SpeakerName), formatTimestamp(s.StartTime))
			lastSpeaker = s.SpeakerName
		}
		b.WriteString(s.Text)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// formatTimestamp renders seconds from meeting start as MM:SS, or H:MM:SS
// past the hour.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// formatDuration renders fractional minutes as "42m 30s".
func formatDuration(minutes float64) string {
	total := int(minutes * 60)
	m := total / 60
	s := total % 60
	if s == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}

func titleOrDefault(title string) string {
	if title == "" {
		return "Untitled Meeting"
	}
	return title
}

func speakerOrDefault(name string) string {
	if name == "" {
		return "Unknown Speaker"
	}
	return name
}

// attendeeEmails collects attendee emails, falling back to the participant
// list when the attendee records carry none.
func attendeeEmails(t *models.Transcript) []string {
	var emails []string
	for _, a := range t.Attendees {
		if a.Email != "" {
			emails = append(emails, a.Email)
		}
	}
	if len(emails) == 0 {
		return t.Participants
	}
	return emails
}
