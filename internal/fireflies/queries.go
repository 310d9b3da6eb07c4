// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

package fireflies

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/firesync/firesync/internal/models"
)

// listTranscriptsQuery pages through transcript headers for the caller's
// account, newest first.
const listTranscriptsQuery = `
query ListTranscripts($fromDate: DateTime, $toDate: DateTime, $limit: Int, $skip: Int) {
  transcripts(fromDate: $fromDate, toDate: $toDate, limit: $limit, skip: $skip, mine: true) {
    id
    title
    date
    organizer_email
    duration
  }
}`

// transcriptDetailQuery fetches the full transcript, including the
// meeting_info.summary_status field the readiness gate depends on.
const transcriptDetailQuery = `
query GetTranscript($transcriptId: String!) {
  transcript(id: $transcriptId) {
    id
    title
    date
    duration
    organizer_email
    participants
    meeting_attendees {
      displayName
      email
    }
    meeting_info {
      summary_status
    }
    speakers {
      id
      name
    }
    sentences {
      index
      speaker_name
      text
      start_time
      end_time
    }
    summary {
      overview
      shorthand_bullet
      action_items
      keywords
      outline
    }
    transcript_url
  }
}`

// apiTime decodes the Fireflies date field, which arrives either as epoch
// milliseconds (number) or as an ISO 8601 string depending on the endpoint.
type apiTime struct {
	time.Time
}

func (t *apiTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}

	if s[0] == '"' {
		var iso string
		if err := json.Unmarshal(data, &iso); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, iso)
		if err != nil {
			return fmt.Errorf("parse transcript date %q: %w", iso, err)
		}
		t.Time = parsed.UTC()
		return nil
	}

	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("parse transcript date %s: %w", s, err)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

// transcriptHeader is the wire shape of one listing row.
type transcriptHeader struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Date           apiTime `json:"date"`
	OrganizerEmail string  `json:"organizer_email"`
	Duration       float64 `json:"duration"`
}

// transcriptDetail is the wire shape of the detail query.
type transcriptDetail struct {
	transcriptHeader

	Participants     []string `json:"participants"`
	MeetingAttendees []struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	} `json:"meeting_attendees"`
	MeetingInfo struct {
		SummaryStatus string `json:"summary_status"`
	} `json:"meeting_info"`
	Speakers []struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	} `json:"speakers"`
	Sentences []struct {
		Index       int     `json:"index"`
		SpeakerName string  `json:"speaker_name"`
		Text        string  `json:"text"`
		StartTime   float64 `json:"start_time"`
		EndTime     float64 `json:"end_time"`
	} `json:"sentences"`
	Summary struct {
		Overview        string   `json:"overview"`
		ShorthandBullet string   `json:"shorthand_bullet"`
		ActionItems     string   `json:"action_items"`
		Keywords        []string `json:"keywords"`
		Outline         string   `json:"outline"`
	} `json:"summary"`
	TranscriptURL string `json:"transcript_url"`
}

// toModel converts a listing row to a header-only Transcript. Listing rows
// carry no readiness information, so they report StatePending until the
// detail fetch says otherwise.
func (h *transcriptHeader) toModel() models.Transcript {
	return models.Transcript{
		ID:             h.ID,
		Title:          h.Title,
		Date:           h.Date.Time,
		DurationMins:   h.Duration,
		OrganizerEmail: h.OrganizerEmail,
		Readiness:      models.StatePending,
	}
}

// toModel converts the detail wire shape to a full Transcript.
func (d *transcriptDetail) toModel() *models.Transcript {
	t := d.transcriptHeader.toModel()
	t.Participants = d.Participants
	t.TranscriptURL = d.TranscriptURL
	t.Readiness = models.ReadinessFromSummaryStatus(d.MeetingInfo.SummaryStatus)

	for _, a := range d.MeetingAttendees {
		t.Attendees = append(t.Attendees, models.Attendee{
			DisplayName: a.DisplayName,
			Email:       a.Email,
		})
	}
	for _, s := range d.Speakers {
		t.Speakers = append(t.Speakers, models.Speaker{
			ID:   s.ID.String(),
			Name: s.Name,
		})
	}
	for _, s := range d.Sentences {
		t.Sentences = append(t.Sentences, models.Sentence{
			Index:       s.Index,
			SpeakerName: s.SpeakerName,
			Text:        s.Text,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
		})
	}

	t.Summary = models.Summary{
		Overview:        d.Summary.Overview,
		ShorthandBullet: d.Summary.ShorthandBullet,
		ActionItems:     splitActionItems(d.Summary.ActionItems),
		Keywords:        d.Summary.Keywords,
		Outline:         d.Summary.Outline,
	}
	return &t
}

// splitActionItems breaks the API's newline-separated action_items string
// into individual items, dropping blank lines and leading list markers.
func splitActionItems(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}
