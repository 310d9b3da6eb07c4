// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

package markdown

import (
	"regexp"
	"strings"

	"github.com/firesync/firesync/internal/models"
)

// maxTitleRunes clamps the slugged title so generated names stay well under
// filesystem limits.
const maxTitleRunes = 50

var (
	invalidFilenameChars = regexp.MustCompile(`[^\p{L}\p{N} _-]+`)
	whitespaceRuns       = regexp.MustCompile(`\s+`)
	dashRuns             = regexp.MustCompile(`-+`)
)

// Filename derives the deterministic note filename for a transcript:
//
//	YYYY-MM-DD-HH-MM-<slugged-title>.md
//
// The same transcript always yields the same desired name; collisions
// between distinct meetings sharing a minute and title are resolved by the
// vault namer, never here.
func Filename(t *models.Transcript) string {
	datePart := t.Date.UTC().Format("2006-01-02-15-04")
	return datePart + "-" + slugTitle(t.Title) + ".md"
}

// slugTitle reduces a meeting title to a filesystem-safe slug.
func slugTitle(title string) string {
	s := invalidFilenameChars.ReplaceAllString(title, "")
	s = whitespaceRuns.ReplaceAllString(strings.TrimSpace(s), "-")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if runes := []rune(s); len(runes) > maxTitleRunes {
		s = strings.Trim(string(runes[:maxTitleRunes]), "-")
	}
	if s == "" {
		return "Untitled-Meeting"
	}
	return s
}
