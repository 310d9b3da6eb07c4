// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/firesync/firesync/internal/config"
	"github.com/firesync/firesync/internal/logging"
	"github.com/firesync/firesync/internal/metrics"
)

// writeRaceRetries is how often WriteNote re-reserves after losing an O_EXCL
// race to a concurrent creator (another process writing into the vault).
const writeRaceRetries = 5

// Writer creates note files inside the vault's notes folder.
type Writer struct {
	notesDir string
}

// NewWriter creates a Writer for the configured vault.
func NewWriter(cfg *config.VaultConfig) *Writer {
	return &Writer{notesDir: filepath.Join(cfg.Path, cfg.Folder)}
}

// NotesDir returns the directory notes are written into.
func (w *Writer) NotesDir() string {
	return w.notesDir
}

// WriteNote durably writes content under the desired filename, resolving
// name collisions via ReserveUnique. The file is created with O_EXCL so an
// existing file is never truncated, and fsynced before WriteNote returns so
// a ledger mark recorded afterwards never refers to a missing note.
//
// Returns the path actually written.
func (w *Writer) WriteNote(filename, content string) (string, error) {
	if err := os.MkdirAll(w.notesDir, 0o755); err != nil {
		return "", fmt.Errorf("create notes folder: %w", err)
	}

	desired := filepath.Join(w.notesDir, filename)

	for attempt := 0; attempt < writeRaceRetries; attempt++ {
		path, err := ReserveUnique(desired)
		if err != nil {
			return "", err
		}

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			// Someone created this name between the reservation and the
			// open. Reserve again; the loser of the race must not clobber.
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create note %s: %w", path, err)
		}

		if err := writeAndSync(f, content); err != nil {
			// Partial file: remove it so a rerun does not leave torsos
			// next to the real note.
			_ = os.Remove(path)
			return "", err
		}

		collided := path != desired
		metrics.NotesWritten.WithLabelValues(boolLabel(collided)).Inc()
		if collided {
			logging.Warn().Str("desired", desired).Str("actual", path).Msg("note name collision, versioned")
		}
		return path, nil
	}

	return "", fmt.Errorf("could not reserve a unique name for %s", desired)
}

// writeAndSync writes content and fsyncs before closing.
func writeAndSync(f *os.File, content string) error {
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write note %s: %w", f.Name(), err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync note %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close note %s: %w", f.Name(), err)
	}
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
