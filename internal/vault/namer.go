// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

// Package vault writes generated notes into the Obsidian vault. Existing
// files are never modified or overwritten; name collisions are resolved by
// appending a numeric suffix before the extension.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxSuffixProbes bounds the collision scan. Hitting it means thousands of
// same-named notes, which indicates a bug upstream, not a naming problem.
const maxSuffixProbes = 10000

// ReserveUnique returns a path that does not currently exist: desired itself
// when free, otherwise the first free "name (1).ext", "name (2).ext", ...
// in ascending order. Each candidate is checked individually, so gaps left
// by deleted or out-of-order files are filled correctly.
//
// This is pure path-space logic. It never compares content and it does not
// create the file; the caller must create it with O_EXCL to close the
// check-then-create window.
func ReserveUnique(desired string) (string, error) {
	free, err := pathFree(desired)
	if err != nil {
		return "", err
	}
	if free {
		return desired, nil
	}

	ext := filepath.Ext(desired)
	stem := strings.TrimSuffix(desired, ext)

	for n := 1; n <= maxSuffixProbes; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		free, err := pathFree(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %s after %d probes", desired, maxSuffixProbes)
}

// pathFree reports whether nothing exists at path.
func pathFree(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}
