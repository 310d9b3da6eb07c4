// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

// Package ledger persists the set of transcript ids that have already been
// materialized as vault notes. It is the single source of truth for
// "already done": an id appears here iff a corresponding note was durably
// written to disk.
//
// Durability contract: the store is opened with SyncWrites, so MarkDone does
// not return until the mark is fsynced. Combined with the controller's
// write-then-record ordering, a crash can leave a note without a mark (the
// unique namer absorbs that on the rerun) but never a mark without a note.
package ledger

import (
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/firesync/firesync/internal/logging"
	"github.com/firesync/firesync/internal/metrics"
)

// Ledger is a durable set of processed transcript ids with an in-memory
// mirror for lookups. Safe for concurrent use, though the sync engine only
// ever mutates it from its single worker.
type Ledger struct {
	db *badger.DB

	mu   sync.RWMutex
	done map[string]struct{}
}

// Open opens (or creates) the ledger at path and loads the full id set into
// memory. An unreadable store is returned as an error and must be treated as
// fatal by the caller: running with an unknown ledger state risks duplicate
// notes or lost deduplication.
func Open(path string) (*Ledger, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true // marks must survive a crash immediately after MarkDone
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ledger at %s: %w", path, err)
	}

	l := &Ledger{
		db:   db,
		done: make(map[string]struct{}),
	}
	if err := l.loadAll(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load ledger state: %w", err)
	}

	logging.Info().Str("path", path).Int("entries", len(l.done)).Msg("ledger opened")
	metrics.LedgerSize.Set(float64(len(l.done)))
	return l, nil
}

// loadAll reads every persisted id into the in-memory set.
func (l *Ledger) loadAll() error {
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // keys only
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			l.done[string(it.Item().Key())] = struct{}{}
		}
		return nil
	})
}

// Contains reports whether id has already been materialized.
func (l *Ledger) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.done[id]
	return ok
}

// MarkDone records id as materialized. Idempotent: marking a present id is a
// no-op. The mark is durably persisted before MarkDone returns; the
// in-memory set is updated only after persistence succeeds.
func (l *Ledger) MarkDone(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.done[id]; ok {
		return nil
	}

	marker := time.Now().UTC().Format(time.RFC3339)
	err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(id), []byte(marker))
	})
	if err != nil {
		return fmt.Errorf("persist ledger mark for %s: %w", id, err)
	}

	l.done[id] = struct{}{}
	metrics.LedgerSize.Set(float64(len(l.done)))
	return nil
}

// Snapshot returns a copy of all processed ids.
func (l *Ledger) Snapshot() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.done))
	for id := range l.done {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of processed ids.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.done)
}

// Close flushes and closes the underlying store.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}
