// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package suggest

import (
	"context"
	"fmt"
	"sync"
)

// Repository persists snapshots keyed by owner (a user or session ID).
type Repository interface {
	// Load returns the stored snapshot, or nil when the owner has none.
	Load(ctx context.Context, owner string) (*Snapshot, error)

	// Save stores snap unless a snapshot with the same or a higher Seq is
	// already stored, in which case it returns ErrStaleSnapshot.
	Save(ctx context.Context, owner string, snap Snapshot) error
}

type memoryRepository struct {
	mu        sync.Mutex
	snapshots map[string]Snapshot
}

// NewMemoryRepository returns a Repository that lives as long as the
// process.
func NewMemoryRepository() Repository {
	return &memoryRepository{snapshots: make(map[string]Snapshot)}
}

func (r *memoryRepository) Load(ctx context.Context, owner string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.snapshots[owner]
	if !ok {
		return nil, nil
	}

	snap = cloneSnapshot(snap)

	return &snap, nil
}

func (r *memoryRepository) Save(ctx context.Context, owner string, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.snapshots[owner]; ok && snap.Seq <= cur.Seq {
		return fmt.Errorf("%w: have %d, got %d", ErrStaleSnapshot, cur.Seq, snap.Seq)
	}

	r.snapshots[owner] = cloneSnapshot(snap)

	return nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	return Snapshot{
		Seq:       s.Seq,
		Recent:    append([]Entry(nil), s.Recent...),
		Favorites: append([]Entry(nil), s.Favorites...),
	}
}
