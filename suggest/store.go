// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package suggest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chambape/ubica/location"
)

// DefaultRecentCap is the number of recent selections kept per owner.
const DefaultRecentCap = 10

// Options configures Open. Zero values take defaults.
type Options struct {
	RecentCap int
	// Popular is appended to every owner's suggestions, in Rank order.
	Popular []Entry
	Now     func() time.Time
	Logger  *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.RecentCap <= 0 {
		o.RecentCap = DefaultRecentCap
	}

	if o.Now == nil {
		o.Now = time.Now
	}

	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	return o
}

// Store is the suggestion list of one owner. Reads are served from memory;
// every mutation is written through to the Repository.
type Store struct {
	owner   string
	repo    Repository
	ds      *location.Dataset
	opts    Options
	popular []Entry
	logger  *zap.Logger

	mu    sync.RWMutex
	state Snapshot

	// writeMu serializes Save calls; persisted is the last Seq saved.
	writeMu   sync.Mutex
	persisted uint64
}

// Open loads the owner's snapshot from repo. A missing snapshot starts an
// empty list.
func Open(ctx context.Context, owner string, repo Repository, ds *location.Dataset, opts Options) (*Store, error) {
	opts = opts.withDefaults()

	snap, err := repo.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("opening suggestions for %q: %w", owner, err)
	}

	s := &Store{
		owner:   owner,
		repo:    repo,
		ds:      ds,
		opts:    opts,
		popular: slices.Clone(opts.Popular),
		logger:  opts.Logger.With(zap.String("owner", owner)),
	}

	slices.SortStableFunc(s.popular, func(a, b Entry) int { return a.Rank - b.Rank })

	if snap != nil {
		s.state = cloneSnapshot(*snap)
		if len(s.state.Recent) > opts.RecentCap {
			s.state.Recent = s.state.Recent[:opts.RecentCap]
		}

		s.persisted = snap.Seq
	}

	return s, nil
}

// Owner returns the key the store persists under.
func (s *Store) Owner() string {
	return s.owner
}

// Seq returns the sequence number of the last mutation.
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Seq
}

// RecordSelection puts loc at the front of the recent list and returns the
// entry it installed. Selecting a location already in the list moves it
// instead of adding a second entry, keeping its ID. Unverified locations are
// accepted. A returned error wrapping ErrPersist means the in-memory list was
// updated but not saved; the entry is still returned.
func (s *Store) RecordSelection(ctx context.Context, loc location.ResolvedLocation) (Entry, error) {
	if err := s.validate(loc); err != nil {
		return Entry{}, err
	}

	var recorded Entry

	err := s.mutate(ctx, func(snap *Snapshot) error {
		recorded = Entry{
			ID:        uuid.NewString(),
			Kind:      KindRecent,
			Location:  loc,
			Label:     loc.Label(),
			Timestamp: s.opts.Now(),
		}

		identity := loc.Identity()
		if i := slices.IndexFunc(snap.Recent, func(e Entry) bool { return e.Identity() == identity }); i >= 0 {
			recorded.ID = snap.Recent[i].ID
			snap.Recent = slices.Delete(snap.Recent, i, i+1)
		}

		snap.Recent = slices.Insert(snap.Recent, 0, recorded)
		if len(snap.Recent) > s.opts.RecentCap {
			snap.Recent = snap.Recent[:s.opts.RecentCap]
		}

		return nil
	})

	return recorded, err
}

// AddFavorite appends loc to the favorites. kind must be KindFavorite or
// KindSite and loc must be a verified dataset location. Adding a location
// that is already a favorite updates its label and kind.
func (s *Store) AddFavorite(ctx context.Context, loc location.ResolvedLocation, label string, kind Kind) (Entry, error) {
	if kind != KindFavorite && kind != KindSite {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	if loc.Unverified {
		return Entry{}, fmt.Errorf("%w: unverified locations cannot be favorites", ErrInvalidLocation)
	}

	if err := s.validate(loc); err != nil {
		return Entry{}, err
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = loc.Label()
	}

	var added Entry

	err := s.mutate(ctx, func(snap *Snapshot) error {
		identity := loc.Identity()
		if i := slices.IndexFunc(snap.Favorites, func(e Entry) bool { return e.Identity() == identity }); i >= 0 {
			snap.Favorites[i].Label = label
			snap.Favorites[i].Kind = kind
			added = snap.Favorites[i]

			return nil
		}

		added = Entry{
			ID:        uuid.NewString(),
			Kind:      kind,
			Location:  loc,
			Label:     label,
			Timestamp: s.opts.Now(),
		}
		snap.Favorites = append(snap.Favorites, added)

		return nil
	})

	return added, err
}

// RemoveFavorite deletes the favorite with the given ID.
func (s *Store) RemoveFavorite(ctx context.Context, id string) error {
	return s.mutate(ctx, func(snap *Snapshot) error {
		i := slices.IndexFunc(snap.Favorites, func(e Entry) bool { return e.ID == id })
		if i < 0 {
			return fmt.Errorf("%w: favorite %q", ErrNotFound, id)
		}

		snap.Favorites = slices.Delete(snap.Favorites, i, i+1)

		return nil
	})
}

// QuickSuggestions merges favorites, recent selections and popular places,
// in that order, keeping only the first entry for each location identity.
func (s *Store) QuickSuggestions(limit int) []Entry {
	if limit <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	out := make([]Entry, 0, limit)

	for _, group := range [][]Entry{s.state.Favorites, s.state.Recent, s.popular} {
		for _, e := range group {
			if len(out) == limit {
				return out
			}

			id := e.Identity()
			if seen[id] {
				continue
			}

			seen[id] = true

			out = append(out, e)
		}
	}

	return out
}

// Recent returns the recent selections, newest first.
func (s *Store) Recent() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.state.Recent)
}

// Favorites returns the favorites in the order they were added.
func (s *Store) Favorites() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.state.Favorites)
}

func (s *Store) validate(loc location.ResolvedLocation) error {
	if loc.Specificity < location.LevelRegion || loc.Specificity > location.LevelLocality {
		return fmt.Errorf("%w: specificity %v", ErrInvalidLocation, loc.Specificity)
	}

	if loc.Unverified {
		if strings.TrimSpace(loc.Label()) == "" {
			return fmt.Errorf("%w: empty location", ErrInvalidLocation)
		}

		return nil
	}

	if !s.ds.Verify(loc) {
		return fmt.Errorf("%w: %q is not in the dataset", ErrInvalidLocation, loc.Label())
	}

	return nil
}

// mutate applies fn to a copy of the state, installs it with the next Seq
// and persists it. A failing fn leaves the state untouched.
func (s *Store) mutate(ctx context.Context, fn func(*Snapshot) error) error {
	s.mu.Lock()

	next := cloneSnapshot(s.state)
	if err := fn(&next); err != nil {
		s.mu.Unlock()

		return err
	}

	next.Seq = s.state.Seq + 1
	s.state = next
	snap := cloneSnapshot(next)

	s.mu.Unlock()

	return s.persist(ctx, snap)
}

func (s *Store) persist(ctx context.Context, snap Snapshot) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if snap.Seq <= s.persisted {
		s.logger.Debug("skipping superseded snapshot",
			zap.Uint64("seq", snap.Seq), zap.Uint64("persisted", s.persisted))

		return nil
	}

	if err := s.repo.Save(ctx, s.owner, snap); err != nil {
		s.logger.Warn("persisting suggestions failed", zap.Uint64("seq", snap.Seq), zap.Error(err))

		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.persisted = snap.Seq

	return nil
}
