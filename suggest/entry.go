// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

// Package suggest keeps the per-user quick pick list: favorites, recent
// selections and a static list of popular places.
package suggest

import (
	"errors"
	"fmt"
	"time"

	"github.com/chambape/ubica/location"
)

var (
	// ErrPersist wraps repository failures. The in-memory list is already
	// updated when it is returned.
	ErrPersist = errors.New("persisting suggestions")
	// ErrInvalidLocation rejects locations that are not a real dataset path,
	// and unverified locations offered as favorites.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrInvalidKind rejects favorites of a kind other than favorite or site.
	ErrInvalidKind = errors.New("invalid suggestion kind")
	// ErrNotFound is returned when removing an unknown favorite.
	ErrNotFound = errors.New("suggestion not found")
	// ErrStaleSnapshot is returned by repositories when a newer snapshot is
	// already stored.
	ErrStaleSnapshot = errors.New("stale suggestion snapshot")
)

// Kind is the provenance of an Entry.
type Kind string

const (
	// KindRecent is a past selection.
	KindRecent Kind = "recent"
	// KindFavorite is a place the user marked.
	KindFavorite Kind = "favorite"
	// KindSite is a company site, kept like a favorite.
	KindSite Kind = "site"
	// KindPopular is a configured place shown to everybody.
	KindPopular Kind = "popular"
)

// ParseKind accepts the kinds a user can add.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindFavorite, KindSite:
		return k, nil
	case "":
		return KindFavorite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Entry is one suggestion.
type Entry struct {
	ID       string                    `json:"id"`
	Kind     Kind                      `json:"kind"`
	Location location.ResolvedLocation `json:"location"`
	Label    string                    `json:"label"`
	// Timestamp is when a recent entry was selected or a favorite added.
	Timestamp time.Time `json:"timestamp,omitzero"`
	// Rank orders popular entries, lowest first.
	Rank int `json:"rank,omitempty"`
}

// Identity is the deduplication key.
func (e Entry) Identity() string {
	return e.Location.Identity()
}

// Snapshot is the persisted state of one owner. Seq grows with every
// mutation.
type Snapshot struct {
	Seq       uint64  `json:"seq"`
	Recent    []Entry `json:"recent"`
	Favorites []Entry `json:"favorites"`
}
