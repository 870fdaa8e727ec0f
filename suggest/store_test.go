// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chambape/ubica/location"
)

type flakyRepository struct {
	Repository
	fail  atomic.Bool
	saves atomic.Int32
}

func (r *flakyRepository) Save(ctx context.Context, owner string, snap Snapshot) error {
	r.saves.Add(1)

	if r.fail.Load() {
		return errors.New("disk on fire")
	}

	return r.Repository.Save(ctx, owner, snap)
}

func testDataset(t *testing.T) *location.Dataset {
	t.Helper()

	ds, err := location.Default()
	require.NoError(t, err)

	return ds
}

func locality(t *testing.T, ds *location.Dataset, id string) location.ResolvedLocation {
	t.Helper()

	l := ds.LocalityByID(id)
	require.NotNil(t, l, id)

	return ds.LocalityLocation(l)
}

func fixedClock() func() time.Time {
	var tick atomic.Int64

	return func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(tick.Add(1)) * time.Minute)
	}
}

func openStore(t *testing.T, repo Repository, opts Options) *Store {
	t.Helper()

	if opts.Now == nil {
		opts.Now = fixedClock()
	}

	s, err := Open(context.Background(), "user-1", repo, testDataset(t), opts)
	require.NoError(t, err)

	return s
}

func record(t *testing.T, s *Store, loc location.ResolvedLocation) Entry {
	t.Helper()

	e, err := s.RecordSelection(context.Background(), loc)
	require.NoError(t, err)

	return e
}

func labels(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}

	return out
}

func TestRecordSelectionMovesToFront(t *testing.T) {
	ds := testDataset(t)
	s := openStore(t, NewMemoryRepository(), Options{})

	subtanjalla := locality(t, ds, "110112")
	parcona := locality(t, ds, "110106")

	first := record(t, s, subtanjalla)
	assert.Equal(t, s.Recent()[0], first)

	record(t, s, parcona)
	again := record(t, s, subtanjalla)

	recent := s.Recent()
	assert.Equal(t, []string{"Subtanjalla, Ica, Ica", "Parcona, Ica, Ica"}, labels(recent))
	assert.Equal(t, recent[0], again, "the returned entry is the one installed")
	assert.Equal(t, first.ID, again.ID, "re-selection keeps the entry")
	assert.True(t, recent[0].Timestamp.After(first.Timestamp))
	assert.Equal(t, KindRecent, recent[0].Kind)
	assert.Equal(t, uint64(3), s.Seq())
}

func TestRecentCap(t *testing.T) {
	ds := testDataset(t)
	s := openStore(t, NewMemoryRepository(), Options{RecentCap: 3})

	for _, id := range []string{"110101", "110106", "110112", "110501"} {
		record(t, s, locality(t, ds, id))
	}

	assert.Equal(t, []string{"Pisco, Pisco, Ica", "Subtanjalla, Ica, Ica", "Parcona, Ica, Ica"}, labels(s.Recent()))
}

func TestRecordSelectionValidation(t *testing.T) {
	s := openStore(t, NewMemoryRepository(), Options{})
	ctx := context.Background()

	_, err := s.RecordSelection(ctx, location.ResolvedLocation{
		Region: "Ica", SubRegion: "Ica", Locality: "Atlantis", Specificity: location.LevelLocality,
	})
	assert.ErrorIs(t, err, ErrInvalidLocation)

	_, err = s.RecordSelection(ctx, location.ResolvedLocation{Region: "Ica"})
	assert.ErrorIs(t, err, ErrInvalidLocation, "zero specificity")

	_, err = s.RecordSelection(ctx, location.ResolvedLocation{Specificity: location.LevelRegion, Unverified: true})
	assert.ErrorIs(t, err, ErrInvalidLocation, "empty unverified")

	assert.Empty(t, s.Recent())
	assert.Zero(t, s.Seq())

	unverified := location.ResolvedLocation{
		Region: "Región Y", Locality: "Villa Fantasma", Specificity: location.LevelLocality, Unverified: true,
	}
	record(t, s, unverified)
	assert.True(t, s.Recent()[0].Location.Unverified)
}

func TestFavorites(t *testing.T) {
	ds := testDataset(t)
	s := openStore(t, NewMemoryRepository(), Options{})
	ctx := context.Background()

	t.Run("rejects", func(t *testing.T) {
		_, err := s.AddFavorite(ctx, locality(t, ds, "110112"), "", KindPopular)
		assert.ErrorIs(t, err, ErrInvalidKind)

		loc := locality(t, ds, "110112")
		loc.Unverified = true
		_, err = s.AddFavorite(ctx, loc, "", KindFavorite)
		assert.ErrorIs(t, err, ErrInvalidLocation)

		_, err = s.AddFavorite(ctx, location.ResolvedLocation{
			Region: "Atlantis", Specificity: location.LevelRegion,
		}, "", KindFavorite)
		assert.ErrorIs(t, err, ErrInvalidLocation)

		assert.Empty(t, s.Favorites())
	})

	t.Run("add update remove", func(t *testing.T) {
		site, err := s.AddFavorite(ctx, locality(t, ds, "110112"), "  ", KindSite)
		require.NoError(t, err)
		assert.Equal(t, "Subtanjalla, Ica, Ica", site.Label)
		assert.Equal(t, KindSite, site.Kind)
		assert.NotEmpty(t, site.ID)

		again, err := s.AddFavorite(ctx, locality(t, ds, "110112"), "Planta Ica", KindFavorite)
		require.NoError(t, err)
		assert.Equal(t, site.ID, again.ID)
		assert.Equal(t, "Planta Ica", again.Label)
		assert.Len(t, s.Favorites(), 1)

		seq := s.Seq()
		assert.ErrorIs(t, s.RemoveFavorite(ctx, "nope"), ErrNotFound)
		assert.Equal(t, seq, s.Seq(), "failed mutations do not bump seq")

		require.NoError(t, s.RemoveFavorite(ctx, site.ID))
		assert.Empty(t, s.Favorites())
	})
}

func TestQuickSuggestions(t *testing.T) {
	ds := testDataset(t)
	resolver := location.NewResolver(ds, nil)

	popular, err := PopularEntries(resolver, []string{"Lima", "Parcona, Ica, Ica", "Ica"})
	require.NoError(t, err)

	s := openStore(t, NewMemoryRepository(), Options{Popular: popular})
	ctx := context.Background()

	_, err = s.AddFavorite(ctx, locality(t, ds, "110112"), "Planta", KindSite)
	require.NoError(t, err)
	record(t, s, locality(t, ds, "110106"))
	record(t, s, locality(t, ds, "110112"))

	got := s.QuickSuggestions(10)
	assert.Equal(t, []string{"Planta", "Parcona, Ica, Ica", "Lima", "Ica"}, labels(got),
		"the favorite hides its recent twin and the recent Parcona hides the popular one")
	assert.Equal(t, []Kind{KindSite, KindRecent, KindPopular, KindPopular}, []Kind{got[0].Kind, got[1].Kind, got[2].Kind, got[3].Kind})

	assert.Equal(t, []string{"Planta", "Parcona, Ica, Ica"}, labels(s.QuickSuggestions(2)))
	assert.Empty(t, s.QuickSuggestions(0))
	assert.Empty(t, s.QuickSuggestions(-1))
}

func TestPersistFailureKeepsMemory(t *testing.T) {
	ds := testDataset(t)
	repo := &flakyRepository{Repository: NewMemoryRepository()}
	s := openStore(t, repo, Options{})
	ctx := context.Background()

	repo.fail.Store(true)

	entry, err := s.RecordSelection(ctx, locality(t, ds, "110112"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Len(t, s.Recent(), 1, "the session keeps working")
	assert.Equal(t, s.Recent()[0], entry)

	repo.fail.Store(false)
	record(t, s, locality(t, ds, "110106"))

	reopened := openStore(t, repo, Options{})
	assert.Equal(t, labels(s.Recent()), labels(reopened.Recent()))
	assert.Equal(t, s.Seq(), reopened.Seq())
}

func TestPersistHonoursCancellation(t *testing.T) {
	ds := testDataset(t)
	s := openStore(t, NewMemoryRepository(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.RecordSelection(ctx, locality(t, ds, "110112"))
	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, s.Recent(), 1)
}

func TestPersistSkipsSupersededSnapshots(t *testing.T) {
	ds := testDataset(t)
	repo := &flakyRepository{Repository: NewMemoryRepository()}
	s := openStore(t, repo, Options{})
	ctx := context.Background()

	record(t, s, locality(t, ds, "110112"))
	record(t, s, locality(t, ds, "110106"))
	require.Equal(t, int32(2), repo.saves.Load())

	// A write for seq 1 that lost the race must not reach the repository.
	require.NoError(t, s.persist(ctx, Snapshot{Seq: 1}))
	assert.Equal(t, int32(2), repo.saves.Load())

	stored, err := repo.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.Seq)
	assert.Len(t, stored.Recent, 2)
}

func TestConcurrentSelections(t *testing.T) {
	ds := testDataset(t)
	repo := NewMemoryRepository()
	s := openStore(t, repo, Options{RecentCap: 50})
	ctx := context.Background()

	ids := []string{"110101", "110106", "110112", "110501", "150122", "040110"}

	var wg sync.WaitGroup
	for i := range 30 {
		wg.Go(func() {
			_, err := s.RecordSelection(ctx, locality(t, ds, ids[i%len(ids)]))
			assert.NoError(t, err)
		})
	}

	wg.Wait()

	stored, err := repo.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, s.Seq(), stored.Seq, "the newest snapshot is the one stored")
	assert.Equal(t, uint64(30), stored.Seq)
	assert.Equal(t, labels(s.Recent()), labels(stored.Recent))
	assert.Len(t, stored.Recent, len(ids))
}

func TestOpenTruncatesRecent(t *testing.T) {
	ds := testDataset(t)
	repo := NewMemoryRepository()

	snap := Snapshot{Seq: 7}
	for i, id := range []string{"110101", "110106", "110112"} {
		snap.Recent = append(snap.Recent, Entry{ID: fmt.Sprint(i), Kind: KindRecent, Location: locality(t, ds, id)})
	}

	require.NoError(t, repo.Save(context.Background(), "user-1", snap))

	s := openStore(t, repo, Options{RecentCap: 2})
	assert.Len(t, s.Recent(), 2)
	assert.Equal(t, uint64(7), s.Seq())
}

func TestRegistry(t *testing.T) {
	ds := testDataset(t)
	r := NewRegistry(NewMemoryRepository(), ds, Options{}, RegistryOptions{})
	ctx := context.Background()

	a, err := r.Get(ctx, "alice")
	require.NoError(t, err)

	again, err := r.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := r.Get(ctx, "bob")
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	record(t, a, locality(t, ds, "110112"))
	assert.Empty(t, b.Recent())

	_, err = r.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidOwner)
}

func TestPopularEntries(t *testing.T) {
	resolver := location.NewResolver(testDataset(t), nil)

	got, err := PopularEntries(resolver, []string{"Lima", "Nasca, Ica", "Miraflores, Lima, Lima"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, location.LevelRegion, got[0].Location.Specificity)
	assert.Equal(t, location.LevelSubRegion, got[1].Location.Specificity)
	assert.Equal(t, "150122", got[2].Location.LocalityID)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Rank, got[1].Rank, got[2].Rank})

	got, err = PopularEntries(resolver, []string{"Lima", "Atlantis", "a, b, c, d"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidLocation)
	assert.Contains(t, err.Error(), "Atlantis")
	assert.Len(t, got, 1)
}
