// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSource() *Source {
	return &Source{
		Version: "test",
		Regions: []SourceRegion{
			{ID: "11", Name: "Ica"},
			{ID: "15", Name: "Lima"},
		},
		SubRegions: []SourceSubRegion{
			{ID: "1101", Region: "11", Name: "Ica"},
			{ID: "1105", Region: "11", Name: "Pisco"},
			{ID: "1501", Region: "15", Name: "Lima"},
		},
		Localities: []SourceLocality{
			{ID: "110101", SubRegion: "1101", Name: "Ica"},
			{ID: "110112", SubRegion: "1101", Name: "Subtanjalla"},
			{ID: "110501", SubRegion: "1105", Name: "Pisco"},
			{ID: "110504", SubRegion: "1105", Name: "Independencia"},
			{ID: "150101", SubRegion: "1501", Name: "Lima"},
			{ID: "150112", SubRegion: "1501", Name: "Independencia"},
		},
	}
}

func TestBuild(t *testing.T) {
	ds, err := Build(testSource())
	require.NoError(t, err)

	assert.Equal(t, "test", ds.Version())
	assert.Equal(t, Stats{Regions: 2, SubRegions: 3, Localities: 6}, ds.Stats())

	ica := ds.RegionByID("11")
	require.NotNil(t, ica)
	assert.Equal(t, "ica", ica.Key)

	subs := ds.SubRegionsOf(ica)
	require.Len(t, subs, 2)
	assert.Equal(t, "Ica", subs[0].Name)
	assert.Equal(t, "Pisco", subs[1].Name)

	locs := ds.LocalitiesOf(subs[0])
	require.Len(t, locs, 2)
	assert.Equal(t, "Subtanjalla", locs[1].Name)

	assert.Same(t, ica, ds.RegionOf(subs[1]))
	assert.Same(t, subs[0], ds.SubRegionOf(locs[1]))

	assert.Len(t, ds.LocalitiesByKey("independencia"), 2, "same name under different parents is allowed")
	assert.Len(t, ds.RegionsByKey("lima"), 1)
	assert.Len(t, ds.SubRegionsByKey("ica"), 1)
	assert.Empty(t, ds.LocalitiesByKey("nowhere"))

	assert.Nil(t, ds.SubRegionsOf(nil))
	assert.Nil(t, ds.LocalitiesOf(nil))
	assert.Nil(t, ds.RegionByID("99"))
}

func TestBuildRejectsMalformedHierarchy(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Source)
		want   string
	}{
		{
			name: "locality with missing subregion",
			mutate: func(s *Source) {
				s.Localities = append(s.Localities, SourceLocality{ID: "119901", SubRegion: "1199", Name: "Fantasma"})
			},
			want: `unknown subregion "1199"`,
		},
		{
			name: "subregion with missing region",
			mutate: func(s *Source) {
				s.SubRegions = append(s.SubRegions, SourceSubRegion{ID: "9901", Region: "99", Name: "Nada"})
			},
			want: `unknown region "99"`,
		},
		{
			name: "duplicate sibling locality",
			mutate: func(s *Source) {
				s.Localities = append(s.Localities, SourceLocality{ID: "110199", SubRegion: "1101", Name: "SUBTANJALLA"})
			},
			want: "collides with sibling",
		},
		{
			name: "duplicate sibling differing in accents",
			mutate: func(s *Source) {
				s.SubRegions = append(s.SubRegions, SourceSubRegion{ID: "1199", Region: "11", Name: "Písco"})
			},
			want: "collides with sibling",
		},
		{
			name: "duplicate region name",
			mutate: func(s *Source) {
				s.Regions = append(s.Regions, SourceRegion{ID: "16", Name: "Lima Región"})
			},
			want: "collides with region",
		},
		{
			name: "duplicate id",
			mutate: func(s *Source) {
				s.Localities = append(s.Localities, SourceLocality{ID: "110101", SubRegion: "1105", Name: "Otro"})
			},
			want: "duplicate id",
		},
		{
			name: "empty name",
			mutate: func(s *Source) {
				s.Regions = append(s.Regions, SourceRegion{ID: "20", Name: "  "})
			},
			want: "empty name",
		},
		{
			name: "empty id",
			mutate: func(s *Source) {
				s.Regions = append(s.Regions, SourceRegion{Name: "Piura"})
			},
			want: "empty id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testSource()
			tt.mutate(src)

			ds, err := Build(src)
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.True(t, errors.Is(err, ErrMalformedHierarchy), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)

			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, LoadErrorMalformedHierarchy, loadErr.Kind)
		})
	}
}

func TestLoadUnreadable(t *testing.T) {
	_, err := Load(strings.NewReader(`{"regions": [`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformedHierarchy))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, LoadErrorUnreadable, loadErr.Kind)

	_, err = LoadFile("testdata/does-not-exist.json")
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, LoadErrorUnreadable, loadErr.Kind)
}

func TestLoadJSON(t *testing.T) {
	const src = `{
		"version": "2025.1",
		"regions": [{"id": "11", "name": "Ica"}],
		"subregions": [{"id": "1101", "region": "11", "name": "Ica"}],
		"localities": [{"id": "110112", "subregion": "1101", "name": "Subtanjalla"}]
	}`

	ds, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "2025.1", ds.Version())
	assert.Equal(t, "Subtanjalla", ds.LocalityByID("110112").Name)
}

func TestDefault(t *testing.T) {
	ds, err := Default()
	require.NoError(t, err)

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, ds, again, "the embedded dataset is loaded once")

	st := ds.Stats()
	assert.Positive(t, st.Regions)
	assert.Greater(t, st.SubRegions, st.Regions)
	assert.Greater(t, st.Localities, st.SubRegions)

	sub := ds.LocalityByID("110112")
	require.NotNil(t, sub)
	assert.Equal(t, "Subtanjalla", sub.Name)
	assert.Equal(t, "Ica", ds.SubRegionOf(sub).Name)
	assert.Equal(t, "Ica", ds.RegionOf(ds.SubRegionOf(sub)).Name)
}

func TestVerify(t *testing.T) {
	ds, err := Build(testSource())
	require.NoError(t, err)

	tests := []struct {
		name string
		loc  ResolvedLocation
		want bool
	}{
		{
			name: "locality by id",
			loc:  ds.LocalityLocation(ds.LocalityByID("110112")),
			want: true,
		},
		{
			name: "locality by name only",
			loc: ResolvedLocation{
				Region: "ica", SubRegion: "ICA", Locality: "subtanjalla", Specificity: LevelLocality,
			},
			want: true,
		},
		{
			name: "region only",
			loc:  ResolvedLocation{Region: "Lima", Specificity: LevelRegion},
			want: true,
		},
		{
			name: "subregion only",
			loc:  ResolvedLocation{RegionID: "11", Region: "Ica", SubRegion: "Pisco", Specificity: LevelSubRegion},
			want: true,
		},
		{
			name: "locality under the wrong subregion",
			loc: ResolvedLocation{
				Region: "Ica", SubRegion: "Pisco", Locality: "Subtanjalla", Specificity: LevelLocality,
			},
			want: false,
		},
		{
			name: "id and name disagree",
			loc: ResolvedLocation{
				RegionID: "15", Region: "Ica", Specificity: LevelRegion,
			},
			want: false,
		},
		{
			name: "unverified never verifies",
			loc: func() ResolvedLocation {
				l := ds.RegionLocation(ds.RegionByID("11"))
				l.Unverified = true

				return l
			}(),
			want: false,
		},
		{
			name: "missing specificity",
			loc:  ResolvedLocation{Region: "Ica"},
			want: false,
		},
		{
			name: "unknown region",
			loc:  ResolvedLocation{Region: "Cusco", Specificity: LevelRegion},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ds.Verify(tt.loc))
		})
	}
}

func TestVerifyEveryPath(t *testing.T) {
	ds, err := Default()
	require.NoError(t, err)

	for _, r := range ds.Regions() {
		require.True(t, ds.Verify(ds.RegionLocation(r)), r.Name)

		for _, s := range ds.SubRegionsOf(r) {
			require.True(t, ds.Verify(ds.SubRegionLocation(s)), s.Name)

			for _, l := range ds.LocalitiesOf(s) {
				loc := ds.LocalityLocation(l)
				require.True(t, ds.Verify(loc), l.Name)
				assert.Equal(t, LevelLocality, loc.Specificity)
			}
		}
	}
}
