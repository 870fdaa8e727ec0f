// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chambape/ubica/location"
)

func TestFindRegions(t *testing.T) {
	ds, err := location.Build(&location.Source{
		Version: "test",
		Regions: []location.SourceRegion{
			{ID: "11", Name: "Ica"},
			{ID: "15", Name: "Lima"},
		},
		SubRegions: []location.SourceSubRegion{
			{ID: "1101", Region: "11", Name: "Ica"},
			{ID: "1501", Region: "15", Name: "Lima"},
		},
		Localities: []location.SourceLocality{
			{ID: "110101", SubRegion: "1101", Name: "Ica"},
			{ID: "150101", SubRegion: "1501", Name: "Lima"},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		arg     string
		wantIDs []string
	}{
		{name: "by name", arg: "Ica", wantIDs: []string{"11"}},
		{name: "by name without accents or case", arg: "LIMA", wantIDs: []string{"15"}},
		{name: "by id", arg: "15", wantIDs: []string{"15"}},
		{name: "unknown", arg: "Atlantis", wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, r := range findRegions(ds, tt.arg) {
				ids = append(ids, r.ID)
			}

			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	t.Run("result does not alias the dataset", func(t *testing.T) {
		regions := findRegions(ds, "Ica")
		require.Len(t, regions, 1)

		regions[0] = ds.RegionByID("15")

		byKey := ds.RegionsByKey("ica")
		require.Len(t, byKey, 1)
		assert.Equal(t, "11", byKey[0].ID)
	})
}
