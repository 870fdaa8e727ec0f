// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chambape/ubica/location"
	"github.com/chambape/ubica/spatial"
)

type fakeGeocoder struct {
	result *ReverseResult
	err    error
	calls  atomic.Int32
	// before runs inside ReverseGeocode, to simulate the caller going away.
	before func()
}

func (f *fakeGeocoder) ReverseGeocode(_ context.Context, _ spatial.Point) (*ReverseResult, error) {
	f.calls.Add(1)

	if f.before != nil {
		f.before()
	}

	return f.result, f.err
}

var icaPlaza = spatial.Point{Lat: -14.0678, Lng: -75.7286}

func newTestBridge(t *testing.T, geocoder ReverseGeocoder) (*Bridge, *location.Dataset) {
	t.Helper()

	ds, err := location.Default()
	require.NoError(t, err)

	return NewBridge(location.NewResolver(ds, nil), geocoder, BridgeOptions{Bounds: spatial.PeruBounds}), ds
}

func TestClean(t *testing.T) {
	b, _ := newTestBridge(t, nil)

	tests := map[string]string{
		"":                                    "",
		"Ica Region":                          "ica",
		"Provincia de Pisco":                  "pisco",
		"Municipalidad Provincial de Chincha": "chincha",
		"Provincia Constitucional del Callao": "callao",
		"Cercado de Lima":                     "lima",
		"Gobierno Regional de Ica":            "ica",
		"Cuzco":                               "Cusco",
		"Nazca":                               "Nasca",
		"Lima Metropolitana":                  "Lima",
		"San Juan de Lurigancho":              "san juan de lurigancho",
	}

	for in, want := range tests {
		assert.Equal(t, want, b.Clean(in), "Clean(%q)", in)
	}
}

func TestFromGeocode(t *testing.T) {
	b, ds := newTestBridge(t, nil)
	point := &icaPlaza

	t.Run("geocoder vocabulary resolves to the dataset", func(t *testing.T) {
		got := b.FromGeocode(RawLocation{
			Locality:  "Subtanjalla",
			SubRegion: "Ica",
			Region:    "Ica Region",
			Address:   "Av. Principal 123, Subtanjalla",
		}, point)
		require.NotNil(t, got)

		assert.False(t, got.Unverified)
		assert.Equal(t, location.LevelLocality, got.Specificity)
		assert.Equal(t, "Subtanjalla", got.Locality)
		assert.Equal(t, "Ica", got.SubRegion)
		assert.Equal(t, "Ica", got.Region)
		assert.Equal(t, "110112", got.LocalityID)
		assert.Equal(t, "Av. Principal 123, Subtanjalla", got.Address)
		assert.Equal(t, point, got.Point)
		assert.True(t, ds.Verify(*got))
	})

	t.Run("multi word qualifiers", func(t *testing.T) {
		got := b.FromGeocode(RawLocation{
			SubRegion: "Municipalidad Provincial de Nazca",
			Region:    "Gobierno Regional de Ica",
		}, nil)
		require.NotNil(t, got)
		assert.False(t, got.Unverified)
		assert.Equal(t, location.LevelSubRegion, got.Specificity)
		assert.Equal(t, "Nasca", got.SubRegion)
	})

	t.Run("unknown text becomes an unverified record", func(t *testing.T) {
		raw := RawLocation{Locality: "Villa Fantasma ", SubRegion: "Provincia X", Region: "Región Y"}

		got := b.FromGeocode(raw, point)
		require.NotNil(t, got)

		assert.True(t, got.Unverified)
		assert.Equal(t, location.LevelLocality, got.Specificity)
		assert.Equal(t, "Villa Fantasma ", got.Locality, "raw strings are kept verbatim")
		assert.Equal(t, "Provincia X", got.SubRegion)
		assert.Equal(t, "Región Y", got.Region)
		assert.Equal(t, point, got.Point)
		assert.False(t, ds.Verify(*got))
	})

	t.Run("unverified specificity follows the most specific raw field", func(t *testing.T) {
		got := b.FromGeocode(RawLocation{SubRegion: "Nowhere", Region: "Atlantis"}, nil)
		require.NotNil(t, got)
		assert.True(t, got.Unverified)
		assert.Equal(t, location.LevelSubRegion, got.Specificity)
		assert.Empty(t, got.Locality)
	})

	t.Run("all empty", func(t *testing.T) {
		assert.Nil(t, b.FromGeocode(RawLocation{}, point))
		assert.Nil(t, b.FromGeocode(RawLocation{Locality: "  ", Address: "somewhere"}, point))
	})
}

// Every record that claims to be verified must be a path in the dataset.
func TestFromGeocodeVerifiedRoundTrip(t *testing.T) {
	b, ds := newTestBridge(t, nil)

	inputs := []RawLocation{
		{Locality: "Subtanjalla", SubRegion: "Ica", Region: "Ica Region"},
		{Locality: "Miraflores", SubRegion: "Lima", Region: "Lima"},
		{Locality: "Miraflores"},
		{Locality: "Santiago", Region: "Cusco"},
		{Locality: "Pueblo Nuevo"},
		{SubRegion: "Provincia de Chincha"},
		{Region: "Departamento de Arequipa"},
		{Locality: "Subtan"},
		{Locality: "Nowhere", Region: "Atlantis"},
		{Locality: "xx"},
		{Region: "Lima Metropolitana"},
	}

	for _, raw := range inputs {
		got := b.FromGeocode(raw, nil)
		require.NotNil(t, got, "%+v", raw)

		if !got.Unverified {
			assert.True(t, ds.Verify(*got), "%+v resolved to %+v", raw, got)
		} else {
			assert.False(t, ds.Verify(*got))
		}
	}
}

func TestLocate(t *testing.T) {
	t.Run("resolves and caches by cell", func(t *testing.T) {
		geo := &fakeGeocoder{result: &ReverseResult{
			Locality:         "Subtanjalla",
			SubRegion:        "Ica",
			Region:           "Ica Region",
			FormattedAddress: "Subtanjalla, Perú",
			Provider:         "fake",
		}}
		b, _ := newTestBridge(t, geo)

		got, err := b.Locate(context.Background(), icaPlaza)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "110112", got.LocalityID)
		assert.Equal(t, "Subtanjalla, Perú", got.Address)
		assert.Equal(t, icaPlaza, *got.Point)

		again, err := b.Locate(context.Background(), icaPlaza)
		require.NoError(t, err)
		assert.Equal(t, got, again)
		assert.Equal(t, int32(1), geo.calls.Load())
	})

	t.Run("not found is not an error", func(t *testing.T) {
		geo := &fakeGeocoder{err: ClassifyAPIStatus("ZERO_RESULTS", "")}
		b, _ := newTestBridge(t, geo)

		got, err := b.Locate(context.Background(), icaPlaza)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = b.Locate(context.Background(), icaPlaza)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, int32(1), geo.calls.Load(), "empty answers are cached too")
	})

	t.Run("collaborator failure", func(t *testing.T) {
		cause := ClassifyHTTPError(503, "")
		geo := &fakeGeocoder{err: cause}
		b, _ := newTestBridge(t, geo)

		got, err := b.Locate(context.Background(), icaPlaza)
		assert.Nil(t, got)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrGeocoderUnavailable))
		assert.True(t, IsUnavailable(err))
		assert.True(t, errors.Is(err, cause))

		_, _ = b.Locate(context.Background(), icaPlaza)
		assert.Equal(t, int32(2), geo.calls.Load(), "failures are not cached")
	})

	t.Run("no geocoder", func(t *testing.T) {
		b, _ := newTestBridge(t, nil)
		assert.False(t, b.HasGeocoder())
		assert.Equal(t, spatial.PeruBounds, b.Bounds())

		_, err := b.Locate(context.Background(), icaPlaza)
		assert.True(t, IsUnavailable(err))

		assert.NotNil(t, b.FromGeocode(RawLocation{Locality: "Subtanjalla", Region: "Ica"}, nil),
			"raw text resolves without a geocoder")
	})

	t.Run("invalid point", func(t *testing.T) {
		geo := &fakeGeocoder{}
		b, _ := newTestBridge(t, geo)

		_, err := b.Locate(context.Background(), spatial.Point{Lat: -34.9, Lng: -56.16})
		require.Error(t, err)
		assert.True(t, errors.Is(err, spatial.ErrInvalidPoint))
		assert.Equal(t, int32(0), geo.calls.Load())
	})

	t.Run("result discarded after cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		geo := &fakeGeocoder{
			result: &ReverseResult{Locality: "Subtanjalla", SubRegion: "Ica", Region: "Ica"},
			before: cancel,
		}
		b, _ := newTestBridge(t, geo)

		got, err := b.Locate(ctx, icaPlaza)
		assert.Nil(t, got)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.False(t, IsUnavailable(err))

		// Nothing was cached from the abandoned call.
		_, err = b.Locate(context.Background(), icaPlaza)
		require.NoError(t, err)
		assert.Equal(t, int32(2), geo.calls.Load())
	})
}
