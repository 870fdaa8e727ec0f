// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		point   Point
		bounds  Bounds
		wantErr bool
	}{
		{
			name:   "valid ica coordinates",
			point:  Point{Lat: -14.0678, Lng: -75.7286},
			bounds: PeruBounds,
		},
		{
			name:   "valid lima coordinates",
			point:  Point{Lat: -12.0464, Lng: -77.0428},
			bounds: PeruBounds,
		},
		{
			name:    "latitude too high",
			point:   Point{Lat: 91, Lng: -75},
			wantErr: true,
		},
		{
			name:    "longitude too low",
			point:   Point{Lat: -12, Lng: -181},
			wantErr: true,
		},
		{
			name:    "nan",
			point:   Point{Lat: math.NaN(), Lng: -75},
			wantErr: true,
		},
		{
			name:    "outside peru - montevideo",
			point:   Point{Lat: -34.9011, Lng: -56.1645},
			bounds:  PeruBounds,
			wantErr: true,
		},
		{
			name:  "no bounds accepts anywhere",
			point: Point{Lat: -34.9011, Lng: -56.1645},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.ValidateWithin(tt.bounds)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWithin() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil && !errors.Is(err, ErrInvalidPoint) {
				t.Errorf("ValidateWithin() error = %v, want ErrInvalidPoint", err)
			}
		})
	}
}

func TestCell(t *testing.T) {
	plaza := Point{Lat: -14.0678, Lng: -75.7286}
	nearby := Point{Lat: -14.0679, Lng: -75.7287}
	lima := Point{Lat: -12.0464, Lng: -77.0428}

	a, err := plaza.Cell(3)
	require.NoError(t, err)

	b, err := nearby.Cell(3)
	require.NoError(t, err)

	c, err := lima.Cell(3)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 3, a.Resolution())

	_, err = plaza.Cell(16)
	assert.Error(t, err)
}

func TestHaversineDistance(t *testing.T) {
	ica := &Point{Lat: -14.0678, Lng: -75.7286}
	lima := &Point{Lat: -12.0464, Lng: -77.0428}

	d := ica.HaversineDistance(lima)
	assert.InDelta(t, 264_000, d, 10_000)
	assert.InDelta(t, 0, ica.HaversineDistance(ica), 1e-6)
}
