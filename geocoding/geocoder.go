// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocoding turns device coordinates and raw geocoder text into
// dataset locations.
package geocoding

import (
	"context"

	"github.com/chambape/ubica/spatial"
)

// RawLocation is untrusted free text as a geocoder returns it. Empty fields
// were not supplied.
type RawLocation struct {
	Locality  string `json:"locality,omitempty"`
	SubRegion string `json:"subregion,omitempty"`
	Region    string `json:"region,omitempty"`
	Address   string `json:"address,omitempty"`
}

// ReverseResult is a reverse geocoding result from any provider.
type ReverseResult struct {
	Locality         string
	SubRegion        string
	Region           string
	FormattedAddress string
	Provider         string
	Point            spatial.Point
}

// Raw returns the text part of the result.
func (r *ReverseResult) Raw() RawLocation {
	return RawLocation{
		Locality:  r.Locality,
		SubRegion: r.SubRegion,
		Region:    r.Region,
		Address:   r.FormattedAddress,
	}
}

// ReverseGeocoder interface for different geocoding providers. An
// implementation returns a *GeocodingError of type ErrorTypeNotFound when
// there is nothing at the point.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, point spatial.Point) (*ReverseResult, error)
}
