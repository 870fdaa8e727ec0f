// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/chambape/ubica/spatial"
	"github.com/chambape/ubica/utils/httputils"
)

const googleMapsEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsGeocoder uses Google Maps Geocoding API in reverse mode.
type GoogleMapsGeocoder struct {
	apiKey     string
	endpoint   string
	language   string
	httpClient *http.Client
}

// GoogleMapsOptions configures NewGoogleMapsGeocoder. Zero values take
// defaults.
type GoogleMapsOptions struct {
	Endpoint string
	Language string
	Timeout  time.Duration
	// Trace receives HTTP dumps, with the key redacted.
	Trace io.Writer
	// Transport replaces the network transport, for tests.
	Transport http.RoundTripper
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(apiKey string, options GoogleMapsOptions) *GoogleMapsGeocoder {
	g := &GoogleMapsGeocoder{
		apiKey:   apiKey,
		endpoint: options.Endpoint,
		language: options.Language,
		httpClient: httputils.NewClient(httputils.ClientOptions{
			Timeout:   options.Timeout,
			UserAgent: "ubica/geocoding",
			Trace:     options.Trace,
			Transport: options.Transport,
		}),
	}

	if g.endpoint == "" {
		g.endpoint = googleMapsEndpoint
	}

	if g.language == "" {
		g.language = "es"
	}

	return g
}

type googleMapsResponse struct {
	Results []struct {
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

// ReverseGeocode returns the administrative names of the result nearest to
// point.
func (g *GoogleMapsGeocoder) ReverseGeocode(ctx context.Context, point spatial.Point) (*ReverseResult, error) {
	if g.apiKey == "" {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "google maps api key not configured"}
	}

	params := url.Values{}
	params.Set("latlng", strconv.FormatFloat(point.Lat, 'f', 6, 64)+","+strconv.FormatFloat(point.Lng, 'f', 6, 64))
	params.Set("key", g.apiKey)
	params.Set("language", g.language)
	params.Set("result_type", "locality|administrative_area_level_1|administrative_area_level_2|administrative_area_level_3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building reverse geocoding request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, "")
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if geoErr := ClassifyAPIStatus(gmResp.Status, gmResp.ErrorMessage); geoErr != nil {
		return nil, geoErr
	}

	best := -1
	bestDistance := 0.0

	for i, r := range gmResp.Results {
		at := &spatial.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng}
		if d := point.HaversineDistance(at); best < 0 || d < bestDistance {
			best, bestDistance = i, d
		}
	}

	if best < 0 {
		return nil, &GeocodingError{Type: ErrorTypeNotFound, Message: "ubicación no encontrada: " + point.String()}
	}

	chosen := gmResp.Results[best]
	result := &ReverseResult{
		FormattedAddress: chosen.FormattedAddress,
		Provider:         "google_maps",
		Point:            spatial.Point{Lat: chosen.Geometry.Location.Lat, Lng: chosen.Geometry.Location.Lng},
	}

	var locality string

	for _, c := range chosen.AddressComponents {
		switch {
		case slices.Contains(c.Types, "administrative_area_level_1"):
			result.Region = c.LongName
		case slices.Contains(c.Types, "administrative_area_level_2"):
			result.SubRegion = c.LongName
		case slices.Contains(c.Types, "administrative_area_level_3"):
			result.Locality = c.LongName
		case slices.Contains(c.Types, "locality"):
			locality = c.LongName
		}
	}

	// Peruvian districts come as level 3; locality is the city, used only
	// when no district is given.
	if result.Locality == "" {
		result.Locality = locality
	}

	return result, nil
}
