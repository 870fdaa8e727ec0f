// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/uber/h3-go/v4"
	"go.uber.org/zap"

	"github.com/chambape/ubica/location"
	"github.com/chambape/ubica/spatial"
)

// qualifiers are what is left of multi-word administrative prefixes once
// location.Normalize has removed the leading administrative word, as in
// "Municipalidad Provincial de Ica" or "Provincia Constitucional del Callao".
var qualifiers = []string{
	"provincial de",
	"distrital de",
	"metropolitana de",
	"constitucional del",
	"constitucional de",
	"gobierno regional de",
	"gobierno regional del",
	"cercado de",
}

// DefaultAliases maps geocoder spellings to dataset names. Keys are compared
// after normalization.
var DefaultAliases = map[string]string{
	"lima metropolitana": "Lima",
	"cuzco":              "Cusco",
	"nazca":              "Nasca",
}

// BridgeOptions configures NewBridge. Zero values take defaults.
type BridgeOptions struct {
	// Aliases are added to DefaultAliases.
	Aliases        map[string]string
	CacheSize      int
	CacheTTL       time.Duration
	CellResolution int
	// Bounds rejects points outside it; empty accepts the whole globe.
	Bounds spatial.Bounds
	Logger *zap.Logger
}

// Bridge converts geocoder output into dataset locations. It is the only
// place that synthesizes unverified records.
type Bridge struct {
	resolver *location.Resolver
	geocoder ReverseGeocoder
	aliases  map[string]string
	res      int
	bounds   spatial.Bounds
	cache    *expirable.LRU[h3.Cell, cachedReverse]
	logger   *zap.Logger
}

type cachedReverse struct {
	result *ReverseResult
}

// NewBridge returns a Bridge. geocoder may be nil, in which case Locate
// reports ErrGeocoderUnavailable and FromGeocode still works.
func NewBridge(resolver *location.Resolver, geocoder ReverseGeocoder, options BridgeOptions) *Bridge {
	if options.CacheSize <= 0 {
		options.CacheSize = 1024
	}

	if options.CacheTTL <= 0 {
		options.CacheTTL = time.Hour
	}

	if options.CellResolution <= 0 {
		options.CellResolution = 8
	}

	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	aliases := make(map[string]string, len(DefaultAliases)+len(options.Aliases))
	for from, to := range DefaultAliases {
		aliases[location.Normalize(from)] = to
	}

	for from, to := range options.Aliases {
		aliases[location.Normalize(from)] = to
	}

	return &Bridge{
		resolver: resolver,
		geocoder: geocoder,
		aliases:  aliases,
		res:      options.CellResolution,
		bounds:   options.Bounds,
		cache:    expirable.NewLRU[h3.Cell, cachedReverse](options.CacheSize, nil, options.CacheTTL),
		logger:   options.Logger,
	}
}

// HasGeocoder reports whether Locate can reach a reverse geocoder.
func (b *Bridge) HasGeocoder() bool {
	return b.geocoder != nil
}

// Bounds returns the area points must fall in. Empty means anywhere.
func (b *Bridge) Bounds() spatial.Bounds {
	return b.bounds
}

// Clean maps a geocoder name onto the dataset vocabulary. The result is
// still raw text for the resolver.
func (b *Bridge) Clean(raw string) string {
	key := location.Normalize(raw)
	if key == "" {
		return ""
	}

	if to, ok := b.aliases[key]; ok {
		return to
	}

	for _, q := range qualifiers {
		if rest, ok := strings.CutPrefix(key, q+" "); ok && rest != "" {
			key = rest

			break
		}
	}

	if to, ok := b.aliases[key]; ok {
		return to
	}

	return key
}

// FromGeocode resolves raw geocoder text. The point and address are attached
// to the result. When nothing matches it returns an unverified record with
// the raw strings verbatim; when every field is empty it returns nil.
func (b *Bridge) FromGeocode(raw RawLocation, point *spatial.Point) *location.ResolvedLocation {
	specificity := mostSpecific(raw)
	if specificity == 0 {
		return nil
	}

	resolved, step := b.resolver.ResolveStep(b.Clean(raw.Locality), b.Clean(raw.SubRegion), b.Clean(raw.Region))
	if resolved != nil {
		b.logger.Debug("geocoder output resolved",
			zap.String("step", step.String()),
			zap.String("label", resolved.Label()))

		resolved.Address = raw.Address
		resolved.Point = point

		return resolved
	}

	b.logger.Info("geocoder output not in dataset, returning unverified location",
		zap.String("locality", raw.Locality),
		zap.String("subregion", raw.SubRegion),
		zap.String("region", raw.Region))

	return &location.ResolvedLocation{
		Region:      raw.Region,
		SubRegion:   raw.SubRegion,
		Locality:    raw.Locality,
		Specificity: specificity,
		Address:     raw.Address,
		Point:       point,
		Unverified:  true,
	}
}

func mostSpecific(raw RawLocation) location.Level {
	switch {
	case strings.TrimSpace(raw.Locality) != "":
		return location.LevelLocality
	case strings.TrimSpace(raw.SubRegion) != "":
		return location.LevelSubRegion
	case strings.TrimSpace(raw.Region) != "":
		return location.LevelRegion
	default:
		return 0
	}
}

// Locate reverse geocodes point and resolves the result. It returns nil
// without error when the geocoder has nothing at the point, and an error
// wrapping ErrGeocoderUnavailable when the geocoder fails. A result that
// arrives after ctx is done is discarded.
func (b *Bridge) Locate(ctx context.Context, point spatial.Point) (*location.ResolvedLocation, error) {
	if err := point.ValidateWithin(b.bounds); err != nil {
		return nil, err
	}

	if b.geocoder == nil {
		return nil, fmt.Errorf("%w: no geocoder configured", ErrGeocoderUnavailable)
	}

	cell, err := point.Cell(b.res)
	if err != nil {
		return nil, err
	}

	if hit, ok := b.cache.Get(cell); ok {
		b.logger.Debug("reverse geocode cache hit", zap.Stringer("cell", cell))

		return b.fromResult(hit.result, point), nil
	}

	result, err := b.geocoder.ReverseGeocode(ctx, point)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("reverse geocoding %s: %w", point, ctxErr)
	}

	if err != nil {
		if IsNotFoundError(err) {
			b.cache.Add(cell, cachedReverse{})

			return nil, nil
		}

		b.logger.Warn("reverse geocoding failed", zap.Stringer("point", point), zap.Error(err))

		return nil, fmt.Errorf("%w: %w", ErrGeocoderUnavailable, err)
	}

	b.cache.Add(cell, cachedReverse{result: result})

	return b.fromResult(result, point), nil
}

func (b *Bridge) fromResult(result *ReverseResult, point spatial.Point) *location.ResolvedLocation {
	if result == nil {
		return nil
	}

	return b.FromGeocode(result.Raw(), &point)
}

// IsUnavailable reports whether err means the geocoder could not answer.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrGeocoderUnavailable)
}
