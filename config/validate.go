// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, invalid("server.addr", "is required"))
	}

	s := c.Search
	if s.MinQueryRunes < 1 {
		errs = append(errs, invalid("search.min_query_runes", "must be at least 1"))
	}

	if s.FuzzyMinRunes < s.MinQueryRunes {
		errs = append(errs, invalid("search.fuzzy_min_runes", "must not be below min_query_runes"))
	}

	if s.MaxDistance < 0 || s.MaxDistance > 3 {
		errs = append(errs, invalid("search.max_distance", "must be between 0 and 3"))
	}

	if s.DefaultLimit < 1 || s.MaxLimit < s.DefaultLimit {
		errs = append(errs, invalid("search.default_limit", "must be between 1 and max_limit (%d)", s.MaxLimit))
	}

	sg := c.Suggestions
	switch sg.Storage {
	case StorageMemory:
	case StorageDuckDB:
		if sg.DuckDBPath == "" {
			errs = append(errs, invalid("suggestions.duckdb_path", "is required for duckdb storage"))
		}
	case StorageRedis:
		if sg.Redis.Addr == "" {
			errs = append(errs, invalid("suggestions.redis.addr", "is required for redis storage"))
		}
	default:
		errs = append(errs, invalid("suggestions.storage", "must be one of: memory, duckdb, redis (got %q)", sg.Storage))
	}

	if sg.RecentCap < 1 {
		errs = append(errs, invalid("suggestions.recent_cap", "must be at least 1"))
	}

	g := c.Geocoding
	switch g.Provider {
	case GeocoderNone:
	case GeocoderGoogle:
		if g.APIKey == "" && g.ProjectID == "" {
			errs = append(errs, invalid("geocoding.api_key", "set GOOGLE_MAPS_API_KEY or geocoding.project_id"))
		}
	default:
		errs = append(errs, invalid("geocoding.provider", "must be one of: none, google (got %q)", g.Provider))
	}

	if g.CellResolution < 0 || g.CellResolution > 15 {
		errs = append(errs, invalid("geocoding.cell_resolution", "must be between 0 and 15"))
	}

	b := g.Bounds
	if !b.IsZero() && (b.MinLat >= b.MaxLat || b.MinLng >= b.MaxLng) {
		errs = append(errs, invalid("geocoding.bounds", "min must be below max"))
	}

	return errors.Join(errs...)
}
