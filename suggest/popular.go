// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package suggest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chambape/ubica/location"
)

// PopularEntries resolves configured place names. Each name lists its levels
// most specific first, separated by commas: "Lima", "Ica, Ica" or
// "Miraflores, Lima, Lima". Ranks follow the order of names. Names that do
// not resolve exactly are reported together in the error.
func PopularEntries(resolver *location.Resolver, names []string) ([]Entry, error) {
	var (
		entries []Entry
		errs    []error
	)

	for i, name := range names {
		loc := resolvePopular(resolver, name)
		if loc == nil {
			errs = append(errs, fmt.Errorf("popular location %q: %w", name, ErrInvalidLocation))

			continue
		}

		entries = append(entries, Entry{
			ID:       fmt.Sprintf("popular-%d", i+1),
			Kind:     KindPopular,
			Location: *loc,
			Label:    loc.Label(),
			Rank:     i + 1,
		})
	}

	return entries, errors.Join(errs...)
}

func resolvePopular(resolver *location.Resolver, name string) *location.ResolvedLocation {
	parts := strings.Split(name, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch len(parts) {
	case 1:
		return resolver.MatchRegion(parts[0])
	case 2:
		return resolver.MatchSubRegion(parts[0], parts[1])
	case 3:
		return resolver.MatchTriple(parts[0], parts[1], parts[2])
	default:
		return nil
	}
}
