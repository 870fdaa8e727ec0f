// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"bytes"
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Tier is the match class of a SearchHit. Lower is better and tiers are never
// interleaved in results.
type Tier int

const (
	// TierExact means the normalized name equals the query.
	TierExact Tier = iota + 1
	// TierPrefix means the normalized name starts with the query.
	TierPrefix
	// TierContains means the normalized name contains the query.
	TierContains
	// TierFuzzy means the normalized name is within the edit distance bound.
	TierFuzzy
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPrefix:
		return "prefix"
	case TierContains:
		return "contains"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// SearchOptions tunes the thresholds. Tier order is fixed.
type SearchOptions struct {
	// MinQueryRunes is the shortest normalized query that is searched.
	MinQueryRunes int
	// FuzzyMinRunes is the shortest normalized query that gets a fuzzy tier.
	FuzzyMinRunes int
	// MaxDistance is the largest Levenshtein distance accepted by the fuzzy
	// tier.
	MaxDistance int
}

// DefaultSearchOptions returns the thresholds used by NewSearchEngine.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		MinQueryRunes: 2,
		FuzzyMinRunes: 4,
		MaxDistance:   2,
	}
}

// SearchHit is a ranked node.
type SearchHit struct {
	Level Level  `json:"level"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	// Ancestors holds the parent names, nearest first.
	Ancestors []string `json:"ancestors,omitempty"`
	Tier      Tier     `json:"tier"`
	// Distance is the edit distance for fuzzy hits, zero otherwise.
	Distance int     `json:"distance,omitempty"`
	Score    float64 `json:"score"`

	location ResolvedLocation
}

// Location returns the node as a verified ResolvedLocation at its own level.
func (h SearchHit) Location() ResolvedLocation {
	return h.location
}

// Label renders the hit with its ancestors, as shown to users.
func (h SearchHit) Label() string {
	return strings.Join(append([]string{h.Name}, h.Ancestors...), ", ")
}

type candidate struct {
	level     Level
	id        string
	name      string
	key       string
	runes     int
	sortKey   []byte
	ancestors []string
	location  ResolvedLocation
}

// SearchEngine ranks dataset nodes against free text. It holds no mutable
// state and is safe for concurrent use.
type SearchEngine struct {
	opts       SearchOptions
	candidates []candidate
}

// NewSearchEngine indexes every node of ds with the default options.
func NewSearchEngine(ds *Dataset) *SearchEngine {
	return NewSearchEngineWithOptions(ds, DefaultSearchOptions())
}

// NewSearchEngineWithOptions indexes every node of ds. Non-positive option
// fields take their defaults.
func NewSearchEngineWithOptions(ds *Dataset, opts SearchOptions) *SearchEngine {
	def := DefaultSearchOptions()
	if opts.MinQueryRunes <= 0 {
		opts.MinQueryRunes = def.MinQueryRunes
	}

	if opts.FuzzyMinRunes <= 0 {
		opts.FuzzyMinRunes = def.FuzzyMinRunes
	}

	if opts.MaxDistance <= 0 {
		opts.MaxDistance = def.MaxDistance
	}

	st := ds.Stats()
	e := &SearchEngine{
		opts:       opts,
		candidates: make([]candidate, 0, st.Regions+st.SubRegions+st.Localities),
	}

	for _, r := range ds.Regions() {
		e.candidates = append(e.candidates, candidate{
			level:    LevelRegion,
			id:       r.ID,
			name:     r.Name,
			key:      r.Key,
			runes:    utf8.RuneCountInString(r.Key),
			sortKey:  r.sortKey,
			location: ds.RegionLocation(r),
		})

		for _, s := range ds.SubRegionsOf(r) {
			e.candidates = append(e.candidates, candidate{
				level:     LevelSubRegion,
				id:        s.ID,
				name:      s.Name,
				key:       s.Key,
				runes:     utf8.RuneCountInString(s.Key),
				sortKey:   s.sortKey,
				ancestors: []string{r.Name},
				location:  ds.SubRegionLocation(s),
			})

			for _, l := range ds.LocalitiesOf(s) {
				e.candidates = append(e.candidates, candidate{
					level:     LevelLocality,
					id:        l.ID,
					name:      l.Name,
					key:       l.Key,
					runes:     utf8.RuneCountInString(l.Key),
					sortKey:   l.sortKey,
					ancestors: []string{s.Name, r.Name},
					location:  ds.LocalityLocation(l),
				})
			}
		}
	}

	return e
}

// Options returns the thresholds in use.
func (e *SearchEngine) Options() SearchOptions {
	return e.opts
}

// Search returns at most limit hits ordered by tier, then display name, then
// level, then ID. It never fails: blank, short or unmatched queries and
// non-positive limits yield an empty result.
func (e *SearchEngine) Search(query string, limit int) []SearchHit {
	if limit <= 0 {
		return nil
	}

	q := Normalize(query)

	qRunes := utf8.RuneCountInString(q)
	if qRunes < e.opts.MinQueryRunes {
		return nil
	}

	fuzzy := qRunes >= e.opts.FuzzyMinRunes

	var hits []scored

	for i := range e.candidates {
		c := &e.candidates[i]

		tier, dist := e.rank(c, q, qRunes, fuzzy)
		if tier == 0 {
			continue
		}

		hits = append(hits, scored{c: c, tier: tier, dist: dist})
	}

	slices.SortFunc(hits, func(a, b scored) int {
		return cmp.Or(
			cmp.Compare(a.tier, b.tier),
			bytes.Compare(a.c.sortKey, b.c.sortKey),
			cmp.Compare(a.c.level, b.c.level),
			strings.Compare(a.c.id, b.c.id),
		)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	result := make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		result = append(result, SearchHit{
			Level:     h.c.level,
			ID:        h.c.id,
			Name:      h.c.name,
			Ancestors: slices.Clone(h.c.ancestors),
			Tier:      h.tier,
			Distance:  h.dist,
			Score:     score(h.tier, h.dist),
			location:  h.c.location,
		})
	}

	return result
}

type scored struct {
	c    *candidate
	tier Tier
	dist int
}

func (e *SearchEngine) rank(c *candidate, q string, qRunes int, fuzzy bool) (Tier, int) {
	switch {
	case c.key == q:
		return TierExact, 0
	case strings.HasPrefix(c.key, q):
		return TierPrefix, 0
	case strings.Contains(c.key, q):
		return TierContains, 0
	case !fuzzy:
		return 0, 0
	}

	if diff := c.runes - qRunes; diff > e.opts.MaxDistance || -diff > e.opts.MaxDistance {
		return 0, 0
	}

	if d := levenshtein.ComputeDistance(c.key, q); d <= e.opts.MaxDistance {
		return TierFuzzy, d
	}

	return 0, 0
}

func score(t Tier, dist int) float64 {
	switch t {
	case TierExact:
		return 1.0
	case TierPrefix:
		return 0.8
	case TierContains:
		return 0.6
	case TierFuzzy:
		return max(0.4-0.1*float64(dist-1), 0.1)
	default:
		return 0
	}
}
