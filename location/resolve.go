// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package location

// Step identifies which stage of the cascade produced a resolution.
type Step int

const (
	// StepNone means nothing matched.
	StepNone Step = iota
	// StepTriple is an exact match of all three levels.
	StepTriple
	// StepLocality is an exact locality match with its true ancestors.
	StepLocality
	// StepSubRegion is an exact sub-region match.
	StepSubRegion
	// StepRegion is an exact region match.
	StepRegion
	// StepFuzzy is a top-tier search hit.
	StepFuzzy
)

func (s Step) String() string {
	switch s {
	case StepTriple:
		return "triple"
	case StepLocality:
		return "locality"
	case StepSubRegion:
		return "subregion"
	case StepRegion:
		return "region"
	case StepFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Resolver turns a raw (locality, sub-region, region) triple into a dataset
// node. An empty string means the level was not supplied. Resolver is
// stateless and safe for concurrent use.
type Resolver struct {
	ds     *Dataset
	search *SearchEngine
}

// NewResolver returns a Resolver over ds. search is used for the fuzzy step;
// when nil an engine with default options is built.
func NewResolver(ds *Dataset, search *SearchEngine) *Resolver {
	if search == nil {
		search = NewSearchEngine(ds)
	}

	return &Resolver{ds: ds, search: search}
}

// Dataset returns the dataset the resolver matches against.
func (r *Resolver) Dataset() *Dataset {
	return r.ds
}

// Resolve runs the cascade and returns nil when no step matches.
func (r *Resolver) Resolve(locality, subregion, region string) *ResolvedLocation {
	loc, _ := r.ResolveStep(locality, subregion, region)

	return loc
}

// ResolveStep is Resolve that also reports the matching step.
func (r *Resolver) ResolveStep(locality, subregion, region string) (*ResolvedLocation, Step) {
	l, s, g := Normalize(locality), Normalize(subregion), Normalize(region)

	if loc := r.matchTriple(l, s, g); loc != nil {
		return loc, StepTriple
	}

	if loc := r.matchLocality(l, s, g); loc != nil {
		return loc, StepLocality
	}

	if loc := r.matchSubRegion(s, g); loc != nil {
		return loc, StepSubRegion
	}

	if loc := r.matchRegion(g); loc != nil {
		return loc, StepRegion
	}

	if loc := r.MatchFuzzy(locality, subregion, region); loc != nil {
		return loc, StepFuzzy
	}

	return nil, StepNone
}

// MatchTriple succeeds when all three inputs name a real path.
func (r *Resolver) MatchTriple(locality, subregion, region string) *ResolvedLocation {
	return r.matchTriple(Normalize(locality), Normalize(subregion), Normalize(region))
}

func (r *Resolver) matchTriple(l, s, g string) *ResolvedLocation {
	if l == "" || s == "" || g == "" {
		return nil
	}

	for _, cand := range r.ds.LocalitiesByKey(l) {
		sub := r.ds.SubRegionOf(cand)
		if sub.Key != s {
			continue
		}

		if r.ds.RegionOf(sub).Key != g {
			continue
		}

		loc := r.ds.LocalityLocation(cand)

		return &loc
	}

	return nil
}

// MatchLocality matches the locality alone and returns its true ancestors.
// An ambiguous name is narrowed by the supplied region, then sub-region; if
// it stays ambiguous the step fails.
func (r *Resolver) MatchLocality(locality, subregion, region string) *ResolvedLocation {
	return r.matchLocality(Normalize(locality), Normalize(subregion), Normalize(region))
}

func (r *Resolver) matchLocality(l, s, g string) *ResolvedLocation {
	if l == "" {
		return nil
	}

	cands := r.ds.LocalitiesByKey(l)

	if len(cands) > 1 && g != "" {
		cands = narrow(cands, func(c *Locality) bool {
			return r.ds.RegionOf(r.ds.SubRegionOf(c)).Key == g
		})
	}

	if len(cands) > 1 && s != "" {
		cands = narrow(cands, func(c *Locality) bool {
			return r.ds.SubRegionOf(c).Key == s
		})
	}

	if len(cands) != 1 {
		return nil
	}

	loc := r.ds.LocalityLocation(cands[0])

	return &loc
}

// MatchSubRegion matches the sub-region, restricted to the supplied region
// when that region exists. The locality is left unspecified.
func (r *Resolver) MatchSubRegion(subregion, region string) *ResolvedLocation {
	return r.matchSubRegion(Normalize(subregion), Normalize(region))
}

func (r *Resolver) matchSubRegion(s, g string) *ResolvedLocation {
	if s == "" {
		return nil
	}

	cands := r.ds.SubRegionsByKey(s)

	if g != "" && len(r.ds.RegionsByKey(g)) > 0 {
		var scoped []*SubRegion

		for _, c := range cands {
			if r.ds.RegionOf(c).Key == g {
				scoped = append(scoped, c)
			}
		}

		cands = scoped
	}

	if len(cands) != 1 {
		return nil
	}

	loc := r.ds.SubRegionLocation(cands[0])

	return &loc
}

// MatchRegion matches the region alone.
func (r *Resolver) MatchRegion(region string) *ResolvedLocation {
	return r.matchRegion(Normalize(region))
}

func (r *Resolver) matchRegion(g string) *ResolvedLocation {
	if g == "" {
		return nil
	}

	cands := r.ds.RegionsByKey(g)
	if len(cands) != 1 {
		return nil
	}

	loc := r.ds.RegionLocation(cands[0])

	return &loc
}

// MatchFuzzy searches the most specific non-empty input and accepts the best
// hit only when it is an exact or prefix match. Two top hits sharing the same
// name are ambiguous and rejected.
func (r *Resolver) MatchFuzzy(locality, subregion, region string) *ResolvedLocation {
	var text string

	for _, in := range []string{locality, subregion, region} {
		if Normalize(in) != "" {
			text = in

			break
		}
	}

	if text == "" {
		return nil
	}

	hits := r.search.Search(text, 2)
	if len(hits) == 0 || hits[0].Tier > TierPrefix {
		return nil
	}

	if len(hits) == 2 && hits[1].Tier == hits[0].Tier &&
		hits[1].Level == hits[0].Level && Normalize(hits[1].Name) == Normalize(hits[0].Name) {
		return nil
	}

	loc := hits[0].Location()

	return &loc
}

// narrow keeps the candidates matching keep, unless none does.
func narrow[T any](cands []T, keep func(T) bool) []T {
	var out []T

	for _, c := range cands {
		if keep(c) {
			out = append(out, c)
		}
	}

	if len(out) == 0 {
		return cands
	}

	return out
}
