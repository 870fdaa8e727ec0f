// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

//go:embed data/ubigeo.json
var embeddedDataset []byte

// Source is the on-disk format of a dataset. Children reference their parent
// by ID.
type Source struct {
	Version    string            `json:"version"`
	Regions    []SourceRegion    `json:"regions"`
	SubRegions []SourceSubRegion `json:"subregions"`
	Localities []SourceLocality  `json:"localities"`
}

// SourceRegion is a region record.
type SourceRegion struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SourceSubRegion is a sub-region record.
type SourceSubRegion struct {
	ID     string `json:"id"`
	Region string `json:"region"`
	Name   string `json:"name"`
}

// SourceLocality is a locality record.
type SourceLocality struct {
	ID        string `json:"id"`
	SubRegion string `json:"subregion"`
	Name      string `json:"name"`
}

// Dataset is the loaded hierarchy. It is never mutated after Load returns, so
// every method is safe for concurrent use.
type Dataset struct {
	version string

	regions    []*Region
	subregions []*SubRegion
	localities []*Locality

	regionByID    map[string]*Region
	subregionByID map[string]*SubRegion
	localityByID  map[string]*Locality

	childrenOfRegion    map[string][]*SubRegion
	childrenOfSubRegion map[string][]*Locality

	regionsByKey    map[string][]*Region
	subregionsByKey map[string][]*SubRegion
	localitiesByKey map[string][]*Locality
}

// Stats counts the nodes per level.
type Stats struct {
	Regions    int
	SubRegions int
	Localities int
}

// Load decodes a JSON Source and builds the dataset.
func Load(r io.Reader) (*Dataset, error) {
	var src Source
	if err := json.NewDecoder(r).Decode(&src); err != nil {
		return nil, &LoadError{Kind: LoadErrorUnreadable, Message: "decoding source", Err: err}
	}

	return Build(&src)
}

// LoadFile loads a dataset from a JSON file.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, &LoadError{Kind: LoadErrorUnreadable, Message: "opening " + path, Err: err}
	}
	defer f.Close()

	return Load(f)
}

var defaultDataset = sync.OnceValues(func() (*Dataset, error) {
	return Load(bytes.NewReader(embeddedDataset))
})

// Default returns the dataset embedded in the binary. It is loaded once.
func Default() (*Dataset, error) {
	return defaultDataset()
}

// Build validates src and indexes it.
func Build(src *Source) (*Dataset, error) {
	ds := &Dataset{
		version:             src.Version,
		regionByID:          make(map[string]*Region, len(src.Regions)),
		subregionByID:       make(map[string]*SubRegion, len(src.SubRegions)),
		localityByID:        make(map[string]*Locality, len(src.Localities)),
		childrenOfRegion:    make(map[string][]*SubRegion, len(src.Regions)),
		childrenOfSubRegion: make(map[string][]*Locality, len(src.SubRegions)),
		regionsByKey:        make(map[string][]*Region, len(src.Regions)),
		subregionsByKey:     make(map[string][]*SubRegion, len(src.SubRegions)),
		localitiesByKey:     make(map[string][]*Locality, len(src.Localities)),
	}

	col := collate.New(language.Spanish, collate.IgnoreCase)
	buf := &collate.Buffer{}

	sortKey := func(name string) []byte {
		key := col.KeyFromString(buf, name)
		out := make([]byte, len(key))
		copy(out, key)
		buf.Reset()

		return out
	}

	if err := ds.addRegions(src.Regions, sortKey); err != nil {
		return nil, err
	}

	if err := ds.addSubRegions(src.SubRegions, sortKey); err != nil {
		return nil, err
	}

	if err := ds.addLocalities(src.Localities, sortKey); err != nil {
		return nil, err
	}

	return ds, nil
}

func checkRecord(level Level, id, name string) error {
	if strings.TrimSpace(id) == "" {
		return malformed(level, id, "empty id for %q", name)
	}

	if strings.TrimSpace(name) == "" {
		return malformed(level, id, "empty name")
	}

	return nil
}

func (ds *Dataset) addRegions(records []SourceRegion, sortKey func(string) []byte) error {
	seen := make(map[string]string, len(records))

	for _, rec := range records {
		if err := checkRecord(LevelRegion, rec.ID, rec.Name); err != nil {
			return err
		}

		if _, dup := ds.regionByID[rec.ID]; dup {
			return malformed(LevelRegion, rec.ID, "duplicate id")
		}

		key := Normalize(rec.Name)
		if other, dup := seen[key]; dup {
			return malformed(LevelRegion, rec.ID, "name %q collides with region %q", rec.Name, other)
		}

		seen[key] = rec.ID

		region := &Region{ID: rec.ID, Name: strings.TrimSpace(rec.Name), Key: key, sortKey: sortKey(rec.Name)}
		ds.regions = append(ds.regions, region)
		ds.regionByID[region.ID] = region
		ds.regionsByKey[key] = append(ds.regionsByKey[key], region)
	}

	return nil
}

func (ds *Dataset) addSubRegions(records []SourceSubRegion, sortKey func(string) []byte) error {
	seen := make(map[string]string, len(records))

	for _, rec := range records {
		if err := checkRecord(LevelSubRegion, rec.ID, rec.Name); err != nil {
			return err
		}

		if _, dup := ds.subregionByID[rec.ID]; dup {
			return malformed(LevelSubRegion, rec.ID, "duplicate id")
		}

		if _, ok := ds.regionByID[rec.Region]; !ok {
			return malformed(LevelSubRegion, rec.ID, "unknown region %q", rec.Region)
		}

		key := Normalize(rec.Name)

		scoped := rec.Region + "/" + key
		if other, dup := seen[scoped]; dup {
			return malformed(LevelSubRegion, rec.ID, "name %q collides with sibling %q", rec.Name, other)
		}

		seen[scoped] = rec.ID

		sub := &SubRegion{
			ID:       rec.ID,
			RegionID: rec.Region,
			Name:     strings.TrimSpace(rec.Name),
			Key:      key,
			sortKey:  sortKey(rec.Name),
		}
		ds.subregions = append(ds.subregions, sub)
		ds.subregionByID[sub.ID] = sub
		ds.childrenOfRegion[sub.RegionID] = append(ds.childrenOfRegion[sub.RegionID], sub)
		ds.subregionsByKey[key] = append(ds.subregionsByKey[key], sub)
	}

	return nil
}

func (ds *Dataset) addLocalities(records []SourceLocality, sortKey func(string) []byte) error {
	seen := make(map[string]string, len(records))

	for _, rec := range records {
		if err := checkRecord(LevelLocality, rec.ID, rec.Name); err != nil {
			return err
		}

		if _, dup := ds.localityByID[rec.ID]; dup {
			return malformed(LevelLocality, rec.ID, "duplicate id")
		}

		if _, ok := ds.subregionByID[rec.SubRegion]; !ok {
			return malformed(LevelLocality, rec.ID, "unknown subregion %q", rec.SubRegion)
		}

		key := Normalize(rec.Name)

		scoped := rec.SubRegion + "/" + key
		if other, dup := seen[scoped]; dup {
			return malformed(LevelLocality, rec.ID, "name %q collides with sibling %q", rec.Name, other)
		}

		seen[scoped] = rec.ID

		loc := &Locality{
			ID:          rec.ID,
			SubRegionID: rec.SubRegion,
			Name:        strings.TrimSpace(rec.Name),
			Key:         key,
			sortKey:     sortKey(rec.Name),
		}
		ds.localities = append(ds.localities, loc)
		ds.localityByID[loc.ID] = loc
		ds.childrenOfSubRegion[loc.SubRegionID] = append(ds.childrenOfSubRegion[loc.SubRegionID], loc)
		ds.localitiesByKey[key] = append(ds.localitiesByKey[key], loc)
	}

	return nil
}

// Version is the source version string.
func (ds *Dataset) Version() string {
	return ds.version
}

// Stats returns node counts.
func (ds *Dataset) Stats() Stats {
	return Stats{
		Regions:    len(ds.regions),
		SubRegions: len(ds.subregions),
		Localities: len(ds.localities),
	}
}

// Regions returns all regions in source order. Callers must not modify the
// returned slice.
func (ds *Dataset) Regions() []*Region {
	return ds.regions
}

// SubRegionsOf returns the sub-regions of r in source order.
func (ds *Dataset) SubRegionsOf(r *Region) []*SubRegion {
	if r == nil {
		return nil
	}

	return ds.childrenOfRegion[r.ID]
}

// LocalitiesOf returns the localities of s in source order.
func (ds *Dataset) LocalitiesOf(s *SubRegion) []*Locality {
	if s == nil {
		return nil
	}

	return ds.childrenOfSubRegion[s.ID]
}

// RegionByID looks a region up by ID.
func (ds *Dataset) RegionByID(id string) *Region {
	return ds.regionByID[id]
}

// SubRegionByID looks a sub-region up by ID.
func (ds *Dataset) SubRegionByID(id string) *SubRegion {
	return ds.subregionByID[id]
}

// LocalityByID looks a locality up by ID.
func (ds *Dataset) LocalityByID(id string) *Locality {
	return ds.localityByID[id]
}

// RegionOf returns the owning region of s.
func (ds *Dataset) RegionOf(s *SubRegion) *Region {
	if s == nil {
		return nil
	}

	return ds.regionByID[s.RegionID]
}

// SubRegionOf returns the owning sub-region of l.
func (ds *Dataset) SubRegionOf(l *Locality) *SubRegion {
	if l == nil {
		return nil
	}

	return ds.subregionByID[l.SubRegionID]
}

// RegionsByKey returns the regions whose normalized name is key. Region names
// are unique, so there is at most one.
func (ds *Dataset) RegionsByKey(key string) []*Region {
	return ds.regionsByKey[key]
}

// SubRegionsByKey returns every sub-region whose normalized name is key,
// across all regions.
func (ds *Dataset) SubRegionsByKey(key string) []*SubRegion {
	return ds.subregionsByKey[key]
}

// LocalitiesByKey returns every locality whose normalized name is key,
// across all sub-regions.
func (ds *Dataset) LocalitiesByKey(key string) []*Locality {
	return ds.localitiesByKey[key]
}

// RegionLocation builds a Region-level ResolvedLocation.
func (ds *Dataset) RegionLocation(r *Region) ResolvedLocation {
	return ResolvedLocation{
		RegionID:    r.ID,
		Region:      r.Name,
		Specificity: LevelRegion,
	}
}

// SubRegionLocation builds a SubRegion-level ResolvedLocation. The locality
// is left unspecified.
func (ds *Dataset) SubRegionLocation(s *SubRegion) ResolvedLocation {
	loc := ds.RegionLocation(ds.RegionOf(s))
	loc.SubRegionID = s.ID
	loc.SubRegion = s.Name
	loc.Specificity = LevelSubRegion

	return loc
}

// LocalityLocation builds a Locality-level ResolvedLocation with the true
// ancestors of l.
func (ds *Dataset) LocalityLocation(l *Locality) ResolvedLocation {
	loc := ds.SubRegionLocation(ds.SubRegionOf(l))
	loc.LocalityID = l.ID
	loc.Locality = l.Name
	loc.Specificity = LevelLocality

	return loc
}

// Verify reports whether loc is a real path through the dataset at its
// declared specificity. Unverified records never verify.
func (ds *Dataset) Verify(loc ResolvedLocation) bool {
	if loc.Unverified {
		return false
	}

	var want ResolvedLocation

	switch loc.Specificity {
	case LevelRegion:
		r := ds.findRegion(loc.RegionID, loc.Region)
		if r == nil {
			return false
		}

		want = ds.RegionLocation(r)
	case LevelSubRegion:
		r := ds.findRegion(loc.RegionID, loc.Region)
		if r == nil {
			return false
		}

		s := ds.findSubRegion(r, loc.SubRegionID, loc.SubRegion)
		if s == nil {
			return false
		}

		want = ds.SubRegionLocation(s)
	case LevelLocality:
		r := ds.findRegion(loc.RegionID, loc.Region)
		if r == nil {
			return false
		}

		s := ds.findSubRegion(r, loc.SubRegionID, loc.SubRegion)
		if s == nil {
			return false
		}

		l := ds.findLocality(s, loc.LocalityID, loc.Locality)
		if l == nil {
			return false
		}

		want = ds.LocalityLocation(l)
	default:
		return false
	}

	return want.Identity() == loc.Identity()
}

func (ds *Dataset) findRegion(id, name string) *Region {
	if id != "" {
		r := ds.regionByID[id]
		if r == nil || (name != "" && r.Key != Normalize(name)) {
			return nil
		}

		return r
	}

	if rs := ds.regionsByKey[Normalize(name)]; len(rs) == 1 {
		return rs[0]
	}

	return nil
}

func (ds *Dataset) findSubRegion(r *Region, id, name string) *SubRegion {
	if id != "" {
		s := ds.subregionByID[id]
		if s == nil || s.RegionID != r.ID || (name != "" && s.Key != Normalize(name)) {
			return nil
		}

		return s
	}

	key := Normalize(name)
	for _, s := range ds.childrenOfRegion[r.ID] {
		if s.Key == key {
			return s
		}
	}

	return nil
}

func (ds *Dataset) findLocality(s *SubRegion, id, name string) *Locality {
	if id != "" {
		l := ds.localityByID[id]
		if l == nil || l.SubRegionID != s.ID || (name != "" && l.Key != Normalize(name)) {
			return nil
		}

		return l
	}

	key := Normalize(name)
	for _, l := range ds.childrenOfSubRegion[s.ID] {
		if l.Key == key {
			return l
		}
	}

	return nil
}

func (ds *Dataset) String() string {
	st := ds.Stats()

	return fmt.Sprintf("dataset %s: %d regions, %d subregions, %d localities",
		ds.version, st.Regions, st.SubRegions, st.Localities)
}
