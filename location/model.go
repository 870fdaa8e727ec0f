// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chambape/ubica/spatial"
)

// Level is one of the three administrative levels, from least to most
// specific.
type Level int

const (
	// LevelRegion is a departamento.
	LevelRegion Level = iota + 1
	// LevelSubRegion is a provincia.
	LevelSubRegion
	// LevelLocality is a distrito.
	LevelLocality
)

var levelNames = map[Level]string{
	LevelRegion:    "region",
	LevelSubRegion: "subregion",
	LevelLocality:  "locality",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}

	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel is the inverse of Level.String.
func ParseLevel(s string) (Level, error) {
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return l, nil
		}
	}

	return 0, fmt.Errorf("unknown level %q", s)
}

// MarshalJSON implements json.Marshaler.
func (l Level) MarshalJSON() ([]byte, error) {
	if _, ok := levelNames[l]; !ok {
		return nil, fmt.Errorf("marshaling invalid level %d", int(l))
	}

	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("level must be a string: %w", err)
	}

	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}

	*l = parsed

	return nil
}

// Region is a top level node.
type Region struct {
	ID   string
	Name string
	Key  string

	sortKey []byte
}

// SubRegion belongs to exactly one Region, referenced by RegionID.
type SubRegion struct {
	ID       string
	RegionID string
	Name     string
	Key      string

	sortKey []byte
}

// Locality belongs to exactly one SubRegion, referenced by SubRegionID.
type Locality struct {
	ID          string
	SubRegionID string
	Name        string
	Key         string

	sortKey []byte
}

// ResolvedLocation is what the engine hands out. Levels below Specificity are
// left empty: they are unspecified, not unknown.
type ResolvedLocation struct {
	RegionID    string         `json:"region_id,omitempty"`
	Region      string         `json:"region"`
	SubRegionID string         `json:"subregion_id,omitempty"`
	SubRegion   string         `json:"subregion,omitempty"`
	LocalityID  string         `json:"locality_id,omitempty"`
	Locality    string         `json:"locality,omitempty"`
	Specificity Level          `json:"specificity"`
	Address     string         `json:"address,omitempty"`
	Point       *spatial.Point `json:"point,omitempty"`

	// Unverified marks a record synthesized from external text that did not
	// match the dataset.
	Unverified bool `json:"unverified"`
}

// HasSubRegion reports whether the sub-region level was actually specified.
func (r ResolvedLocation) HasSubRegion() bool {
	return r.Specificity >= LevelSubRegion && r.SubRegion != ""
}

// HasLocality reports whether the locality level was actually specified.
func (r ResolvedLocation) HasLocality() bool {
	return r.Specificity >= LevelLocality && r.Locality != ""
}

// Identity is the normalized region|subregion|locality tuple. Two locations
// with the same identity denote the same place.
func (r ResolvedLocation) Identity() string {
	parts := []string{Normalize(r.Region), "", ""}
	if r.HasSubRegion() {
		parts[1] = Normalize(r.SubRegion)
	}

	if r.HasLocality() {
		parts[2] = Normalize(r.Locality)
	}

	return strings.Join(parts, "|")
}

// Label renders the specified levels, most specific first.
func (r ResolvedLocation) Label() string {
	parts := make([]string, 0, 3)
	if r.HasLocality() {
		parts = append(parts, r.Locality)
	}

	if r.HasSubRegion() {
		parts = append(parts, r.SubRegion)
	}

	if r.Region != "" {
		parts = append(parts, r.Region)
	}

	return strings.Join(parts, ", ")
}

// Filled is a display triple where missing levels borrow the nearest
// specified ancestor name. Specified tells which of them are real.
type Filled struct {
	Region    string
	SubRegion string
	Locality  string
	Specified [3]bool
}

// Fill returns the region-as-stand-in rendering some listing consumers
// expect. The Specified mask keeps placeholders distinguishable.
func (r ResolvedLocation) Fill() Filled {
	f := Filled{
		Region:    r.Region,
		SubRegion: r.SubRegion,
		Locality:  r.Locality,
		Specified: [3]bool{r.Region != "", r.HasSubRegion(), r.HasLocality()},
	}

	if !f.Specified[1] {
		f.SubRegion = f.Region
	}

	if !f.Specified[2] {
		f.Locality = f.SubRegion
	}

	return f
}
