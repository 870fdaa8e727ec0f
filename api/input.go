// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chambape/ubica/location"
)

// LocationInput is either free text ("Subtanjalla, Ica") or an object with
// locality, subregion and region fields. Free text lists levels most
// specific first, separated by commas.
type LocationInput struct {
	Text      string `json:"-"`
	Locality  string `json:"locality"`
	SubRegion string `json:"subregion"`
	Region    string `json:"region"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (in *LocationInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*in = LocationInput{}

		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*in = LocationInput{Text: s}

		return nil
	case data[0] == '{':
		type fields LocationInput

		var f fields
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}

		*in = LocationInput(f)
		in.Text = ""

		return nil
	default:
		return errors.New("location must be a string or an object")
	}
}

// Resolve runs the input through r. Free text with a single part prefers the
// broadest level it names, as search does: "Ica" is the region.
func (in LocationInput) Resolve(r *location.Resolver) (*location.ResolvedLocation, location.Step) {
	if in.Text == "" {
		return r.ResolveStep(in.Locality, in.SubRegion, in.Region)
	}

	parts := splitLabel(in.Text)

	switch len(parts) {
	case 1:
		if loc := r.MatchRegion(parts[0]); loc != nil {
			return loc, location.StepRegion
		}

		if loc := r.MatchSubRegion(parts[0], ""); loc != nil {
			return loc, location.StepSubRegion
		}

		return r.ResolveStep(parts[0], "", "")
	case 2:
		// The second part is an ancestor of the first: "Subtanjalla, Ica"
		// is a locality, "Chincha, Ica" a sub-region. The second part alone
		// must not win while the first still names something under it.
		if loc := r.MatchTriple(parts[0], parts[1], parts[1]); loc != nil {
			return loc, location.StepTriple
		}

		if loc := r.MatchSubRegion(parts[0], parts[1]); loc != nil {
			return loc, location.StepSubRegion
		}

		if loc := r.MatchLocality(parts[0], parts[1], parts[1]); loc != nil {
			return loc, location.StepLocality
		}

		return r.ResolveStep(parts[0], parts[1], parts[1])
	default:
		return r.ResolveStep(parts[0], parts[1], parts[2])
	}
}

func splitLabel(text string) []string {
	var parts []string

	for p := range strings.SplitSeq(text, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	if len(parts) == 0 {
		return []string{""}
	}

	return parts
}

// resolveRequest is the body of POST /api/locations/resolve. Top level fields
// are used when Location is absent.
type resolveRequest struct {
	Locality  string         `json:"locality"`
	SubRegion string         `json:"subregion"`
	Region    string         `json:"region"`
	Location  *LocationInput `json:"location"`
}

func (r resolveRequest) input() LocationInput {
	if r.Location != nil {
		return *r.Location
	}

	return LocationInput{Locality: r.Locality, SubRegion: r.SubRegion, Region: r.Region}
}

func (in LocationInput) String() string {
	if in.Text != "" {
		return in.Text
	}

	return fmt.Sprintf("%s|%s|%s", in.Locality, in.SubRegion, in.Region)
}
