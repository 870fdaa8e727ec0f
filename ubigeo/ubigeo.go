// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

// Package ubigeo imports the published ubigeo table (one row per distrito
// with its provincia and departamento) into a dataset source.
package ubigeo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/chambape/ubica/location"
	"github.com/chambape/ubica/utils/htmlutils"
)

// ErrNoTable is returned when the document has no table with ubigeo codes.
var ErrNoTable = errors.New("no ubigeo table found")

var codeRe = regexp.MustCompile(`^\d{6}$`)

// Row is one distrito.
type Row struct {
	Code      string
	Region    string
	SubRegion string
	Locality  string
}

// Parse reads the first table of an HTML document whose rows start with a
// six digit code followed by the departamento, provincia and distrito
// names. Header and malformed rows are skipped.
func Parse(r io.Reader) ([]Row, error) {
	doc, err := htmlutils.AsNode(r)
	if err != nil {
		return nil, err
	}

	for _, table := range htmlutils.FindAll(doc, "table") {
		cells, err := htmlutils.TableRows(table)
		if err != nil {
			return nil, err
		}

		var rows []Row

		for _, c := range cells {
			if len(c) < 4 || !codeRe.MatchString(c[0]) {
				continue
			}

			rows = append(rows, Row{Code: c[0], Region: c[1], SubRegion: c[2], Locality: c[3]})
		}

		if len(rows) > 0 {
			return rows, nil
		}
	}

	return nil, ErrNoTable
}

// Fetch downloads and parses the table at url.
func Fetch(ctx context.Context, client *http.Client, url string) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	r, err := htmlutils.AsReader(resp)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	return Parse(r)
}

// ToSource groups rows into a dataset source. Names are title cased when
// the table is all upper case. progress, when not nil, is called once per
// row. Conflicting names for the same code are an error; the result still
// has to pass location.Build.
func ToSource(version string, rows []Row, progress func()) (*location.Source, error) {
	src := &location.Source{Version: version}
	regions := make(map[string]string)
	subRegions := make(map[string]string)
	localities := make(map[string]bool)

	for _, row := range rows {
		if progress != nil {
			progress()
		}

		regionID, subRegionID := row.Code[:2], row.Code[:4]

		name, err := keep(regions, regionID, displayName(row.Region))
		if err != nil {
			return nil, err
		}

		if name != "" {
			src.Regions = append(src.Regions, location.SourceRegion{ID: regionID, Name: name})
		}

		name, err = keep(subRegions, subRegionID, displayName(row.SubRegion))
		if err != nil {
			return nil, err
		}

		if name != "" {
			src.SubRegions = append(src.SubRegions, location.SourceSubRegion{ID: subRegionID, Region: regionID, Name: name})
		}

		if localities[row.Code] {
			return nil, fmt.Errorf("duplicate ubigeo %s", row.Code)
		}

		localities[row.Code] = true
		src.Localities = append(src.Localities, location.SourceLocality{
			ID: row.Code, SubRegion: subRegionID, Name: displayName(row.Locality),
		})
	}

	return src, nil
}

// keep records name for id and returns it the first time id is seen.
func keep(seen map[string]string, id, name string) (string, error) {
	prev, ok := seen[id]
	if !ok {
		seen[id] = name

		return name, nil
	}

	if location.Normalize(prev) != location.Normalize(name) {
		return "", fmt.Errorf("ubigeo %s is both %q and %q", id, prev, name)
	}

	return "", nil
}

// connectors stay lower case inside title cased names.
var connectors = map[string]bool{"de": true, "del": true, "la": true, "las": true, "los": true, "y": true, "el": true}

func displayName(raw string) string {
	raw = strings.Join(strings.Fields(raw), " ")
	if raw != strings.ToUpper(raw) {
		return raw
	}

	words := strings.Fields(strings.ToLower(raw))
	for i, w := range words {
		if i > 0 && connectors[w] {
			continue
		}

		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}

	return strings.Join(words, " ")
}
