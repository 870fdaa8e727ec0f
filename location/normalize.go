// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// noiseTokens are administrative qualifiers that geocoders and users attach
// to names ("Ica Region", "Provincia de Pisco"). They carry no identity.
var noiseTokens = map[string]bool{
	"region":        true,
	"departamento":  true,
	"department":    true,
	"provincia":     true,
	"province":      true,
	"distrito":      true,
	"district":      true,
	"municipalidad": true,
}

// connectors may follow a leading qualifier: "provincia de", "region del".
var connectors = map[string]bool{
	"de":  true,
	"del": true,
	"of":  true,
}

// Normalize returns the comparison key of a name: accents removed, case
// folded, punctuation turned into spaces, whitespace collapsed and leading or
// trailing administrative qualifiers stripped. It never fails and
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	// Folding can reintroduce marks (İ folds to i plus a combining dot), so
	// marks are removed again afterwards.
	folded, _, err := transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			cases.Fold(),
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		text,
	)
	if err != nil {
		folded = strings.ToLower(text)
	}

	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	return strings.Join(stripNoise(tokens), " ")
}

// stripNoise removes qualifiers from both ends until none is left, keeping at
// least one token.
func stripNoise(tokens []string) []string {
	for {
		n := len(tokens)

		if n > 1 && noiseTokens[tokens[n-1]] {
			tokens = tokens[:n-1]

			continue
		}

		if n > 1 && noiseTokens[tokens[0]] {
			rest := tokens[1:]
			if len(rest) > 1 && connectors[rest[0]] {
				rest = rest[1:]
			}

			tokens = rest

			continue
		}

		return tokens
	}
}
