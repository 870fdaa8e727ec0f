// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "only spaces", input: "   \t ", want: ""},
		{name: "accents and case", input: "Región", want: "region"},
		{name: "plain", input: "region", want: "region"},
		{name: "enie", input: "Cañete", want: "canete"},
		{name: "collapse whitespace", input: "  San   Juan\tBautista ", want: "san juan bautista"},
		{name: "punctuation as space", input: "Chincha-Alta.", want: "chincha alta"},
		{name: "trailing region qualifier", input: "Ica Region", want: "ica"},
		{name: "trailing qualifier with accent", input: "ICA REGIÓN", want: "ica"},
		{name: "leading qualifier with connector", input: "Provincia de Pisco", want: "pisco"},
		{name: "leading departamento", input: "Departamento de Lima", want: "lima"},
		{name: "english qualifier", input: "Arequipa Province", want: "arequipa"},
		{name: "english leading with of", input: "District of Miraflores", want: "miraflores"},
		{name: "both ends", input: "Distrito de Santiago Distrito", want: "santiago"},
		{name: "connector kept inside", input: "San José de los Molinos", want: "san jose de los molinos"},
		{name: "qualifier alone is kept", input: "Distrito", want: "distrito"},
		{name: "qualifier and connector never empty", input: "Región de", want: "de"},
		{name: "digits kept", input: "Veintiseis de Octubre 26", want: "veintiseis de octubre 26"},
		{name: "dotted capital i", input: "İca", want: "ica"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Región",
		"Ica Region",
		"Provincia de Pisco",
		"region de de ica",
		"ica de region",
		"Región de",
		"Straße",
		"Ñuñoa",
		"  ÁÉÍÓÚ  ü ",
		"Provincia Constitucional del Callao",
		"東京",
	}

	ds, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	for _, r := range ds.Regions() {
		inputs = append(inputs, r.Name)

		for _, s := range ds.SubRegionsOf(r) {
			inputs = append(inputs, s.Name)

			for _, l := range ds.LocalitiesOf(s) {
				inputs = append(inputs, l.Name)
			}
		}
	}

	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeInsensitive(t *testing.T) {
	pairs := [][2]string{
		{"Región", "region"},
		{"JUNÍN", "junin"},
		{"Túpac Amaru Inca", "tupac amaru inca"},
		{"Ica Region", "ica"},
		{"Departamento de Ica", "Ica"},
	}

	for _, p := range pairs {
		if Normalize(p[0]) != Normalize(p[1]) {
			t.Errorf("Normalize(%q) = %q, Normalize(%q) = %q", p[0], Normalize(p[0]), p[1], Normalize(p[1]))
		}
	}
}
