// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chambape/ubica/location"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <texto>",
	Short: "Busca departamentos, provincias y distritos",
	Long: `Busca en el dataset e imprime los resultados ordenados por relevancia.

$ ubica search miraflo
  1  locality     040110   Miraflores, Arequipa, Arequipa           prefix
  2  locality     150122   Miraflores, Lima, Lima                   prefix
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		hits := a.search.Search(strings.Join(args, " "), searchLimit)
		if len(hits) == 0 {
			fmt.Fprintln(os.Stderr, "Sin resultados")

			return nil
		}

		for i, h := range hits {
			tier := h.Tier.String()
			if h.Distance > 0 {
				tier += " (" + strconv.Itoa(h.Distance) + ")"
			}

			fmt.Printf("%3d  %-12s %-8s %-40s %s\n", i+1, h.Level, h.ID, h.Label(), tier)
		}

		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <distrito> [provincia] [departamento]",
	Short: "Resuelve una ubicación a partir de sus partes",
	Long: `Aplica la cascada de resolución e imprime la ubicación como JSON.

$ ubica resolve Subtanjalla Ica Ica
`,
	Args: cobra.RangeArgs(1, 3),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		parts := make([]string, 3)
		copy(parts, args)

		loc, step := a.resolver.ResolveStep(parts[0], parts[1], parts[2])
		if loc == nil {
			return fmt.Errorf("no match for %q", strings.Join(args, ", "))
		}

		out := struct {
			Location *location.ResolvedLocation `json:"location"`
			Step     string                     `json:"step"`
			Label    string                     `json:"label"`
		}{loc, step.String(), loc.Label()}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(resolveCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Cantidad máxima de resultados")
}
