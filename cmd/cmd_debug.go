// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chambape/ubica/geocoding"
	"github.com/chambape/ubica/location"
)

// isTerminal reports whether f is a character device. If we can't tell,
// we say that it isn't.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

// eachLine feeds every stdin line to fn and prints the line followed by the
// result.
func eachLine(prompt string, fn func(string) string) error {
	input := os.Stdin
	if isTerminal(input) {
		fmt.Fprintln(os.Stderr, prompt)
	}

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Printf("%s\t%q\n", line, fn(line))
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

var debugNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Muestra la clave de comparación de cada línea",
	Long: `Lee un texto por línea, e imprime en stdout el texto seguido de su forma
normalizada.

$ echo "Distrito de Ñaña  " | ubica debug normalize
Distrito de Ñaña  	"nana"
	`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return eachLine("Ingrese textos a normalizar, uno por línea…", location.Normalize)
	},
}

var debugCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Aplica la limpieza de nombres de geocodificación",
	Long: `Lee un nombre devuelto por un geocodificador por línea e imprime la forma
que se usa para buscarlo en el dataset.

$ echo "Provincia de Nazca" | ubica debug clean
Provincia de Nazca	"Nasca"
	`,
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		bridge := geocoding.NewBridge(a.resolver, nil, geocoding.BridgeOptions{
			Aliases: a.cfg.Geocoding.Aliases,
			Logger:  a.logger,
		})

		return eachLine("Ingrese nombres a limpiar, uno por línea…", bridge.Clean)
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugNormalizeCmd)
	debugCmd.AddCommand(debugCleanCmd)
}
