// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

type rootOptions struct {
	ConfigPath  string
	DatasetPath string
	Storage     string
	Verbose     bool
}

var options = rootOptions{}

var rootCmd = &cobra.Command{
	Use:   "ubica",
	Short: "búsqueda y resolución de ubicaciones del Perú",
	Long: `
ubica busca y resuelve departamentos, provincias y distritos del Perú a partir
de texto libre o de coordenadas, y mantiene las sugerencias rápidas de cada
usuario.
`,
	SilenceUsage: true,
}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&options.DatasetPath, "dataset", "", "dataset JSON file (default: embedded dataset)")
	flags.StringVar(&options.Storage, "storage", "", "suggestions storage: memory, duckdb or redis")
	flags.BoolVarP(&options.Verbose, "verbose", "v", false, "debug logging")
}
