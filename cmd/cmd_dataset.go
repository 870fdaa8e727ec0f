// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/chambape/ubica/location"
	"github.com/chambape/ubica/ubigeo"
	"github.com/chambape/ubica/utils/httputils"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Administra el dataset de ubicaciones",
}

var datasetValidateCmd = &cobra.Command{
	Use:   "validate [archivo]",
	Short: "Valida un dataset y muestra sus totales",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path := options.DatasetPath
		if len(args) > 0 {
			path = args[0]
		}

		ds, err := loadDataset(path)
		if err != nil {
			return err
		}

		fmt.Println(ds)

		return nil
	},
}

var datasetListCmd = &cobra.Command{
	Use:   "list [departamento]",
	Short: "Lista departamentos, o las provincias y distritos de uno",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ds, err := loadDataset(options.DatasetPath)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			for _, r := range ds.Regions() {
				fmt.Printf("%s  %s\n", r.ID, r.Name)
			}

			return nil
		}

		regions := findRegions(ds, args[0])
		if len(regions) == 0 {
			return fmt.Errorf("unknown region %q", args[0])
		}

		for _, r := range regions {
			fmt.Printf("%s  %s\n", r.ID, r.Name)

			for _, s := range ds.SubRegionsOf(r) {
				fmt.Printf("  %s  %s\n", s.ID, s.Name)

				for _, l := range ds.LocalitiesOf(s) {
					fmt.Printf("    %s  %s\n", l.ID, l.Name)
				}
			}
		}

		return nil
	},
}

// findRegions returns the regions named or numbered by arg. The dataset's
// slices are shared, so the result is a copy.
func findRegions(ds *location.Dataset, arg string) []*location.Region {
	regions := slices.Clone(ds.RegionsByKey(location.Normalize(arg)))
	if r := ds.RegionByID(arg); r != nil && !slices.Contains(regions, r) {
		regions = append(regions, r)
	}

	return regions
}

type importOptions struct {
	URL     string
	Output  string
	Version string
	Timeout time.Duration
}

var datasetImportOptions = importOptions{}

var datasetImportCmd = &cobra.Command{
	Use:   "import [archivo.html]",
	Short: "Genera un dataset a partir de la tabla de ubigeos",
	Long: `Lee la tabla HTML de ubigeos, desde un archivo o desde --url, y escribe el
dataset en formato JSON. El resultado se valida antes de escribirse.

$ ubica dataset import ubigeos.html -o location/data/ubigeo.json
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := readUbigeoRows(cmd.Context(), args)
		if err != nil {
			return err
		}

		version := datasetImportOptions.Version
		if version == "" {
			version = time.Now().Format("2006-01-02")
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(rows),
				progressbar.OptionSetDescription("Importing ubigeos"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		src, err := ubigeo.ToSource(version, rows, func() {
			if bar != nil {
				_ = bar.Add(1)
			}
		})
		if err != nil {
			return err
		}

		ds, err := location.Build(src)
		if err != nil {
			return fmt.Errorf("imported dataset is invalid: %w", err)
		}

		var out io.Writer = os.Stdout
		if datasetImportOptions.Output != "" && datasetImportOptions.Output != "-" {
			f, err := os.Create(datasetImportOptions.Output)
			if err != nil {
				return err
			}
			defer f.Close()

			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", " ")

		if err := enc.Encode(src); err != nil {
			return fmt.Errorf("writing dataset: %w", err)
		}

		log.Printf("Imported %s", ds)

		return nil
	},
}

func readUbigeoRows(ctx context.Context, args []string) ([]ubigeo.Row, error) {
	if len(args) > 0 {
		f, err := os.Open(args[0]) // #nosec G304 - path given on the command line
		if err != nil {
			return nil, err
		}
		defer f.Close()

		return ubigeo.Parse(f)
	}

	url := strings.TrimSpace(datasetImportOptions.URL)
	if url == "" {
		return nil, fmt.Errorf("either a file or --url is required")
	}

	client := httputils.NewClient(httputils.ClientOptions{
		Timeout:   datasetImportOptions.Timeout,
		UserAgent: fmt.Sprintf("ubica/%s (+https://github.com/chambape/ubica)", Version),
	})

	return ubigeo.Fetch(ctx, client, url)
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetValidateCmd)
	datasetCmd.AddCommand(datasetListCmd)
	datasetCmd.AddCommand(datasetImportCmd)

	flags := datasetImportCmd.Flags()
	flags.StringVar(&datasetImportOptions.URL, "url", "", "URL de la tabla de ubigeos")
	flags.StringVarP(&datasetImportOptions.Output, "output", "o", "-", "Archivo destino")
	flags.StringVar(&datasetImportOptions.Version, "version-tag", "", "Versión del dataset (por defecto la fecha)")
	flags.DurationVar(&datasetImportOptions.Timeout, "timeout", 60*time.Second, "Tiempo máximo de descarga")
}
