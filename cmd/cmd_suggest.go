// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chambape/ubica/api"
	"github.com/chambape/ubica/suggest"
)

type suggestOptions struct {
	Owner string
	Limit int
	Label string
	Kind  string
}

var suggestOpts = suggestOptions{}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Consulta y modifica las sugerencias de un usuario",
	Long: `Opera sobre el almacenamiento configurado en suggestions.storage. Con el
almacenamiento en memoria los cambios se pierden al terminar.`,
}

// withStore opens the owner's store and runs fn with it.
func withStore(ctx context.Context, fn func(*app, *suggest.Store) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	registry, err := a.registry(ctx)
	if err != nil {
		return err
	}

	store, err := registry.Get(ctx, suggestOpts.Owner)
	if err != nil {
		return err
	}

	return fn(a, store)
}

// persisted downgrades a persistence failure to a warning: the change was
// applied but is lost on exit.
func persisted(err error) error {
	if errors.Is(err, suggest.ErrPersist) {
		log.Printf("WARNING: %v", err)

		return nil
	}

	return err
}

func printEntries(entries []suggest.Entry) {
	for _, e := range entries {
		flag := ""
		if e.Location.Unverified {
			flag = " (sin verificar)"
		}

		fmt.Printf("%-9s %-36s %s%s\n", e.Kind, e.ID, e.Label, flag)
	}
}

var suggestListCmd = &cobra.Command{
	Use:   "list",
	Short: "Muestra las sugerencias rápidas",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd.Context(), func(_ *app, store *suggest.Store) error {
			printEntries(store.QuickSuggestions(suggestOpts.Limit))

			return nil
		})
	},
}

var suggestRecordCmd = &cobra.Command{
	Use:   "record <ubicación>",
	Short: "Registra la selección de una ubicación",
	Long: `Resuelve la ubicación y la agrega al frente de las selecciones recientes.

$ ubica suggest record --owner ana "Subtanjalla, Ica, Ica"
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(a *app, store *suggest.Store) error {
			in := api.LocationInput{Text: strings.Join(args, " ")}

			loc, _ := in.Resolve(a.resolver)
			if loc == nil {
				return fmt.Errorf("no match for %q", in.Text)
			}

			entry, err := store.RecordSelection(cmd.Context(), *loc)
			if err := persisted(err); err != nil {
				return err
			}

			printEntries([]suggest.Entry{entry})

			return nil
		})
	},
}

var suggestFavoriteCmd = &cobra.Command{
	Use:   "favorite <ubicación>",
	Short: "Agrega una ubicación a los favoritos",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := suggest.ParseKind(suggestOpts.Kind)
		if err != nil {
			return err
		}

		return withStore(cmd.Context(), func(a *app, store *suggest.Store) error {
			in := api.LocationInput{Text: strings.Join(args, " ")}

			loc, _ := in.Resolve(a.resolver)
			if loc == nil {
				return fmt.Errorf("no match for %q", in.Text)
			}

			entry, err := store.AddFavorite(cmd.Context(), *loc, suggestOpts.Label, kind)
			if err := persisted(err); err != nil {
				return err
			}

			printEntries([]suggest.Entry{entry})

			return nil
		})
	},
}

var suggestUnfavoriteCmd = &cobra.Command{
	Use:   "unfavorite <id>",
	Short: "Quita un favorito",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(_ *app, store *suggest.Store) error {
			return persisted(store.RemoveFavorite(cmd.Context(), args[0]))
		})
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.AddCommand(suggestListCmd)
	suggestCmd.AddCommand(suggestRecordCmd)
	suggestCmd.AddCommand(suggestFavoriteCmd)
	suggestCmd.AddCommand(suggestUnfavoriteCmd)

	suggestCmd.PersistentFlags().StringVar(&suggestOpts.Owner, "owner", "", "Usuario dueño de las sugerencias")
	_ = suggestCmd.MarkPersistentFlagRequired("owner")
	suggestListCmd.Flags().IntVarP(&suggestOpts.Limit, "limit", "n", 10, "Cantidad de sugerencias")
	suggestFavoriteCmd.Flags().StringVar(&suggestOpts.Label, "label", "", "Nombre a mostrar")
	suggestFavoriteCmd.Flags().StringVar(&suggestOpts.Kind, "kind", "favorite", "favorite o site")
}
