// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chambape/ubica/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expone la búsqueda, resolución y sugerencias por HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !options.Verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		registry, err := a.registry(ctx)
		if err != nil {
			return err
		}

		bridge, err := a.bridge(ctx)
		if err != nil {
			return err
		}

		addr := a.cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := api.NewServer(a.resolver, a.search, bridge, registry, api.Options{
			Addr:         addr,
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
			DefaultLimit: a.cfg.Search.DefaultLimit,
			MaxLimit:     a.cfg.Search.MaxLimit,
			Logger:       a.logger,
		})

		a.logger.Info("serving",
			zap.String("addr", addr),
			zap.Stringer("dataset", a.ds),
			zap.String("storage", a.cfg.Suggestions.Storage),
			zap.Bool("geocoding", bridge.HasGeocoder()),
		)

		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Dirección de escucha (por defecto la de la configuración)")
}
