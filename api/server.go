// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes search, resolution, reverse geocoding and suggestions
// over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chambape/ubica/geocoding"
	"github.com/chambape/ubica/location"
	"github.com/chambape/ubica/suggest"
)

// Options configures NewServer. Zero values take defaults.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// DefaultLimit applies when a request has no limit; MaxLimit caps it.
	DefaultLimit int
	MaxLimit     int
	Logger       *zap.Logger
	Metrics      *Metrics
}

// Server holds the engines behind the HTTP routes.
type Server struct {
	ds          *location.Dataset
	search      *location.SearchEngine
	resolver    *location.Resolver
	bridge      *geocoding.Bridge
	suggestions *suggest.Registry
	opts        Options
	logger      *zap.Logger
	metrics     *Metrics
}

// NewServer returns a Server. A nil bridge is replaced by one without a
// reverse geocoder: raw geocoder text is still resolved and coordinate
// lookups answer 503.
func NewServer(resolver *location.Resolver, search *location.SearchEngine, bridge *geocoding.Bridge,
	suggestions *suggest.Registry, opts Options,
) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}

	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = max(50, opts.DefaultLimit)
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}

	if bridge == nil {
		bridge = geocoding.NewBridge(resolver, nil, geocoding.BridgeOptions{Logger: opts.Logger})
	}

	return &Server{
		ds:          resolver.Dataset(),
		search:      search,
		resolver:    resolver,
		bridge:      bridge,
		suggestions: suggestions,
		opts:        opts,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests(), s.metrics.middleware())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.GET("/locations/search", s.searchLocations)
	api.POST("/locations/resolve", s.resolveLocation)
	api.POST("/locations/geocode", s.geocode)
	api.GET("/regions", s.listRegions)
	api.GET("/regions/:id/subregions", s.listSubRegions)
	api.GET("/subregions/:id/localities", s.listLocalities)

	sg := api.Group("/suggestions/:owner")
	sg.GET("", s.quickSuggestions)
	sg.POST("/selections", s.recordSelection)
	sg.POST("/favorites", s.addFavorite)
	sg.DELETE("/favorites/:id", s.removeFavorite)

	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("listening", zap.String("addr", s.opts.Addr), zap.Stringer("dataset", s.ds))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			s.logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			s.logger.Info("request", fields...)
		default:
			s.logger.Debug("request", fields...)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	stats := s.ds.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    s.ds.Version(),
		"regions":    stats.Regions,
		"subregions": stats.SubRegions,
		"localities": stats.Localities,
		"geocoder":   s.bridge.HasGeocoder(),
	})
}
