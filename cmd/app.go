// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chambape/ubica/config"
	"github.com/chambape/ubica/geocoding"
	"github.com/chambape/ubica/location"
	"github.com/chambape/ubica/suggest"
)

// app holds what every command builds from the configuration.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	ds       *location.Dataset
	search   *location.SearchEngine
	resolver *location.Resolver
	closers  []func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(options.ConfigPath)
	if err != nil {
		return nil, err
	}

	if options.DatasetPath != "" {
		cfg.DatasetPath = options.DatasetPath
	}

	if options.Storage != "" {
		cfg.Suggestions.Storage = options.Storage
	}

	return cfg, nil
}

func newLogger() *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)

	if options.Verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		log.Printf("creating logger: %v", err)

		return zap.NewNop()
	}

	return logger
}

func loadDataset(path string) (*location.Dataset, error) {
	if path == "" {
		return location.Default()
	}

	return location.LoadFile(path)
}

// newApp loads the configuration and the dataset. The process must not serve
// anything without a valid dataset.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ds, err := loadDataset(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}

	search := location.NewSearchEngineWithOptions(ds, location.SearchOptions{
		MinQueryRunes: cfg.Search.MinQueryRunes,
		FuzzyMinRunes: cfg.Search.FuzzyMinRunes,
		MaxDistance:   cfg.Search.MaxDistance,
	})

	return &app{
		cfg:      cfg,
		logger:   newLogger(),
		ds:       ds,
		search:   search,
		resolver: location.NewResolver(ds, search),
	}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("closing: %v", err)
		}
	}

	_ = a.logger.Sync()
}

func (a *app) repository(ctx context.Context) (suggest.Repository, error) {
	sc := a.cfg.Suggestions

	switch sc.Storage {
	case config.StorageDuckDB:
		db, err := sql.Open("duckdb", sc.DuckDBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}

		a.closers = append(a.closers, db.Close)

		repo := suggest.NewSQLRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return nil, fmt.Errorf("creating suggestions schema: %w", err)
		}

		return repo, nil
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}

		return suggest.NewRedisRepository(client, sc.Redis.Prefix), nil
	default:
		a.logger.Warn("suggestions are kept in memory and lost on exit")

		return suggest.NewMemoryRepository(), nil
	}
}

func (a *app) registry(ctx context.Context) (*suggest.Registry, error) {
	repo, err := a.repository(ctx)
	if err != nil {
		return nil, err
	}

	popular, err := suggest.PopularEntries(a.resolver, a.cfg.Suggestions.Popular)
	if err != nil {
		return nil, err
	}

	return suggest.NewRegistry(repo, a.ds, suggest.Options{
		RecentCap: a.cfg.Suggestions.RecentCap,
		Popular:   popular,
		Logger:    a.logger,
	}, suggest.RegistryOptions{
		Size: a.cfg.Suggestions.CacheSize,
		TTL:  a.cfg.Suggestions.CacheTTL,
	}), nil
}

// bridge always returns a Bridge. Without a provider it has no reverse
// geocoder: raw geocoder text still resolves, coordinates do not.
func (a *app) bridge(ctx context.Context) (*geocoding.Bridge, error) {
	gc := a.cfg.Geocoding
	bo := geocoding.BridgeOptions{
		Aliases:        gc.Aliases,
		CacheSize:      gc.CacheSize,
		CacheTTL:       gc.CacheTTL,
		CellResolution: gc.CellResolution,
		Bounds:         gc.Bounds,
		Logger:         a.logger,
	}

	if gc.Provider != config.GeocoderGoogle {
		return geocoding.NewBridge(a.resolver, nil, bo), nil
	}

	key, err := geocoding.ResolveAPIKey(ctx, geocoding.APIKeySource{
		Key:         gc.APIKey,
		ProjectID:   gc.ProjectID,
		DisplayName: gc.KeyName,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("google maps api key: %w", err)
	}

	gmo := geocoding.GoogleMapsOptions{Language: gc.Language, Timeout: gc.Timeout}
	if options.Verbose {
		gmo.Trace = os.Stderr
	}

	return geocoding.NewBridge(a.resolver, geocoding.NewGoogleMapsGeocoder(key, gmo), bo), nil
}
