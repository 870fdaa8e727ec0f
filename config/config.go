// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the ubica configuration from a YAML file, .env files
// and UBICA_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/chambape/ubica/spatial"
)

// Storage backends for suggestions.
const (
	StorageMemory = "memory"
	StorageDuckDB = "duckdb"
	StorageRedis  = "redis"
)

// Geocoder providers.
const (
	GeocoderNone   = "none"
	GeocoderGoogle = "google"
)

// Config is the whole configuration.
type Config struct {
	// DatasetPath overrides the embedded dataset.
	DatasetPath string            `yaml:"dataset_path"`
	Server      ServerConfig      `yaml:"server"`
	Search      SearchConfig      `yaml:"search"`
	Suggestions SuggestionsConfig `yaml:"suggestions"`
	Geocoding   GeocodingConfig   `yaml:"geocoding"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// SearchConfig tunes the search engine and the API limits.
type SearchConfig struct {
	MinQueryRunes int `yaml:"min_query_runes"`
	FuzzyMinRunes int `yaml:"fuzzy_min_runes"`
	MaxDistance   int `yaml:"max_distance"`
	DefaultLimit  int `yaml:"default_limit"`
	MaxLimit      int `yaml:"max_limit"`
}

// SuggestionsConfig selects the suggestion storage.
type SuggestionsConfig struct {
	Storage    string        `yaml:"storage"`
	DuckDBPath string        `yaml:"duckdb_path"`
	Redis      RedisConfig   `yaml:"redis"`
	RecentCap  int           `yaml:"recent_cap"`
	Popular    []string      `yaml:"popular"`
	CacheSize  int           `yaml:"cache_size"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// RedisConfig holds the redis connection for the redis storage.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// GeocodingConfig configures reverse geocoding.
type GeocodingConfig struct {
	Provider       string            `yaml:"provider"`
	// APIKey is usually given through GOOGLE_MAPS_API_KEY. When empty the
	// key is looked up with Application Default Credentials in ProjectID.
	APIKey         string            `yaml:"api_key"`
	ProjectID      string            `yaml:"project_id"`
	// KeyName is the display name of the API Keys resource.
	KeyName        string            `yaml:"key_name"`
	Language       string            `yaml:"language"`
	Timeout        time.Duration     `yaml:"timeout"`
	CacheSize      int               `yaml:"cache_size"`
	CacheTTL       time.Duration     `yaml:"cache_ttl"`
	CellResolution int               `yaml:"cell_resolution"`
	Aliases        map[string]string `yaml:"aliases"`
	Bounds         spatial.Bounds    `yaml:"bounds"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			MinQueryRunes: 2,
			FuzzyMinRunes: 4,
			MaxDistance:   2,
			DefaultLimit:  10,
			MaxLimit:      50,
		},
		Suggestions: SuggestionsConfig{
			Storage:    StorageMemory,
			DuckDBPath: "ubica.db",
			Redis:      RedisConfig{Addr: "localhost:6379", Prefix: "ubica:suggestions:"},
			RecentCap:  10,
			Popular:    []string{"Lima", "Arequipa", "Cusco", "La Libertad", "Piura"},
			CacheSize:  4096,
			CacheTTL:   30 * time.Minute,
		},
		Geocoding: GeocodingConfig{
			Provider:       GeocoderNone,
			KeyName:        "Ubica Geocoding Key",
			Language:       "es",
			Timeout:        10 * time.Second,
			CacheSize:      1024,
			CacheTTL:       time.Hour,
			CellResolution: 8,
			Bounds:         spatial.PeruBounds,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the command line
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFiles loads ENV_FILE when set, otherwise .env.local and .env.
// Missing files are ignored. Variables already set are never overridden.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}

		return nil
	}

	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}

	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	texts := map[string]*string{
		"UBICA_DATASET_PATH":   &c.DatasetPath,
		"UBICA_ADDR":           &c.Server.Addr,
		"UBICA_STORAGE":        &c.Suggestions.Storage,
		"UBICA_DUCKDB_PATH":    &c.Suggestions.DuckDBPath,
		"UBICA_REDIS_ADDR":     &c.Suggestions.Redis.Addr,
		"UBICA_REDIS_PASSWORD": &c.Suggestions.Redis.Password,
		"UBICA_GEOCODER":       &c.Geocoding.Provider,
		"UBICA_GCP_PROJECT":    &c.Geocoding.ProjectID,
		"GOOGLE_MAPS_API_KEY":  &c.Geocoding.APIKey,
	}

	for name, dst := range texts {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"UBICA_REDIS_DB":   &c.Suggestions.Redis.DB,
		"UBICA_RECENT_CAP": &c.Suggestions.RecentCap,
	}

	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		*dst = n
	}

	return nil
}
