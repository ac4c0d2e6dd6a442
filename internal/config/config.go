// Package config loads the infobase YAML configuration with environment
// variable expansion.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/roach88/infobase/internal/query"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// DefaultPath is the SQLite database used when none is configured.
const DefaultPath = "infobase.db"

// Config is the complete infobase configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
	Listing ListingConfig `yaml:"listing"`
}

// StoreConfig selects and locates the backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// LogConfig sets the slog level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ListingConfig holds listing defaults.
type ListingConfig struct {
	// DefaultLimit replaces the built-in page size when a listing
	// request names no limit. Zero keeps the built-in default.
	DefaultLimit int `yaml:"default_limit"`
}

// Default returns the configuration used without a config file.
func Default() Config {
	return Config{
		Store:   StoreConfig{Backend: BackendSQLite, Path: DefaultPath},
		Log:     LogConfig{Level: "info"},
		Listing: ListingConfig{DefaultLimit: query.DefaultLimit},
	}
}

// Validate implements validation.Validatable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Store),
		validation.Field(&c.Log),
		validation.Field(&c.Listing),
	)
}

// Validate implements validation.Validatable.
func (c StoreConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendSQLite, BackendMemory)),
		validation.Field(&c.Path, validation.When(c.Backend == BackendSQLite, validation.Required)),
	)
}

// Validate implements validation.Validatable.
func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.By(func(any) error {
			_, err := c.SlogLevel()
			return err
		})),
	)
}

// Validate implements validation.Validatable.
func (c ListingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DefaultLimit, validation.Min(0)),
	)
}

// SlogLevel parses Level. An empty level is info.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", c.Level)
	}
	return level, nil
}

// ApplyListing sets the configured default page size on q when q names
// no limit.
func (c Config) ApplyListing(q query.Query) query.Query {
	if q.Limit == nil && c.Listing.DefaultLimit > 0 {
		return q.WithLimit(c.Listing.DefaultLimit)
	}
	return q
}

// Load reads filename over the defaults. ${VAR} references are expanded
// from the environment before parsing.
func Load(filename string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOptional loads filename when it exists and returns the defaults
// otherwise. An empty filename also yields the defaults.
func LoadOptional(filename string) (Config, error) {
	if filename == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(filename)
}
