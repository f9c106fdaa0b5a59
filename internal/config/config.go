// Package config loads cadence settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process settings. Command-line flags override these.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `env:"CADENCE_DB" envDefault:"cadence.db"`

	// Owner is the authenticated owner id. The CLI stands in for an
	// identity provider by reading it from here.
	Owner string `env:"CADENCE_OWNER"`

	// TZ is the IANA zone in which "today" is resolved to a period.
	TZ string `env:"CADENCE_TZ" envDefault:"Local"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `env:"CADENCE_LOG_LEVEL" envDefault:"info"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Location resolves TZ.
func (c Config) Location() (*time.Location, error) {
	if c.TZ == "" || c.TZ == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return nil, fmt.Errorf("CADENCE_TZ: %w", err)
	}
	return loc, nil
}

// Level resolves LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("CADENCE_LOG_LEVEL: %w", err)
	}
	return level, nil
}
