// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and SCOUT_ env vars on top.
// - Durations are plain seconds so the same keys work in YAML and env.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"slices"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects json or text output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AutoLengthSec and MatchLengthSec are the default period lengths of
	// new matches.
	AutoLengthSec  float64 `koanf:"auto_length_sec"`
	MatchLengthSec float64 `koanf:"match_length_sec"`

	// TickHz is how often running match clocks advance.
	TickHz int `koanf:"tick_hz"`

	// FrameQueueSize bounds the display frame queue.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// WSSendBuffer bounds frames buffered per websocket client.
	WSSendBuffer int `koanf:"ws_send_buffer"`

	// DedupeSize sets how many command ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver selects the snapshot store: memory or postgres.
	StoreDriver string `koanf:"store_driver"`

	// PostgresDSN is required when StoreDriver is postgres.
	PostgresDSN string `koanf:"postgres_dsn"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// ShutdownTimeoutSec bounds graceful HTTP shutdown.
	ShutdownTimeoutSec int `koanf:"shutdown_timeout_sec"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "json",
		Addr:                ":9080",
		AutoLengthSec:       15,
		MatchLengthSec:      135,
		TickHz:              60,
		FrameQueueSize:      1024,
		WSSendBuffer:        16,
		DedupeSize:          100_000,
		StoreDriver:         StoreMemory,
		MaxLeaderboardLimit: 100,
		ShutdownTimeoutSec:  10,
	}
}

// Validate reports the first setting that cannot run.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !slices.Contains(logLevels, c.LogLevel):
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	case c.LogFormat != "json" && c.LogFormat != "text":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.AutoLengthSec <= 0 || c.MatchLengthSec <= c.AutoLengthSec:
		return fmt.Errorf("%w: auto_length_sec %v must be positive and below match_length_sec %v",
			ErrInvalidConfig, c.AutoLengthSec, c.MatchLengthSec)
	case c.TickHz <= 0:
		return fmt.Errorf("%w: tick_hz must be positive", ErrInvalidConfig)
	case c.FrameQueueSize <= 0 || c.WSSendBuffer <= 0 || c.DedupeSize <= 0:
		return fmt.Errorf("%w: queue and cache sizes must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StorePostgres:
		return fmt.Errorf("%w: store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StorePostgres && c.PostgresDSN == "":
		return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
	}
	return nil
}
