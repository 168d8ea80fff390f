// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and ROSTER_* environment variables.
// - Errors returned by Load wrap this package's sentinel errors.
package config

import (
	"runtime"

	"github.com/okian/roster/internal/domain/weight"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory refresh job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of refresh workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds how many rosters keep a remembered snapshot signature.
	DedupeSize int `koanf:"dedupe_size"`

	// CacheTTLMS is how long generated results are served from cache.
	CacheTTLMS int `koanf:"cache_ttl_ms"`

	// DefaultSize is used when a request carries no size.
	DefaultSize int `koanf:"default_size"`

	// DefaultStrategy is used when a request carries no strategy.
	DefaultStrategy string `koanf:"default_strategy"`

	// Store selects the roster backend: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath is the database file for the sqlite store.
	SQLitePath string `koanf:"sqlite_path"`

	// MaxBodyBytes caps request bodies accepted by the HTTP API.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// Weight coefficients. They must agree with the cooperating scorer.
	TierStep       int     `koanf:"tier_step"`
	SubCoeff       float64 `koanf:"sub_coeff"`
	SecondaryCoeff float64 `koanf:"secondary_coeff"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		QueueSize:       1_024,
		WorkerCount:     runtime.NumCPU(),
		DedupeSize:      10_000,
		CacheTTLMS:      30_000,
		DefaultSize:     15,
		DefaultStrategy: "strength",
		Store:           StoreMemory,
		SQLitePath:      "",
		MaxBodyBytes:    1 << 20,
		TierStep:        weight.TierStep,
		SubCoeff:        weight.SubCoeff,
		SecondaryCoeff:  weight.SecondaryCoeff,
	}
}

// WeightModel returns the weight model described by the configured coefficients.
func (c *Config) WeightModel() weight.Model {
	return weight.Model{
		TierStep:       c.TierStep,
		SubCoeff:       c.SubCoeff,
		SecondaryCoeff: c.SecondaryCoeff,
	}
}
