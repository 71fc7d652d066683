package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/history"
	"github.com/dshills/blockevents/internal/log"
)

// Diagnostic modes.
const (
	// ModeDevelopment panics on grouping protocol violations.
	ModeDevelopment = "development"

	// ModeProduction logs grouping protocol violations and proceeds.
	ModeProduction = "production"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BLOCKEVENTS_"

// Config is the complete application configuration.
type Config struct {
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	History     HistoryConfig     `toml:"history"`
	Log         LogConfig         `toml:"log"`
	Metrics     MetricsConfig     `toml:"metrics"`
}

// DiagnosticsConfig selects how coordinator diagnostics are reported.
type DiagnosticsConfig struct {
	Mode string `toml:"mode"`
}

// HistoryConfig configures the undo/redo stack.
type HistoryConfig struct {
	MaxEntries int `toml:"max_entries"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level   string `toml:"level"`
	Service string `toml:"service"`
}

// MetricsConfig toggles Prometheus counters.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Diagnostics: DiagnosticsConfig{Mode: ModeProduction},
		History:     HistoryConfig{MaxEntries: history.DefaultMaxEntries},
		Log:         LogConfig{Level: "info", Service: "blockevents"},
		Metrics:     MetricsConfig{Enabled: true},
	}
}

// Validate checks every section and returns the first problem found.
func (c Config) Validate() error {
	switch c.Diagnostics.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return &ValidationError{
			Key:     "diagnostics.mode",
			Message: fmt.Sprintf("must be %q or %q, got %q", ModeDevelopment, ModeProduction, c.Diagnostics.Mode),
		}
	}
	if c.History.MaxEntries < 0 {
		return &ValidationError{Key: "history.max_entries", Message: "must not be negative"}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return &ValidationError{Key: "log.level", Message: err.Error()}
	}
	return nil
}

// ApplyEnv overrides c from BLOCKEVENTS_* variables found by lookup.
// Pass os.LookupEnv in production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "DIAGNOSTICS_MODE"); ok {
		c.Diagnostics.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvPrefix + "HISTORY_MAX_ENTRIES"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &ValidationError{Key: "history.max_entries", Message: "env: " + err.Error()}
		}
		c.History.MaxEntries = n
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvPrefix + "METRICS_ENABLED"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return &ValidationError{Key: "metrics.enabled", Message: "env: " + err.Error()}
		}
		c.Metrics.Enabled = b
	}
	return nil
}

// Reporter builds the diagnostic strategy for the configured mode.
func (c Config) Reporter() event.Reporter {
	if c.Diagnostics.Mode == ModeDevelopment {
		return event.AssertReporter{}
	}
	return event.DefaultReporter()
}

// CoordinatorOptions returns the coordinator options implied by c.
func (c Config) CoordinatorOptions() []event.Option {
	return []event.Option{
		event.WithReporter(c.Reporter()),
		event.WithMetrics(c.Metrics.Enabled),
	}
}

// HistoryOptions returns the history options implied by c.
func (c Config) HistoryOptions() []history.Option {
	return []history.Option{
		history.WithMaxEntries(c.History.MaxEntries),
		history.WithMetrics(c.Metrics.Enabled),
	}
}

// Logging returns the logger configuration implied by c.
func (c Config) Logging() log.Config {
	return log.Config{Level: c.Log.Level, Service: c.Log.Service, Output: os.Stderr}
}
