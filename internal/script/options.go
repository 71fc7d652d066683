package script

import (
	"github.com/rs/zerolog"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/history"
	"github.com/dshills/blockevents/internal/log"
)

// Option configures a Runner.
type Option func(*runConfig)

type runConfig struct {
	reporter  event.Reporter
	coordOpts []event.Option
	histOpts  []history.Option
	logger    zerolog.Logger
}

func defaultRunConfig() runConfig {
	return runConfig{
		reporter: event.DefaultReporter(),
		logger:   log.WithComponent("script"),
	}
}

// WithReporter sets where diagnostics go after the runner has recorded
// them. An AssertReporter makes the first diagnostic fail the run.
func WithReporter(r event.Reporter) Option {
	return func(c *runConfig) {
		c.reporter = r
	}
}

// WithCoordinatorOptions passes options to the session's coordinator.
// A reporter set this way is replaced; use WithReporter instead.
func WithCoordinatorOptions(opts ...event.Option) Option {
	return func(c *runConfig) {
		c.coordOpts = append(c.coordOpts, opts...)
	}
}

// WithHistoryOptions passes options to the session's undo/redo stack.
func WithHistoryOptions(opts ...history.Option) Option {
	return func(c *runConfig) {
		c.histOpts = append(c.histOpts, opts...)
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}
