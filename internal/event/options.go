package event

import (
	"github.com/rs/zerolog"

	"github.com/dshills/blockevents/internal/log"
)

// Option configures a Coordinator.
type Option func(*coordinatorConfig)

type coordinatorConfig struct {
	reporter Reporter
	logger   zerolog.Logger
	newID    func() string
	metrics  bool
}

func defaultConfig() coordinatorConfig {
	return coordinatorConfig{
		logger:  log.WithComponent("coordinator"),
		newID:   newGroupID,
		metrics: true,
	}
}

// WithReporter sets the diagnostic strategy. The default is a LogReporter on
// the coordinator logger.
func WithReporter(r Reporter) Option {
	return func(c *coordinatorConfig) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *coordinatorConfig) {
		c.logger = l
	}
}

// WithIDGenerator replaces the uuid generator used by PushNewGroup.
func WithIDGenerator(fn func() string) Option {
	return func(c *coordinatorConfig) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithMetrics enables or disables Prometheus counters.
func WithMetrics(enabled bool) Option {
	return func(c *coordinatorConfig) {
		c.metrics = enabled
	}
}
