package history

import (
	"github.com/rs/zerolog"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/log"
)

// DefaultMaxEntries bounds the undo stack when no limit is configured.
const DefaultMaxEntries = 1000

// Option configures a Stack.
type Option func(*stackConfig)

type stackConfig struct {
	maxEntries int
	logger     zerolog.Logger
	onCommit   []func(*Group)
	onReplay   []func(event.Record)
	metrics    bool
}

func defaultConfig() stackConfig {
	return stackConfig{
		maxEntries: DefaultMaxEntries,
		logger:     log.WithComponent("history"),
		metrics:    true,
	}
}

// WithMaxEntries caps the undo stack; the oldest groups are dropped first.
func WithMaxEntries(n int) Option {
	return func(c *stackConfig) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithLogger sets the history logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *stackConfig) {
		c.logger = l
	}
}

// OnCommit registers fn to run whenever a group is committed to the undo
// stack, including when a reopened group is committed again.
func OnCommit(fn func(*Group)) Option {
	return func(c *stackConfig) {
		if fn != nil {
			c.onCommit = append(c.onCommit, fn)
		}
	}
}

// OnReplayEvent registers fn to receive records fired during undo or redo.
func OnReplayEvent(fn func(event.Record)) Option {
	return func(c *stackConfig) {
		if fn != nil {
			c.onReplay = append(c.onReplay, fn)
		}
	}
}

// WithMetrics enables or disables Prometheus counters.
func WithMetrics(enabled bool) Option {
	return func(c *stackConfig) {
		c.metrics = enabled
	}
}
