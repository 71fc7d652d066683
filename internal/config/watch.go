package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/blockevents/internal/log"
)

// DefaultDebounce is the quiet period Watch waits for before calling back.
const DefaultDebounce = 100 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
	ready    func()
}

// WithDebounce sets the quiet period after the last change before the
// callback runs. Editors often write a file in several steps.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithReady registers a function called once the watch is established.
func WithReady(fn func()) WatchOption {
	return func(c *watchConfig) {
		c.ready = fn
	}
}

// Watch calls fn each time the file at path is written or created. It
// blocks until ctx is cancelled and returns nil, or returns an error if the
// watch cannot be set up.
//
// The parent directory is watched rather than the file itself so that
// atomic saves (write temp file, rename over the original) are observed.
// fn runs on the caller's goroutine; changes arriving while it runs are
// coalesced into one further call.
func Watch(ctx context.Context, path string, fn func(), opts ...WatchOption) error {
	cfg := watchConfig{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	logger := log.WithComponent("config.watch").With().Str(log.FieldPath, abs).Logger()
	logger.Debug().Msg("watching file")

	if cfg.ready != nil {
		cfg.ready()
	}

	timer := time.NewTimer(cfg.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("watch stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			logger.Debug().Str(log.FieldOp, ev.Op.String()).Msg("file changed")
			timer.Reset(cfg.debounce)

		case <-timer.C:
			fn()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watch error")
		}
	}
}
