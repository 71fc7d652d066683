// Package config provides the configuration system for blockevents.
//
// Settings come from three places, later ones overriding earlier:
//
//	1. Built-in defaults (Default)
//	2. A TOML file, e.g. blockevents.toml
//	3. BLOCKEVENTS_* environment variables
//
// # File Format
//
//	[diagnostics]
//	mode = "development"   # or "production"
//
//	[history]
//	max_entries = 500
//
//	[log]
//	level = "debug"
//
//	[metrics]
//	enabled = false
//
// Unknown keys are rejected so that typos surface at load time.
//
// # Diagnostics Mode
//
// In development mode the coordinator panics on grouping protocol
// violations; in production mode it logs a warning and proceeds. Both are
// built by Config.Reporter.
//
// # Live Reload
//
// Watch blocks until its context is cancelled and calls back on the caller's
// goroutine whenever the watched file changes.
package config
