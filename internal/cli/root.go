// Package cli implements the blockevents command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/blockevents/internal/config"
	"github.com/dshills/blockevents/internal/log"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON}

// BuildInfo identifies the binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string
	ConfigPath string

	// Config is loaded before any subcommand runs.
	Config config.Config
}

// NewRootCommand creates the root command for the blockevents CLI.
func NewRootCommand(info BuildInfo) *cobra.Command {
	opts := &RootOptions{Config: config.Default()}

	cmd := &cobra.Command{
		Use:   "blockevents",
		Short: "Event coordination and undo/redo for block workspaces",
		Long: `blockevents runs scripted editing sessions against a block workspace.

Each session drives the event coordinator (pending queue, group stack,
listeners) and the undo/redo history, and prints a trace of every record
delivered.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.Config = cfg

			logCfg := cfg.Logging()
			logCfg.Output = cmd.ErrOrStderr()
			if opts.Verbose {
				logCfg.Level = zerolog.DebugLevel.String()
			}
			log.Reconfigure(logCfg)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (text|json)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a TOML config file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewVersionCommand(info))

	return cmd
}
