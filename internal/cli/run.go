package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/blockevents/internal/config"
	"github.com/dshills/blockevents/internal/log"
	"github.com/dshills/blockevents/internal/metrics"
	"github.com/dshills/blockevents/internal/script"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Watch   bool
	Metrics bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script.yaml>",
		Short: "Run an editing session script and print its trace",
		Long: `Run executes a YAML session script against a fresh coordinator,
workspace and undo/redo history, then prints the trace.

With --watch the script is run again every time the file changes, until
interrupted. With --metrics the process counters are printed after the
trace in Prometheus text format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Watch {
				return runWatch(cmd.Context(), opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
			}
			return runScript(opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "re-run when the script file changes")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus counters after the trace")
	return cmd
}

func runScript(opts *RunOptions, path string, out io.Writer) error {
	s, err := script.Load(path)
	if err != nil {
		return err
	}

	cfg := opts.Config
	trace, runErr := script.Run(s,
		script.WithReporter(cfg.Reporter()),
		script.WithCoordinatorOptions(cfg.CoordinatorOptions()...),
		script.WithHistoryOptions(cfg.HistoryOptions()...),
	)

	var writeErr error
	if opts.Format == FormatJSON {
		writeErr = trace.WriteJSON(out)
	} else {
		writeErr = trace.WriteText(out)
	}
	if writeErr == nil && opts.Metrics {
		writeErr = metrics.WriteText(out, prometheus.DefaultGatherer)
	}
	if runErr != nil {
		return runErr
	}
	return writeErr
}

// runWatch runs the script once, then again after every change. Failed runs
// are reported on errOut and do not stop the watch.
func runWatch(ctx context.Context, opts *RunOptions, path string, out, errOut io.Writer) error {
	logger := log.WithComponent("cli")
	once := func() {
		if err := runScript(opts, path, out); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
	}

	once()
	logger.Info().Str(log.FieldPath, path).Msg("watching script for changes")
	return config.Watch(ctx, path, func() {
		fmt.Fprintf(out, "--- %s changed, re-running\n", path)
		once()
	})
}
