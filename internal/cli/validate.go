package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/blockevents/internal/script"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Name  string `json:"name,omitempty"`
	Steps int    `json:"steps"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <script.yaml>",
		Short: "Check a session script without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := ValidationResult{Valid: true}
			s, err := script.Load(args[0])
			if err != nil {
				res = ValidationResult{Error: err.Error()}
			} else {
				res.Name, res.Steps = s.Name, len(s.Steps)
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == FormatJSON {
				data, merr := json.MarshalIndent(res, "", "  ")
				if merr != nil {
					return merr
				}
				fmt.Fprintln(out, string(data))
			} else if res.Valid {
				fmt.Fprintf(out, "ok: %s (%d steps)\n", args[0], res.Steps)
			}
			return err
		},
	}
}
