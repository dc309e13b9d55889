// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/shardmig/shardmig/cmd/flags"
	"github.com/shardmig/shardmig/pkg/orchestrator"
)

// applyCmd is the default action: bring every matched schema, on
// every host, up to the full ordered set of on-disk versions.
func applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply every pending migration to every matching schema on every host",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reg, err := NewRegistry()
			if err != nil {
				return err
			}
			hosts, err := NewHosts()
			if err != nil {
				return err
			}
			if len(hosts) == 0 {
				return errNoHosts
			}

			if flags.CreateDB() {
				if err := withSpinner("Creating databases", func() error {
					for _, h := range hosts {
						if err := h.CreateDB(ctx, func(attempt int, err error) {
							pterm.Debug.Printf("waiting for %s (attempt %d): %s\n", h.Host, attempt, err)
						}); err != nil {
							return err
						}
					}
					return nil
				}); err != nil {
					return err
				}
			}

			opts := orchestrator.Options{
				Action:         orchestrator.ActionApply,
				Dry:            flags.Dry(),
				Force:          flags.Force(),
				WorkersPerHost: flags.Parallelism(),
			}

			var result *orchestrator.Result
			err = withSpinner("Applying migrations", func() error {
				for {
					var runErr error
					result, runErr = orchestrator.Run(ctx, hosts, reg, opts)
					if runErr != nil {
						return runErr
					}
					if !result.HasMoreWork {
						return nil
					}
				}
			})
			if result != nil {
				switch {
				case result.NothingToDo:
					pterm.Info.Println("nothing to do")
				case flags.Dry():
					printPlanned(result.Planned)
				default:
					printGridSummary(result.Grid)
				}
			}
			return err
		},
	}
}
