// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/shardmig/shardmig/cmd/flags"
	"github.com/shardmig/shardmig/pkg/orchestrator"
	"github.com/shardmig/shardmig/pkg/registry"
)

// undoCmd undoes a single version, on every schema where it is the latest
// applied version. The version argument may be a full version name or any
// longer string starting with the three dotted parts; it's canonicalized
// via registry.ExtractVersion before planning.
func undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo <version>",
		Short: "Undo a single applied migration version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			version, err := registry.ExtractVersion(args[0])
			if err != nil {
				return err
			}

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

			opts := orchestrator.Options{
				Action:         orchestrator.ActionUndo,
				Undo:           version,
				Dry:            flags.Dry(),
				Force:          flags.Force(),
				WorkersPerHost: flags.Parallelism(),
			}

			var result *orchestrator.Result
			err = withSpinner("Undoing "+version, func() error {
				var runErr error
				result, runErr = orchestrator.Run(ctx, hosts, reg, opts)
				return runErr
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
