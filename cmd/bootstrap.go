// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/shardmig/shardmig/cmd/flags"
	"github.com/shardmig/shardmig/pkg/orchestrator"
)

// bootstrapCmd is the one-time per-host setup action: create the database
// if requested, and seed the digest/rerun-fingerprint bookkeeping so a
// brand-new host can join the fleet without special-casing inside apply.
func bootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Prepare every configured host to join the fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			hosts, err := NewHosts()
			if err != nil {
				return err
			}
			if len(hosts) == 0 {
				return errNoHosts
			}

			return withSpinner("Bootstrapping hosts", func() error {
				return orchestrator.Bootstrap(ctx, hosts, flags.CreateDB(), func(host string, attempt int, err error) {
					pterm.Debug.Printf("waiting for %s (attempt %d): %s\n", host, attempt, err)
				})
			})
		},
	}
}
