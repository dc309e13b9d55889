// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shardmig/shardmig/pkg/dest"
	"github.com/shardmig/shardmig/pkg/registry"
)

// listCmd prints the registry's ordered version names, or (with --digest)
// just Registry.Digest(), or (with --applied) the fleet's reconciled
// best digest read back from every reachable host.
func listCmd() *cobra.Command {
	var digest bool
	var applied bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the versions known to the migration directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if applied {
				hosts, err := NewHosts()
				if err != nil {
					return err
				}
				if len(hosts) == 0 {
					return errNoHosts
				}
				// Digests are written best-effort across hosts, so any single
				// Dest may be stale; reconcile the union instead of trusting
				// one answer.
				digests, err := dest.LoadDigests(cmd.Context(), hosts)
				if err != nil {
					return err
				}
				fmt.Println(registry.ChooseBestDigest(digests))
				return nil
			}

			reg, err := NewRegistry()
			if err != nil {
				return err
			}

			if digest {
				fmt.Println(reg.Digest())
				return nil
			}

			for _, e := range reg.Entries {
				fmt.Println(e.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&digest, "digest", false, "Print the code digest instead of the version list")
	cmd.Flags().BoolVar(&applied, "applied", false, "Print the best digest recorded across the configured hosts")
	return cmd
}
