// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shardmig/shardmig/cmd/flags"
)

// makeCmd scaffolds a new timestamp-prefixed up/dn pair in the migration
// directory. Deliberately thin: no templates, no prompts, just the two
// empty files named the way Registry expects to find them.
func makeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "make <name>@<prefix>",
		Short: "Scaffold a new migration's up/dn file pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, prefix, ok := strings.Cut(args[0], "@")
			if !ok || name == "" || prefix == "" {
				return fmt.Errorf("make: expected <name>@<prefix>, got %q", args[0])
			}

			ts := time.Now().UTC().Format("20060102150405")
			base := fmt.Sprintf("%s.%s.%s", ts, name, prefix)
			dir := flags.MigDir()

			for _, half := range []string{"up", "dn"} {
				path := filepath.Join(dir, fmt.Sprintf("%s.%s.sql", base, half))
				if err := os.WriteFile(path, nil, 0o644); err != nil {
					return fmt.Errorf("make: %w", err)
				}
				fmt.Println(path)
			}
			return nil
		},
	}
}
