// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shardmig/shardmig/pkg/registry"
)

// chainCmd renders the registry as a plain-text chain file: the current
// digest, then one "prev -> current" line per entry in Registry order,
// with a "  # <warn>" suffix only on entries whose up file runs a
// non-transactional index statement. Two developers adding versions concurrently both append to the
// same tail line, so the file produces a VCS merge conflict instead of a
// silently diverging timeline.
func chainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain",
		Short: "Render the ordered migration chain as plain text",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := NewRegistry()
			if err != nil {
				return err
			}
			fmt.Print(renderChain(reg))
			return nil
		},
	}
}

func renderChain(reg *registry.Registry) string {
	out := reg.Digest() + "\n"
	prev := "0"
	for _, e := range reg.Entries {
		line := fmt.Sprintf("%s -> %s", prev, e.Name)
		if e.Up.Wrap != registry.WrapNone {
			line += fmt.Sprintf("  # %s", wrapWarning(e.Up.Wrap))
		}
		out += line + "\n"
		prev = e.Name
	}
	return out
}

func wrapWarning(kind registry.WrapKind) string {
	switch kind {
	case registry.WrapIndexAlone, registry.WrapIndexAloneDrop:
		return "non-transactional index, runs outside the enclosing transaction"
	case registry.WrapIndexMixed:
		return "non-transactional index, sandwiched between COMMIT/BEGIN"
	default:
		return ""
	}
}
