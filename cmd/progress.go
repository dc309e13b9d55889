// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/shardmig/shardmig/pkg/grid"
	"github.com/shardmig/shardmig/pkg/patch"
)

// withSpinner runs fn behind a pterm spinner, reporting success or failure
// with the final message. The engine itself exposes Worker's pull/snapshot
// state for a richer renderer to poll, but a spinner is all this CLI
// needs.
func withSpinner(text string, fn func() error) error {
	sp, _ := pterm.DefaultSpinner.WithText(text).Start()
	if err := fn(); err != nil {
		sp.Fail(fmt.Sprintf("%s: %s", text, err))
		return err
	}
	sp.Success(text)
	return nil
}

// printPlanned renders a dry-run plan: how many migrations would run,
// and a range-collapsed list of the (host, schema) pairs they touch.
func printPlanned(chains []*patch.Chain) {
	if len(chains) == 0 {
		pterm.Info.Println("nothing to do")
		return
	}
	total := 0
	items := make([]string, 0, len(chains))
	for _, c := range chains {
		total += len(c.Migrations)
		items = append(items, c.Host+":"+c.Schema)
	}
	pterm.Info.Printf("would apply %d migration(s) across %d schema(s): %s\n",
		total, len(chains), strings.Join(grid.CollapseRanges(items), " "))
}

// printGridSummary renders a final per-run report: total/processed
// migrations, warning count, and every recorded error.
func printGridSummary(result *grid.Result) {
	if result == nil {
		return
	}
	pterm.Info.Printf("[%s] %d/%d migrations applied, %d error(s)\n", result.RunID, result.ProcessedMigrations, result.TotalMigrations, result.NumErrors)

	for _, w := range result.Workers {
		snap := w.Snapshot()
		for _, v := range snap.Warnings {
			pterm.Warning.Printf("[%s] %s:%s: %s reported a warning\n", snap.RunID, snap.Host, snap.Schema, v)
		}
	}
	for _, err := range result.Errors {
		pterm.Error.Println(err.Error())
	}
}
