// SPDX-License-Identifier: Apache-2.0

// Package orchestrator implements the top-level apply/undo action loop:
// it plans via pkg/patch, decides whether there's anything to do,
// executes the plan via pkg/grid, and manages the digest/rerun-fingerprint
// transitions that let a fresh invocation resume correctly after a partial
// failure.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/shardmig/shardmig/pkg/dest"
	"github.com/shardmig/shardmig/pkg/grid"
	"github.com/shardmig/shardmig/pkg/patch"
	"github.com/shardmig/shardmig/pkg/registry"
)

// Action distinguishes the two mutating actions this package drives.
type Action int

const (
	ActionApply Action = iota
	ActionUndo
)

// Options configures one Run call.
type Options struct {
	Action Action
	// Undo is the canonicalized version name being undone; required when
	// Action == ActionUndo, ignored otherwise.
	Undo string
	// Dry, when true, plans and reports but never mutates anything.
	Dry bool
	// Force skips the fast-path no-op short circuit even when there is
	// nothing to do, forcing before.sql/after.sql to rerun.
	Force bool
	// WorkersPerHost caps per-host Worker concurrency in the main phase;
	// zero uses grid.DefaultWorkersPerHost.
	WorkersPerHost int
}

// Result reports what a Run call did.
type Result struct {
	// NothingToDo is true when the fast path fired: no chains were
	// planned and every dest's rerun fingerprint was already current.
	NothingToDo bool
	// HasMoreWork is true after a successful apply when replanning found
	// additional chains still pending: concurrency primitives can leave
	// a chain partially advanced, so the caller should Run again.
	HasMoreWork bool
	// Planned is the chain list produced by the planner, kept for dry-run
	// reporting.
	Planned []*patch.Chain
	Grid    *grid.Result
	Digest  string
}

// depFiles returns the before/after paths used to build the rerun
// fingerprint, skipping whichever is absent.
func depFiles(reg *registry.Registry) []string {
	var paths []string
	if reg.Before != nil {
		paths = append(paths, reg.Before.Path)
	}
	if reg.After != nil {
		paths = append(paths, reg.After.Path)
	}
	return paths
}

// Run executes one apply or undo iteration against hosts. Callers
// that want to fully converge a fleet after concurrency-induced partial
// chains should loop while Result.HasMoreWork is true.
func Run(ctx context.Context, hosts []*dest.Dest, reg *registry.Registry, opts Options) (*Result, error) {
	var undo *string
	if opts.Action == ActionUndo {
		if opts.Undo == "" {
			return nil, errMissingUndoVersion
		}
		v := opts.Undo
		undo = &v
	}

	chains, err := patch.Plan(ctx, hosts, reg, undo)
	if err != nil {
		return nil, err
	}

	result := &Result{Digest: reg.Digest(), Planned: chains}

	if len(chains) == 0 && !opts.Force {
		upToDate, err := dest.CheckRerunFingerprint(ctx, hosts, depFiles(reg))
		if err != nil {
			return nil, err
		}
		if upToDate {
			if !opts.Dry {
				dest.SaveDigests(ctx, hosts, reg.Digest())
			}
			result.NothingToDo = true
			return result, nil
		}
	}

	if opts.Dry {
		return result, nil
	}

	if opts.Action == ActionUndo && len(chains) > 0 {
		dest.SaveDigests(ctx, hosts, "0.before-undo")
	}
	dest.SaveRerunFingerprint(ctx, hosts, "")

	before, err := buildHostFileChains(reg.Before, hosts, "before", patch.ChainDn)
	if err != nil {
		return nil, err
	}
	after, err := buildHostFileChains(reg.After, hosts, "after", patch.ChainUp)
	if err != nil {
		return nil, err
	}

	tokens := grid.NewTokens()
	gridResult, gridErr := grid.Run(ctx, tokens, before, chains, after, opts.WorkersPerHost)
	result.Grid = gridResult

	if gridErr != nil {
		return result, gridErr
	}

	dest.SaveBuiltRerunFingerprints(ctx, hosts, depFiles(reg))

	switch opts.Action {
	case ActionApply:
		more, err := patch.Plan(ctx, hosts, reg, nil)
		if err != nil {
			return result, err
		}
		if len(more) > 0 {
			result.HasMoreWork = true
		} else {
			dest.SaveDigests(ctx, hosts, reg.Digest())
		}
	case ActionUndo:
		dest.SaveDigests(ctx, hosts, "0.after-undo")
	}

	return result, nil
}

// buildHostFileChains builds one Chain per host running file (before.sql
// or after.sql), or nil if file is absent. NewVersions is always nil:
// before/after scripts never touch version lists. Before-chains are
// type=dn, after-chains are type=up, even though the executor itself
// never branches on Chain.Type.
func buildHostFileChains(file *registry.MigrationFile, hosts []*dest.Dest, label string, chainType patch.ChainType) ([]*patch.Chain, error) {
	if file == nil {
		return nil, nil
	}

	chains := make([]*patch.Chain, 0, len(hosts))
	for _, h := range hosts {
		chains = append(chains, &patch.Chain{
			Type:     chainType,
			Host:     h.Host,
			Database: h.Database,
			Schema:   h.Schema,
			Dest:     h,
			Migrations: []patch.Migration{{
				Version:     fmt.Sprintf("%s:%s", label, h.Host),
				File:        file,
				NewVersions: nil,
			}},
		})
	}
	return chains, nil
}
