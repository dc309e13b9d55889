// SPDX-License-Identifier: Apache-2.0

// Package grid implements the three-phase concurrent executor and
// its Worker pool: BEFORE chains run once per host, then MAIN
// chains run grouped by host behind a shared per-host queue, then AFTER
// chains run once per host regardless of MAIN's outcome.
package grid

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shardmig/shardmig/pkg/patch"
)

// DefaultWorkersPerHost is the worker pool cap used when the caller
// doesn't override it.
const DefaultWorkersPerHost = 10

// Result aggregates the outcome of one Grid run.
type Result struct {
	// RunID distinguishes this run's progress output from any other
	// concurrently-captured run in the same stdout stream; threaded into
	// every Worker so a renderer can prefix lines with it.
	RunID               string
	TotalMigrations     int
	ProcessedMigrations int
	NumErrors           int
	Errors              []error
	Workers             []*Worker
}

// Run executes before-chains, then main (grouped by host, workersPerHost
// concurrent workers per host sharing a queue), then after-chains. After
// always runs, even if main failed.
func Run(ctx context.Context, tokens *Tokens, before, main, after []*patch.Chain, workersPerHost int) (*Result, error) {
	if workersPerHost <= 0 {
		workersPerHost = DefaultWorkersPerHost
	}

	result := &Result{RunID: uuid.NewString()}
	for _, c := range main {
		result.TotalMigrations += len(c.Migrations)
	}

	if len(before) > 0 {
		workers, err := runPhase(ctx, tokens, before, result.RunID)
		result.Workers = append(result.Workers, workers...)
		if err != nil {
			collectResults(result, workers)
			return result, PhaseError{Phase: "before", Errs: result.Errors}
		}
	}

	mainWorkers := runMainPhase(ctx, tokens, main, workersPerHost, result.RunID)
	result.Workers = append(result.Workers, mainWorkers...)
	mainErr := collectResults(result, mainWorkers)

	var afterWorkers []*Worker
	if len(after) > 0 {
		var err error
		afterWorkers, err = runPhase(ctx, tokens, after, result.RunID)
		result.Workers = append(result.Workers, afterWorkers...)
		if err != nil {
			collectResults(result, afterWorkers)
			if mainErr == nil {
				mainErr = PhaseError{Phase: "after", Errs: errsOf(afterWorkers)}
			}
		}
	}

	return result, mainErr
}

// runPhase runs one Worker per chain, all concurrently, waits for every
// worker to finish, and then returns the first error any worker recorded.
// A failing chain does not cancel the others. Used for the before and
// after phases.
func runPhase(ctx context.Context, tokens *Tokens, chains []*patch.Chain, runID string) ([]*Worker, error) {
	workers := make([]*Worker, len(chains))
	g, ctx := errgroup.WithContext(ctx)

	for i, chain := range chains {
		i, chain := i, chain
		queue := NewChainQueue([]*patch.Chain{chain})
		w := NewWorker(tokens, queue, runID)
		workers[i] = w
		g.Go(func() error { return w.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		return workers, err
	}
	if errs := errsOf(workers); len(errs) > 0 {
		return workers, errs[0]
	}
	return workers, nil
}

// runMainPhase groups chains by host and runs min(chainsForHost,
// workersPerHost) workers per host against a shared queue, all hosts
// concurrently.
func runMainPhase(ctx context.Context, tokens *Tokens, chains []*patch.Chain, workersPerHost int, runID string) []*Worker {
	byHost := map[string][]*patch.Chain{}
	var hostOrder []string
	for _, c := range chains {
		if _, ok := byHost[c.Host]; !ok {
			hostOrder = append(hostOrder, c.Host)
		}
		byHost[c.Host] = append(byHost[c.Host], c)
	}

	var allWorkers []*Worker
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	for _, host := range hostOrder {
		hostChains := byHost[host]
		queue := NewChainQueue(hostChains)

		n := workersPerHost
		if len(hostChains) < n {
			n = len(hostChains)
		}
		for i := 0; i < n; i++ {
			w := NewWorker(tokens, queue, runID)
			mu.Lock()
			allWorkers = append(allWorkers, w)
			mu.Unlock()
			g.Go(func() error { return w.Run(ctx) })
		}
	}

	_ = g.Wait() // errors surface per-chain via worker.Errors(), not group cancellation
	return allWorkers
}

func collectResults(result *Result, workers []*Worker) error {
	var first error
	for _, w := range workers {
		snap := w.Snapshot()
		result.ProcessedMigrations += snap.Succeeded + snap.Errored
		errs := w.Errors()
		if len(errs) > 0 {
			result.NumErrors++
			result.Errors = append(result.Errors, errs...)
			if first == nil {
				first = errs[0]
			}
		}
	}
	return first
}

func errsOf(workers []*Worker) []error {
	var errs []error
	for _, w := range workers {
		errs = append(errs, w.Errors()...)
	}
	return errs
}
