// SPDX-License-Identifier: Apache-2.0

package grid

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// rwLockWeight is the total weight of the process-global RW-lock
// semaphore. A reader acquires weight 1; a writer (a $run_alone
// migration) acquires the entire weight, which blocks out every reader
// and every other writer until it releases.
const rwLockWeight = 1 << 30

// unboundedCapacity stands in for "no limit" ($parallelism_* == 0):
// large enough that no realistic worker count would ever saturate it.
const unboundedCapacity = 1 << 30

// Tokens is the process-global concurrency state shared by every Worker:
// the RW-lock and the named semaphore table keyed by version and by
// host:version. It must be constructed once per run
// and passed to every Worker explicitly, never held in a global.
type Tokens struct {
	rw *semaphore.Weighted

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// NewTokens builds an empty Tokens table.
func NewTokens() *Tokens {
	return &Tokens{
		rw:   semaphore.NewWeighted(rwLockWeight),
		sems: map[string]*semaphore.Weighted{},
	}
}

// Release is returned by Acquire; it releases every held token in reverse
// acquisition order.
type Release func()

// Acquire acquires, in order, the RW-lock (writer if runAlone, reader
// otherwise), the global-version semaphore keyed by version, and the
// per-host-version semaphore keyed by host+":"+version. On
// any failure it releases whatever it already holds before returning.
func (t *Tokens) Acquire(ctx context.Context, runAlone bool, version string, globalCap int64, host string, hostCap int64) (Release, error) {
	if err := t.acquireRW(ctx, runAlone); err != nil {
		return nil, err
	}

	globalSem := t.semaphoreFor("v:"+version, globalCap)
	if err := globalSem.Acquire(ctx, 1); err != nil {
		t.releaseRW(runAlone)
		return nil, err
	}

	hostSem := t.semaphoreFor("hv:"+host+":"+version, hostCap)
	if err := hostSem.Acquire(ctx, 1); err != nil {
		globalSem.Release(1)
		t.releaseRW(runAlone)
		return nil, err
	}

	release := func() {
		hostSem.Release(1)
		globalSem.Release(1)
		t.releaseRW(runAlone)
	}
	return release, nil
}

func (t *Tokens) acquireRW(ctx context.Context, writer bool) error {
	weight := int64(1)
	if writer {
		weight = rwLockWeight
	}
	return t.rw.Acquire(ctx, weight)
}

func (t *Tokens) releaseRW(writer bool) {
	weight := int64(1)
	if writer {
		weight = rwLockWeight
	}
	t.rw.Release(weight)
}

func (t *Tokens) semaphoreFor(key string, capacity int64) *semaphore.Weighted {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sems[key]; ok {
		return s
	}
	if capacity <= 0 {
		capacity = unboundedCapacity
	}
	s := semaphore.NewWeighted(capacity)
	t.sems[key] = s
	return s
}
