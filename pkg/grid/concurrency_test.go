// SPDX-License-Identifier: Apache-2.0

package grid

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRunAloneExcludesReaders(t *testing.T) {
	tokens := NewTokens()
	ctx := context.Background()

	release, err := tokens.Acquire(ctx, true, "v1", 0, "h1", 0)
	require.NoError(t, err)

	readerCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = tokens.Acquire(readerCtx, false, "v2", 0, "h1", 0)
	assert.Error(t, err, "a writer-held RW-lock must block a concurrent reader")

	release()

	_, err = tokens.Acquire(ctx, false, "v2", 0, "h1", 0)
	assert.NoError(t, err)
}

func TestAcquireGlobalVersionCapacityBounds(t *testing.T) {
	tokens := NewTokens()
	ctx := context.Background()

	release1, err := tokens.Acquire(ctx, false, "v1", 1, "h1", 0)
	require.NoError(t, err)

	blockedCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = tokens.Acquire(blockedCtx, false, "v1", 1, "h2", 0)
	assert.Error(t, err, "capacity-1 global semaphore must block a second concurrent holder")

	release1()

	release2, err := tokens.Acquire(ctx, false, "v1", 1, "h2", 0)
	require.NoError(t, err)
	release2()
}

func TestAcquireReadersRunConcurrently(t *testing.T) {
	tokens := NewTokens()
	ctx := context.Background()

	var inFlight int32
	var maxInFlight int32
	run := func() {
		release, err := tokens.Acquire(ctx, false, "v1", 0, "h1", 0)
		require.NoError(t, err)
		n := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if n <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		release()
	}

	done := make(chan struct{})
	go func() { run(); done <- struct{}{} }()
	go func() { run(); done <- struct{}{} }()
	<-done
	<-done

	assert.GreaterOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
}
