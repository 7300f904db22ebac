// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSharesOneLoad(t *testing.T) {
	g := New[string, int](time.Minute, clockwork.NewFakeClock())

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const n = 20
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := g.Do(context.Background(), "token-1", load)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	// give every caller the chance to find the registered entry
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestDoExpiresAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := New[string, int](5*time.Minute, clock)

	var calls atomic.Int32
	load := func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}
	v, err := g.Do(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(4 * time.Minute)
	v, _ = g.Do(context.Background(), "k", load)
	assert.Equal(t, 1, v, "entry still live before the ttl")

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return g.Len() == 0 }, time.Second, 5*time.Millisecond)

	v, _ = g.Do(context.Background(), "k", load)
	assert.Equal(t, 2, v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoCachesErrors(t *testing.T) {
	g := New[int, string](time.Minute, clockwork.NewFakeClock())
	boom := errors.New("boom")

	var calls atomic.Int32
	load := func(context.Context) (string, error) {
		calls.Add(1)
		return "", boom
	}
	_, err := g.Do(context.Background(), 7, load)
	assert.ErrorIs(t, err, boom)
	_, err = g.Do(context.Background(), 7, load)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())

	g.Forget(7)
	_, _ = g.Do(context.Background(), 7, load)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoWaiterCancellation(t *testing.T) {
	g := New[string, int](time.Minute, clockwork.NewFakeClock())
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := g.Do(ctx, "slow", func(ctx context.Context) (int, error) {
		<-release
		return 1, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, g.Len(), "the load keeps running for other callers")
}
