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

// Package dedup collapses concurrent loads of the same key into a single call
// and keeps the outcome for a fixed time after the load started.
package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL is how long an entry lives after registration.
const DefaultTTL = 5 * time.Minute

type entry[V any] struct {
	done  chan struct{}
	val   V
	err   error
	timer clockwork.Timer
}

// Group is a keyed result cache. An entry is registered before its load
// starts, so callers racing on the same key share one load. Eviction is
// scheduled ttl after registration regardless of use; both values and
// errors are cached until then.
type Group[K comparable, V any] struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[K]*entry[V]
}

// New creates a group. A non-positive ttl selects DefaultTTL and a nil clock
// the wall clock.
func New[K comparable, V any](ttl time.Duration, clock clockwork.Clock) *Group[K, V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Group[K, V]{ttl: ttl, clock: clock, entries: make(map[K]*entry[V])}
}

// Do returns the cached or in-flight outcome for key, starting fn if there
// is none. fn runs detached from the caller's cancellation so that one
// impatient caller cannot fail the load for everyone else; ctx only bounds
// how long this caller waits.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func(context.Context) (V, error)) (V, error) {
	g.mu.Lock()
	e, ok := g.entries[key]
	if !ok {
		e = &entry[V]{done: make(chan struct{})}
		g.entries[key] = e
		e.timer = g.clock.AfterFunc(g.ttl, func() { g.evict(key, e) })

		go func() {
			defer close(e.done)
			e.val, e.err = fn(context.WithoutCancel(ctx))
		}()
	}
	g.mu.Unlock()

	select {
	case <-e.done:
		return e.val, e.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Forget drops the entry for key so the next Do starts a fresh load. Callers
// already waiting on the old entry still receive its outcome.
func (g *Group[K, V]) Forget(key K) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.entries[key]; ok {
		e.timer.Stop()
		delete(g.entries, key)
	}
}

// Len returns the number of live entries.
func (g *Group[K, V]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *Group[K, V]) evict(key K, e *entry[V]) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.entries[key] == e {
		delete(g.entries, key)
	}
}
