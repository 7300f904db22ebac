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

package ipfs

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultFailureWindow is how long a gateway stays out of rotation after a
// failed request.
const DefaultFailureWindow = time.Minute

// FailureCache remembers when each gateway last failed. It is advisory only:
// a stale or missing entry never prevents a request, it only changes the
// order in which gateways are tried.
type FailureCache struct {
	clock  clockwork.Clock
	window time.Duration

	mu       sync.RWMutex
	failures map[string]time.Time // gateway base URL → last failure
}

// NewFailureCache creates an empty cache. A zero window selects
// DefaultFailureWindow and a nil clock the wall clock.
func NewFailureCache(window time.Duration, clock clockwork.Clock) *FailureCache {
	if window <= 0 {
		window = DefaultFailureWindow
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FailureCache{
		clock:    clock,
		window:   window,
		failures: make(map[string]time.Time),
	}
}

// MarkFailed records a failure of gateway at the current time.
func (fc *FailureCache) MarkFailed(gateway string) {
	fc.mu.Lock()
	fc.failures[gateway] = fc.clock.Now()
	fc.mu.Unlock()
}

// Clear forgets any failure recorded for gateway.
func (fc *FailureCache) Clear(gateway string) {
	fc.mu.Lock()
	delete(fc.failures, gateway)
	fc.mu.Unlock()
}

// Failed reports whether gateway failed within the window.
func (fc *FailureCache) Failed(gateway string) bool {
	fc.mu.RLock()
	at, ok := fc.failures[gateway]
	fc.mu.RUnlock()
	if !ok {
		return false
	}
	return fc.clock.Since(at) < fc.window
}

// Prune drops entries older than the window and returns how many were
// removed.
func (fc *FailureCache) Prune() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	removed := 0
	for gw, at := range fc.failures {
		if fc.clock.Since(at) >= fc.window {
			delete(fc.failures, gw)
			removed++
		}
	}
	return removed
}

// Len returns the number of recorded entries, expired or not.
func (fc *FailureCache) Len() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.failures)
}

// Window returns the validity window of a failure record.
func (fc *FailureCache) Window() time.Duration { return fc.window }
