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

// Package batch runs a per-item function over a list in fixed-size chunks,
// capping how many items are in flight at once.
package batch

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSize  = 3
	DefaultDelay = 200 * time.Millisecond
)

// Options tunes a batch run.
type Options struct {
	Size  int           // items per chunk, defaults to DefaultSize
	Delay time.Duration // pause between chunks, defaults to DefaultDelay; negative disables it
	Clock clockwork.Clock
}

// Result is the outcome for a single item.
type Result[R any] struct {
	Value R
	Err   error
}

// Process splits items into consecutive chunks of opts.Size and runs every
// chunk concurrently, waiting for the whole chunk before sleeping opts.Delay
// and moving on. No delay follows the final chunk. Results are returned in
// input order. Once ctx is done the remaining items are not started and
// carry ctx.Err().
func Process[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error), opts Options) []Result[R] {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	results := make([]Result[R], len(items))

	for start := 0; start < len(items); start += opts.Size {
		if err := ctx.Err(); err != nil {
			for i := start; i < len(items); i++ {
				results[i].Err = err
			}
			break
		}
		end := min(start+opts.Size, len(items))

		// Per-item errors are recorded, never returned to the group, so one
		// failing item does not cancel its siblings.
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				v, err := fn(ctx, items[i])
				results[i] = Result[R]{Value: v, Err: err}
				return nil
			})
		}
		g.Wait()

		if end < len(items) && opts.Delay > 0 {
			select {
			case <-opts.Clock.After(opts.Delay):
			case <-ctx.Done():
			}
		}
	}
	return results
}

// Values splits results into successful values (in input order) and the
// number of failed items.
func Values[R any](results []Result[R]) (values []R, failed int) {
	values = make([]R, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		values = append(values, r.Value)
	}
	return values, failed
}
