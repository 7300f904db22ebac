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


// Package janitor runs periodic housekeeping jobs such as pruning expired
// cache entries.
package janitor

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Janitor schedules housekeeping jobs.
type Janitor struct {
	sched gocron.Scheduler
	log   log.Logger
}

// New creates a stopped janitor.  A nil clock selects the real clock.
func New(clock clockwork.Clock, logger log.Logger) (*Janitor, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.Root()
	}
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("janitor: failed to create scheduler: %w", err)
	}
	return &Janitor{sched: sched, log: logger.With("component", "janitor")}, nil
}

// Every runs fn each interval.  fn reports how many entries it removed.
// Runs of the same job never overlap.
func (j *Janitor) Every(name string, interval time.Duration, fn func() int) error {
	_, err := j.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := fn(); n > 0 {
				j.log.Debug("Housekeeping done", "job", name, "removed", n)
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("janitor: failed to schedule %s: %w", name, err)
	}
	return nil
}

// Start begins running the scheduled jobs.
func (j *Janitor) Start() { j.sched.Start() }

// Stop stops the scheduler and waits for running jobs.
func (j *Janitor) Stop() error { return j.sched.Shutdown() }
