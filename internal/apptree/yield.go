// SPDX-License-Identifier: MPL-2.0

package apptree

import (
	"runtime"
	"time"
)

// DefaultYieldInterval is the minimum spacing between two voluntary yields
// during a walk.
const DefaultYieldInterval = 50 * time.Millisecond

type (
	// Yielder is consulted once per listed entry during a walk.
	Yielder interface {
		Yield()
	}

	// RateLimitedYield hands the processor back to the scheduler at most
	// once per interval.
	RateLimitedYield struct {
		interval time.Duration
		now      func() time.Time
		gosched  func()
		last     time.Time
		yields   int
	}

	noYield struct{}
)

// NewRateLimitedYield returns a Yielder that calls runtime.Gosched no more
// than once per interval. Non-positive intervals use DefaultYieldInterval.
func NewRateLimitedYield(interval time.Duration) *RateLimitedYield {
	if interval <= 0 {
		interval = DefaultYieldInterval
	}
	return &RateLimitedYield{
		interval: interval,
		now:      time.Now,
		gosched:  runtime.Gosched,
	}
}

// Yield implements Yielder.
func (y *RateLimitedYield) Yield() {
	now := y.now()
	if !y.last.IsZero() && now.Sub(y.last) < y.interval {
		return
	}
	y.last = now
	y.yields++
	y.gosched()
}

// Yields returns how many times the scheduler was actually yielded to.
func (y *RateLimitedYield) Yields() int {
	return y.yields
}

func (noYield) Yield() {}
