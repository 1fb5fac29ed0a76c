// Package runner executes N indexed tasks over K fixed worker lanes.
// Lane j processes indices j, j+K, j+2K and so on, which keeps the
// claim order deterministic and every index processed exactly once.
package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Flag is a cooperative stop signal shared between a runner and its
// controller. Stopping never interrupts an item already in flight.
type Flag struct {
	stopped atomic.Bool
}

func (f *Flag) Stop() { f.stopped.Store(true) }

func (f *Flag) Stopped() bool { return f.stopped.Load() }

func (f *Flag) Reset() { f.stopped.Store(false) }

// Run processes indices [0, total) with at most concurrency in flight.
// The flag (and ctx) are checked before each claim; delay is applied
// after each completed item within a lane. Run returns once every lane
// has drained, including items in flight when the stop was requested.
func Run(ctx context.Context, total, concurrency int, delay time.Duration, stop *Flag, work func(ctx context.Context, idx int)) {
	if total <= 0 {
		return
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > total {
		concurrency = total
	}

	var wg sync.WaitGroup
	for lane := 0; lane < concurrency; lane++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for idx := start; idx < total; idx += concurrency {
				if stop != nil && stop.Stopped() {
					return
				}
				select {
				case <-ctx.Done():
					return
				default:
				}

				work(ctx, idx)

				if delay > 0 && idx+concurrency < total {
					select {
					case <-time.After(delay):
					case <-ctx.Done():
						return
					}
				}
			}
		}(lane)
	}
	wg.Wait()
}
