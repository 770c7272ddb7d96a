// internal/sched/clock.go

package sched

import (
	"context"

	"go.uber.org/atomic"
)

// Clock measures simulated time in whole units and suspends callers for a
// number of units. Sleep returns a non-nil error when the wait was cut short.
type Clock interface {
	Now() int64
	Sleep(ctx context.Context, units int64) error
}

// VirtualClock advances instantly, so a run takes no wall-clock time.
type VirtualClock struct {
	now atomic.Int64
}

// NewVirtualClock returns a clock that starts at zero.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

// Now returns the number of units slept so far.
func (c *VirtualClock) Now() int64 { return c.now.Load() }

// Sleep moves the clock forward by units unless ctx is already done.
func (c *VirtualClock) Sleep(ctx context.Context, units int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if units > 0 {
		c.now.Add(units)
	}
	return nil
}
