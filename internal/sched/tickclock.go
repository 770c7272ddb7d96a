// internal/sched/tickclock.go

package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// ErrClockStopped is returned by TickClock.Sleep once the clock has been stopped.
var ErrClockStopped = errors.New("tick clock stopped")

// TickClock emits ticks and counts them atomically. Each tick is one unit of
// simulated time.
type TickClock struct {
	Ch       chan struct{}
	count    atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTickClock creates a clock but does not share it.
func NewTickClock(buffer int) *TickClock {
	return &TickClock{
		Ch:   make(chan struct{}, buffer),
		stop: make(chan struct{}),
	}
}

// Start begins emitting ticks at the given interval.
// Ticks nobody is waiting for are counted but dropped.
func (c *TickClock) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				select {
				case c.Ch <- struct{}{}:
				default:
				}
			case <-c.stop:
				close(c.Ch)
				return
			}
		}
	}()
}

// Stop signals the clock to stop emitting ticks. Safe to call more than once.
func (c *TickClock) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Count returns the current tick count atomically.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}

// Now implements Clock.
func (c *TickClock) Now() int64 { return c.Count() }

// Sleep blocks until units ticks have been received.
func (c *TickClock) Sleep(ctx context.Context, units int64) error {
	for i := int64(0); i < units; i++ {
		select {
		case _, ok := <-c.Ch:
			if !ok {
				return ErrClockStopped
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
