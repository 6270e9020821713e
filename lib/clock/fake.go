// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called; pending After, Sleep, and Ticker
// waiters fire when the clock advances past their deadline.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for tests.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter
	changed *sync.Cond
}

// fakeWaiter is a pending After, Sleep, or Ticker operation.
type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time
	// interval is non-zero for ticker waiters: after firing, the
	// waiter is rescheduled at deadline + interval.
	interval time.Duration
	stopped  bool
	fired    bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives once the clock advances past
// duration d from now. If d <= 0, the channel receives immediately.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.waiters = append(c.waiters, &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  channel,
	})
	c.changed.Broadcast()
	return channel
}

// NewTicker returns a Ticker that fires every time the clock advances
// past a multiple of d. Panics if d <= 0, matching time.NewTicker.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	waiter := &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  make(chan time.Time, 1),
		interval: d,
	}
	c.waiters = append(c.waiters, waiter)
	c.changed.Broadcast()

	return &Ticker{
		C: waiter.channel,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			waiter.stopped = true
		},
	}
}

// Sleep blocks until the clock advances past duration d from now.
func (c *FakeClock) Sleep(d time.Duration) {
	<-c.After(d)
}

// Advance moves the fake time forward by d, firing every waiter whose
// deadline falls within the advanced window, in deadline order.
// Tickers fire once per elapsed interval; a full ticker channel drops
// the tick, matching time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.current.Add(d)

	for {
		next := c.nextDeadlineLocked(target)
		if next == nil {
			break
		}
		c.current = next.deadline
		c.fireLocked(next)
	}

	c.current = target
	c.compactLocked()
}

// BlockUntil waits until at least n waiters are pending. Use this to
// let a goroutine reach its After/Sleep call before Advance fires it.
func (c *FakeClock) BlockUntil(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, w := range c.waiters {
		if !w.stopped && !w.fired {
			count++
		}
	}
	return count
}

// nextDeadlineLocked returns the unfired waiter with the earliest
// deadline at or before target, or nil if none remain.
func (c *FakeClock) nextDeadlineLocked(target time.Time) *fakeWaiter {
	var next *fakeWaiter
	for _, w := range c.waiters {
		if w.stopped || w.fired || w.deadline.After(target) {
			continue
		}
		if next == nil || w.deadline.Before(next.deadline) {
			next = w
		}
	}
	return next
}

func (c *FakeClock) fireLocked(w *fakeWaiter) {
	select {
	case w.channel <- c.current:
	default:
	}
	if w.interval > 0 {
		w.deadline = w.deadline.Add(w.interval)
		return
	}
	w.fired = true
}

// compactLocked drops fired and stopped waiters, keeping the slice
// sorted by deadline for deterministic iteration.
func (c *FakeClock) compactLocked() {
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.stopped && !w.fired {
			kept = append(kept, w)
		}
	}
	c.waiters = kept
	sort.Slice(c.waiters, func(i, j int) bool {
		return c.waiters[i].deadline.Before(c.waiters[j].deadline)
	})
}
