// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package retry provides bounded exponential backoff for transient
// startup errors. The aggregator uses it for socket bind/connect: a
// sink or broker port that is not up yet is retried with doubling
// delays until the attempt budget is spent, at which point the last
// error becomes fatal.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/shopfloor-works/shopfloor/lib/clock"
)

// Policy controls the retry schedule. The delay starts at Initial and
// doubles after every failed attempt, capped at Max. Attempts counts
// the total number of calls, including the first.
type Policy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultPolicy is generous enough to ride out a sink process that is
// restarted underneath the aggregator: 10 attempts spanning roughly
// four minutes (1s → 2s → 4s → ... → 30s cap).
var DefaultPolicy = Policy{
	Attempts: 10,
	Initial:  1 * time.Second,
	Max:      30 * time.Second,
}

// Do calls fn until it succeeds, the policy's attempt budget is spent,
// or ctx is cancelled. Returns nil on the first success. The returned
// error wraps the last failure.
func Do(ctx context.Context, clk clock.Clock, policy Policy, fn func() error) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	backoff := policy.Initial
	var lastErr error

	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == policy.Attempts {
			break
		}
		select {
		case <-clk.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled after %d attempts: %w", attempt, lastErr)
		}
		backoff *= 2
		if policy.Max > 0 && backoff > policy.Max {
			backoff = policy.Max
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", policy.Attempts, lastErr)
}
