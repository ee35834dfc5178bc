/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package ratelimit implements the admission and protection core: a
// concurrency tracker, a sliding-window request rate limiter, a quota
// monitor fed by asynchronous usage snapshots, and the facade (Guard) that
// composes the three into one check/acquire/release protocol.
package ratelimit

import (
	"fmt"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

// ConcurrencyTracker counts in-flight agent jobs globally and per identity.
// All operations are O(1); callers hold the guard's single mutex around
// check-then-acquire, so the tracker itself uses no internal locking beyond
// what's needed for its own snapshot.
type ConcurrencyTracker struct {
	maxGlobal  int
	maxPerUser int

	global int
	perID  map[global.Identity]int
}

// NewConcurrencyTracker creates a tracker with the given capacity limits.
func NewConcurrencyTracker(maxGlobal, maxPerUser int) *ConcurrencyTracker {
	return &ConcurrencyTracker{
		maxGlobal:  maxGlobal,
		maxPerUser: maxPerUser,
		perID:      make(map[global.Identity]int),
	}
}

// CanAcquire reports whether a new slot would be admitted for identity. It
// does not mutate state; callers must still hold the guard's lock across
// CanAcquire and a subsequent Acquire for the check to be meaningful.
func (c *ConcurrencyTracker) CanAcquire(id global.Identity) global.AdmissionDecision {
	if c.global >= c.maxGlobal {
		return global.AdmissionDecision{
			Allowed:     false,
			Reason:      "server at capacity, retry in ~10s",
			RetryAfterS: 10,
		}
	}
	if c.perID[id] >= c.maxPerUser {
		return global.AdmissionDecision{
			Allowed: false,
			Reason: fmt.Sprintf("you already hold %d concurrent jobs (max %d), retry in ~15s",
				c.perID[id], c.maxPerUser),
			RetryAfterS: 15,
		}
	}
	return global.AdmissionDecision{Allowed: true}
}

// Acquire increments both the global and per-identity counters. Callers
// MUST have called CanAcquire first and observed Allowed; calling Acquire
// without doing so is a contract violation but never panics or corrupts
// state - it simply overshoots the configured limit.
func (c *ConcurrencyTracker) Acquire(id global.Identity) {
	c.global++
	c.perID[id]++
}

// Release performs a saturating decrement of both counters, removing the
// identity's entry once it reaches zero. Releasing an identity with no
// outstanding slots is a no-op.
func (c *ConcurrencyTracker) Release(id global.Identity) {
	if c.global > 0 {
		c.global--
	}
	if n, ok := c.perID[id]; ok {
		if n <= 1 {
			delete(c.perID, id)
		} else {
			c.perID[id] = n - 1
		}
	}
}

// ConcurrencyStats is a point-in-time snapshot of tracker state.
type ConcurrencyStats struct {
	Global int                      `json:"global"`
	PerUser map[global.Identity]int `json:"per_user"`
}

// Stats returns a copy of the current global count and per-identity map.
func (c *ConcurrencyTracker) Stats() ConcurrencyStats {
	perUser := make(map[global.Identity]int, len(c.perID))
	for k, v := range c.perID {
		perUser[k] = v
	}
	return ConcurrencyStats{Global: c.global, PerUser: perUser}
}
