/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package ratelimit

import (
	"fmt"
	"time"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

// SlidingWindowRateLimiter records request-admission timestamps per identity
// and globally, and reports whether a new admission would exceed the
// configured window limits. It is a non-blocking counterpart to a
// token-bucket limiter: instead of sleeping until a slot frees up, it
// reports allowed/rejected plus a retry hint and leaves waiting to the
// caller.
type SlidingWindowRateLimiter struct {
	windowMs            int64
	maxGlobalPerWindow  int
	maxPerUserPerWindow int

	globalSeq []int64
	perIDSeq  map[global.Identity][]int64
}

// NewSlidingWindowRateLimiter builds a limiter with the given window and
// thresholds. A window or max of zero is not a supported configuration;
// callers should substitute a defaulted value at startup.
func NewSlidingWindowRateLimiter(windowMs int64, maxGlobalPerWindow, maxPerUserPerWindow int) *SlidingWindowRateLimiter {
	return &SlidingWindowRateLimiter{
		windowMs:            windowMs,
		maxGlobalPerWindow:  maxGlobalPerWindow,
		maxPerUserPerWindow: maxPerUserPerWindow,
		perIDSeq:            make(map[global.Identity][]int64),
	}
}

func prune(seq []int64, cutoff int64) []int64 {
	i := 0
	for i < len(seq) && seq[i] <= cutoff {
		i++
	}
	if i == 0 {
		return seq
	}
	return append([]int64(nil), seq[i:]...)
}

// Check prunes both sequences against now-window_ms, then reports whether a
// new admission is allowed. The global sequence is evaluated first, then the
// per-identity sequence, matching the guard's documented evaluation order.
func (l *SlidingWindowRateLimiter) Check(id global.Identity, now int64) global.AdmissionDecision {
	cutoff := now - l.windowMs
	l.globalSeq = prune(l.globalSeq, cutoff)
	if seq, ok := l.perIDSeq[id]; ok {
		pruned := prune(seq, cutoff)
		if len(pruned) == 0 {
			delete(l.perIDSeq, id)
		} else {
			l.perIDSeq[id] = pruned
		}
	}

	if len(l.globalSeq) >= l.maxGlobalPerWindow {
		return global.AdmissionDecision{
			Allowed:     false,
			Reason:      "global request rate limit exceeded",
			RetryAfterS: retryAfterSeconds(l.globalSeq[0], l.windowMs, now),
		}
	}
	if seq := l.perIDSeq[id]; len(seq) >= l.maxPerUserPerWindow {
		return global.AdmissionDecision{
			Allowed:     false,
			Reason:      fmt.Sprintf("per-user request rate limit exceeded (max %d per window)", l.maxPerUserPerWindow),
			RetryAfterS: retryAfterSeconds(seq[0], l.windowMs, now),
		}
	}
	return global.AdmissionDecision{Allowed: true}
}

func retryAfterSeconds(oldest, windowMs, now int64) int {
	remainingMs := oldest + windowMs - now
	s := int((remainingMs + 999) / 1000)
	if s < 1 {
		return 1
	}
	return s
}

// Record appends now to both the global and per-identity sequences. It
// should follow a passed Check in admission order under the guard's lock;
// calling Record without a preceding Check is permitted but can overrun the
// configured limit under concurrent admission.
func (l *SlidingWindowRateLimiter) Record(id global.Identity, now int64) {
	l.globalSeq = append(l.globalSeq, now)
	l.perIDSeq[id] = append(l.perIDSeq[id], now)
}

// GC prunes all sequences against the same now-window_ms cutoff used by
// Check, deleting per-identity entries that become empty.
func (l *SlidingWindowRateLimiter) GC(now int64) {
	cutoff := now - l.windowMs
	l.globalSeq = prune(l.globalSeq, cutoff)
	for id, seq := range l.perIDSeq {
		pruned := prune(seq, cutoff)
		if len(pruned) == 0 {
			delete(l.perIDSeq, id)
		} else {
			l.perIDSeq[id] = pruned
		}
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
