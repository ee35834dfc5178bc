/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package ratelimit

import (
	"strings"
	"testing"
	"time"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

func TestConcurrencyTrackerScenario1(t *testing.T) {
	c := NewConcurrencyTracker(3, 2)
	a := global.Identity("A")
	b := global.Identity("B")
	cIdent := global.Identity("C")
	d := global.Identity("D")

	c.Acquire(a)
	c.Acquire(a)

	if d := c.CanAcquire(a); d.Allowed || !strings.Contains(d.Reason, "concurrent jobs") {
		t.Fatalf("expected per-user rejection, got %+v", d)
	}

	if d := c.CanAcquire(b); !d.Allowed {
		t.Fatalf("expected B allowed, got %+v", d)
	}

	c.Acquire(b)
	c.Acquire(cIdent)

	if d := c.CanAcquire(d); d.Allowed || !strings.Contains(d.Reason, "capacity") {
		t.Fatalf("expected global capacity rejection, got %+v", d)
	}

	if stats := c.Stats(); stats.Global != 4 {
		t.Fatalf("want global=4, got %d", stats.Global)
	}
}

func TestConcurrencyTrackerReleaseIsSaturating(t *testing.T) {
	c := NewConcurrencyTracker(5, 5)
	id := global.Identity("solo")
	c.Release(id)
	c.Release(id)
	if stats := c.Stats(); stats.Global != 0 {
		t.Fatalf("want 0, got %d", stats.Global)
	}
	c.Acquire(id)
	c.Release(id)
	c.Release(id)
	if stats := c.Stats(); stats.Global != 0 || len(stats.PerUser) != 0 {
		t.Fatalf("want zeroed state, got %+v", stats)
	}
}

func TestConcurrencyRejectionsDoNotMutateState(t *testing.T) {
	c := NewConcurrencyTracker(1, 1)
	id := global.Identity("U")
	c.Acquire(id)
	before := c.Stats()
	c.CanAcquire(id)
	c.CanAcquire(global.Identity("other"))
	after := c.Stats()
	if before.Global != after.Global {
		t.Fatalf("CanAcquire mutated global count: before=%d after=%d", before.Global, after.Global)
	}
}

func TestSlidingWindowScenario2(t *testing.T) {
	l := NewSlidingWindowRateLimiter(500, 1000, 3)
	u := global.Identity("U")
	now := nowMs()
	l.Record(u, now)
	l.Record(u, now)
	l.Record(u, now)

	if d := l.Check(u, now); d.Allowed {
		t.Fatalf("expected rejection at window limit, got %+v", d)
	}

	time.Sleep(550 * time.Millisecond)
	if d := l.Check(u, nowMs()); !d.Allowed {
		t.Fatalf("expected allowed after window elapses, got %+v", d)
	}
}

func TestSlidingWindowRetryAfterAtLeastOne(t *testing.T) {
	l := NewSlidingWindowRateLimiter(1000, 1, 1)
	u := global.Identity("U")
	now := nowMs()
	l.Record(u, now)
	d := l.Check(u, now)
	if d.Allowed || d.RetryAfterS < 1 {
		t.Fatalf("expected rejection with retry_after_s >= 1, got %+v", d)
	}
}

func TestQuotaMonitorUnlimitedNeverRejects(t *testing.T) {
	q := NewQuotaMonitor(10)
	id := global.Identity("U")
	unlimited := true
	remaining := 0.0
	q.Update(id, global.QuotaSnapshotPartial{RemainingPercent: &remaining, IsUnlimited: &unlimited}, nowMs())
	if d := q.Check(id, nowMs()); !d.Allowed {
		t.Fatalf("unlimited identity must never be rejected, got %+v", d)
	}
}

func TestQuotaMonitorScenario3(t *testing.T) {
	q := NewQuotaMonitor(10)
	id := global.Identity("U")
	remaining := 5.0
	unlimited := false
	now := nowMs()
	q.Update(id, global.QuotaSnapshotPartial{RemainingPercent: &remaining, IsUnlimited: &unlimited}, now)

	d := q.Check(id, now)
	if d.Allowed || !strings.Contains(d.Reason, "quota nearly exhausted") {
		t.Fatalf("expected quota rejection, got %+v", d)
	}
}

func TestQuotaMonitorStaleRecordAllows(t *testing.T) {
	q := NewQuotaMonitor(10)
	id := global.Identity("U")
	remaining := 1.0
	unlimited := false
	past := nowMs() - global.QuotaStaleGraceMs - 1000
	q.Update(id, global.QuotaSnapshotPartial{RemainingPercent: &remaining, IsUnlimited: &unlimited}, past)

	if d := q.Check(id, nowMs()); !d.Allowed {
		t.Fatalf("stale quota record should be allowed, got %+v", d)
	}
}

func TestGuardCheckAndAcquireIsAtomic(t *testing.T) {
	g := New(global.RateLimitConfig{
		MaxGlobalConcurrency:  1,
		MaxPerUserConcurrency: 1,
		WindowMs:              60000,
		MaxGlobalPerWindow:    1000,
		MaxPerUserPerWindow:   1000,
		QuotaThresholdPercent: 10,
		GCIntervalMs:          3_600_000,
	}, nil)
	defer g.Shutdown()

	a := global.Identity("A")
	b := global.Identity("B")

	if d := g.CheckAndAcquire(a); !d.Allowed {
		t.Fatalf("expected A admitted, got %+v", d)
	}
	if d := g.CheckAndAcquire(b); d.Allowed {
		t.Fatalf("expected B rejected at global capacity, got %+v", d)
	}
	g.Release(a)
	if d := g.CheckAndAcquire(b); !d.Allowed {
		t.Fatalf("expected B admitted after release, got %+v", d)
	}
}
