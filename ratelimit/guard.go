/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/davidwarshawsky/scorchcrawl/global"
	"github.com/davidwarshawsky/scorchcrawl/logging"
)

// Guard composes ConcurrencyTracker, SlidingWindowRateLimiter, and
// QuotaMonitor into one check -> acquire -> release protocol, and owns the
// periodic GC timer that prunes the sliding window and quota records. A
// single mutex guards all three pieces of state together - per spec this is
// sufficient, and finer-grained locking is not required.
type Guard struct {
	mu sync.Mutex

	cfg    global.RateLimitConfig
	conc   *ConcurrencyTracker
	window *SlidingWindowRateLimiter
	quota  *QuotaMonitor

	logger *logging.Logger

	stopOnce sync.Once
	cancelGC context.CancelFunc
}

// New builds a Guard from config and starts its background GC task.
func New(cfg global.RateLimitConfig, logger *logging.Logger) *Guard {
	g := &Guard{
		cfg:    cfg,
		conc:   NewConcurrencyTracker(cfg.MaxGlobalConcurrency, cfg.MaxPerUserConcurrency),
		window: NewSlidingWindowRateLimiter(cfg.WindowMs, cfg.MaxGlobalPerWindow, cfg.MaxPerUserPerWindow),
		quota:  NewQuotaMonitor(cfg.QuotaThresholdPercent),
		logger: logger,
	}
	g.startGC()
	return g
}

// Check evaluates concurrency, then the sliding window, then quota, in that
// fixed order (concurrency is cheapest to check; quota is the most
// informative reason and so goes last), returning the first rejection or an
// allowed decision.
func (g *Guard) Check(id global.Identity) global.AdmissionDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checkLocked(id, nowMs())
}

func (g *Guard) checkLocked(id global.Identity, now int64) global.AdmissionDecision {
	if d := g.conc.CanAcquire(id); !d.Allowed {
		return d
	}
	if d := g.window.Check(id, now); !d.Allowed {
		return d
	}
	if d := g.quota.Check(id, now); !d.Allowed {
		return d
	}
	return global.AdmissionDecision{Allowed: true}
}

// Acquire performs ConcurrencyTracker.Acquire and SlidingWindowRateLimiter.Record
// together, atomically with respect to other Check/Acquire calls, so a
// check-then-acquire pair from one caller cannot be interleaved with another
// admission that would invalidate the decision it just made.
func (g *Guard) Acquire(id global.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := nowMs()
	g.conc.Acquire(id)
	g.window.Record(id, now)
}

// CheckAndAcquire performs the check and, if allowed, the acquire as a
// single atomic section. This is the shape AgentJobEngine.Start actually
// needs and avoids a TOCTOU gap between a separate Check and Acquire call.
func (g *Guard) CheckAndAcquire(id global.Identity) global.AdmissionDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := nowMs()
	d := g.checkLocked(id, now)
	if d.Allowed {
		g.conc.Acquire(id)
		g.window.Record(id, now)
	}
	return d
}

// Release performs a concurrency release only; rate-limit timestamps
// persist until they age out naturally via GC.
func (g *Guard) Release(id global.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conc.Release(id)
}

// UpdateQuota merges a usage-event snapshot for id.
func (g *Guard) UpdateQuota(id global.Identity, partial global.QuotaSnapshotPartial) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.quota.Update(id, partial, nowMs())
}

// GuardStats is the observability snapshot returned by scorch_agent_rate_limit_status.
type GuardStats struct {
	Concurrency ConcurrencyStats           `json:"concurrency"`
	Config      global.RateLimitConfig     `json:"config"`
}

// Stats returns a concurrency snapshot plus a projection of config fields.
func (g *Guard) Stats() GuardStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GuardStats{Concurrency: g.conc.Stats(), Config: g.cfg}
}

func (g *Guard) startGC() {
	ctx, cancel := context.WithCancel(context.Background())
	g.cancelGC = cancel
	interval := time.Duration(g.cfg.GCIntervalMs) * time.Millisecond
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.runGC()
			}
		}
	}()
}

func (g *Guard) runGC() {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Errorf("rate limit GC tick panicked: %v", r)
		}
	}()
	g.mu.Lock()
	defer g.mu.Unlock()
	now := nowMs()
	g.window.GC(now)
	g.quota.GC(now)
}

// Shutdown cancels the internal GC timer. Safe to call more than once.
func (g *Guard) Shutdown() {
	g.stopOnce.Do(func() {
		if g.cancelGC != nil {
			g.cancelGC()
		}
	})
}
