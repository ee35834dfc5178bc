/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package agentjob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/davidwarshawsky/scorchcrawl/global"
	"github.com/davidwarshawsky/scorchcrawl/logging"
)

// Releaser is the concurrency-slot release half of ratelimit.Guard that the
// reaper needs. Defined here as a narrow interface (rather than importing
// the ratelimit package's concrete type) so agentjob has no dependency on
// the admission core's internals.
type Releaser interface {
	Release(id global.Identity)
}

// Reaper is the StaleJobReaper: a periodic task that finds jobs stuck in
// processing beyond the configured timeout, marks them failed, and releases
// their concurrency slot. It races the session task that owns the same job
// - both may try to finalize it - so exactly-once release is enforced via
// AgentJob.TryFinalize rather than by reaper/session coordination.
type Reaper struct {
	store       *Store
	guard       Releaser
	timeoutMs   int64
	retentionMs int64
	logger      *logging.Logger

	stopOnce sync.Once
	cancel   context.CancelFunc
}

// NewReaper builds a reaper and starts its periodic sweep. Each sweep both
// fails jobs stuck in processing beyond timeoutMs and prunes terminal jobs
// older than global.JobRetentionMs, reusing the same store walk for both.
func NewReaper(store *Store, guard Releaser, timeoutMs, intervalMs int64, logger *logging.Logger) *Reaper {
	r := &Reaper{store: store, guard: guard, timeoutMs: timeoutMs, retentionMs: global.JobRetentionMs, logger: logger}
	r.start(intervalMs)
	return r
}

func (r *Reaper) start(intervalMs int64) {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go func() {
		ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

func (r *Reaper) sweep() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("stale job reaper tick panicked: %v", rec)
		}
	}()
	now := nowMs()
	for _, job := range r.store.Snapshot() {
		if job.Status != global.AgentJobStatusProcessing {
			continue
		}
		if now-job.CreatedAt <= r.timeoutMs {
			continue
		}
		// The reaper performs the release only if it wins the race to
		// transition the job out of processing; if the session task
		// finalizes first, TryFinalize returns false and we skip release.
		if !job.TryFinalize() {
			continue
		}
		job.Status = global.AgentJobStatusFailed
		job.Error = fmt.Sprintf("Job timed out after %ds without completing.", r.timeoutMs/1000)
		job.CompletedAt = now
		r.guard.Release(job.Identity)
		r.logger.Warnf("reaped stale job job_id=%s", job.ID)
	}

	if evicted := r.store.Prune(r.retentionMs, now); evicted > 0 {
		r.logger.Debugf("pruned %d terminal job(s) older than retention window", evicted)
	}
}

// Shutdown cancels the reaper's periodic sweep. Safe to call more than once.
func (r *Reaper) Shutdown() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
	})
}
