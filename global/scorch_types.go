/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package global

import "sync/atomic"

// Identity is the opaque caller-attribution key used throughout the
// admission core. Equality is the only operation that matters.
type Identity string

// RateLimitConfig is an immutable bundle of admission thresholds built once
// from the environment at startup and never mutated afterward.
type RateLimitConfig struct {
	MaxGlobalConcurrency  int
	MaxPerUserConcurrency int
	WindowMs              int64
	MaxGlobalPerWindow    int
	MaxPerUserPerWindow   int
	QuotaThresholdPercent float64
	StaleJobTimeoutMs     int64
	GCIntervalMs          int64
}

// AgentJob is the record created when a scorch_agent request is admitted. It
// is mutated only by the engine task that owns it and by the reaper.
type AgentJob struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	Prompt      string      `json:"prompt"`
	Identity    Identity    `json:"-"`
	CreatedAt   int64       `json:"created_at"`
	CompletedAt int64       `json:"completed_at,omitempty"`
	Result      interface{} `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	Progress    string      `json:"progress,omitempty"`

	// finalized guards the exactly-once concurrency-slot release; 0 = not
	// yet released, 1 = released. Mutate only via sync/atomic.
	finalized int32
}

// TryFinalize flips the job's finalized flag from 0 to 1 and reports whether
// this call was the one that performed the flip. Exactly one of the session
// task and the reaper will observe true for a given job.
func (j *AgentJob) TryFinalize() bool {
	return atomic.CompareAndSwapInt32(&j.finalized, 0, 1)
}

// QuotaSnapshot is the most recent upstream quota record for an identity.
type QuotaSnapshot struct {
	RemainingPercent    float64
	UsedRequests        int64
	EntitlementRequests int64
	IsUnlimited         bool
	ResetDate           string
	LastUpdatedMs       int64
}

// QuotaSnapshotPartial carries only the fields a usage event actually
// reported; zero-value fields are left untouched by QuotaMonitor.Update.
type QuotaSnapshotPartial struct {
	RemainingPercent    *float64
	UsedRequests        *int64
	EntitlementRequests *int64
	IsUnlimited         *bool
	ResetDate           *string
}

// AdmissionDecision is the result of a ConcurrencyTracker/SlidingWindowRateLimiter/
// QuotaMonitor/RateLimitGuard check.
type AdmissionDecision struct {
	Allowed     bool
	Reason      string
	RetryAfterS int
}
