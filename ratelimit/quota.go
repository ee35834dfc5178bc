/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package ratelimit

import (
	"fmt"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

// QuotaMonitor stores the most recent upstream quota snapshot per identity
// and rejects new work when remaining quota drops below a configured
// threshold. Usage snapshots arrive asynchronously from the Copilot runtime
// and not every upstream version emits them, so stale records age into an
// allow rather than a permanent deny.
type QuotaMonitor struct {
	thresholdPercent float64
	records          map[global.Identity]*global.QuotaSnapshot
}

// NewQuotaMonitor builds a monitor that rejects when remaining quota falls
// at or below thresholdPercent.
func NewQuotaMonitor(thresholdPercent float64) *QuotaMonitor {
	return &QuotaMonitor{
		thresholdPercent: thresholdPercent,
		records:          make(map[global.Identity]*global.QuotaSnapshot),
	}
}

// Update merges a partial snapshot into the stored record, creating one if
// none exists. Fields not supplied in partial retain their prior value, or
// the documented defaults (100%, 0 used, unlimited=false) when there is no
// prior record.
func (q *QuotaMonitor) Update(id global.Identity, partial global.QuotaSnapshotPartial, now int64) {
	rec, ok := q.records[id]
	if !ok {
		rec = &global.QuotaSnapshot{RemainingPercent: 100, EntitlementRequests: -1}
		q.records[id] = rec
	}
	if partial.RemainingPercent != nil {
		rec.RemainingPercent = *partial.RemainingPercent
	}
	if partial.UsedRequests != nil {
		rec.UsedRequests = *partial.UsedRequests
	}
	if partial.EntitlementRequests != nil {
		rec.EntitlementRequests = *partial.EntitlementRequests
	}
	if partial.IsUnlimited != nil {
		rec.IsUnlimited = *partial.IsUnlimited
	}
	if partial.ResetDate != nil {
		rec.ResetDate = *partial.ResetDate
	}
	rec.LastUpdatedMs = now
}

// Check reports whether an identity may proceed: allowed when there is no
// record, the record is unlimited, the record is older than the 5 minute
// staleness grace period, or remaining percent exceeds the threshold.
func (q *QuotaMonitor) Check(id global.Identity, now int64) global.AdmissionDecision {
	rec, ok := q.records[id]
	if !ok {
		return global.AdmissionDecision{Allowed: true}
	}
	if rec.IsUnlimited {
		return global.AdmissionDecision{Allowed: true}
	}
	if now-rec.LastUpdatedMs > global.QuotaStaleGraceMs {
		return global.AdmissionDecision{Allowed: true}
	}
	if rec.RemainingPercent > q.thresholdPercent {
		return global.AdmissionDecision{Allowed: true}
	}

	reason := fmt.Sprintf("quota nearly exhausted: %.1f%% remaining (%d/%d used)",
		rec.RemainingPercent, rec.UsedRequests, rec.EntitlementRequests)
	if rec.ResetDate != "" {
		reason += fmt.Sprintf(", resets %s", rec.ResetDate)
	}
	return global.AdmissionDecision{Allowed: false, Reason: reason}
}

// GC drops entries whose last update is older than 30 minutes.
func (q *QuotaMonitor) GC(now int64) {
	for id, rec := range q.records {
		if now-rec.LastUpdatedMs >= global.QuotaEvictAfterMs {
			delete(q.records, id)
		}
	}
}
