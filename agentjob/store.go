/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package agentjob holds the AgentJobStore (the source of truth for agent
// job status polling) and the StaleJobReaper that reclaims jobs abandoned by
// a dead or hung session task.
package agentjob

import (
	"sync"
	"time"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

// Store is a mapping from job id to job record, guarded by a single mutex.
// Jobs still processing are never removed; completed/failed jobs are removed
// by Prune, which the reaper calls on every sweep to apply the retention
// window.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*global.AgentJob
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*global.AgentJob)}
}

// Create inserts a new job record with status processing.
func (s *Store) Create(id string, prompt string, id2 global.Identity, now int64) *global.AgentJob {
	job := &global.AgentJob{
		ID:        id,
		Status:    global.AgentJobStatusProcessing,
		Prompt:    prompt,
		Identity:  id2,
		CreatedAt: now,
	}
	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()
	return job
}

// Get returns the job record for id, or (nil, false) if not found.
func (s *Store) Get(id string) (*global.AgentJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Snapshot returns every job currently stored. The returned slice is a
// shallow copy of the map's values; callers must not mutate job fields
// without going through the store's owning task/reaper discipline.
func (s *Store) Snapshot() []*global.AgentJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*global.AgentJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}

// Prune evicts completed/failed jobs older than retention. This implements
// the spec's open eviction-policy question: jobs still processing are never
// evicted regardless of age (the reaper is responsible for moving those out
// of processing first).
func (s *Store) Prune(retentionMs int64, now int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, job := range s.jobs {
		if job.Status == global.AgentJobStatusProcessing {
			continue
		}
		if job.CompletedAt != 0 && now-job.CompletedAt > retentionMs {
			delete(s.jobs, id)
			evicted++
		}
	}
	return evicted
}

// FindStale returns the ids of jobs that are still processing and older
// than timeoutMs, given the supplied job list and the current time. It is a
// pure, test-friendly form of the staleness rule that Reaper.sweep applies
// inline; the sweep itself does not call it.
func FindStale(jobs []*global.AgentJob, timeoutMs int64, now int64) []string {
	var stale []string
	for _, j := range jobs {
		if j.Status == global.AgentJobStatusProcessing && now-j.CreatedAt > timeoutMs {
			stale = append(stale, j.ID)
		}
	}
	return stale
}

func nowMs() int64 { return time.Now().UnixMilli() }
