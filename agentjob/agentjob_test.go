/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package agentjob

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davidwarshawsky/scorchcrawl/global"
	"github.com/davidwarshawsky/scorchcrawl/logging"
)

func TestFindStaleScenario7(t *testing.T) {
	now := int64(1_000_000)
	jobs := []*global.AgentJob{
		{ID: "old", Status: global.AgentJobStatusProcessing, CreatedAt: now - 10000},
		{ID: "new", Status: global.AgentJobStatusProcessing, CreatedAt: now},
	}
	got := FindStale(jobs, 5000, now)
	if len(got) != 1 || got[0] != "old" {
		t.Fatalf("want [old], got %v", got)
	}
}

type countingReleaser struct {
	count int32
}

func (c *countingReleaser) Release(global.Identity) {
	atomic.AddInt32(&c.count, 1)
}

func TestExactlyOneReleaseUnderReaperRace(t *testing.T) {
	store := NewStore()
	job := store.Create("job-1", "p", global.Identity("U"), nowMs()-1000)

	logger, _ := logging.New(t.TempDir() + "/test.log")
	releaser := &countingReleaser{}
	reaper := NewReaper(store, releaser, 1, 5, logger)
	defer reaper.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		if job.TryFinalize() {
			job.Status = global.AgentJobStatusCompleted
			job.CompletedAt = nowMs()
			releaser.Release(job.Identity)
		}
	}()

	time.Sleep(200 * time.Millisecond)
	wg.Wait()

	if got := atomic.LoadInt32(&releaser.count); got != 1 {
		t.Fatalf("want exactly one release, got %d", got)
	}
}

func TestStorePruneLeavesProcessingJobs(t *testing.T) {
	store := NewStore()
	now := nowMs()
	store.Create("active", "p", global.Identity("U"), now)
	done := store.Create("done", "p", global.Identity("U"), now-100000)
	done.Status = global.AgentJobStatusCompleted
	done.CompletedAt = now - 100000

	evicted := store.Prune(1000, now)
	if evicted != 1 {
		t.Fatalf("want 1 evicted, got %d", evicted)
	}
	if _, ok := store.Get("active"); !ok {
		t.Fatalf("active job must survive prune")
	}
	if _, ok := store.Get("done"); ok {
		t.Fatalf("completed job past retention should be evicted")
	}
}
