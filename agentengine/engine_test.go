/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package agentengine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/davidwarshawsky/scorchcrawl/agentjob"
	"github.com/davidwarshawsky/scorchcrawl/global"
	"github.com/davidwarshawsky/scorchcrawl/logging"
	"github.com/davidwarshawsky/scorchcrawl/ratelimit"
	"github.com/davidwarshawsky/scorchcrawl/scrapeengine"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	logger := logging.NewNop()
	guard := ratelimit.New(global.RateLimitConfig{
		MaxGlobalConcurrency:  10,
		MaxPerUserConcurrency: 5,
		WindowMs:              60_000,
		MaxGlobalPerWindow:    100,
		MaxPerUserPerWindow:   100,
		QuotaThresholdPercent: 10,
		StaleJobTimeoutMs:     global.DefaultStaleJobTimeoutMs,
		GCIntervalMs:          global.DefaultGCIntervalMs,
	}, logger)
	store := agentjob.NewStore()
	scraper, _ := scrapeengine.New(scrapeengine.Options{BaseURL: "http://127.0.0.1:0"})
	return New(Config{AllowedModels: []string{"gpt-4.1"}, DefaultModel: "gpt-4.1"}, guard, store, scraper, "test-token", logger)
}

func TestStartScenario4RejectsDisallowedModelWithNoSlotHeld(t *testing.T) {
	e := testEngine(t)
	defer e.Shutdown()

	result := e.Start(context.Background(), Request{Prompt: "p", Model: "nonexistent"}, "")
	if result.Status != global.AgentJobStatusFailed {
		t.Fatalf("want failed status, got %s", result.Status)
	}
	if !strings.Contains(result.Error, `Model "nonexistent" is not in the allowed list`) {
		t.Fatalf("want model-not-allowed error, got %q", result.Error)
	}

	stats := e.Stats()
	if stats.Concurrency.Global != 0 {
		t.Fatalf("want no concurrency slot held, got %d", stats.Concurrency.Global)
	}
}

func TestStartReturnsRateLimitedWithoutCreatingJobRecord(t *testing.T) {
	e := testEngine(t)
	defer e.Shutdown()

	identity := global.Identity("U")
	for i := 0; i < 5; i++ {
		e.guard.Acquire(identity)
	}

	result := e.Start(context.Background(), Request{Prompt: "p"}, "U")
	if !result.RateLimited {
		t.Fatalf("want rate_limited true")
	}
	if result.RetryAfterS < 1 {
		t.Fatalf("want retry_after_s >= 1, got %d", result.RetryAfterS)
	}
	if _, ok := e.Status(result.ID); ok {
		t.Fatalf("want no job record created for a rejected start")
	}
}

func TestStartAdmittedJobEventuallyTerminates(t *testing.T) {
	e := testEngine(t)
	defer e.Shutdown()

	result := e.Start(context.Background(), Request{Prompt: "p"}, "")
	if result.Status != global.AgentJobStatusProcessing {
		t.Fatalf("want processing, got %s", result.Status)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := e.Status(result.ID)
		if ok && job.Status != global.AgentJobStatusProcessing {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job never left processing status")
}

func TestValidateStructuredOutputAcceptsMatchingSchema(t *testing.T) {
	e := testEngine(t)
	defer e.Shutdown()

	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"answer"},
		"properties": map[string]interface{}{
			"answer": map[string]interface{}{"type": "string"},
		},
	}

	parsed, errMsg := e.validateStructuredOutput("```json\n{\"answer\": \"yes\"}\n```", schema)
	if errMsg != "" {
		t.Fatalf("want no error, got %q", errMsg)
	}
	obj, ok := parsed.(map[string]interface{})
	if !ok || obj["answer"] != "yes" {
		t.Fatalf("want parsed answer=yes, got %#v", parsed)
	}
}

func TestValidateStructuredOutputRejectsSchemaMismatch(t *testing.T) {
	e := testEngine(t)
	defer e.Shutdown()

	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"answer"},
	}

	_, errMsg := e.validateStructuredOutput(`{"wrong_field": "value"}`, schema)
	if errMsg == "" {
		t.Fatalf("want validation error for missing required field")
	}
}

func TestValidateStructuredOutputRejectsNonJSON(t *testing.T) {
	e := testEngine(t)
	defer e.Shutdown()

	_, errMsg := e.validateStructuredOutput("not json at all", map[string]interface{}{"type": "object"})
	if errMsg == "" {
		t.Fatalf("want error for non-JSON response")
	}
}
