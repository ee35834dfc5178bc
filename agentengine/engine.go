/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package agentengine is the AgentJobEngine: it accepts a research request,
// runs it asynchronously against the Copilot agent runtime with a set of
// callable scraping tools, and exposes status via polling.
package agentengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidwarshawsky/scorchcrawl/agentjob"
	"github.com/davidwarshawsky/scorchcrawl/copilot"
	"github.com/davidwarshawsky/scorchcrawl/global"
	"github.com/davidwarshawsky/scorchcrawl/logging"
	"github.com/davidwarshawsky/scorchcrawl/ratelimit"
	"github.com/davidwarshawsky/scorchcrawl/scrapeengine"
	"github.com/davidwarshawsky/scorchcrawl/templates"
)

// Config is the slice of runtime configuration the engine needs: allowed
// models, the default model, and BYOK provider settings for session
// creation. It is deliberately narrow - the full process configuration
// lives in package config.
type Config struct {
	AllowedModels []string
	DefaultModel  string
	BYOKBaseURL   string
	BYOKAPIKey    string
	OriginLabel   string
}

func (c Config) isAllowed(model string) bool {
	if len(c.AllowedModels) == 0 {
		return true
	}
	for _, m := range c.AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}

// Request is the inbound research request.
type Request struct {
	Prompt     string
	Model      string
	FocusURLs  []string
	Schema     map[string]interface{}
}

// StartResult is the {id, status, rate_limited?, retry_after_s?, error?}
// shape start() returns.
type StartResult struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RateLimited bool   `json:"rate_limited,omitempty"`
	RetryAfterS int    `json:"retry_after_s,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Engine composes the guard, job store, reaper, client cache, and scraping
// engine client into the asynchronous agent job pipeline.
type Engine struct {
	cfg              Config
	guard            *ratelimit.Guard
	store            *agentjob.Store
	reaper           *agentjob.Reaper
	clients          *copilot.ClientCache
	scraper          *scrapeengine.Client
	validator        *templates.Validator
	logger           *logging.Logger
	processWideToken string
}

// New wires the engine's collaborators. processWideToken is the fallback
// Copilot token used when a request carries none of its own.
func New(cfg Config, guard *ratelimit.Guard, store *agentjob.Store, scraper *scrapeengine.Client, processWideToken string, logger *logging.Logger) *Engine {
	e := &Engine{
		cfg:              cfg,
		guard:            guard,
		store:            store,
		scraper:          scraper,
		validator:        templates.New(logger),
		processWideToken: processWideToken,
		logger:           logger,
	}
	e.clients = copilot.NewClientCache(e.buildClient, global.ClientCacheEvictAfterMs, logger)
	e.reaper = agentjob.NewReaper(store, guard, global.DefaultStaleJobTimeoutMs, global.DefaultGCIntervalMs, logger)
	return e
}

func (e *Engine) buildClient(id global.Identity) (copilot.Client, error) {
	token := e.processWideToken
	if id != "" && id != global.Identity(global.ServerIdentity) {
		token = string(id)
	}
	if e.cfg.BYOKBaseURL != "" {
		return copilot.NewAnthropicClientWithBaseURL(e.cfg.BYOKAPIKey, e.cfg.BYOKBaseURL), nil
	}
	return copilot.NewAnthropicClient(token), nil
}

// Start implements the eight-step admission procedure. A background
// goroutine runs the session and is guaranteed to release the identity's
// concurrency slot exactly once, regardless of how it terminates.
func (e *Engine) Start(ctx context.Context, req Request, identityToken string) StartResult {
	identity := global.Identity(identityToken)
	if identity == "" {
		identity = global.Identity(global.ServerIdentity)
	}

	id := uuid.NewString()

	model := req.Model
	if model == "" {
		model = e.cfg.DefaultModel
	}
	if !e.cfg.isAllowed(model) {
		return StartResult{
			ID:     id,
			Status: global.AgentJobStatusFailed,
			Error:  fmt.Sprintf("Model %q is not in the allowed list: %s", model, strings.Join(e.cfg.AllowedModels, ", ")),
		}
	}

	decision := e.guard.CheckAndAcquire(identity)
	if !decision.Allowed {
		return StartResult{ID: id, Status: global.AgentJobStatusRateLimited, RateLimited: true, RetryAfterS: decision.RetryAfterS, Error: decision.Reason}
	}

	now := time.Now().UnixMilli()
	job := e.store.Create(id, req.Prompt, identity, now)

	go e.runSession(job, req, model, identity, identityToken)

	return StartResult{ID: id, Status: global.AgentJobStatusProcessing}
}

// runSession is the background session task body. Every terminal write it
// makes is gated on winning job.TryFinalize, exactly like Reaper.sweep, so
// the session task and a concurrent reap of the same job can never both
// write the job's terminal fields.
func (e *Engine) runSession(job *global.AgentJob, req Request, model string, identity global.Identity, identityToken string) {
	defer func() {
		if r := recover(); r != nil {
			e.finishFailed(job, identity, fmt.Sprintf("Agent error: panic: %v", r))
		}
	}()

	ctx := context.Background()

	client, err := e.clients.Get(identity)
	if err != nil {
		e.finishFailed(job, identity, fmt.Sprintf("Agent error: acquiring client: %v", err))
		return
	}

	executors := e.buildToolExecutors(identity)

	session, err := copilot.NewSession(ctx, client, copilot.SessionOptions{
		Model:     model,
		System:    buildSystemPrompt(),
		Tools:     toolDefinitions(),
		Executors: executors,
	})
	if err != nil {
		e.finishFailed(job, identity, fmt.Sprintf("Agent error: opening session: %v", err))
		return
	}
	defer func() { _ = session.Close() }()

	session.OnError(func(evt copilot.ErrorEvent) copilot.ErrorDecision {
		decision := copilot.DecideError(evt)
		e.logger.Warnf("job %s: agent error context=%s recoverable=%v: %s", job.ID, evt.Context, evt.Recoverable, copilot.Truncate200(evt.ErrorText))
		return decision
	})

	go e.consumeUsage(session.Usage(), identity)

	prompt := buildUserPrompt(req)

	resp, err := session.Send(ctx, prompt)
	if err != nil {
		e.finishFailed(job, identity, fmt.Sprintf("Agent error: %v", err))
		return
	}

	content := resp.Content
	if content == "" {
		content = "No response generated"
	}

	result := map[string]interface{}{
		"success": true,
		"data":    content,
		"model":   resp.Model,
	}

	if len(req.Schema) > 0 {
		structured, validationErr := e.validateStructuredOutput(content, req.Schema)
		if validationErr != "" {
			e.finishFailed(job, identity, validationErr)
			return
		}
		result["data"] = structured
	}

	// The reaper may have already won the race and finalized this job as
	// timed out; skip the terminal write and release if so, mirroring
	// sweep's own check.
	if !job.TryFinalize() {
		return
	}
	job.Status = global.AgentJobStatusCompleted
	job.CompletedAt = time.Now().UnixMilli()
	job.Result = result
	e.guard.Release(identity)
}

// validateStructuredOutput recovers the JSON object the agent produced and
// validates it against the caller's schema. It returns the parsed object and
// an empty error string on success, or a nil object and a non-empty error
// message describing why the job should fail.
func (e *Engine) validateStructuredOutput(content string, schema map[string]interface{}) (interface{}, string) {
	candidate := templates.ExtractJSON(content)

	var parsed interface{}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, fmt.Sprintf("Agent error: response is not valid JSON matching the requested schema: %v", err)
	}

	result, err := e.validator.ValidateJSON([]byte(candidate), schemaToString(schema))
	if err != nil {
		return nil, fmt.Sprintf("Agent error: schema validation failed: %v", err)
	}
	if !result.Valid {
		return nil, fmt.Sprintf("Agent error: response does not match the requested schema: %s", strings.Join(result.Errors, "; "))
	}

	return parsed, ""
}

// finishFailed fails the job and releases its concurrency slot, but only if
// it wins the race to finalize - a concurrent reap of the same job must not
// be clobbered by a late failure write.
func (e *Engine) finishFailed(job *global.AgentJob, identity global.Identity, errMsg string) {
	if !job.TryFinalize() {
		return
	}
	job.Status = global.AgentJobStatusFailed
	job.Error = errMsg
	job.CompletedAt = time.Now().UnixMilli()
	e.guard.Release(identity)
}

func (e *Engine) consumeUsage(events <-chan copilot.UsageEvent, identity global.Identity) {
	for evt := range events {
		in := evt.InputTokens
		out := evt.OutputTokens
		_ = in
		_ = out
		// Token counts alone carry no quota-remaining signal from the
		// runtime; the partial snapshot is intentionally empty here and
		// exists so a future runtime event carrying remaining_percent has
		// somewhere to land without an API change.
		e.guard.UpdateQuota(identity, global.QuotaSnapshotPartial{})
	}
}

// Status returns the job record, or ok=false if unknown.
func (e *Engine) Status(id string) (*global.AgentJob, bool) {
	return e.store.Get(id)
}

// Stats exposes the guard's admission statistics.
func (e *Engine) Stats() ratelimit.GuardStats {
	return e.guard.Stats()
}

// Models returns the configured allowed models and default model.
func (e *Engine) Models() (allowed []string, defaultModel string) {
	return e.cfg.AllowedModels, e.cfg.DefaultModel
}

// Shutdown stops the reaper, the guard's GC task, and drains the client
// cache. Jobs still processing are abandoned, not awaited.
func (e *Engine) Shutdown() {
	e.reaper.Shutdown()
	e.guard.Shutdown()
	e.clients.Shutdown()
}

func buildSystemPrompt() string {
	return "You are an autonomous web research agent. Use the scraping tools " +
		"available to you to gather information before answering. Be concise " +
		"and cite the URLs you relied on."
}

func buildUserPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(req.Prompt)

	if len(req.FocusURLs) > 0 {
		sb.WriteString("\n\nFocus on these URLs:\n")
		for _, u := range req.FocusURLs {
			sb.WriteString("- " + u + "\n")
		}
	}

	if len(req.Schema) > 0 {
		sb.WriteString("\n\nRespond with JSON matching this schema:\n")
		sb.WriteString(schemaToString(req.Schema))
	}

	return sb.String()
}
