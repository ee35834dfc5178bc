/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package copilot

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ToolExecutor runs one agent-facing callback tool and returns the text fed
// back to the model plus whether the call failed. Exceptions must never
// propagate into the session loop - implementations are expected to recover
// internally and report failure via the returned bool, matching the
// scraping tool callback contract.
type ToolExecutor func(ctx context.Context, input map[string]interface{}) (textForLLM string, isError bool)

// UsageEvent is emitted after every model turn and carries whatever token
// usage the backend reported for that turn. It stands in for the upstream
// runtime's asynchronous quota snapshot events; a real Copilot-compatible
// backend would report a remaining-quota percentage directly, which a
// caller maps into the admission core's QuotaMonitor.
type UsageEvent struct {
	InputTokens  int
	OutputTokens int
}

// SessionOptions configures a new session.
type SessionOptions struct {
	Model     string
	System    string
	Tools     []ToolDefinition
	Executors map[string]ToolExecutor
	MaxTokens int

	// MaxToolIterations bounds the tool-calling loop so a misbehaving model
	// cannot keep the background task alive forever.
	MaxToolIterations int
}

// Session is one research conversation against the Copilot runtime: a
// system prompt, a bounded tool-calling loop, an error hook, and a usage
// event feed, backed by a Client handle usually pulled from a ClientCache.
type Session struct {
	id        string
	client    Client
	opts      SessionOptions
	errorHook func(ErrorEvent) ErrorDecision
	usageCh   chan UsageEvent
}

// NewSession opens a session against client with the given options. The
// underlying client handle's lifecycle is owned by the caller (typically a
// ClientCache entry); Close never shuts down the client itself.
func NewSession(_ context.Context, client Client, opts SessionOptions) (*Session, error) {
	if opts.MaxToolIterations == 0 {
		opts.MaxToolIterations = 8
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 4096
	}
	return &Session{
		id:        uuid.NewString(),
		client:    client,
		opts:      opts,
		errorHook: DecideError,
		usageCh:   make(chan UsageEvent, 16),
	}, nil
}

// OnError registers the error hook used when a model or tool call fails.
// Defaults to DecideError's table if never called.
func (s *Session) OnError(hook func(ErrorEvent) ErrorDecision) {
	s.errorHook = hook
}

// Usage returns the channel usage events are published on. The channel is
// closed when the session is closed.
func (s *Session) Usage() <-chan UsageEvent {
	return s.usageCh
}

// Response is the final result of a Send call.
type Response struct {
	Content string
	Model   string
}

// Send runs the send-and-wait tool-calling loop: send the prompt, execute
// any requested tools, feed results back, and repeat until the model stops
// without requesting a tool call or the iteration bound is hit.
func (s *Session) Send(ctx context.Context, prompt string) (*Response, error) {
	messages := []Message{{Role: RoleUser, Content: prompt}}
	retries := 0

	for i := 0; i < s.opts.MaxToolIterations; i++ {
		resp, err := s.client.Chat(ctx, ChatRequest{
			Model:     s.opts.Model,
			Messages:  messages,
			System:    s.opts.System,
			Tools:     s.opts.Tools,
			MaxTokens: s.opts.MaxTokens,
		})
		if err != nil {
			decision := s.errorHook(ErrorEvent{
				ErrorText:   err.Error(),
				Context:     ContextModelCall,
				Recoverable: true,
			})
			if decision.Outcome == OutcomeRetry && retries < decision.RetryCount {
				retries++
				continue
			}
			return nil, fmt.Errorf("model call failed: %w", err)
		}
		retries = 0

		s.publishUsage(resp.Usage)

		if resp.StopReason != StopToolUse || len(resp.ToolCalls) == 0 {
			return &Response{Content: resp.Content, Model: s.opts.Model}, nil
		}

		messages = append(messages, Message{Role: RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			text, isError := s.runTool(ctx, call)
			messages = append(messages, Message{
				Role: RoleUser,
				ToolResult: &ToolResult{ToolUseID: call.ID, Content: text, IsError: isError},
			})
		}
	}

	return nil, fmt.Errorf("exceeded maximum tool-calling iterations (%d)", s.opts.MaxToolIterations)
}

func (s *Session) runTool(ctx context.Context, call ToolCall) (string, bool) {
	executor, ok := s.opts.Executors[call.Name]
	if !ok {
		decision := s.errorHook(ErrorEvent{
			ErrorText:   fmt.Sprintf("unknown tool requested: %s", call.Name),
			Context:     ContextToolExecution,
			Recoverable: true,
		})
		_ = decision
		return fmt.Sprintf("tool %q is not available", call.Name), true
	}
	return executor(ctx, call.Input)
}

func (s *Session) publishUsage(usage TokenUsage) {
	select {
	case s.usageCh <- UsageEvent{InputTokens: usage.InputTokens, OutputTokens: usage.OutputTokens}:
	default:
		// Usage consumers poll; a full buffer means nobody is listening
		// right now. Dropping is acceptable - quota updates are advisory.
	}
}

// Close destroys the session. Errors are intentionally ignored per the
// engine's session-task contract.
func (s *Session) Close() error {
	close(s.usageCh)
	return nil
}
