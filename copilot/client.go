/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package copilot models the session lifecycle of the downstream LLM-driven
// Copilot agent runtime: create, register error hook, subscribe to usage
// events, send-and-wait, destroy. Only the session lifecycle matters to
// callers; the underlying chat wire format is an implementation detail
// hidden behind the Client interface.
package copilot

import "context"

// Role is a chat message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StopReason indicates why the model stopped generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
	StopToolUse   StopReason = "tool_use"
)

// Message is a single turn in a conversation.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolResult *ToolResult
}

// ToolDefinition describes a callable tool exposed to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// ToolCall is the model requesting a tool invocation.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// ToolResult is the outcome of a tool invocation sent back to the model.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// TokenUsage tracks token consumption for one chat call.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// ChatRequest is a single request/response turn against the runtime.
type ChatRequest struct {
	Model     string
	Messages  []Message
	System    string
	Tools     []ToolDefinition
	MaxTokens int
}

// ChatResponse is the runtime's reply to a ChatRequest.
type ChatResponse struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason StopReason
	Usage      TokenUsage
}

// Client is the minimal chat interface a Copilot-compatible backend must
// implement. Session drives the tool-calling loop on top of it.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
