/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package copilot

import (
	"context"
	"errors"
	"testing"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

func TestDecideErrorTable(t *testing.T) {
	cases := []struct {
		name string
		in   ErrorEvent
		want ErrorOutcome
	}{
		{"quota", ErrorEvent{ErrorText: "Quota exceeded for account"}, OutcomeAbort},
		{"402", ErrorEvent{ErrorText: "HTTP 402 Payment Required"}, OutcomeAbort},
		{"rate limit", ErrorEvent{ErrorText: "429 rate limit hit"}, OutcomeAbort},
		{"recoverable model call", ErrorEvent{ErrorText: "connection reset", Context: ContextModelCall, Recoverable: true}, OutcomeRetry},
		{"tool execution", ErrorEvent{ErrorText: "tool timed out", Context: ContextToolExecution}, OutcomeSkip},
		{"unrecoverable model call", ErrorEvent{ErrorText: "weird", Context: ContextModelCall, Recoverable: false}, OutcomeAbort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DecideError(tc.in).Outcome; got != tc.want {
				t.Fatalf("DecideError(%+v) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

type fakeClient struct {
	responses []ChatResponse
	i         int
}

func (f *fakeClient) Chat(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
	if f.i >= len(f.responses) {
		return nil, errors.New("no more canned responses")
	}
	r := f.responses[f.i]
	f.i++
	return &r, nil
}

func TestSessionToolCallingLoop(t *testing.T) {
	client := &fakeClient{responses: []ChatResponse{
		{
			StopReason: StopToolUse,
			ToolCalls:  []ToolCall{{ID: "t1", Name: "web_search", Input: map[string]interface{}{"query": "go"}}},
		},
		{StopReason: StopEndTurn, Content: "done"},
	}}

	called := false
	session, err := NewSession(context.Background(), client, SessionOptions{
		Model: "test-model",
		Executors: map[string]ToolExecutor{
			"web_search": func(_ context.Context, input map[string]interface{}) (string, bool) {
				called = true
				return "result for " + input["query"].(string), false
			},
		},
	})
	if err != nil {
		t.Fatalf("NewSession error: %v", err)
	}
	defer session.Close()

	resp, err := session.Send(context.Background(), "find stuff")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if !called {
		t.Fatalf("expected tool to be invoked")
	}
	if resp.Content != "done" {
		t.Fatalf("want done, got %q", resp.Content)
	}
}

func TestSessionUnknownToolDoesNotAbortSend(t *testing.T) {
	client := &fakeClient{responses: []ChatResponse{
		{StopReason: StopToolUse, ToolCalls: []ToolCall{{ID: "t1", Name: "nonexistent"}}},
		{StopReason: StopEndTurn, Content: "recovered"},
	}}
	session, _ := NewSession(context.Background(), client, SessionOptions{Model: "m"})
	resp, err := session.Send(context.Background(), "p")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if resp.Content != "recovered" {
		t.Fatalf("want recovered, got %q", resp.Content)
	}
}

func TestClientCacheReusesHandle(t *testing.T) {
	calls := 0
	cache := NewClientCache(func(global.Identity) (Client, error) {
		calls++
		return &fakeClient{}, nil
	}, global.ClientCacheEvictAfterMs, nil)
	defer cache.Shutdown()

	id := global.Identity("U")
	c1, _ := cache.Get(id)
	c2, _ := cache.Get(id)
	if c1 != c2 {
		t.Fatalf("expected cached client to be reused")
	}
	if calls != 1 {
		t.Fatalf("want factory called once, got %d", calls)
	}
}
