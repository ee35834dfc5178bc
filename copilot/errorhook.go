/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package copilot

import "strings"

// ErrorContext classifies where a session error occurred.
type ErrorContext string

const (
	ContextModelCall     ErrorContext = "model_call"
	ContextToolExecution ErrorContext = "tool_execution"
	ContextSystem        ErrorContext = "system"
	ContextUserInput     ErrorContext = "user_input"
)

// ErrorOutcome is the decision the error hook reaches for a given error.
type ErrorOutcome string

const (
	OutcomeAbort ErrorOutcome = "abort"
	OutcomeRetry ErrorOutcome = "retry"
	OutcomeSkip  ErrorOutcome = "skip"
)

// ErrorEvent is the error occurrence reported to the hook.
type ErrorEvent struct {
	ErrorText   string
	Context     ErrorContext
	Recoverable bool
}

// ErrorDecision is the hook's verdict: what to do, and for retry, how many
// attempts remain.
type ErrorDecision struct {
	Outcome    ErrorOutcome
	RetryCount int
	Note       string
}

// DecideError implements the error hook's decision table: quota/licensing/auth
// errors and rate limits always abort; a recoverable model-call error gets
// two retries; a tool-execution error is skipped so the agent continues
// without that tool's result; anything else aborts.
func DecideError(event ErrorEvent) ErrorDecision {
	lower := strings.ToLower(event.ErrorText)

	for _, pattern := range []string{"quota", "402", "not licensed", "authentication"} {
		if strings.Contains(lower, pattern) {
			return ErrorDecision{Outcome: OutcomeAbort}
		}
	}
	for _, pattern := range []string{"rate limit", "429"} {
		if strings.Contains(lower, pattern) {
			return ErrorDecision{Outcome: OutcomeAbort, Note: "rate limit reached, retry later"}
		}
	}
	if event.Context == ContextModelCall && event.Recoverable {
		return ErrorDecision{Outcome: OutcomeRetry, RetryCount: 2}
	}
	if event.Context == ContextToolExecution {
		return ErrorDecision{Outcome: OutcomeSkip}
	}
	return ErrorDecision{Outcome: OutcomeAbort}
}

// Truncate200 returns the first 200 characters of s, the slice the hook logs
// alongside job_id/context/recoverable.
func Truncate200(s string) string {
	r := []rune(s)
	if len(r) <= 200 {
		return s
	}
	return string(r[:200])
}
