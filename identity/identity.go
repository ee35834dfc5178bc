/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package identity derives the opaque caller-attribution key the admission
// core and agent engine use to account for a request.
package identity

import (
	"strings"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

// FromHeaders derives an identity key by preference order from per-request
// Copilot-runtime token headers, falling back to a process-wide token and
// finally to the server sentinel. headers is expected to already have
// lower-cased keys; the HTTP transport stores each recognized header under
// its lower-case name before handlers see it.
func FromHeaders(headers map[string]string, processWideToken string) global.Identity {
	if tok := strings.TrimSpace(headers[global.HeaderCopilotToken]); tok != "" {
		return global.Identity(tok)
	}
	if tok := strings.TrimSpace(headers[global.HeaderGithubToken]); tok != "" {
		return global.Identity(tok)
	}
	if tok := strings.TrimSpace(processWideToken); tok != "" {
		return global.Identity(tok)
	}
	return global.Identity(global.ServerIdentity)
}

// FromOptionalToken resolves the identity for a stdio-transport call, where
// there are no HTTP headers and the only signal is an optional per-call
// token argument (e.g. a tool parameter) plus the process-wide fallback.
func FromOptionalToken(token, processWideToken string) global.Identity {
	if tok := strings.TrimSpace(token); tok != "" {
		return global.Identity(tok)
	}
	if tok := strings.TrimSpace(processWideToken); tok != "" {
		return global.Identity(tok)
	}
	return global.Identity(global.ServerIdentity)
}

// ScrapeAPIKey extracts the scraping-engine API key from request headers,
// preferring the standard bearer authorization header, then the two
// ScorchCrawl-specific key headers.
func ScrapeAPIKey(headers map[string]string) string {
	if auth := strings.TrimSpace(headers[global.HeaderAuthorization]); auth != "" {
		const prefix = "bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			return strings.TrimSpace(auth[len(prefix):])
		}
		return auth
	}
	if key := strings.TrimSpace(headers[global.HeaderAPIKey]); key != "" {
		return key
	}
	return strings.TrimSpace(headers[global.HeaderAPIKeyAlt])
}
