/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package identity

import (
	"testing"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

func TestFromHeadersPreferenceOrder(t *testing.T) {
	headers := map[string]string{
		global.HeaderCopilotToken: "copilot-tok",
		global.HeaderGithubToken:  "github-tok",
	}
	if got := FromHeaders(headers, "process-tok"); got != "copilot-tok" {
		t.Fatalf("want copilot-tok, got %s", got)
	}

	delete(headers, global.HeaderCopilotToken)
	if got := FromHeaders(headers, "process-tok"); got != "github-tok" {
		t.Fatalf("want github-tok, got %s", got)
	}

	delete(headers, global.HeaderGithubToken)
	if got := FromHeaders(headers, "process-tok"); got != "process-tok" {
		t.Fatalf("want process-tok, got %s", got)
	}

	if got := FromHeaders(headers, ""); got != global.ServerIdentity {
		t.Fatalf("want sentinel, got %s", got)
	}
}

func TestScrapeAPIKeyPrefersBearer(t *testing.T) {
	headers := map[string]string{
		global.HeaderAuthorization: "Bearer abc123",
		global.HeaderAPIKey:        "other-key",
	}
	if got := ScrapeAPIKey(headers); got != "abc123" {
		t.Fatalf("want abc123, got %s", got)
	}
}
