/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package scrapeengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStripLocalProxyParam(t *testing.T) {
	got, err := StripLocalProxyParam("https://api.example.com/?localProxy=true&other=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://api.example.com/?other=1" {
		t.Fatalf("want stripped URL, got %s", got)
	}
}

func TestIsLocalProxyEnabled(t *testing.T) {
	if !IsLocalProxyEnabled("https://x/?localProxy=1") {
		t.Fatalf("want enabled")
	}
	if IsLocalProxyEnabled("https://x/") {
		t.Fatalf("want disabled")
	}
}

func TestScrapeForwardsAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/scrape" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer server.Close()

	client, err := New(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	out, err := client.Scrape(context.Background(), map[string]interface{}{"url": "https://example.com"})
	if err != nil {
		t.Fatalf("Scrape error: %v", err)
	}
	if out["success"] != true {
		t.Fatalf("want success=true, got %+v", out)
	}
}

func TestScrapeWrapsUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("engine is down"))
	}))
	defer server.Close()

	client, _ := New(Options{BaseURL: server.URL})
	_, err := client.Scrape(context.Background(), map[string]interface{}{})
	if err == nil {
		t.Fatalf("expected error")
	}
}
