/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package config

import (
	"os"
	"testing"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

func clearScorchEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		global.EnvMCPBindHost, global.EnvMCPBindPort, global.EnvAPIBindHost, global.EnvAPIBindPort,
		global.EnvScrapeAPIURL, global.EnvScrapeAPIKey, global.EnvCopilotToken, global.EnvCopilotCLIPath,
		global.EnvAllowedModels, global.EnvDefaultModel, global.EnvMaxGlobalConcurrency,
		global.EnvMaxPerUserConcurrency, global.EnvWindowMs, global.EnvMaxGlobalPerWindow,
		global.EnvMaxPerUserPerWindow, global.EnvQuotaThresholdPercent, global.EnvStaleJobTimeoutMs,
		global.EnvGCIntervalMs, global.EnvBYOKProviderType, global.EnvBYOKBaseURL, global.EnvBYOKAPIKey,
		global.EnvCloudService, global.EnvLocalProxy, global.EnvSafeMode, global.EnvLogFile,
		global.EnvLogLevel, global.EnvMCPTransport, global.EnvMCPHTTPAddr,
	}
	for _, v := range vars {
		_ = os.Unsetenv(v)
	}
}

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	clearScorchEnv(t)

	c := Load()
	if c.MCPTransport != "stdio" {
		t.Fatalf("want default transport stdio, got %s", c.MCPTransport)
	}
	if c.RateLimit.MaxGlobalConcurrency != global.DefaultMaxGlobalConcurrency {
		t.Fatalf("want default max global concurrency, got %d", c.RateLimit.MaxGlobalConcurrency)
	}
	if len(c.AllowedModels) != 1 || c.AllowedModels[0] != c.DefaultModel {
		t.Fatalf("want allowed models to fall back to [default_model], got %v", c.AllowedModels)
	}
}

func TestLoadParsesAllowedModelsList(t *testing.T) {
	clearScorchEnv(t)
	_ = os.Setenv(global.EnvAllowedModels, "gpt-4.1, claude-sonnet-4-5 ,  ")
	defer clearScorchEnv(t)

	c := Load()
	if len(c.AllowedModels) != 2 || c.AllowedModels[0] != "gpt-4.1" || c.AllowedModels[1] != "claude-sonnet-4-5" {
		t.Fatalf("want trimmed, comma-split model list, got %v", c.AllowedModels)
	}
}

func TestLoadFallsBackOnUnparsableNumber(t *testing.T) {
	clearScorchEnv(t)
	_ = os.Setenv(global.EnvMaxGlobalConcurrency, "not-a-number")
	defer clearScorchEnv(t)

	c := Load()
	if c.RateLimit.MaxGlobalConcurrency != global.DefaultMaxGlobalConcurrency {
		t.Fatalf("want fallback to default on parse failure, got %d", c.RateLimit.MaxGlobalConcurrency)
	}
}

func TestLoadForcesSafeModeWhenCloudServiceEnabled(t *testing.T) {
	clearScorchEnv(t)
	_ = os.Setenv(global.EnvCloudService, "true")
	defer clearScorchEnv(t)

	c := Load()
	if !c.SafeMode {
		t.Fatalf("want cloud_service to imply safe_mode")
	}
}

func TestIsLocalProxyEnabledViaURLParam(t *testing.T) {
	clearScorchEnv(t)
	defer clearScorchEnv(t)

	c := &Config{ScrapeAPIURL: "https://engine.example/?localProxy=true"}
	if !c.IsLocalProxyEnabled() {
		t.Fatalf("want local proxy mode enabled via URL param")
	}
}

func TestIsLocalProxyEnabledViaFlag(t *testing.T) {
	clearScorchEnv(t)
	defer clearScorchEnv(t)

	c := &Config{LocalProxy: true}
	if !c.IsLocalProxyEnabled() {
		t.Fatalf("want local proxy mode enabled via flag")
	}
}
