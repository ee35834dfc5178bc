/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package config loads process configuration from environment variables.
// There is no config file: every MCP server in this family configures
// itself from its environment, and this one follows suit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

// Config is the resolved, typed view over the process environment.
type Config struct {
	MCPHost string
	MCPPort string
	APIHost string
	APIPort string

	ScrapeAPIURL string
	ScrapeAPIKey string

	CopilotToken   string
	CopilotCLIPath string

	AllowedModels []string
	DefaultModel  string

	RateLimit global.RateLimitConfig

	BYOKProviderType string
	BYOKBaseURL      string
	BYOKAPIKey       string

	CloudService bool
	LocalProxy   bool
	SafeMode     bool

	LogFile  string
	LogLevel string

	MCPTransport string
	MCPHTTPAddr  string
}

// warnf is the fallback for configuration problems discovered before a
// logger exists - numeric parse failures fall back to defaults rather than
// failing startup, consistent with how this family treats configuration
// errors as non-fatal whenever a safe default exists.
func warnf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

// Load reads every recognized environment variable and applies defaults for
// anything unset or unparsable.
func Load() *Config {
	c := &Config{
		MCPHost: getEnv(global.EnvMCPBindHost, "127.0.0.1"),
		MCPPort: getEnv(global.EnvMCPBindPort, "3000"),
		APIHost: getEnv(global.EnvAPIBindHost, "127.0.0.1"),
		APIPort: getEnv(global.EnvAPIBindPort, "8080"),

		ScrapeAPIURL: os.Getenv(global.EnvScrapeAPIURL),
		ScrapeAPIKey: os.Getenv(global.EnvScrapeAPIKey),

		CopilotToken:   os.Getenv(global.EnvCopilotToken),
		CopilotCLIPath: os.Getenv(global.EnvCopilotCLIPath),

		DefaultModel: getEnv(global.EnvDefaultModel, "claude-sonnet-4-5"),

		BYOKProviderType: os.Getenv(global.EnvBYOKProviderType),
		BYOKBaseURL:      os.Getenv(global.EnvBYOKBaseURL),
		BYOKAPIKey:       os.Getenv(global.EnvBYOKAPIKey),

		CloudService: getBool(global.EnvCloudService, false),
		LocalProxy:   getBool(global.EnvLocalProxy, false),
		SafeMode:     getBool(global.EnvSafeMode, false),

		LogFile:  getEnv(global.EnvLogFile, expandHomePath("~/.scorchcrawl/scorchcrawl.log")),
		LogLevel: strings.ToUpper(getEnv(global.EnvLogLevel, global.LogLevelInfo)),

		MCPTransport: getEnv(global.EnvMCPTransport, "stdio"),
		MCPHTTPAddr:  getEnv(global.EnvMCPHTTPAddr, ":3000"),
	}

	if raw := os.Getenv(global.EnvAllowedModels); raw != "" {
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				c.AllowedModels = append(c.AllowedModels, m)
			}
		}
	}
	if len(c.AllowedModels) == 0 {
		c.AllowedModels = []string{c.DefaultModel}
	}

	// cloud_service implies safe_mode: a cloud deployment must hide the
	// actions/webhook params regardless of how SCORCHCRAWL_SAFE_MODE is set.
	c.SafeMode = c.SafeMode || c.CloudService

	c.RateLimit = global.RateLimitConfig{
		MaxGlobalConcurrency:  getInt(global.EnvMaxGlobalConcurrency, global.DefaultMaxGlobalConcurrency),
		MaxPerUserConcurrency: getInt(global.EnvMaxPerUserConcurrency, global.DefaultMaxPerUserConcurrency),
		WindowMs:              getInt64(global.EnvWindowMs, global.DefaultWindowMs),
		MaxGlobalPerWindow:    getInt(global.EnvMaxGlobalPerWindow, global.DefaultMaxGlobalPerWindow),
		MaxPerUserPerWindow:   getInt(global.EnvMaxPerUserPerWindow, global.DefaultMaxPerUserPerWindow),
		QuotaThresholdPercent: getFloat(global.EnvQuotaThresholdPercent, global.DefaultQuotaThresholdPercent),
		StaleJobTimeoutMs:     getInt64(global.EnvStaleJobTimeoutMs, global.DefaultStaleJobTimeoutMs),
		GCIntervalMs:          getInt64(global.EnvGCIntervalMs, global.DefaultGCIntervalMs),
	}

	return c
}

// IsLocalProxyEnabled reports whether local-proxy mode is on via either the
// environment flag or the scraping engine URL's ?localProxy= query param.
func (c *Config) IsLocalProxyEnabled() bool {
	return c.LocalProxy || strings.Contains(strings.ToLower(c.ScrapeAPIURL), "localproxy=true") ||
		strings.Contains(strings.ToLower(c.ScrapeAPIURL), "localproxy=1")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1"
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		warnf("%s=%q is not a valid integer, using default %d", key, raw, fallback)
		return fallback
	}
	return n
}

func getInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		warnf("%s=%q is not a valid integer, using default %d", key, raw, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		warnf("%s=%q is not a valid number, using default %g", key, raw, fallback)
		return fallback
	}
	return n
}

func expandHomePath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
