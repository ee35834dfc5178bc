/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/davidwarshawsky/scorchcrawl/config"
	"github.com/davidwarshawsky/scorchcrawl/global"
	"github.com/davidwarshawsky/scorchcrawl/logging"
	"github.com/davidwarshawsky/scorchcrawl/server"
)

func main() {
	defer func() {
		if rec := recover(); rec != nil {
			_, _ = fmt.Fprintf(os.Stderr, "FATAL PANIC: %v\n", rec)
			os.Exit(2)
		}
	}()

	var (
		envFile = flag.String("env-file", "", "Path to a .env file to load before reading the environment")
		version = flag.Bool("version", false, "Show version information")
		help    = flag.Bool("help", false, "Show help information")
	)
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", global.ProgramName, global.Version)
		return
	}

	if *help {
		showHelp()
		return
	}

	if *envFile != "" {
		if err := loadEnvFile(*envFile); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to load env file %s: %v\n", *envFile, err)
		}
	}

	cfg := config.Load()

	logger, err := logging.New(cfg.LogFile)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *logging.Logger) {
		_ = logger.Sync()
		_ = logger.Close()
	}(logger)

	logger.SetLevel(cfg.LogLevel)
	logger.Infof("%s v%s starting (transport=%s)", global.ProgramName, global.Version, cfg.MCPTransport)

	if cfg.ScrapeAPIURL == "" {
		logger.Warn("SCORCHCRAWL_API_URL is not set; scrape/map/search/crawl/extract tools will fail until configured")
	}
	if cfg.CopilotToken == "" && cfg.BYOKAPIKey == "" {
		logger.Warn("no Copilot or BYOK credential configured; scorch_agent will not be able to start sessions")
	}
	if cfg.IsLocalProxyEnabled() {
		logger.Info("local-proxy mode enabled: purely local-capable scrape formats bypass the downstream engine")
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Run(); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}

func showHelp() {
	fmt.Printf(`%s v%s - MCP bridge for web scraping and autonomous research agents

USAGE:
    %s [OPTIONS]

OPTIONS:
    --env-file PATH  Load environment variables from PATH before startup
    --version        Show version information
    --help           Show this help message

CONFIGURATION:
    %s reads its entire configuration from the process environment; there
    is no configuration file. See %s and %s
    for the recognized settings, or pass --env-file to load them from a
    .env-style file instead of the shell environment.

TOOLS:
    scorch_scrape, scorch_map, scorch_search, scorch_crawl,
    scorch_check_crawl_status, scorch_extract, scorch_agent,
    scorch_agent_status, scorch_agent_models, scorch_agent_rate_limit_status,
    health

TRANSPORT:
    MCP_TRANSPORT selects stdio (default) or http-stream. Over http-stream,
    caller identity is read from the x-copilot-token or x-github-token
    request header, falling back to SCORCHCRAWL_COPILOT_TOKEN.
`, global.ProgramName, global.Version, global.ProgramName, global.ProgramName,
		global.EnvScrapeAPIURL, global.EnvCopilotToken)
}

// loadEnvFile applies KEY=VALUE lines from path to the process environment,
// skipping blanks and #-comments. Existing environment variables are not
// overwritten, so shell-provided values still win over the file.
func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
