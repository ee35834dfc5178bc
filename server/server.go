/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/davidwarshawsky/scorchcrawl/agentengine"
	"github.com/davidwarshawsky/scorchcrawl/agentjob"
	"github.com/davidwarshawsky/scorchcrawl/config"
	"github.com/davidwarshawsky/scorchcrawl/global"
	"github.com/davidwarshawsky/scorchcrawl/logging"
	"github.com/davidwarshawsky/scorchcrawl/ratelimit"
	"github.com/davidwarshawsky/scorchcrawl/scrapeengine"
)

// Server wraps the MCP server with the scraping/agent bridge services.
type Server struct {
	config    *config.Config
	logger    *logging.Logger
	guard     *ratelimit.Guard
	scraper   *scrapeengine.Client
	engine    *agentengine.Engine
	mcpServer *server.MCPServer
}

// New creates a new server instance, wiring the admission core, the agent
// job engine, and the scraping engine client from cfg.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	guard := ratelimit.New(cfg.RateLimit, logger)

	scraper, err := scrapeengine.New(scrapeengine.Options{
		BaseURL: cfg.ScrapeAPIURL,
		APIKey:  cfg.ScrapeAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build scraping engine client: %w", err)
	}

	store := agentjob.NewStore()
	engineCfg := agentengine.Config{
		AllowedModels: cfg.AllowedModels,
		DefaultModel:  cfg.DefaultModel,
		OriginLabel:   global.OriginLabel,
	}
	if cfg.BYOKProviderType != "" && cfg.BYOKBaseURL != "" {
		engineCfg.BYOKBaseURL = cfg.BYOKBaseURL
		engineCfg.BYOKAPIKey = cfg.BYOKAPIKey
	}
	engine := agentengine.New(engineCfg, guard, store, scraper, cfg.CopilotToken, logger)

	mcpServer := server.NewMCPServer(
		global.ProgramName,
		global.Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	srv := &Server{
		config:    cfg,
		logger:    logger,
		guard:     guard,
		scraper:   scraper,
		engine:    engine,
		mcpServer: mcpServer,
	}

	if err := srv.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return srv, nil
}

// readOnlyTool creates a tool with read-only annotations.
func (s *Server) readOnlyTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(true),
		DestructiveHint: mcp.ToBoolPtr(false),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}))
	return mcp.NewTool(name, opts...)
}

// defaultTool creates a tool with default annotations: reaches out to the
// network (open world) but does not destroy caller-visible state.
func (s *Server) defaultTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(false),
		DestructiveHint: mcp.ToBoolPtr(false),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}))
	return mcp.NewTool(name, opts...)
}

// registerTools registers the ten scraping/agent MCP tools plus health.
func (s *Server) registerTools() error {
	s.mcpServer.AddTool(
		s.defaultTool(global.ToolScrape,
			mcp.WithDescription("Fetch a single URL and return its content as markdown/html/links. In local-proxy mode, purely local-capable formats are served without the downstream engine."),
			mcp.WithString("url", mcp.Required(), mcp.Description("URL to fetch")),
			mcp.WithString("formats", mcp.Description("JSON array of output formats, e.g. [\"markdown\",\"html\"]. Some formats (json, screenshot) require the downstream engine.")),
			mcp.WithBoolean("onlyMainContent", mcp.Description("Strip nav/ads/footers and return only the main content region")),
			mcp.WithNumber("waitFor", mcp.Description("Milliseconds to wait before considering the page loaded")),
			mcp.WithBoolean("skipTlsVerification", mcp.Description("Skip TLS certificate verification for this request")),
			mcp.WithString("location", mcp.Description("JSON object: engine-side geolocation override")),
			mcp.WithString("proxy", mcp.Description("Engine-side proxy selection")),
			mcp.WithNumber("maxAge", mcp.Description("Maximum age in ms of a cached engine response to accept")),
			mcp.WithString("parsers", mcp.Description("JSON array of engine-side content parsers to run")),
			mcp.WithString("actions", mcp.Description("JSON array of page actions to run before capture (disabled in safe mode)")),
		), s.handleScrape)

	s.mcpServer.AddTool(
		s.defaultTool(global.ToolMap,
			mcp.WithDescription("Discover URLs reachable from a site."),
			mcp.WithString("url", mcp.Required(), mcp.Description("Site URL to map")),
			mcp.WithString("search", mcp.Description("Filter discovered URLs by this term")),
			mcp.WithString("sitemap", mcp.Description("One of: include, skip, only")),
			mcp.WithBoolean("includeSubdomains", mcp.Description("Include subdomains of url")),
			mcp.WithNumber("limit", mcp.Description("Maximum URLs to return")),
			mcp.WithBoolean("ignoreQueryParameters", mcp.Description("Treat URLs differing only by query string as duplicates")),
		), s.handleMap)

	s.mcpServer.AddTool(
		s.defaultTool(global.ToolSearch,
			mcp.WithDescription("Run a web search and return matching results."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
			mcp.WithNumber("limit", mcp.Description("Maximum results to return")),
			mcp.WithString("location", mcp.Description("Search locale/geolocation hint")),
			mcp.WithString("sources", mcp.Description("JSON array from: web, images, news")),
			mcp.WithString("scrapeOptions", mcp.Description("JSON object: scrape options applied to each result")),
		), s.handleSearch)

	s.mcpServer.AddTool(
		s.defaultTool(global.ToolCrawl,
			mcp.WithDescription("Start an asynchronous crawl of a site. Returns a job id; poll with scorch_check_crawl_status."),
			mcp.WithString("url", mcp.Required(), mcp.Description("Starting URL for the crawl")),
			mcp.WithString("includePaths", mcp.Description("JSON array of path patterns to include")),
			mcp.WithString("excludePaths", mcp.Description("JSON array of path patterns to exclude")),
			mcp.WithNumber("maxDiscoveryDepth", mcp.Description("Maximum link-following depth")),
			mcp.WithNumber("limit", mcp.Description("Maximum pages to crawl")),
			mcp.WithBoolean("allowExternalLinks", mcp.Description("Follow links leaving the starting domain")),
			mcp.WithBoolean("deduplicateSimilarURLs", mcp.Description("Collapse near-duplicate URLs")),
			mcp.WithString("scrapeOptions", mcp.Description("JSON object: scrape options applied to each crawled page")),
			mcp.WithString("webhook", mcp.Description("Webhook URL notified on crawl completion (disabled in safe mode)")),
		), s.handleCrawl)

	s.mcpServer.AddTool(
		s.readOnlyTool(global.ToolCheckCrawlStatus,
			mcp.WithDescription("Poll the status of a crawl started with scorch_crawl."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Crawl job id")),
		), s.handleCheckCrawlStatus)

	s.mcpServer.AddTool(
		s.defaultTool(global.ToolExtract,
			mcp.WithDescription("Extract structured data from one or more URLs."),
			mcp.WithString("urls", mcp.Required(), mcp.Description("JSON array of URLs to extract from")),
			mcp.WithString("prompt", mcp.Description("Natural-language extraction instructions")),
			mcp.WithString("schema", mcp.Description("JSON schema the extracted object must conform to")),
			mcp.WithBoolean("allowExternalLinks", mcp.Description("Follow links leaving the source domain while extracting")),
			mcp.WithBoolean("enableWebSearch", mcp.Description("Allow the engine to search the web to fill in missing fields")),
			mcp.WithBoolean("includeSubdomains", mcp.Description("Include subdomains of the source URLs")),
		), s.handleExtract)

	s.mcpServer.AddTool(
		s.defaultTool(global.ToolAgent,
			mcp.WithDescription("Start an autonomous research agent job. Returns immediately with a job id; poll with scorch_agent_status."),
			mcp.WithString("prompt", mcp.Required(), mcp.Description("Research prompt, at most 10000 characters")),
			mcp.WithString("urls", mcp.Description("JSON array of URLs the agent should focus on")),
			mcp.WithString("schema", mcp.Description("JSON schema the agent's final structured output must conform to")),
			mcp.WithString("model", mcp.Description("Model id to use (see scorch_agent_models); falls back to the configured default")),
		), s.handleAgent)

	s.mcpServer.AddTool(
		s.readOnlyTool(global.ToolAgentStatus,
			mcp.WithDescription("Poll the status of an agent job started with scorch_agent."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Agent job id")),
		), s.handleAgentStatus)

	s.mcpServer.AddTool(
		s.readOnlyTool(global.ToolAgentModels,
			mcp.WithDescription("List the models scorch_agent will accept, and the default."),
		), s.handleAgentModels)

	s.mcpServer.AddTool(
		s.readOnlyTool(global.ToolAgentRateLimitStatus,
			mcp.WithDescription("Report current concurrency/rate-limit usage against the configured thresholds."),
		), s.handleAgentRateLimitStatus)

	s.mcpServer.AddTool(
		s.readOnlyTool(global.ToolHealth,
			mcp.WithDescription("Check ScorchCrawl's health: whether the downstream engine/agent runtime are configured, plus local-proxy mode and transport."),
		), s.handleHealth)

	return nil
}

// Run starts the MCP server over the configured transport, with graceful
// shutdown on SIGINT/SIGTERM/SIGHUP.
func (s *Server) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.serve()
	}()

	s.logger.Infof("MCP server started successfully (transport=%s)", s.config.MCPTransport)

	select {
	case <-sigChan:
		s.logger.Info("Shutdown signal received")
		s.shutdown()
		s.logger.Info("Server stopped")
		if err := s.logger.Sync(); err != nil {
			s.logger.Warnf("Failed to flush logs on shutdown: %v", err)
		}
		return nil

	case err := <-errChan:
		s.shutdown()
		if err != nil {
			s.logger.Errorf("Server error: %v", err)
			return fmt.Errorf("server error: %w", err)
		}
		s.logger.Info("Connection closed")
		return nil
	}
}

func (s *Server) serve() error {
	switch s.config.MCPTransport {
	case "http-stream", "http":
		httpServer := server.NewStreamableHTTPServer(s.mcpServer,
			server.WithHTTPContextFunc(httpHeadersToContext),
		)
		s.logger.Infof("Serving MCP over streamable HTTP on %s", s.config.MCPHTTPAddr)
		return httpServer.Start(s.config.MCPHTTPAddr)
	default:
		return server.ServeStdio(s.mcpServer)
	}
}

// shutdown releases every background resource the server owns. Jobs still
// processing are abandoned, not awaited, matching the no-persistence model.
func (s *Server) shutdown() {
	s.engine.Shutdown()
}

// httpHeadersToContext copies the identity-bearing request headers this
// server recognizes into the request context so handlers running over the
// streamable-HTTP transport can recover them without holding on to the
// *http.Request itself.
func httpHeadersToContext(ctx context.Context, r *http.Request) context.Context {
	headers := map[string]string{
		global.HeaderCopilotToken:  r.Header.Get(global.HeaderCopilotToken),
		global.HeaderGithubToken:   r.Header.Get(global.HeaderGithubToken),
		global.HeaderAuthorization: r.Header.Get(global.HeaderAuthorization),
		global.HeaderAPIKey:        r.Header.Get(global.HeaderAPIKey),
		global.HeaderAPIKeyAlt:     r.Header.Get(global.HeaderAPIKeyAlt),
	}
	return withRequestHeaders(ctx, headers)
}
