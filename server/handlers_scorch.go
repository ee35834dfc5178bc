/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/davidwarshawsky/scorchcrawl/agentengine"
	"github.com/davidwarshawsky/scorchcrawl/global"
	"github.com/davidwarshawsky/scorchcrawl/identity"
	"github.com/davidwarshawsky/scorchcrawl/localfetch"
)

// createJSONResult converts a Go value into a tool result, or a structured
// MCP error result if it cannot be marshaled.
func createJSONResult(data interface{}) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError("failed to encode result"), nil
	}
	return result, nil
}

func (s *Server) handleScrape(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL := mcp.ParseString(request, "url", "")
	if rawURL == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	s.logger.Infof("Tool %s called: url=%s", global.ToolScrape, rawURL)

	formats := decodeStringSlice(mcp.ParseString(request, "formats", ""))
	onlyMainContent := mcp.ParseBoolean(request, "onlyMainContent", false)
	waitFor := int(mcp.ParseFloat64(request, "waitFor", 0))
	skipTLS := mcp.ParseBoolean(request, "skipTlsVerification", false)

	if s.config.IsLocalProxyEnabled() && localfetch.CanHandle(formats) {
		result := localfetch.Scrape(ctx, rawURL, localfetch.Options{
			Formats:             formats,
			OnlyMainContent:     onlyMainContent,
			WaitFor:             waitFor,
			SkipTLSVerification: skipTLS,
		})
		if result.Error != "FORMAT_NEEDS_SERVER" {
			return createJSONResult(result)
		}
		s.logger.Debugf("local fetch reported FORMAT_NEEDS_SERVER for %s, falling back to engine", rawURL)
	}

	params := map[string]interface{}{
		"url":                 rawURL,
		"formats":             formats,
		"onlyMainContent":     onlyMainContent,
		"waitFor":             waitFor,
		"skipTlsVerification": skipTLS,
		"location":            decodeJSONField(mcp.ParseString(request, "location", "")),
		"proxy":               mcp.ParseString(request, "proxy", ""),
		"maxAge":              mcp.ParseFloat64(request, "maxAge", 0),
		"parsers":             decodeJSONField(mcp.ParseString(request, "parsers", "")),
		"origin":              global.OriginLabel,
	}
	if !s.config.SafeMode {
		params["actions"] = decodeJSONField(mcp.ParseString(request, "actions", ""))
	}
	out, err := s.scraper.Scrape(ctx, truncateEmptyLeaves(params))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return createJSONResult(out)
}

func (s *Server) handleMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL := mcp.ParseString(request, "url", "")
	if rawURL == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	s.logger.Infof("Tool %s called: url=%s", global.ToolMap, rawURL)

	params := truncateEmptyLeaves(map[string]interface{}{
		"url":                   rawURL,
		"search":                mcp.ParseString(request, "search", ""),
		"sitemap":               mcp.ParseString(request, "sitemap", ""),
		"includeSubdomains":     mcp.ParseBoolean(request, "includeSubdomains", false),
		"limit":                 mcp.ParseFloat64(request, "limit", 0),
		"ignoreQueryParameters": mcp.ParseBoolean(request, "ignoreQueryParameters", false),
		"origin":                global.OriginLabel,
	})
	out, err := s.scraper.Map(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return createJSONResult(out)
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := mcp.ParseString(request, "query", "")
	if query == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	s.logger.Infof("Tool %s called: query=%s", global.ToolSearch, query)

	params := truncateEmptyLeaves(map[string]interface{}{
		"query":         query,
		"limit":         mcp.ParseFloat64(request, "limit", 0),
		"location":      mcp.ParseString(request, "location", ""),
		"sources":       decodeStringSlice(mcp.ParseString(request, "sources", "")),
		"scrapeOptions": decodeJSONField(mcp.ParseString(request, "scrapeOptions", "")),
		"origin":        global.OriginLabel,
	})
	out, err := s.scraper.Search(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return createJSONResult(out)
}

func (s *Server) handleCrawl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL := mcp.ParseString(request, "url", "")
	if rawURL == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	s.logger.Infof("Tool %s called: url=%s", global.ToolCrawl, rawURL)

	params := map[string]interface{}{
		"url":                    rawURL,
		"includePaths":           decodeStringSlice(mcp.ParseString(request, "includePaths", "")),
		"excludePaths":           decodeStringSlice(mcp.ParseString(request, "excludePaths", "")),
		"maxDiscoveryDepth":      mcp.ParseFloat64(request, "maxDiscoveryDepth", 0),
		"limit":                  mcp.ParseFloat64(request, "limit", 0),
		"allowExternalLinks":     mcp.ParseBoolean(request, "allowExternalLinks", false),
		"deduplicateSimilarURLs": mcp.ParseBoolean(request, "deduplicateSimilarURLs", false),
		"scrapeOptions":          decodeJSONField(mcp.ParseString(request, "scrapeOptions", "")),
		"origin":                 global.OriginLabel,
	}
	if !s.config.SafeMode {
		params["webhook"] = mcp.ParseString(request, "webhook", "")
	}
	out, err := s.scraper.Crawl(ctx, truncateEmptyLeaves(params))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return createJSONResult(out)
}

func (s *Server) handleCheckCrawlStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "id", "")
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	s.logger.Infof("Tool %s called: id=%s", global.ToolCheckCrawlStatus, id)

	out, err := s.scraper.CrawlStatus(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return createJSONResult(out)
}

func (s *Server) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urls := decodeStringSlice(mcp.ParseString(request, "urls", ""))
	if len(urls) == 0 {
		return mcp.NewToolResultError("urls parameter is required and must be a non-empty JSON array"), nil
	}
	s.logger.Infof("Tool %s called: %d url(s)", global.ToolExtract, len(urls))

	params := truncateEmptyLeaves(map[string]interface{}{
		"urls":              urls,
		"prompt":            mcp.ParseString(request, "prompt", ""),
		"schema":            decodeJSONField(mcp.ParseString(request, "schema", "")),
		"allowExternalLinks": mcp.ParseBoolean(request, "allowExternalLinks", false),
		"enableWebSearch":    mcp.ParseBoolean(request, "enableWebSearch", false),
		"includeSubdomains":  mcp.ParseBoolean(request, "includeSubdomains", false),
		"origin":             global.OriginLabel,
	})
	out, err := s.scraper.Extract(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return createJSONResult(out)
}

func (s *Server) handleAgent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt := mcp.ParseString(request, "prompt", "")
	if prompt == "" {
		return mcp.NewToolResultError("prompt parameter is required"), nil
	}
	if len(prompt) > global.MaxPromptLength {
		return mcp.NewToolResultError(fmt.Sprintf("prompt exceeds the maximum length of %d characters", global.MaxPromptLength)), nil
	}
	s.logger.Infof("Tool %s called: prompt length=%d", global.ToolAgent, len(prompt))

	urls := decodeStringSlice(mcp.ParseString(request, "urls", ""))
	var schema map[string]interface{}
	if v, ok := decodeJSONField(mcp.ParseString(request, "schema", "")).(map[string]interface{}); ok {
		schema = v
	}
	model := mcp.ParseString(request, "model", "")

	identityToken := string(identity.FromHeaders(requestHeaders(ctx), s.config.CopilotToken))
	result := s.engine.Start(ctx, agentengine.Request{
		Prompt:    prompt,
		Model:     model,
		FocusURLs: urls,
		Schema:    schema,
	}, identityToken)
	return createJSONResult(result)
}

func (s *Server) handleAgentStatus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "id", "")
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	job, ok := s.engine.Status(id)
	if !ok {
		return createJSONResult(map[string]interface{}{
			"success": false,
			"status":  "not_found",
			"error":   global.ErrJobNotFound.Error(),
		})
	}

	resp := map[string]interface{}{
		"success": job.Error == "",
		"status":  job.Status,
	}
	if job.Progress != "" {
		resp["progress"] = job.Progress
	}
	if job.Result != nil {
		resp["data"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	if job.CompletedAt != 0 {
		resp["duration"] = float64(job.CompletedAt-job.CreatedAt) / 1000
	}
	return createJSONResult(resp)
}

func (s *Server) handleAgentModels(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	allowed, defaultModel := s.engine.Models()
	return createJSONResult(map[string]interface{}{
		"allowed_models": allowed,
		"default_model":  defaultModel,
	})
}

func (s *Server) handleAgentRateLimitStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return createJSONResult(s.engine.Stats())
}

func (s *Server) handleHealth(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var issues []string
	if s.config.ScrapeAPIURL == "" {
		issues = append(issues, "SCORCHCRAWL_API_URL is not set; engine-backed tools will fail")
	}
	if s.config.CopilotToken == "" && s.config.BYOKAPIKey == "" {
		issues = append(issues, "no Copilot or BYOK credential configured; scorch_agent will likely fail")
	}
	return createJSONResult(map[string]interface{}{
		"healthy":             len(issues) == 0,
		"issues":              issues,
		"local_proxy_enabled": s.config.IsLocalProxyEnabled(),
		"transport":           s.config.MCPTransport,
	})
}
