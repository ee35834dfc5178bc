/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package agentengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/davidwarshawsky/scorchcrawl/copilot"
	"github.com/davidwarshawsky/scorchcrawl/global"
)

func schemaToString(schema map[string]interface{}) string {
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// toolDefinitions is the fixed four-tool set described to the Copilot
// runtime: web_scrape, web_search, web_map, web_extract.
func toolDefinitions() []copilot.ToolDefinition {
	return []copilot.ToolDefinition{
		{
			Name:        "web_scrape",
			Description: "Fetch a single URL and return its content as markdown, html, and links.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"url":             map[string]interface{}{"type": "string"},
					"formats":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"onlyMainContent": map[string]interface{}{"type": "boolean"},
					"waitFor":         map[string]interface{}{"type": "number"},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        "web_search",
			Description: "Run a web search and return matching results.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{"type": "string"},
					"limit": map[string]interface{}{"type": "number"},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "web_map",
			Description: "Discover URLs reachable from a site.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"url":    map[string]interface{}{"type": "string"},
					"search": map[string]interface{}{"type": "string"},
					"limit":  map[string]interface{}{"type": "number"},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        "web_extract",
			Description: "Extract structured data from one or more URLs.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"urls":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"prompt": map[string]interface{}{"type": "string"},
					"schema": map[string]interface{}{"type": "object"},
				},
				"required": []string{"urls"},
			},
		},
	}
}

// buildToolExecutors wraps the scraping engine client into the four
// ToolExecutor callbacks the session dispatches tool calls to. Every
// callback converts failures into a short diagnostic string rather than
// propagating an error into the session loop.
func (e *Engine) buildToolExecutors(identity global.Identity) map[string]copilot.ToolExecutor {
	return map[string]copilot.ToolExecutor{
		"web_scrape": func(ctx context.Context, input map[string]interface{}) (string, bool) {
			input["origin"] = e.originLabel()
			out, err := e.scraper.Scrape(ctx, input)
			return toolResult(out, err)
		},
		"web_search": func(ctx context.Context, input map[string]interface{}) (string, bool) {
			input["origin"] = e.originLabel()
			out, err := e.scraper.Search(ctx, input)
			return toolResult(out, err)
		},
		"web_map": func(ctx context.Context, input map[string]interface{}) (string, bool) {
			input["origin"] = e.originLabel()
			out, err := e.scraper.Map(ctx, input)
			return toolResult(out, err)
		},
		"web_extract": func(ctx context.Context, input map[string]interface{}) (string, bool) {
			input["origin"] = e.originLabel()
			out, err := e.scraper.Extract(ctx, input)
			return toolResult(out, err)
		},
	}
}

func (e *Engine) originLabel() string {
	if e.cfg.OriginLabel != "" {
		return e.cfg.OriginLabel
	}
	return global.OriginLabel
}

func toolResult(out map[string]interface{}, err error) (string, bool) {
	if err != nil {
		return fmt.Sprintf("tool call failed: %v", err), true
	}
	b, merr := json.Marshal(out)
	if merr != nil {
		return fmt.Sprintf("tool call failed: encoding result: %v", merr), true
	}
	return string(b), false
}
