/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package scrapeengine is a thin client for the downstream scraping
// engine's six HTTP endpoints. Only the request/response shape matters -
// the engine's internals (browser pool, queues, datastores) are an external
// collaborator, contract-level only.
package scrapeengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// Client forwards scrape/map/search/crawl/extract requests to the
// downstream engine and decodes its JSON responses.
type Client struct {
	baseURL      string
	apiKey       string
	http         *http.Client
	maxBodyBytes int64
}

// New builds a Client. The engine URL's ?localProxy=... query parameter, if
// present, is stripped before it is stored - it configures this process's
// own local-proxy mode, not a parameter the engine should see.
func New(opts Options) (*Client, error) {
	stripped, err := StripLocalProxyParam(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid scraping engine URL: %w", err)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxBody := opts.MaxBodyBytes
	if maxBody == 0 {
		maxBody = 32 * 1024 * 1024
	}
	return &Client{
		baseURL:      strings.TrimRight(stripped, "/"),
		apiKey:       opts.APIKey,
		http:         &http.Client{Timeout: timeout},
		maxBodyBytes: maxBody,
	}, nil
}

// StripLocalProxyParam removes the localProxy query parameter from a
// scraping-engine URL, returning the URL unchanged if it carries none.
func StripLocalProxyParam(rawURL string) (string, error) {
	if rawURL == "" {
		return "", nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if !q.Has(global.LocalProxyQueryParam) {
		return rawURL, nil
	}
	q.Del(global.LocalProxyQueryParam)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// IsLocalProxyEnabled reports whether a scraping-engine URL requests local
// proxy mode via ?localProxy=true|1.
func IsLocalProxyEnabled(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	v := strings.ToLower(u.Query().Get(global.LocalProxyQueryParam))
	return v == "true" || v == "1"
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", global.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", global.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: engine returned %d: %s", global.ErrUpstream, resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", global.ErrUpstream, err)
	}
	return nil
}

// Scrape forwards a scrape request to POST /v1/scrape.
func (c *Client) Scrape(ctx context.Context, req map[string]interface{}) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.post(ctx, "/v1/scrape", req, &out)
	return out, err
}

// Map forwards a map request to POST /v1/map.
func (c *Client) Map(ctx context.Context, req map[string]interface{}) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.post(ctx, "/v1/map", req, &out)
	return out, err
}

// Search forwards a search request to POST /v1/search.
func (c *Client) Search(ctx context.Context, req map[string]interface{}) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.post(ctx, "/v1/search", req, &out)
	return out, err
}

// Crawl starts an asynchronous crawl job via POST /v1/crawl, returning at
// least the job id.
func (c *Client) Crawl(ctx context.Context, req map[string]interface{}) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.post(ctx, "/v1/crawl", req, &out)
	return out, err
}

// CrawlStatus polls GET /v1/crawl/{id}.
func (c *Client) CrawlStatus(ctx context.Context, id string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.get(ctx, "/v1/crawl/"+url.PathEscape(id), &out)
	return out, err
}

// Extract forwards an extract request to POST /v1/extract.
func (c *Client) Extract(ctx context.Context, req map[string]interface{}) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.post(ctx, "/v1/extract", req, &out)
	return out, err
}
