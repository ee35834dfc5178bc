/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package localfetch is the LocalFetchScraper: a one-shot HTTP fetcher plus
// an HTML-to-semantic-representations reducer plus the SPA-Shell Detector
// that decides whether the fetch returned usable content. It is the
// fallback path used when local-proxy mode is on and the requested formats
// don't require the downstream engine's browser.
package localfetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// formatsNeedingServer are formats this package cannot ever produce - they
// require a real browser (screenshots, branding extraction) or a structured
// extraction the downstream engine owns.
var formatsNeedingServer = map[string]bool{
	"json": true, "screenshot": true, "branding": true, "summary": true,
}

// Options mirrors the recognized local_scrape options.
type Options struct {
	Formats             []string
	OnlyMainContent     bool
	IncludeTags         []string
	ExcludeTags         []string
	WaitFor             int // ignored: no JS execution
	TimeoutSeconds      int
	SkipTLSVerification bool
	Headers             map[string]string
}

// Result is the {success, data?, error?} shape local_scrape returns.
type Result struct {
	Success bool        `json:"success"`
	Data    *ScrapeData `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CanHandle reports whether every requested format is local-capable, i.e.
// none of them require the downstream engine.
func CanHandle(formats []string) bool {
	for _, f := range formats {
		if formatsNeedingServer[strings.ToLower(f)] {
			return false
		}
	}
	return true
}

// Scrape runs the full local_scrape procedure. It never returns a Go error:
// every failure is captured in Result.Error, matching the operation's
// {success, data?, error?} contract.
func Scrape(ctx context.Context, rawURL string, opts Options) *Result {
	for _, f := range opts.Formats {
		if formatsNeedingServer[strings.ToLower(f)] {
			return &Result{Success: false, Error: "FORMAT_NEEDS_SERVER"}
		}
	}

	timeout := time.Duration(opts.TimeoutSeconds) * time.Second
	if opts.TimeoutSeconds <= 0 {
		timeout = 30 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, finalURL, statusCode, err := fetch(fetchCtx, rawURL, opts)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("parsing HTML: %v", err)}
	}

	metadata := extractMetadata(doc, finalURL, statusCode)

	if opts.OnlyMainContent {
		stripNoise(doc, noiseSelectors)
	}
	if len(opts.ExcludeTags) > 0 {
		stripNoise(doc, opts.ExcludeTags)
	}

	targetHTML := chooseTargetHTML(doc, body, opts.IncludeTags, opts.OnlyMainContent)

	data := &ScrapeData{
		Markdown: htmlToMarkdown(targetHTML),
		HTML:     targetHTML,
		RawHTML:  body,
		Links:    extractLinks(doc, finalURL),
		Metadata: metadata,
	}

	if reason := detectSPAShell(body, doc); reason != nil {
		return &Result{Success: false, Error: "SPA_SKELETON_DETECTED: " + reason.Error(), Data: data}
	}

	return &Result{Success: true, Data: data}
}

// browserHeaders are the browser-plausible defaults merged with (and
// overridden by) caller-supplied headers. Accept-Encoding is deliberately
// left unset: net/http only auto-negotiates gzip and transparently
// decompresses the body when the caller hasn't set its own Accept-Encoding,
// and this package has no decompressor of its own.
func browserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
	}
}

func fetch(ctx context.Context, rawURL string, opts Options) (body string, finalURL string, statusCode int, err error) {
	client := &http.Client{}
	if opts.SkipTLSVerification {
		client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid URL: %w", err)
	}

	headers := browserHeaders()
	for k, v := range opts.Headers {
		headers[k] = v
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", "", 0, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", 0, fmt.Errorf("reading response body: %w", err)
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	if u, perr := url.Parse(final); perr == nil {
		final = u.String()
	}

	return string(raw), final, resp.StatusCode, nil
}
