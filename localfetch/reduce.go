/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package localfetch

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// noiseSelectors are stripped when onlyMainContent is requested: structural
// chrome plus a handful of common class/id tokens for the same chrome.
var noiseSelectors = []string{
	"nav", "header", "footer", "aside",
	"[role=banner]", "[role=navigation]", "[role=complementary]",
	".sidebar", ".menu", ".cookie-banner", ".ad", ".advertisement",
}

// mainContentSelectors are tried in order when choosing the target HTML for
// onlyMainContent; the first whose inner HTML exceeds 100 chars wins.
var mainContentSelectors = []string{
	"main", "article", "[role=main]", ".main-content", ".content", "#content", "#main",
}

// Metadata is the page-level metadata extracted alongside content.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	SourceURL   string `json:"sourceURL,omitempty"`
	StatusCode  int    `json:"statusCode,omitempty"`
}

// ScrapeData is the content payload returned by a successful (or partial,
// in the SPA-detected case) local scrape.
type ScrapeData struct {
	Markdown string   `json:"markdown,omitempty"`
	HTML     string   `json:"html,omitempty"`
	RawHTML  string   `json:"rawHtml,omitempty"`
	Links    []string `json:"links,omitempty"`
	Metadata Metadata `json:"metadata"`
}

func extractMetadata(doc *html.Node, sourceURL string, statusCode int) Metadata {
	md := Metadata{SourceURL: sourceURL, StatusCode: statusCode}

	if n := findFirst(doc, "title"); n != nil {
		md.Title = innerText(n)
	} else if n := metaContent(doc, "og:title"); n != "" {
		md.Title = n
	}

	if v, ok := metaByName(doc, "description"); ok {
		md.Description = v
	} else if v := metaContent(doc, "og:description"); v != "" {
		md.Description = v
	}

	if n := findFirst(doc, "html"); n != nil {
		if v, ok := attrValue(n, "lang"); ok {
			md.Language = v
		}
	}

	return md
}

func metaByName(doc *html.Node, name string) (string, bool) {
	for _, n := range findAll(doc, selector{tag: "meta"}) {
		if v, ok := attrValue(n, "name"); ok && v == name {
			if content, ok := attrValue(n, "content"); ok {
				return content, true
			}
		}
	}
	return "", false
}

func metaContent(doc *html.Node, property string) string {
	for _, n := range findAll(doc, selector{tag: "meta"}) {
		if v, ok := attrValue(n, "property"); ok && v == property {
			if content, ok := attrValue(n, "content"); ok {
				return content
			}
		}
	}
	return ""
}

// stripNoise removes semantic-noise chrome elements in place.
func stripNoise(doc *html.Node, selectors []string) {
	for _, s := range selectors {
		removeAll(doc, parseSelector(s))
	}
}

// chooseTargetHTML implements step 7: includeTags wins outright, then
// onlyMainContent's selector list, then body, then raw.
func chooseTargetHTML(doc *html.Node, rawHTML string, includeTags []string, onlyMainContent bool) string {
	if len(includeTags) > 0 {
		var sb strings.Builder
		for _, sel := range includeTags {
			for _, n := range findAll(doc, parseSelector(sel)) {
				sb.WriteString(innerHTML(n))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}

	if onlyMainContent {
		for _, sel := range mainContentSelectors {
			if n := findFirst(doc, sel); n != nil {
				if h := innerHTML(n); len(h) > 100 {
					return h
				}
			}
		}
	}

	if body := findFirst(doc, "body"); body != nil {
		return innerHTML(body)
	}
	return rawHTML
}

var (
	tagStripRe  = regexp.MustCompile(`(?is)<(script|style|noscript|iframe)[^>]*>.*?</\s*\w+\s*>`)
	tagOpenRe   = regexp.MustCompile(`(?is)<\s*(h[1-6]|p|div|br|li|pre|code)[^>]*>`)
	tagCloseRe  = regexp.MustCompile(`(?is)</\s*(h[1-6]|p|div|li|pre|code)\s*>`)
	anyTagRe    = regexp.MustCompile(`(?s)<[^>]+>`)
	blankLineRe = regexp.MustCompile(`\n{3,}`)
)

// htmlToMarkdown is a deliberately small fragment-of-markdown renderer: it
// is not a general HTML-to-Markdown converter, only enough for the
// reduction rules this package needs (ATX headings, fenced code blocks, `-`
// bullets), operating on already-noise-stripped target HTML.
func htmlToMarkdown(targetHTML string) string {
	s := tagStripRe.ReplaceAllString(targetHTML, "")

	headingRe := regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	s = headingRe.ReplaceAllStringFunc(s, func(m string) string {
		groups := headingRe.FindStringSubmatch(m)
		level := len(groups[1])
		text := collapseSpaces(anyTagRe.ReplaceAllString(groups[2], " "))
		return "\n" + strings.Repeat("#", level) + " " + text + "\n"
	})

	preRe := regexp.MustCompile(`(?is)<pre[^>]*>(.*?)</pre>`)
	s = preRe.ReplaceAllStringFunc(s, func(m string) string {
		groups := preRe.FindStringSubmatch(m)
		code := html.UnescapeString(anyTagRe.ReplaceAllString(groups[1], ""))
		return "\n```\n" + strings.Trim(code, "\n") + "\n```\n"
	})

	liRe := regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	s = liRe.ReplaceAllStringFunc(s, func(m string) string {
		groups := liRe.FindStringSubmatch(m)
		text := collapseSpaces(anyTagRe.ReplaceAllString(groups[1], " "))
		return "\n- " + text
	})

	s = tagOpenRe.ReplaceAllString(s, "\n")
	s = tagCloseRe.ReplaceAllString(s, "\n")
	s = anyTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankLineRe.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractLinks implements step 8's link rule: deduplicated absolute URLs
// from <a href>, excluding fragment-only and javascript: targets, resolved
// against the final URL.
func extractLinks(doc *html.Node, baseURL string) []string {
	base, err := url.Parse(baseURL)
	seen := make(map[string]bool)
	var out []string

	for _, n := range findAll(doc, selector{tag: "a"}) {
		href, ok := attrValue(n, "href")
		if !ok {
			continue
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			continue
		}

		resolved := href
		if err == nil {
			if u, perr := url.Parse(href); perr == nil {
				resolved = base.ResolveReference(u).String()
			}
		}

		if !seen[resolved] {
			seen[resolved] = true
			out = append(out, resolved)
		}
	}
	return out
}
