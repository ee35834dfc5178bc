/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package localfetch

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/davidwarshawsky/scorchcrawl/global"
)

// spaLoadingPatterns are case-insensitive substrings indicating a shell
// still waiting on client-side JavaScript to render.
var spaLoadingPatterns = []string{
	"loading...", "loading…", "please wait", "just a moment",
	"checking your browser", "one moment please", "redirecting",
	"enable javascript", "javascript is required", "javascript must be enabled",
	"this app requires javascript", "you need to enable javascript", "noscript",
}

// spaRootSelectors are the div/container ids the major SPA frameworks
// mount their app into.
var spaRootSelectors = []string{
	"#root", "#app", "#__next", "#__nuxt", "#svelte", "app-root", "#___gatsby", "#main-app",
}

// detectSPAShell implements the SPA-Shell Detector procedure: the first
// matching rule returns its reason, nil means the page looks real.
func detectSPAShell(rawHTML string, doc *html.Node) error {
	visible := visibleText(doc)
	lower := strings.ToLower(visible)
	textLen := len([]rune(visible))

	if textLen < global.MinMeaningfulTextLength {
		for _, sel := range spaRootSelectors {
			for _, n := range findAll(doc, parseSelector(sel)) {
				text := innerText(n)
				if n := len([]rune(text)); n < global.MinMeaningfulTextLength {
					return fmt.Errorf(`SPA root container "%s" with minimal content (%d chars)`, sel, n)
				}
			}
		}
		for _, pattern := range spaLoadingPatterns {
			if strings.Contains(lower, pattern) {
				return fmt.Errorf(`Loading indicator detected: "%s"`, pattern)
			}
		}
		if textLen < 50 {
			return fmt.Errorf("Near-empty body text (%d chars)", textLen)
		}
	} else if textLen < 500 {
		for _, pattern := range spaLoadingPatterns {
			if strings.Contains(lower, pattern) {
				return fmt.Errorf(`Short page with loading indicator: "%s"`, pattern)
			}
		}
	}

	rawLen := len(rawHTML)
	if rawLen > 1000 {
		scriptLen := scriptContentLength(doc)
		ratio := float64(scriptLen) / float64(rawLen)
		if ratio > global.ScriptHeavyRatio && textLen < global.MinMeaningfulTextLength {
			return fmt.Errorf("Script-heavy page (%.0f%% scripts, %d chars text)", ratio*100, textLen)
		}
	}

	return nil
}

// visibleText clones the effect of stripping script/style/noscript and
// returns the remaining body text, collapsed and trimmed.
func visibleText(doc *html.Node) string {
	clone := cloneTree(doc)
	for _, tag := range []string{"script", "style", "noscript"} {
		removeAll(clone, selector{tag: tag})
	}
	if body := findFirst(clone, "body"); body != nil {
		return innerText(body)
	}
	return innerText(clone)
}

func scriptContentLength(doc *html.Node) int {
	total := 0
	for _, n := range findAll(doc, selector{tag: "script"}) {
		total += len(innerText(n))
	}
	return total
}

// cloneTree deep-copies a node tree by round-tripping through the HTML
// renderer/parser; the detector must not mutate the tree the caller still
// needs for target-HTML selection.
func cloneTree(doc *html.Node) *html.Node {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return doc
	}
	clone, err := html.Parse(&buf)
	if err != nil {
		return doc
	}
	return clone
}
