/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package localfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func mustParse(t *testing.T, raw string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parsing HTML: %v", err)
	}
	return doc
}

func TestDetectSPAShellScenario5(t *testing.T) {
	raw := `<html><body><div id="root"></div><script src="/app.js"></script></body></html>`
	doc := mustParse(t, raw)
	err := detectSPAShell(raw, doc)
	if err == nil || !strings.Contains(err.Error(), "#root") {
		t.Fatalf("want reason containing #root, got %v", err)
	}
}

func TestDetectSPAShellScenario6(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body><article><h1>How Loading Times Affect User Experience</h1>")
	paragraph := "Performance research consistently shows that users abandon slow pages quickly, " +
		"and loading delays compound across a session to erode trust in a product. "
	for i := 0; i < 5; i++ {
		sb.WriteString("<p>" + paragraph + "</p>")
	}
	sb.WriteString("</article></body></html>")

	doc := mustParse(t, sb.String())
	if err := detectSPAShell(sb.String(), doc); err != nil {
		t.Fatalf("want nil for real article containing the word loading, got %v", err)
	}
}

func TestDetectSPAShellEmptyBody(t *testing.T) {
	raw := `<html><body></body></html>`
	doc := mustParse(t, raw)
	err := detectSPAShell(raw, doc)
	if err == nil || !strings.Contains(err.Error(), "Near-empty body") {
		t.Fatalf("want reason containing Near-empty body, got %v", err)
	}
}

func TestDetectSPAShellDoesNotFalsePositiveOnShort4xxPage(t *testing.T) {
	raw := `<html><body><p>` + strings.Repeat("x", 150) + `</p></body></html>`
	doc := mustParse(t, raw)
	if err := detectSPAShell(raw, doc); err != nil {
		t.Fatalf("want nil for short non-SPA page, got %v", err)
	}
}

func TestDetectSPAShellScriptHeavy(t *testing.T) {
	script := strings.Repeat("var x=1;", 200)
	raw := `<html><body><p>` + strings.Repeat("filler ", 10) + `</p><script>` + script + `</script></body></html>`
	doc := mustParse(t, raw)
	err := detectSPAShell(raw, doc)
	if err == nil || !strings.Contains(err.Error(), "Script-heavy") {
		t.Fatalf("want Script-heavy reason, got %v", err)
	}
}

func TestCanHandleRejectsServerOnlyFormats(t *testing.T) {
	if CanHandle([]string{"markdown", "json"}) {
		t.Fatalf("want json to require the server")
	}
	if !CanHandle([]string{"markdown", "links"}) {
		t.Fatalf("want markdown+links to be local-capable")
	}
}

func TestScrapeReturnsFormatNeedsServer(t *testing.T) {
	result := Scrape(context.Background(), "https://example.com", Options{Formats: []string{"screenshot"}})
	if result.Success {
		t.Fatalf("want failure")
	}
	if result.Error != "FORMAT_NEEDS_SERVER" {
		t.Fatalf("want FORMAT_NEEDS_SERVER, got %s", result.Error)
	}
}

func TestScrapeSucceedsOnSingleLongWordWithNoBreak(t *testing.T) {
	word := strings.Repeat("a", 200)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><article><p>` + word + ` ` + strings.Repeat("b ", 100) + `</p></article></body></html>`))
	}))
	defer server.Close()

	result := Scrape(context.Background(), server.URL, Options{Formats: []string{"markdown"}})
	if !result.Success {
		t.Fatalf("want success, got error %s", result.Error)
	}
	if !strings.Contains(result.Data.Markdown, word) {
		t.Fatalf("want long word preserved in markdown output")
	}
}

func TestChooseTargetHTMLPrefersMainContentSelectors(t *testing.T) {
	raw := `<html><body><nav>menu</nav><main>` + strings.Repeat("real content ", 20) + `</main></body></html>`
	doc := mustParse(t, raw)
	stripNoise(doc, noiseSelectors)
	target := chooseTargetHTML(doc, raw, nil, true)
	if strings.Contains(target, "menu") {
		t.Fatalf("want nav stripped from target HTML")
	}
	if !strings.Contains(target, "real content") {
		t.Fatalf("want main content selected, got %s", target)
	}
}

func TestExtractLinksDeduplicatesAndResolves(t *testing.T) {
	raw := `<html><body>
		<a href="/a">one</a>
		<a href="/a">dup</a>
		<a href="#section">skip</a>
		<a href="javascript:void(0)">skip</a>
		<a href="https://other.example/b">two</a>
	</body></html>`
	doc := mustParse(t, raw)
	links := extractLinks(doc, "https://example.com/")
	if len(links) != 2 {
		t.Fatalf("want 2 deduplicated links, got %v", links)
	}
	if links[0] != "https://example.com/a" {
		t.Fatalf("want resolved relative link, got %s", links[0])
	}
}
