package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seo-optimizer/seoaudit/analyzer"
)

func sampleResult() *analyzer.AnalysisResult {
	sig := analyzer.Signals{
		Title:            "Red | Shoes",
		TitleLength:      11,
		H1:               []string{"Red Shoes"},
		H2:               []string{"Sizes", "Colors"},
		Images:           []string{"/a.png", "/b.png", "/c.png", "/d.png"},
		ImagesMissingAlt: []string{"/a.png", "/b.png", "/c.png", "/d.png"},
		InternalLinks:    []string{"https://example.com/about"},
		Scripts: []analyzer.Asset{
			{URL: "/one.js"}, {URL: "/two.js"}, {URL: "/three.js"}, {URL: "/lib.min.js", Minified: true},
		},
	}
	probes := analyzer.ProbeResults{
		Robots: analyzer.Outcome[analyzer.RobotsInfo]{Value: analyzer.RobotsInfo{
			Present:     true,
			Content:     "User-agent: *\nDisallow: /private\n" + strings.Repeat("#", 400),
			HasDisallow: true,
		}},
		Sitemap: analyzer.Outcome[analyzer.SitemapInfo]{Degraded: true, Reason: "timeout"},
	}
	keywords := analyzer.AnalyzeKeywords("red shoes red boots", sig.Title, "", sig.H1)
	card := analyzer.Evaluate(analyzer.Facts{
		Signals:      sig,
		Keywords:     keywords,
		Probes:       probes,
		ResponseTime: 300 * time.Millisecond,
		HTMLSize:     2048,
		IsHTTPS:      true,
	})
	return &analyzer.AnalysisResult{
		ID:            "test-id",
		URL:           "www.example.com",
		NormalizedURL: "https://www.example.com/",
		FinalURL:      "https://www.example.com/",
		GeneratedAt:   time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC),
		StatusCode:    200,
		HTMLSizeKB:    2,
		ResponseTime:  0.3,
		IsHTTPS:       true,
		Signals:       sig,
		Keywords:      keywords,
		Probes:        probes,
		ScoreCard:     card,
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":         FormatMarkdown,
		"markdown": FormatMarkdown,
		"JSON":     FormatJSON,
		"yml":      FormatYAML,
		"yaml":     FormatYAML,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected an error for pdf")
	}
}

func TestOutputFileName(t *testing.T) {
	tests := []struct {
		target string
		format Format
		want   string
	}{
		{"https://www.example.com/", FormatMarkdown, "seoaudit-examplecom.md"},
		{"https://blog.example.co.uk/post", FormatJSON, "seoaudit-blogexamplecouk.json"},
		{"::", FormatYAML, "seoaudit-report.yaml"},
	}
	for _, tt := range tests {
		if got := OutputFileName(tt.target, tt.format); got != tt.want {
			t.Errorf("OutputFileName(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	if err := Render(&buf, res, FormatMarkdown); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# SEO Analysis Report",
		"**Generated:** March 5, 2024",
		"| Overall Site Score | " + itoa(res.ScoreCard.Score) + "/100 |",
		"| HTML Size | 2.0 KiB |",
		"1 secondary checks could not be completed",
		"**Red \\| Shoes**",
		"## Basic SEO", "## Advanced SEO", "## Performance", "## Security",
		"### SEO Title\n\n✗ The SEO title is 11 characters long.",
		"- /c.png\n- ... and 1 more",
		"Disallow: /private",
		"- /one.js\n- /two.js\n- ... and 1 more",
		"| red | ✓ | ✗ | ✓ |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report lacks %q", want)
		}
	}
	if strings.Contains(out, "/d.png") {
		t.Error("more than three images without alt were listed")
	}
	if strings.Contains(out, strings.Repeat("#", 300)) {
		t.Error("robots.txt excerpt was not truncated")
	}
	if got := strings.Count(out, "\n### "); got != len(analyzer.Rules)+1 {
		t.Errorf("report has %d subsections, want one per check plus the preview", got)
	}
}

func TestRenderJSON(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	if err := Render(&buf, res, FormatJSON); err != nil {
		t.Fatalf("Render: %v", err)
	}
	var decoded analyzer.AnalysisResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.ScoreCard.Score != res.ScoreCard.Score || len(decoded.ScoreCard.Checks) != len(analyzer.Rules) {
		t.Errorf("decoded score card = %+v", decoded.ScoreCard)
	}
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleResult(), FormatYAML); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "id: test-id\n") {
		t.Errorf("unexpected start of YAML:\n%s", out[:min(len(out), 200)])
	}
	if strings.Contains(out, "{") {
		t.Error("YAML output kept flow mappings")
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	card, ok := decoded["scoreCard"].(map[string]interface{})
	if !ok || card["totalItems"] != len(analyzer.Rules) {
		t.Errorf("scoreCard = %#v", decoded["scoreCard"])
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if err := Render(&bytes.Buffer{}, sampleResult(), Format("pdf")); err == nil {
		t.Error("expected an error")
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
