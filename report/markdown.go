package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/seo-optimizer/seoaudit/analyzer"
)

// Sample sizes of the lists quoted in the Markdown report.
const (
	RobotsExcerptLength = 300
	UnminifiedSamples   = 2
	MissingAltSamples   = 3
	HeadingSamples      = 7
)

var categories = []string{
	analyzer.CategoryBasic,
	analyzer.CategoryAdvanced,
	analyzer.CategoryPerformance,
	analyzer.CategorySecurity,
}

func statusMark(s analyzer.Status) string {
	switch s {
	case analyzer.StatusGood:
		return "✓"
	case analyzer.StatusRecommendation:
		return "!"
	default:
		return "✗"
	}
}

// escapeCell keeps user controlled text from breaking table rows.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func yesNo(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}

func renderMarkdown(w io.Writer, res *analyzer.AnalysisResult) error {
	var b strings.Builder
	card := res.ScoreCard

	b.WriteString("# SEO Analysis Report\n\n")
	fmt.Fprintf(&b, "**URL:** %s  \n", res.NormalizedURL)
	if res.FinalURL != "" && res.FinalURL != res.NormalizedURL {
		fmt.Fprintf(&b, "**Final URL:** %s  \n", res.FinalURL)
	}
	fmt.Fprintf(&b, "**Generated:** %s\n\n", res.GeneratedAt.Format("January 2, 2006"))

	b.WriteString("## Overview\n\n")
	b.WriteString("A very good score is between 60 and 80. For best results, you should strive for 70 and above.\n\n")
	b.WriteString("| Item | Result |\n|---|---|\n")
	fmt.Fprintf(&b, "| Overall Site Score | %d/100 |\n", card.Score)
	fmt.Fprintf(&b, "| All Items | %d of %d |\n", card.TotalItems, card.TotalItems)
	fmt.Fprintf(&b, "| Critical Issues | %d of %d |\n", card.Issues, card.TotalItems)
	fmt.Fprintf(&b, "| Recommended | %d of %d |\n", card.Recommendations, card.TotalItems)
	fmt.Fprintf(&b, "| Good Results | %d of %d |\n", card.GoodResults, card.TotalItems)
	fmt.Fprintf(&b, "| HTML Size | %s |\n", humanize.IBytes(uint64(res.HTMLSizeKB*1024)))
	fmt.Fprintf(&b, "| Response Time | %.3f s |\n\n", res.ResponseTime)

	if n := res.Probes.DegradedCount(); n > 0 {
		fmt.Fprintf(&b, "> %d secondary checks could not be completed and were scored with their default.\n\n", n)
	}

	b.WriteString("### Search Preview\n\n")
	fmt.Fprintf(&b, "> %s  \n> **%s**  \n> %s\n\n", res.NormalizedURL, escapeCell(res.Signals.Title), escapeCell(res.Signals.Description))

	for _, category := range categories {
		fmt.Fprintf(&b, "## %s\n\n", category)
		for _, c := range card.Checks {
			if c.Category != category {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n%s %s\n\n", c.Name, statusMark(c.Status), c.Detail)
			writeCheckDetails(&b, c, res)
			if c.Advice != "" {
				fmt.Fprintf(&b, "_%s_\n\n", c.Advice)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeCheckDetails adds the supporting evidence for a check.
func writeCheckDetails(b *strings.Builder, c analyzer.CheckResult, res *analyzer.AnalysisResult) {
	sig := res.Signals
	switch c.Key {
	case "title_length":
		if sig.Title != "" {
			fmt.Fprintf(b, "```\n%s\n```\n\n", sig.Title)
		}
	case "description_length":
		if sig.Description != "" {
			fmt.Fprintf(b, "```\n%s\n```\n\n", sig.Description)
		}
	case "keywords_title_description":
		writeKeywords(b, res.Keywords)
	case "h1_count":
		writeList(b, sig.H1, 1)
	case "h2_count":
		writeList(b, sig.H2, HeadingSamples)
	case "image_alt":
		writeList(b, sig.ImagesMissingAlt, MissingAltSamples)
	case "link_count":
		fmt.Fprintf(b, "| Internal | External |\n|---|---|\n| %d | %d |\n\n", len(sig.InternalLinks), len(sig.ExternalLinks))
	case "canonical_tag":
		if sig.Canonical != "" {
			fmt.Fprintf(b, "```\n%s\n```\n\n", sig.Canonical)
		}
	case "robots_txt":
		if r := res.Probes.Robots.Value; r.Present && r.Content != "" {
			excerpt := []rune(r.Content)
			if len(excerpt) > RobotsExcerptLength {
				excerpt = excerpt[:RobotsExcerptLength]
			}
			fmt.Fprintf(b, "```\n%s\n```\n\n", strings.TrimRight(string(excerpt), "\n"))
		}
	case "broken_links":
		writeList(b, res.Probes.BrokenLinks.Value.BrokenURLs, len(res.Probes.BrokenLinks.Value.BrokenURLs))
	case "page_objects":
		fmt.Fprintf(b, "| Total | Images | JavaScript | Stylesheets |\n|---|---|---|---|\n| %d | %d | %d | %d |\n\n",
			sig.TotalRequests(), len(sig.Images), len(sig.Scripts), len(sig.Stylesheets))
	case "minified_css":
		writeList(b, analyzer.Unminified(sig.Stylesheets), UnminifiedSamples)
	case "minified_js":
		writeList(b, analyzer.Unminified(sig.Scripts), UnminifiedSamples)
	}
}

func writeKeywords(b *strings.Builder, k analyzer.KeywordProfile) {
	if len(k.TitleDescriptionOverlap) > 0 {
		fmt.Fprintf(b, "Shared keywords: %s\n\n", strings.Join(k.TitleDescriptionOverlap, ", "))
	}
	if len(k.TopKeywords) > 0 {
		words := make([]string, len(k.TopKeywords))
		for i, kw := range k.TopKeywords {
			words[i] = fmt.Sprintf("%s (%d)", kw.Keyword, kw.Count)
		}
		fmt.Fprintf(b, "Most common keywords: %s\n\n", strings.Join(words, ", "))
	}
	if len(k.Usage) == 0 {
		return
	}
	b.WriteString("| Keyword | Title tag | Meta description | Headings |\n|---|---|---|---|\n")
	for _, u := range k.Usage {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", escapeCell(u.Keyword), yesNo(u.InTitle), yesNo(u.InDescription), yesNo(u.InHeadings))
	}
	b.WriteString("\n")
}

// writeList prints up to limit items as a bullet list and notes how many
// were left out.
func writeList(b *strings.Builder, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	shown := items
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for _, it := range shown {
		fmt.Fprintf(b, "- %s\n", it)
	}
	if rest := len(items) - len(shown); rest > 0 {
		fmt.Fprintf(b, "- ... and %d more\n", rest)
	}
	b.WriteString("\n")
}
