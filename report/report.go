package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/seo-optimizer/seoaudit/analyzer"
)

// Format is a report output format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat accepts the format names and their common aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q (want md, json or yaml)", name)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatYAML:
		return "application/yaml; charset=utf-8"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// OutputFileName derives the default report file name from the audited URL:
// the host without "www." and without dots.
func OutputFileName(target string, f Format) string {
	domain := "report"
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		domain = strings.ReplaceAll(strings.ReplaceAll(u.Host, "www.", ""), ".", "")
	}
	return fmt.Sprintf("seoaudit-%s.%s", domain, f)
}

// Render writes the audit result to w in the given format.
func Render(w io.Writer, res *analyzer.AnalysisResult, f Format) error {
	switch f {
	case FormatMarkdown:
		return renderMarkdown(w, res)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatYAML:
		return renderYAML(w, res)
	}
	return fmt.Errorf("unknown report format %q", f)
}

// renderYAML goes through JSON so that the YAML keys match the API's field
// names and order.
func renderYAML(w io.Writer, res *analyzer.AnalysisResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("converting result: %w", err)
	}
	blockStyle(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// blockStyle drops the flow and quoting styles inherited from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
