package analyzer

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var noindexPattern = regexp.MustCompile(`(?i)noindex`)

// Extract pulls the structural facts out of a parsed page. It performs no
// network calls and never fails: absent elements produce zero values.
func Extract(doc *goquery.Document, pageURL *url.URL) Signals {
	var s Signals

	s.Title = strings.TrimSpace(doc.Find("title").First().Text())
	s.TitleLength = len([]rune(s.Title))

	desc, _ := doc.Find("meta[name='description']").First().Attr("content")
	s.Description = strings.TrimSpace(desc)
	s.DescriptionLength = len([]rune(s.Description))

	s.H1 = headingTexts(doc, "h1")
	s.H2 = headingTexts(doc, "h2")

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		s.Images = append(s.Images, src)
		if _, ok := img.Attr("alt"); !ok {
			s.ImagesMissingAlt = append(s.ImagesMissingAlt, src)
		}
	})

	s.InternalLinks, s.ExternalLinks, s.InternalAnchors = classifyLinks(doc, pageURL)

	s.Canonical, _ = doc.Find("link[rel~='canonical']").First().Attr("href")
	s.Canonical = strings.TrimSpace(s.Canonical)

	doc.Find("meta[name='robots']").EachWithBreak(func(_ int, m *goquery.Selection) bool {
		content, _ := m.Attr("content")
		if noindexPattern.MatchString(content) {
			s.HasNoindex = true
			return false
		}
		return true
	})

	s.HasOpenGraph = doc.Find("meta[property^='og:']").Length() > 0
	s.HasStructuredData = doc.Find("script[type='application/ld+json']").Length() > 0

	doc.Find("script[src]").Each(func(_ int, sc *goquery.Selection) {
		src, _ := sc.Attr("src")
		s.Scripts = append(s.Scripts, newAsset(src))
	})
	doc.Find("link[rel~='stylesheet']").Each(func(_ int, l *goquery.Selection) {
		href, _ := l.Attr("href")
		s.Stylesheets = append(s.Stylesheets, newAsset(href))
	})

	s.Text = VisibleText(doc)
	return s
}

func newAsset(ref string) Asset {
	ref = strings.TrimSpace(ref)
	return Asset{URL: ref, Minified: strings.Contains(ref, ".min")}
}

func headingTexts(doc *goquery.Document, tag string) []string {
	var texts []string
	doc.Find(tag).Each(func(_ int, h *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(h.Text()))
	})
	return texts
}

// classifyLinks resolves every anchor against the page URL and splits the
// distinct results by host. Links without a host, such as mailto: or tel:,
// are external. anchors lists the same-host links in document order,
// repeats included.
func classifyLinks(doc *goquery.Document, pageURL *url.URL) (internal, external, anchors []string) {
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, err := pageURL.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		link := abs.String()
		same := abs.Host != "" && strings.EqualFold(abs.Host, pageURL.Host)
		if same {
			anchors = append(anchors, link)
		}
		if seen[link] {
			return
		}
		seen[link] = true

		if same {
			internal = append(internal, link)
		} else {
			external = append(external, link)
		}
	})
	return internal, external, anchors
}

var invisibleElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// VisibleText returns the document's human readable text with whitespace
// collapsed to single spaces.
func VisibleText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if invisibleElements[n.DataAtom] {
				return
			}
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
