package analyzer

import (
	"fmt"
	"time"
)

// Report categories.
const (
	CategoryBasic       = "Basic SEO"
	CategoryAdvanced    = "Advanced SEO"
	CategoryPerformance = "Performance"
	CategorySecurity    = "Security"
)

// Thresholds used by the rule table.
const (
	TitleMinLength       = 50
	TitleMaxLength       = 70
	DescriptionMinLength = 150
	DescriptionMaxLength = 160
	LinksMin             = 10
	LinksMax             = 100
	MaxRequests          = 20
	MaxHTMLSizeKB        = 50
	MaxResponseTime      = 800 * time.Millisecond
)

// Facts is everything the scoring engine looks at.
type Facts struct {
	Signals      Signals
	Keywords     KeywordProfile
	Probes       ProbeResults
	ResponseTime time.Duration
	HTMLSize     int
	IsHTTPS      bool
}

// HTMLSizeKB returns the page size in kilobytes.
func (f Facts) HTMLSizeKB() float64 {
	return float64(f.HTMLSize) / 1024
}

// Rule is one row of the scoring table. Evaluate classifies the facts and
// returns a short human readable detail.
type Rule struct {
	ID       int
	Key      string
	Name     string
	Category string
	Advice   string
	Evaluate func(f Facts) (Status, string)
}

// either picks good when ok holds and otherwise.
func either(ok bool, otherwise Status) Status {
	if ok {
		return StatusGood
	}
	return otherwise
}

// Rules is the fixed, ordered rule table. Every rule adds exactly one item to
// the score card.
var Rules = []Rule{
	{
		ID: 1, Key: "title_length", Name: "SEO Title", Category: CategoryBasic,
		Advice: "Ensure your page's title includes your target keywords, and design it to encourage users to click.",
		Evaluate: func(f Facts) (Status, string) {
			n := f.Signals.TitleLength
			return either(n >= TitleMinLength && n <= TitleMaxLength, StatusIssue),
				fmt.Sprintf("The SEO title is %d characters long.", n)
		},
	},
	{
		ID: 2, Key: "description_length", Name: "SEO Description", Category: CategoryBasic,
		Advice: "Write a meta description for your page. Use your target keywords (in a natural way) and write with human readers in mind.",
		Evaluate: func(f Facts) (Status, string) {
			n := f.Signals.DescriptionLength
			switch {
			case n >= DescriptionMinLength && n <= DescriptionMaxLength:
				return StatusGood, fmt.Sprintf("The meta description is set and is %d characters long.", n)
			case n == 0:
				return StatusIssue, "No meta description was found."
			default:
				return StatusRecommendation, fmt.Sprintf("The meta description is set and is %d characters long.", n)
			}
		},
	},
	{
		ID: 3, Key: "keywords_title_description", Name: "Keywords in Title & Description", Category: CategoryBasic,
		Advice: "Use titles and descriptions that are attractive to users and contain your keywords. Use the keywords naturally.",
		Evaluate: func(f Facts) (Status, string) {
			if len(f.Keywords.TitleDescriptionOverlap) > 0 {
				return StatusGood, "One or more keywords were found in the title and description of the page."
			}
			return StatusRecommendation, "The title and description share no keywords."
		},
	},
	{
		ID: 4, Key: "h1_count", Name: "H1 Heading", Category: CategoryBasic,
		Advice: "Ensure your most important keywords appear in the H1 tag - don't force it, use them in a natural way.",
		Evaluate: func(f Facts) (Status, string) {
			switch n := len(f.Signals.H1); n {
			case 1:
				return StatusGood, "One H1 tag was found on the page."
			case 0:
				return StatusIssue, "No H1 tag was found on the page."
			default:
				return StatusRecommendation, fmt.Sprintf("%d H1 tags were found on the page.", n)
			}
		},
	},
	{
		ID: 5, Key: "h2_count", Name: "H2 Headings", Category: CategoryBasic,
		Advice: "Make sure you have a good balance of H2 tags to plain text in your content.",
		Evaluate: func(f Facts) (Status, string) {
			n := len(f.Signals.H2)
			return either(n > 0, StatusRecommendation), fmt.Sprintf("%d H2 tags were found on the page.", n)
		},
	},
	{
		ID: 6, Key: "image_alt", Name: "Image ALT Attributes", Category: CategoryBasic,
		Advice: "Make sure every image has an alt tag, and add useful descriptions to each image.",
		Evaluate: func(f Facts) (Status, string) {
			if n := len(f.Signals.ImagesMissingAlt); n > 0 {
				return StatusIssue, fmt.Sprintf("Some images on the page have no alt attribute. (%d)", n)
			}
			return StatusGood, "All images on the page have alt attributes."
		},
	},
	{
		ID: 7, Key: "link_count", Name: "Links Ratio", Category: CategoryBasic,
		Advice: "Add links to external resources that are useful for your readers.",
		Evaluate: func(f Facts) (Status, string) {
			n := f.Signals.TotalLinks()
			return either(n >= LinksMin && n <= LinksMax, StatusRecommendation),
				fmt.Sprintf("The page has %d internal and %d external links.", len(f.Signals.InternalLinks), len(f.Signals.ExternalLinks))
		},
	},
	{
		ID: 8, Key: "canonical_tag", Name: "Canonical Tag", Category: CategoryAdvanced,
		Advice: "Every page on your site should have a <link> tag with a 'rel=\"canonical\"' attribute.",
		Evaluate: func(f Facts) (Status, string) {
			if f.Signals.Canonical != "" {
				return StatusGood, "The page is using the canonical link tag."
			}
			return StatusRecommendation, "The page has no canonical link tag."
		},
	},
	{
		ID: 9, Key: "noindex", Name: "Noindex Meta", Category: CategoryAdvanced,
		Advice: "Only ever use noindex meta tag or header on pages you want to keep out of the reach of search engines!",
		Evaluate: func(f Facts) (Status, string) {
			if f.Signals.HasNoindex {
				return StatusRecommendation, "The page contains a noindex header or meta tag."
			}
			return StatusGood, "The page does not contain any noindex header or meta tag."
		},
	},
	{
		ID: 10, Key: "robots_txt", Name: "Robots.txt", Category: CategoryAdvanced,
		Advice: "Create a robots.txt file and upload it to your site's web root. Make sure that you only block parts you don't want to be indexed.",
		Evaluate: func(f Facts) (Status, string) {
			r := f.Probes.Robots.Value
			switch {
			case !r.Present:
				return StatusIssue, "The site has no robots.txt file."
			case r.HasDisallow:
				return StatusGood, "The site has a robots.txt file which includes one or more Disallow: directives."
			default:
				return StatusGood, "The site has a robots.txt file with no Disallow directives."
			}
		},
	},
	{
		ID: 11, Key: "sitemap", Name: "Sitemaps", Category: CategoryAdvanced,
		Advice: "Consider generating an XML sitemap to help search engines crawl your site.",
		Evaluate: func(f Facts) (Status, string) {
			s := f.Probes.Sitemap.Value
			if s.Present {
				return StatusGood, fmt.Sprintf("The site has one or more sitemaps. Found %d URLs in sitemap.", s.URLCount)
			}
			return StatusRecommendation, "The site has no sitemap."
		},
	},
	{
		ID: 12, Key: "open_graph", Name: "OpenGraph Meta", Category: CategoryAdvanced,
		Advice: "Insert a customized Open Graph meta tag for each important page on your site.",
		Evaluate: func(f Facts) (Status, string) {
			if f.Signals.HasOpenGraph {
				return StatusGood, "Open Graph meta tags have been found."
			}
			return StatusRecommendation, "No Open Graph meta tags were found."
		},
	},
	{
		ID: 13, Key: "structured_data", Name: "Schema Meta Data", Category: CategoryAdvanced,
		Advice: "Add Schema.org markup in a JSON-LD script so search engines understand the page.",
		Evaluate: func(f Facts) (Status, string) {
			if f.Signals.HasStructuredData {
				return StatusGood, "We found Schema.org data on the page."
			}
			return StatusRecommendation, "No Schema.org data was found on the page."
		},
	},
	{
		ID: 14, Key: "www_canonicalization", Name: "WWW Canonicalization", Category: CategoryAdvanced,
		Advice: "Decide whether you want your site's URLs to include a 'www', or if you prefer a plain domain name. Use 301 redirects.",
		Evaluate: func(f Facts) (Status, string) {
			if f.Probes.Canonicalization.Value.Proper {
				return StatusGood, "Both www and non-www versions of the URL are redirected to the same site."
			}
			return StatusRecommendation, "The www and non-www versions of the URL do not resolve to the same page."
		},
	},
	{
		ID: 15, Key: "freshness", Name: "Keep your content fresh", Category: CategoryAdvanced,
		Advice: "Update your content regularly to signal freshness to search engines.",
		Evaluate: func(f Facts) (Status, string) {
			fr := f.Probes.Freshness.Value
			if fr.Fresh {
				return StatusGood, fmt.Sprintf("The content is fresh. Last updated %d days ago.", fr.DaysAgo)
			}
			if fr.LastModified.IsZero() {
				return StatusRecommendation, "The server did not report when the content was last modified."
			}
			return StatusRecommendation, fmt.Sprintf("The content was last updated %d days ago.", fr.DaysAgo)
		},
	},
	{
		ID: 16, Key: "broken_links", Name: "Broken Links", Category: CategoryAdvanced,
		Advice: "Broken or dead links (404/500 errors) harm SEO and user trust. Fix them promptly.",
		Evaluate: func(f Facts) (Status, string) {
			b := f.Probes.BrokenLinks.Value
			if b.Broken > 0 {
				return StatusIssue, fmt.Sprintf("%d/%d broken links detected.", b.Broken, b.Checked)
			}
			return StatusGood, "No broken links on the page."
		},
	},
	{
		ID: 17, Key: "media_queries", Name: "Create a responsive site", Category: CategoryBasic,
		Advice: "No media queries found. Consider adding responsive design for better mobile experience.",
		Evaluate: func(f Facts) (Status, string) {
			if f.Probes.MediaQueries.Value {
				return StatusGood, "The CSS code contains media queries."
			}
			return StatusRecommendation, "The sampled CSS code contains no media queries."
		},
	},
	{
		ID: 18, Key: "page_objects", Name: "Page Objects", Category: CategoryPerformance,
		Advice: "More than 20 requests can result in slow page loading. Try to replace embedded objects with HTML5 alternatives.",
		Evaluate: func(f Facts) (Status, string) {
			n := f.Signals.TotalRequests()
			return either(n <= MaxRequests, StatusIssue), fmt.Sprintf("The page makes %d requests.", n)
		},
	},
	{
		ID: 19, Key: "html_size", Name: "Page Size", Category: CategoryPerformance,
		Advice: "This is over our recommendation of 50 KB. Remove unnecessary tags, inline CSS, and white space.",
		Evaluate: func(f Facts) (Status, string) {
			kb := f.HTMLSizeKB()
			return either(kb <= MaxHTMLSizeKB, StatusIssue), fmt.Sprintf("The size of the HTML document is %.2f KB.", kb)
		},
	},
	{
		ID: 20, Key: "response_time", Name: "Response Time", Category: CategoryPerformance,
		Advice: "Use a caching plugin or CDN to improve response time.",
		Evaluate: func(f Facts) (Status, string) {
			return either(f.ResponseTime < MaxResponseTime, StatusRecommendation),
				fmt.Sprintf("The response time is %.3f seconds.", f.ResponseTime.Seconds())
		},
	},
	{
		ID: 21, Key: "image_expires", Name: "Image Headers Expire", Category: CategoryPerformance,
		Advice: "Edit server config or use a plugin to set expires headers for images.",
		Evaluate: func(f Facts) (Status, string) {
			if f.Probes.ImageCache.Value {
				return StatusGood, "The server is using expires header for the images."
			}
			return StatusRecommendation, "The server is not using expires header for the images."
		},
	},
	{
		ID: 22, Key: "minified_css", Name: "Minify CSS", Category: CategoryPerformance,
		Advice: "Use server-side tools to automatically minify CSS files.",
		Evaluate: func(f Facts) (Status, string) {
			if n := len(Unminified(f.Signals.Stylesheets)); n > 0 {
				return StatusRecommendation, fmt.Sprintf("%d CSS files don't seem to be minified.", n)
			}
			return StatusGood, "All CSS files appear to be minified."
		},
	},
	{
		ID: 23, Key: "minified_js", Name: "Minify Javascript", Category: CategoryPerformance,
		Advice: "There are server-side tools to automatically minify JavaScript files.",
		Evaluate: func(f Facts) (Status, string) {
			if n := len(Unminified(f.Signals.Scripts)); n > 0 {
				return StatusRecommendation, fmt.Sprintf("%d Javascript files don't seem to be minified.", n)
			}
			return StatusGood, "All Javascript files are minified."
		},
	},
	{
		ID: 24, Key: "https", Name: "Secure Connection", Category: CategorySecurity,
		Advice: "If you aren't using an SSL certificate, you are losing potential traffic. Get one installed immediately.",
		Evaluate: func(f Facts) (Status, string) {
			if f.IsHTTPS {
				return StatusGood, "The site is using a secure transfer protocol (https)."
			}
			return StatusIssue, "The site is not using a secure transfer protocol (https)."
		},
	},
	{
		ID: 25, Key: "plugins_visible", Name: "Visible Plugins", Category: CategorySecurity,
		Advice: "Hide plugin paths to improve security.",
		Evaluate: func(f Facts) (Status, string) {
			if f.Probes.PluginsVisible.Value {
				return StatusRecommendation, "Some plugins may be visible."
			}
			return StatusGood, "None of the plugins are publicly visible."
		},
	},
}

// EvaluateRule applies a single rule to the facts.
func EvaluateRule(r Rule, f Facts) CheckResult {
	status, detail := r.Evaluate(f)
	c := CheckResult{
		ID:       r.ID,
		Key:      r.Key,
		Name:     r.Name,
		Category: r.Category,
		Status:   status,
		Detail:   detail,
	}
	if status != StatusGood {
		c.Advice = r.Advice
	}
	return c
}

// Evaluate runs the rule table over the facts and totals the results.
func Evaluate(f Facts) ScoreCard {
	return Tally(Rules, f)
}

// Tally evaluates rules in order and reduces them into a score card.
func Tally(rules []Rule, f Facts) ScoreCard {
	card := ScoreCard{Checks: make([]CheckResult, 0, len(rules))}
	for _, r := range rules {
		c := EvaluateRule(r, f)
		switch c.Status {
		case StatusGood:
			card.GoodResults++
		case StatusRecommendation:
			card.Recommendations++
		default:
			c.Status = StatusIssue
			card.Issues++
		}
		card.Checks = append(card.Checks, c)
		card.TotalItems++
	}
	if card.TotalItems > 0 {
		card.Score = 100 * card.GoodResults / card.TotalItems
	}
	return card
}
