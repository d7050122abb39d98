package analyzer

import (
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PageSnapshot is the fetched target page. It is built once per audit and
// never modified afterwards.
type PageSnapshot struct {
	RequestedURL string
	FinalURL     string
	StatusCode   int
	Header       http.Header
	Body         []byte
	Elapsed      time.Duration
	Document     *goquery.Document
}

// Size returns the body size in bytes.
func (p *PageSnapshot) Size() int {
	return len(p.Body)
}

// Asset is a script or stylesheet reference found on the page.
type Asset struct {
	URL      string `json:"url"`
	Minified bool   `json:"minified"`
}

// Signals holds the structural facts extracted from the page document
type Signals struct {
	Title             string   `json:"title"`
	TitleLength       int      `json:"titleLength"`
	Description       string   `json:"description"`
	DescriptionLength int      `json:"descriptionLength"`
	H1                []string `json:"h1"`
	H2                []string `json:"h2"`
	Images            []string `json:"images"`
	ImagesMissingAlt  []string `json:"imagesMissingAlt"`
	InternalLinks     []string `json:"internalLinks"`
	ExternalLinks     []string `json:"externalLinks"`
	InternalAnchors   []string `json:"-"` // same-host hrefs in document order
	Canonical         string   `json:"canonical"`
	HasNoindex        bool     `json:"hasNoindex"`
	HasOpenGraph      bool     `json:"hasOpenGraph"`
	HasStructuredData bool     `json:"hasStructuredData"`
	Scripts           []Asset  `json:"scripts"`
	Stylesheets       []Asset  `json:"stylesheets"`
	Text              string   `json:"-"`
}

// TotalLinks is the number of distinct internal and external links.
func (s Signals) TotalLinks() int {
	return len(s.InternalLinks) + len(s.ExternalLinks)
}

// TotalRequests is the number of images, scripts and stylesheets the page
// pulls in.
func (s Signals) TotalRequests() int {
	return len(s.Images) + len(s.Scripts) + len(s.Stylesheets)
}

// Unminified returns the references of assets that do not look minified.
func Unminified(assets []Asset) []string {
	var refs []string
	for _, a := range assets {
		if !a.Minified {
			refs = append(refs, a.URL)
		}
	}
	return refs
}

// KeywordCount is a term with its number of occurrences.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// KeywordUsage records where one of the top keywords shows up.
type KeywordUsage struct {
	Keyword       string `json:"keyword"`
	InTitle       bool   `json:"inTitle"`
	InDescription bool   `json:"inDescription"`
	InHeadings    bool   `json:"inHeadings"`
}

type KeywordProfile struct {
	TopKeywords             []KeywordCount `json:"topKeywords"`
	Usage                   []KeywordUsage `json:"usage"`
	TitleDescriptionOverlap []string       `json:"titleDescriptionOverlap"`
}

// Outcome is the result of a best-effort probe. A degraded outcome carries
// the probe's safe default in Value and the failure in Reason.
type Outcome[T any] struct {
	Value    T      `json:"value"`
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

func succeeded[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func degraded[T any](v T, err error) Outcome[T] {
	o := Outcome[T]{Value: v, Degraded: true}
	if err != nil {
		o.Reason = err.Error()
	}
	return o
}

type RobotsInfo struct {
	Present     bool   `json:"present"`
	Content     string `json:"content"`
	HasDisallow bool   `json:"hasDisallow"`
}

type SitemapInfo struct {
	Present  bool `json:"present"`
	URLCount int  `json:"urlCount"`
}

type FreshnessInfo struct {
	Fresh        bool      `json:"fresh"`
	DaysAgo      int       `json:"daysAgo"`
	LastModified time.Time `json:"lastModified,omitempty"`
}

type BrokenLinksInfo struct {
	Broken     int      `json:"broken"`
	Checked    int      `json:"checked"`
	BrokenURLs []string `json:"brokenUrls,omitempty"`
}

type CanonicalizationInfo struct {
	WWW    bool `json:"www"`
	NonWWW bool `json:"nonWww"`
	Proper bool `json:"proper"`
}

// ProbeResults gathers the outcomes of all auxiliary probes.
type ProbeResults struct {
	Robots           Outcome[RobotsInfo]           `json:"robots"`
	Sitemap          Outcome[SitemapInfo]          `json:"sitemap"`
	Freshness        Outcome[FreshnessInfo]        `json:"freshness"`
	BrokenLinks      Outcome[BrokenLinksInfo]      `json:"brokenLinks"`
	MediaQueries     Outcome[bool]                 `json:"mediaQueries"`
	ImageCache       Outcome[bool]                 `json:"imageCache"`
	Canonicalization Outcome[CanonicalizationInfo] `json:"canonicalization"`
	PluginsVisible   Outcome[bool]                 `json:"pluginsVisible"`
}

// DegradedCount returns how many probes fell back to their default.
func (p ProbeResults) DegradedCount() int {
	n := 0
	for _, d := range []bool{
		p.Robots.Degraded,
		p.Sitemap.Degraded,
		p.Freshness.Degraded,
		p.BrokenLinks.Degraded,
		p.MediaQueries.Degraded,
		p.ImageCache.Degraded,
		p.Canonicalization.Degraded,
		p.PluginsVisible.Degraded,
	} {
		if d {
			n++
		}
	}
	return n
}

// Status is the classification of a single check.
type Status string

const (
	StatusGood           Status = "good"
	StatusRecommendation Status = "recommendation"
	StatusIssue          Status = "issue"
)

type CheckResult struct {
	ID       int    `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   Status `json:"status"`
	Detail   string `json:"detail"`
	Advice   string `json:"advice,omitempty"`
}

// ScoreCard is the classified rule table plus its totals.
type ScoreCard struct {
	Checks          []CheckResult `json:"checks"`
	GoodResults     int           `json:"goodResults"`
	Recommendations int           `json:"recommendations"`
	Issues          int           `json:"issues"`
	TotalItems      int           `json:"totalItems"`
	Score           int           `json:"score"`
}

// Check returns the result for the rule with the given key.
func (s ScoreCard) Check(key string) (CheckResult, bool) {
	for _, c := range s.Checks {
		if c.Key == key {
			return c, true
		}
	}
	return CheckResult{}, false
}

// AnalysisResult is the complete audit of one page.
type AnalysisResult struct {
	ID            string         `json:"id"`
	URL           string         `json:"url"`
	NormalizedURL string         `json:"normalizedUrl"`
	FinalURL      string         `json:"finalUrl"`
	GeneratedAt   time.Time      `json:"generatedAt"`
	StatusCode    int            `json:"statusCode"`
	HTMLSizeKB    float64        `json:"htmlSizeKb"`
	ResponseTime  float64        `json:"responseTime"`
	IsHTTPS       bool           `json:"isHttps"`
	Signals       Signals        `json:"signals"`
	Keywords      KeywordProfile `json:"keywords"`
	Probes        ProbeResults   `json:"probes"`
	ScoreCard     ScoreCard      `json:"scoreCard"`
}
