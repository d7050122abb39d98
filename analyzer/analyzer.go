package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html/charset"
)

// Default network timeouts.
const (
	DefaultFetchTimeout = 10 * time.Second
	DefaultProbeTimeout = 5 * time.Second
)

var (
	// ErrInvalidURL is returned when the target cannot be turned into an
	// absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrFetchFailed is returned when the target page cannot be retrieved.
	ErrFetchFailed = errors.New("fetching page failed")
	// ErrBadStatus is returned when the target page answers with a status of
	// 400 or more.
	ErrBadStatus = errors.New("page returned an error status")
)

// Logger is the subset of a leveled logger the analyzer writes to.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

// Recorder receives the outcome of every audit.
type Recorder interface {
	RecordAudit(result *AnalysisResult)
	RecordFailure(rawURL string, err error)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}

// Analyzer performs SEO audits of single pages.
type Analyzer struct {
	fetcher      Fetcher
	fetchTimeout time.Duration
	probeTimeout time.Duration
	now          func() time.Time
	logger       Logger
	recorder     Recorder
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f Fetcher) Option {
	return func(a *Analyzer) { a.fetcher = f }
}

// WithClock sets the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithTimeouts sets the primary fetch and probe timeouts. Zero values keep
// the defaults.
func WithTimeouts(fetch, probe time.Duration) Option {
	return func(a *Analyzer) {
		if fetch > 0 {
			a.fetchTimeout = fetch
		}
		if probe > 0 {
			a.probeTimeout = probe
		}
	}
}

// WithLogger sets the logger for fetch and probe messages.
func WithLogger(l Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithRecorder reports every finished or failed audit to r.
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) { a.recorder = r }
}

// New creates a new Analyzer instance
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		fetchTimeout: DefaultFetchTimeout,
		probeTimeout: DefaultProbeTimeout,
		now:          time.Now,
		logger:       nopLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fetcher == nil {
		a.fetcher = NewHTTPFetcher("")
	}
	return a
}

// NormalizeURL defaults the scheme to https and the path to "/" and
// lowercases the host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrInvalidURL, raw)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// Analyze performs a complete SEO audit of the given URL. Only a failure to
// retrieve or parse the page itself is returned as an error; every other
// check degrades to its default.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*AnalysisResult, error) {
	result, err := a.analyze(ctx, rawURL)
	if a.recorder != nil {
		if err != nil {
			a.recorder.RecordFailure(rawURL, err)
		} else {
			a.recorder.RecordAudit(result)
		}
	}
	return result, err
}

func (a *Analyzer) analyze(ctx context.Context, rawURL string) (*AnalysisResult, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(normalized)

	a.logger.Info("Analyzing %s", normalized)
	page, err := a.fetchPage(ctx, normalized)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Fetched %s: status %d, %d bytes in %s", page.FinalURL, page.StatusCode, page.Size(), page.Elapsed)

	signals := Extract(page.Document, base)
	if hasNoindexHeader(page.Header) {
		signals.HasNoindex = true
	}

	headings := append(append([]string{}, signals.H1...), signals.H2...)
	keywords := AnalyzeKeywords(signals.Text, signals.Title, signals.Description, headings)

	p := &prober{fetcher: a.fetcher, timeout: a.probeTimeout, now: a.now}
	probes := p.runProbes(ctx, page, base, normalized, signals)
	a.logDegraded(probes)

	facts := Facts{
		Signals:      signals,
		Keywords:     keywords,
		Probes:       probes,
		ResponseTime: page.Elapsed,
		HTMLSize:     page.Size(),
		IsHTTPS:      base.Scheme == "https",
	}
	card := Evaluate(facts)
	a.logger.Info("Scored %s: %d/100 (%d good, %d recommendations, %d issues)",
		normalized, card.Score, card.GoodResults, card.Recommendations, card.Issues)

	return &AnalysisResult{
		ID:            uuid.NewString(),
		URL:           rawURL,
		NormalizedURL: normalized,
		FinalURL:      page.FinalURL,
		GeneratedAt:   a.now(),
		StatusCode:    page.StatusCode,
		HTMLSizeKB:    facts.HTMLSizeKB(),
		ResponseTime:  page.Elapsed.Seconds(),
		IsHTTPS:       facts.IsHTTPS,
		Signals:       signals,
		Keywords:      keywords,
		Probes:        probes,
		ScoreCard:     card,
	}, nil
}

// fetchPage retrieves and parses the audited page. Any failure here aborts
// the audit.
func (a *Analyzer) fetchPage(ctx context.Context, target string) (*PageSnapshot, error) {
	resp, err := a.fetcher.Fetch(ctx, Request{Method: http.MethodGet, URL: target, Timeout: a.fetchTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, target, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s answered %d", ErrBadStatus, target, resp.StatusCode)
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.Body), resp.Header.Get("Content-Type"))
	if err != nil {
		reader = bytes.NewReader(resp.Body)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrFetchFailed, target, err)
	}

	return &PageSnapshot{
		RequestedURL: target,
		FinalURL:     resp.FinalURL,
		StatusCode:   resp.StatusCode,
		Header:       resp.Header,
		Body:         resp.Body,
		Elapsed:      resp.Elapsed,
		Document:     doc,
	}, nil
}

func hasNoindexHeader(h http.Header) bool {
	for _, v := range h.Values("X-Robots-Tag") {
		if noindexPattern.MatchString(v) {
			return true
		}
	}
	return false
}

func (a *Analyzer) logDegraded(p ProbeResults) {
	for name, o := range map[string]struct {
		degraded bool
		reason   string
	}{
		"robots":           {p.Robots.Degraded, p.Robots.Reason},
		"sitemap":          {p.Sitemap.Degraded, p.Sitemap.Reason},
		"freshness":        {p.Freshness.Degraded, p.Freshness.Reason},
		"broken links":     {p.BrokenLinks.Degraded, p.BrokenLinks.Reason},
		"media queries":    {p.MediaQueries.Degraded, p.MediaQueries.Reason},
		"image cache":      {p.ImageCache.Degraded, p.ImageCache.Reason},
		"canonicalization": {p.Canonicalization.Degraded, p.Canonicalization.Reason},
		"plugins":          {p.PluginsVisible.Degraded, p.PluginsVisible.Reason},
	} {
		if o.degraded {
			a.logger.Debug("Probe %s degraded: %s", name, o.reason)
		}
	}
}
