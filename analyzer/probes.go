package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

const (
	// FreshnessDays is the maximum age of fresh content.
	FreshnessDays = 30
	// BrokenLinkSample is how many internal links are checked.
	BrokenLinkSample = 10
	// StylesheetSample is how many stylesheets are searched for media queries.
	StylesheetSample = 2
	// PluginPath is the conventional path whose visibility is probed.
	PluginPath = "/wp-content/"

	linkCheckConcurrency = 5
	robotsExcerptLimit   = 64 << 10
)

// prober runs the auxiliary checks of one audit.
type prober struct {
	fetcher Fetcher
	timeout time.Duration
	now     func() time.Time
}

func (p *prober) get(ctx context.Context, method, target string) (*Response, error) {
	return p.fetcher.Fetch(ctx, Request{Method: method, URL: target, Timeout: p.timeout})
}

// runProbes executes every probe concurrently. Each probe owns one field of
// the result, so the outcome matches a sequential run.
func (p *prober) runProbes(ctx context.Context, page *PageSnapshot, base *url.URL, normalized string, sig Signals) ProbeResults {
	var res ProbeResults

	res.Freshness = p.freshness(page.Header)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { res.Robots = p.robots(gctx, base); return nil })
	g.Go(func() error { res.Sitemap = p.sitemap(gctx, base); return nil })
	g.Go(func() error { res.BrokenLinks = p.brokenLinks(gctx, sig.InternalAnchors); return nil })
	g.Go(func() error { res.MediaQueries = p.mediaQueries(gctx, base, sig.Stylesheets); return nil })
	g.Go(func() error { res.ImageCache = p.imageCache(gctx, base, sig.Images); return nil })
	g.Go(func() error { res.Canonicalization = p.canonicalization(gctx, normalized); return nil })
	g.Go(func() error { res.PluginsVisible = p.pluginsVisible(gctx, base); return nil })
	_ = g.Wait()

	return res
}

func (p *prober) robots(ctx context.Context, base *url.URL) Outcome[RobotsInfo] {
	target, _ := resolveRef(base, "/robots.txt")
	resp, err := p.get(ctx, http.MethodGet, target)
	if err != nil {
		return degraded(RobotsInfo{}, err)
	}
	if resp.StatusCode != http.StatusOK {
		return succeeded(RobotsInfo{})
	}
	content := string(resp.Body)
	if len(content) > robotsExcerptLimit {
		content = content[:robotsExcerptLimit]
	}
	return succeeded(RobotsInfo{
		Present:     true,
		Content:     content,
		HasDisallow: HasDisallow(content),
	})
}

// HasDisallow reports whether a robots.txt body contains at least one
// Disallow directive with a non-empty value.
func HasDisallow(robots string) bool {
	for _, line := range strings.Split(robots, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < len("disallow:") || !strings.EqualFold(line[:len("disallow:")], "disallow:") {
			continue
		}
		value := line[len("disallow:"):]
		if i := strings.IndexByte(value, '#'); i >= 0 {
			value = value[:i]
		}
		if strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}

func (p *prober) sitemap(ctx context.Context, base *url.URL) Outcome[SitemapInfo] {
	target, _ := resolveRef(base, "/sitemap.xml")
	resp, err := p.get(ctx, http.MethodGet, target)
	if err != nil {
		return degraded(SitemapInfo{}, err)
	}
	if resp.StatusCode != http.StatusOK {
		return succeeded(SitemapInfo{})
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return degraded(SitemapInfo{Present: true}, fmt.Errorf("parsing sitemap: %w", err))
	}
	return succeeded(SitemapInfo{Present: true, URLCount: doc.Find("loc").Length()})
}

func (p *prober) freshness(h http.Header) Outcome[FreshnessInfo] {
	raw := h.Get("Last-Modified")
	if raw == "" {
		return succeeded(FreshnessInfo{})
	}
	modified, err := http.ParseTime(raw)
	if err != nil {
		return degraded(FreshnessInfo{}, fmt.Errorf("parsing Last-Modified %q: %w", raw, err))
	}
	days := int(math.Floor(p.now().Sub(modified).Hours() / 24))
	return succeeded(FreshnessInfo{
		Fresh:        days <= FreshnessDays,
		DaysAgo:      days,
		LastModified: modified.UTC(),
	})
}

// brokenLinks HEADs the first same-host anchors in document order. A link
// is broken when the request fails or answers with a status of 400 or more.
func (p *prober) brokenLinks(ctx context.Context, anchors []string) Outcome[BrokenLinksInfo] {
	sample := anchors
	if len(sample) > BrokenLinkSample {
		sample = sample[:BrokenLinkSample]
	}

	broken := make([]bool, len(sample))
	var g errgroup.Group
	g.SetLimit(linkCheckConcurrency)
	for i, link := range sample {
		i, link := i, link
		g.Go(func() error {
			resp, err := p.get(ctx, http.MethodHead, link)
			broken[i] = err != nil || resp.StatusCode >= http.StatusBadRequest
			return nil
		})
	}
	_ = g.Wait()

	info := BrokenLinksInfo{Checked: len(sample)}
	for i, b := range broken {
		if b {
			info.Broken++
			info.BrokenURLs = append(info.BrokenURLs, sample[i])
		}
	}
	return succeeded(info)
}

func (p *prober) mediaQueries(ctx context.Context, base *url.URL, sheets []Asset) Outcome[bool] {
	var errs []error
	checked := 0
	for _, sheet := range sheets {
		if checked == StylesheetSample {
			break
		}
		if sheet.URL == "" {
			continue
		}
		checked++
		target, ok := resolveRef(base, sheet.URL)
		if !ok {
			errs = append(errs, fmt.Errorf("invalid stylesheet reference %q", sheet.URL))
			continue
		}
		resp, err := p.get(ctx, http.MethodGet, target)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if resp.StatusCode < http.StatusBadRequest && bytes.Contains(resp.Body, []byte("@media")) {
			return succeeded(true)
		}
	}
	if len(errs) > 0 {
		return degraded(false, errors.Join(errs...))
	}
	return succeeded(false)
}

func (p *prober) imageCache(ctx context.Context, base *url.URL, images []string) Outcome[bool] {
	if len(images) == 0 {
		return succeeded(false)
	}
	target, ok := resolveRef(base, images[0])
	if !ok {
		return degraded(false, fmt.Errorf("invalid image reference %q", images[0]))
	}
	resp, err := p.get(ctx, http.MethodHead, target)
	if err != nil {
		return degraded(false, err)
	}
	cacheControl := strings.ToLower(resp.Header.Get("Cache-Control"))
	return succeeded(resp.Header.Get("Expires") != "" || strings.Contains(cacheControl, "max-age"))
}

// canonicalization checks that both the www and the bare host variants of
// the URL end up at exactly the audited URL.
func (p *prober) canonicalization(ctx context.Context, normalized string) Outcome[CanonicalizationInfo] {
	withWWW, withoutWWW, err := hostVariants(normalized)
	if err != nil {
		return degraded(CanonicalizationInfo{}, err)
	}

	var (
		mu   sync.Mutex
		errs []error
		info CanonicalizationInfo
	)
	check := func(variant string) bool {
		resp, err := p.get(ctx, http.MethodGet, variant)
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return false
		}
		return resp.FinalURL == normalized
	}

	var g errgroup.Group
	g.Go(func() error { info.WWW = check(withWWW); return nil })
	g.Go(func() error { info.NonWWW = check(withoutWWW); return nil })
	_ = g.Wait()

	info.Proper = info.WWW && info.NonWWW
	if len(errs) > 0 {
		return degraded(info, errors.Join(errs...))
	}
	return succeeded(info)
}

func (p *prober) pluginsVisible(ctx context.Context, base *url.URL) Outcome[bool] {
	target, _ := resolveRef(base, PluginPath)
	resp, err := p.get(ctx, http.MethodHead, target)
	if err != nil {
		return degraded(false, err)
	}
	return succeeded(resp.StatusCode == http.StatusOK)
}

// hostVariants returns raw with a "www." host and with the "www." stripped.
func hostVariants(raw string) (withWWW, withoutWWW string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parsing %q: %w", raw, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", "", fmt.Errorf("no host in %q", raw)
	}
	bare := strings.TrimPrefix(strings.ToLower(host), "www.")

	withHost := func(h string) string {
		v := *u
		if port := u.Port(); port != "" {
			v.Host = net.JoinHostPort(h, port)
		} else {
			v.Host = h
		}
		return v.String()
	}
	return withHost("www." + bare), withHost(bare), nil
}

func resolveRef(base *url.URL, ref string) (string, bool) {
	u, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", false
	}
	return u.String(), true
}
