package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestProber(f Fetcher, now time.Time) *prober {
	return &prober{fetcher: f, timeout: 2 * time.Second, now: func() time.Time { return now }}
}

func TestHasDisallow(t *testing.T) {
	tests := []struct {
		name   string
		robots string
		want   bool
	}{
		{"empty", "", false},
		{"allow only", "User-agent: *\nAllow: /", false},
		{"empty disallow", "User-agent: *\nDisallow:", false},
		{"disallow", "User-agent: *\nDisallow: /admin", true},
		{"lowercase", "user-agent: *\ndisallow: /tmp", true},
		{"indented", "User-agent: *\n   Disallow: /private\r\n", true},
		{"comment only", "Disallow: # nothing here", false},
		{"commented out", "# Disallow: /admin", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasDisallow(tt.robots); got != tt.want {
				t.Errorf("HasDisallow(%q) = %v, want %v", tt.robots, got, tt.want)
			}
		})
	}
}

func TestHostVariants(t *testing.T) {
	tests := []struct {
		in          string
		www, nonWWW string
	}{
		{"https://example.com/", "https://www.example.com/", "https://example.com/"},
		{"https://www.example.com/a?b=1", "https://www.example.com/a?b=1", "https://example.com/a?b=1"},
		{"http://WWW.Example.com:8080/", "http://www.example.com:8080/", "http://example.com:8080/"},
	}
	for _, tt := range tests {
		www, bare, err := hostVariants(tt.in)
		if err != nil {
			t.Fatalf("hostVariants(%q): %v", tt.in, err)
		}
		if www != tt.www || bare != tt.nonWWW {
			t.Errorf("hostVariants(%q) = %q, %q; want %q, %q", tt.in, www, bare, tt.www, tt.nonWWW)
		}
	}
	if _, _, err := hostVariants("/relative"); err == nil {
		t.Error("expected an error for a URL without host")
	}
}

func TestProbesAgainstServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /admin\n")
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b</loc></url>
</urlset>`)
	})
	mux.HandleFunc("/css/site.css", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "body{margin:0}@media (max-width:600px){body{margin:1px}}")
	})
	mux.HandleFunc("/img/logo.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, Max-Age=86400")
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/wp-content/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	base, _ := url.Parse(srv.URL + "/")
	p := newTestProber(NewHTTPFetcher(""), time.Now())
	ctx := context.Background()

	robots := p.robots(ctx, base)
	if robots.Degraded || !robots.Value.Present || !robots.Value.HasDisallow {
		t.Errorf("robots = %+v", robots)
	}

	sitemap := p.sitemap(ctx, base)
	if sitemap.Degraded || !sitemap.Value.Present || sitemap.Value.URLCount != 3 {
		t.Errorf("sitemap = %+v", sitemap)
	}

	media := p.mediaQueries(ctx, base, []Asset{{URL: "/css/site.css"}})
	if media.Degraded || !media.Value {
		t.Errorf("media queries = %+v", media)
	}

	cache := p.imageCache(ctx, base, []string{"/img/logo.png", "/img/other.png"})
	if cache.Degraded || !cache.Value {
		t.Errorf("image cache = %+v", cache)
	}

	links := p.brokenLinks(ctx, []string{srv.URL + "/ok", srv.URL + "/missing"})
	want := BrokenLinksInfo{Broken: 1, Checked: 2, BrokenURLs: []string{srv.URL + "/missing"}}
	if links.Degraded || !reflect.DeepEqual(links.Value, want) {
		t.Errorf("broken links = %+v, want %+v", links.Value, want)
	}

	plugins := p.pluginsVisible(ctx, base)
	if plugins.Degraded || plugins.Value {
		t.Errorf("plugins = %+v", plugins)
	}
}

func TestProbesMissingResources(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	base, _ := url.Parse(srv.URL + "/")
	p := newTestProber(NewHTTPFetcher(""), time.Now())
	ctx := context.Background()

	if r := p.robots(ctx, base); r.Degraded || r.Value.Present {
		t.Errorf("robots = %+v, want absent and not degraded", r)
	}
	if s := p.sitemap(ctx, base); s.Degraded || s.Value.Present {
		t.Errorf("sitemap = %+v, want absent and not degraded", s)
	}
	if c := p.imageCache(ctx, base, nil); c.Degraded || c.Value {
		t.Errorf("image cache without images = %+v", c)
	}
}

func TestProbesUnreachable(t *testing.T) {
	base, _ := url.Parse("https://example.com/")
	p := newTestProber(newFakeFetcher(nil), time.Now())
	ctx := context.Background()

	if r := p.robots(ctx, base); !r.Degraded || r.Value.Present || r.Reason == "" {
		t.Errorf("robots = %+v, want degraded", r)
	}
	if s := p.sitemap(ctx, base); !s.Degraded || s.Value.Present {
		t.Errorf("sitemap = %+v, want degraded", s)
	}
	if m := p.mediaQueries(ctx, base, []Asset{{URL: "/a.css"}}); !m.Degraded || m.Value {
		t.Errorf("media queries = %+v, want degraded", m)
	}
	if pl := p.pluginsVisible(ctx, base); !pl.Degraded || pl.Value {
		t.Errorf("plugins = %+v, want degraded", pl)
	}
	// Unreachable links are broken, not unknown.
	if b := p.brokenLinks(ctx, []string{"https://example.com/x"}); b.Degraded || b.Value.Broken != 1 {
		t.Errorf("broken links = %+v", b)
	}
}

func TestFreshness(t *testing.T) {
	now := time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)
	p := newTestProber(nil, now)

	tests := []struct {
		name      string
		header    string
		fresh     bool
		daysAgo   int
		degraded  bool
		hasParsed bool
	}{
		{"missing", "", false, 0, false, false},
		{"30 days", "Fri, 01 Mar 2024 12:00:00 GMT", true, 30, false, true},
		{"31 days", "Thu, 29 Feb 2024 12:00:00 GMT", false, 31, false, true},
		{"partial day", "Sun, 31 Mar 2024 01:00:00 GMT", true, 0, false, true},
		{"invalid", "last tuesday", false, 0, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Last-Modified", tt.header)
			}
			got := p.freshness(h)
			if got.Degraded != tt.degraded {
				t.Fatalf("degraded = %v, want %v (%s)", got.Degraded, tt.degraded, got.Reason)
			}
			if got.Value.Fresh != tt.fresh || got.Value.DaysAgo != tt.daysAgo {
				t.Errorf("got %+v, want fresh=%v days=%d", got.Value, tt.fresh, tt.daysAgo)
			}
			if got.Value.LastModified.IsZero() == tt.hasParsed {
				t.Errorf("LastModified = %v", got.Value.LastModified)
			}
		})
	}
}

func TestBrokenLinksSample(t *testing.T) {
	routes := make(map[string]fakeResponse)
	var links []string
	for i := 0; i < 12; i++ {
		link := fmt.Sprintf("https://example.com/p%d", i)
		links = append(links, link)
		routes[link] = fakeResponse{}
	}
	routes[links[3]] = fakeResponse{status: http.StatusNotFound}
	routes[links[7]] = fakeResponse{err: errors.New("connection reset")}
	routes[links[11]] = fakeResponse{status: http.StatusInternalServerError}

	f := newFakeFetcher(routes)
	p := newTestProber(f, time.Now())
	got := p.brokenLinks(context.Background(), links)

	want := BrokenLinksInfo{Broken: 2, Checked: BrokenLinkSample, BrokenURLs: []string{links[3], links[7]}}
	if !reflect.DeepEqual(got.Value, want) {
		t.Errorf("got %+v, want %+v", got.Value, want)
	}
	if f.called("HEAD " + links[11]) {
		t.Error("links beyond the sample must not be requested")
	}
}

func TestBrokenLinksDocumentOrder(t *testing.T) {
	page := strings.Repeat(`<a href="/ok">ok</a>`, 10) + `<a href="/gone">gone</a>`
	sig := Extract(parse(t, page), mustURL(t, "https://example.com/"))
	if len(sig.InternalLinks) != 2 || len(sig.InternalAnchors) != 11 {
		t.Fatalf("internal links = %v, anchors = %d", sig.InternalLinks, len(sig.InternalAnchors))
	}

	f := newFakeFetcher(map[string]fakeResponse{
		"https://example.com/ok":   {},
		"https://example.com/gone": {status: http.StatusNotFound},
	})
	got := newTestProber(f, time.Now()).brokenLinks(context.Background(), sig.InternalAnchors)
	if want := (BrokenLinksInfo{Checked: BrokenLinkSample}); !reflect.DeepEqual(got.Value, want) {
		t.Errorf("got %+v, want %+v", got.Value, want)
	}
	if f.called("HEAD https://example.com/gone") {
		t.Error("the eleventh anchor is outside the sample")
	}
}

func TestMediaQueriesSample(t *testing.T) {
	f := newFakeFetcher(map[string]fakeResponse{
		"https://example.com/a.css": {body: "body{}"},
		"https://example.com/b.css": {body: "p{}", status: http.StatusOK},
		"https://example.com/c.css": {body: "@media print{}"},
	})
	base, _ := url.Parse("https://example.com/")
	p := newTestProber(f, time.Now())

	sheets := []Asset{{URL: ""}, {URL: "/a.css"}, {URL: "/b.css"}, {URL: "/c.css"}}
	got := p.mediaQueries(context.Background(), base, sheets)
	if got.Value || got.Degraded {
		t.Errorf("got %+v, only the first two stylesheets may be searched", got)
	}
	if f.called("GET https://example.com/c.css") {
		t.Error("third stylesheet was fetched")
	}

	errorPage := newFakeFetcher(map[string]fakeResponse{
		"https://example.com/a.css": {body: "@media screen{}", status: http.StatusNotFound},
	})
	p = newTestProber(errorPage, time.Now())
	if got := p.mediaQueries(context.Background(), base, []Asset{{URL: "/a.css"}}); got.Value {
		t.Error("an error page must not count as a stylesheet with media queries")
	}
}

func TestCanonicalization(t *testing.T) {
	const normalized = "https://example.com/"

	t.Run("mixed case host", func(t *testing.T) {
		target, err := NormalizeURL("Example.COM")
		if err != nil {
			t.Fatal(err)
		}
		f := newFakeFetcher(map[string]fakeResponse{
			"https://www.example.com/": {final: normalized},
			"https://example.com/":     {},
		})
		got := newTestProber(f, time.Now()).canonicalization(context.Background(), target)
		if got.Degraded || !got.Value.Proper {
			t.Errorf("got %+v for %q", got, target)
		}
	})

	t.Run("proper", func(t *testing.T) {
		f := newFakeFetcher(map[string]fakeResponse{
			"https://www.example.com/": {final: normalized},
			"https://example.com/":     {},
		})
		got := newTestProber(f, time.Now()).canonicalization(context.Background(), normalized)
		want := CanonicalizationInfo{WWW: true, NonWWW: true, Proper: true}
		if got.Degraded || got.Value != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("www not redirected", func(t *testing.T) {
		f := newFakeFetcher(map[string]fakeResponse{
			"https://www.example.com/": {},
			"https://example.com/":     {},
		})
		got := newTestProber(f, time.Now()).canonicalization(context.Background(), normalized)
		want := CanonicalizationInfo{WWW: false, NonWWW: true}
		if got.Degraded || got.Value != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("www unreachable", func(t *testing.T) {
		f := newFakeFetcher(map[string]fakeResponse{
			"https://example.com/": {},
		})
		got := newTestProber(f, time.Now()).canonicalization(context.Background(), normalized)
		if !got.Degraded || got.Value.WWW || !got.Value.NonWWW || got.Value.Proper {
			t.Errorf("got %+v", got)
		}
	})
}
