package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent mimics a desktop browser so that sites serve their
// regular markup.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// maxBodySize caps how much of any response body is read.
const maxBodySize = 10 << 20

// Request describes a single fetch.
type Request struct {
	Method  string
	URL     string
	Timeout time.Duration
}

// Response is what a Fetcher hands back for a completed request.
type Response struct {
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// Fetcher performs HTTP requests. Redirects are always followed.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// HTTPFetcher is the net/http backed Fetcher.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher with a pooled transport.
func NewHTTPFetcher(userAgent string) *HTTPFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &HTTPFetcher{
		client:    &http.Client{Transport: transport},
		userAgent: userAgent,
	}
}

// Fetch issues the request and reads the whole body. The request is bounded
// by req.Timeout when it is positive.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", req.URL, err)
	}
	httpReq.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading response body for %s: %w", req.URL, err)
	}

	return &Response{
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Elapsed:    time.Since(start),
	}, nil
}
