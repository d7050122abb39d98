package analyzer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

type fakeResponse struct {
	status  int
	header  http.Header
	body    string
	final   string
	elapsed time.Duration
	err     error
}

// fakeFetcher serves canned responses keyed by URL. Unknown URLs fail like
// an unreachable host.
type fakeFetcher struct {
	mu     sync.Mutex
	routes map[string]fakeResponse
	calls  []string
}

func newFakeFetcher(routes map[string]fakeResponse) *fakeFetcher {
	return &fakeFetcher{routes: routes}
}

func (f *fakeFetcher) Fetch(_ context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Method+" "+req.URL)
	r, ok := f.routes[req.URL]
	f.mu.Unlock()

	if !ok {
		return nil, errors.New("dial tcp: no such host for " + req.URL)
	}
	if r.err != nil {
		return nil, r.err
	}
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	header := r.header
	if header == nil {
		header = http.Header{}
	}
	final := r.final
	if final == "" {
		final = req.URL
	}
	return &Response{
		FinalURL:   final,
		StatusCode: status,
		Header:     header,
		Body:       []byte(r.body),
		Elapsed:    r.elapsed,
	}, nil
}

func (f *fakeFetcher) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}
