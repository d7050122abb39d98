package logging

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// StatisticsFile is the name of the visitor statistics file in the data dir.
const StatisticsFile = "statistics.json"

// visitorWindow is how long a visitor counts as unique.
const visitorWindow = 24 * time.Hour

// Statistics collects request level figures for the API server.
type Statistics struct {
	UniqueVisitors   map[string]time.Time `json:"uniqueVisitors"`   // IP -> last visit
	AnalysisRequests int                  `json:"analysisRequests"` // audits requested through the API
	ErrorCount       int                  `json:"errorCount"`
	PopularURLs      map[string]int       `json:"popularUrls"`
	AverageLoadTime  float64              `json:"averageLoadTime"` // milliseconds
	TotalLoadTime    float64              `json:"totalLoadTime"`
	LastPersisted    time.Time            `json:"lastPersisted"`

	mutex sync.RWMutex
	path  string
	now   func() time.Time
}

// NewStatistics creates empty statistics persisted in dataDir. Call Load to
// pick up earlier figures.
func NewStatistics(dataDir string) *Statistics {
	return &Statistics{
		UniqueVisitors: make(map[string]time.Time),
		PopularURLs:    make(map[string]int),
		path:           filepath.Join(dataDir, StatisticsFile),
		now:            time.Now,
	}
}

// TrackVisitor records a visit from ip.
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.UniqueVisitors[ip] = s.now()
}

// cleanURL reduces an audited URL to scheme, host and path. Local and API
// URLs are not tracked.
func cleanURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || host == "127.0.0.1" || strings.Contains(strings.ToLower(u.Path), "/api/") {
		return ""
	}
	clean := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		clean += u.Path
	}
	return strings.TrimSuffix(clean, "/")
}

// TrackAnalysis records one audit request with its handling time in
// milliseconds.
func (s *Statistics) TrackAnalysis(target string, loadTime float64, failed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.AnalysisRequests++
	if clean := cleanURL(target); clean != "" {
		s.PopularURLs[clean]++
	}
	if failed {
		s.ErrorCount++
	}
	s.TotalLoadTime += loadTime
	s.AverageLoadTime = s.TotalLoadTime / float64(s.AnalysisRequests)
}

// Requests returns the number of tracked audit requests.
func (s *Statistics) Requests() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.AnalysisRequests
}

func (s *Statistics) uniqueVisitors() int {
	cutoff := s.now().Add(-visitorWindow)
	count := 0
	for _, last := range s.UniqueVisitors {
		if last.After(cutoff) {
			count++
		}
	}
	return count
}

// URLCount pairs an audited URL with how often it was requested.
type URLCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

func (s *Statistics) popularURLs(n int) []URLCount {
	top := make([]URLCount, 0, len(s.PopularURLs))
	for u, c := range s.PopularURLs {
		top = append(top, URLCount{URL: u, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].URL < top[j].URL
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}

func (s *Statistics) errorRate() float64 {
	if s.AnalysisRequests == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.AnalysisRequests) * 100
}

// Snapshot returns the public figures. Audited URLs are only included in
// development mode.
func (s *Statistics) Snapshot(devMode bool) map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := map[string]interface{}{
		"uniqueVisitors24h": s.uniqueVisitors(),
		"totalRequests":     s.AnalysisRequests,
		"errorRate":         s.errorRate(),
		"averageLoadTime":   s.AverageLoadTime,
	}
	if devMode {
		out["popularUrls"] = s.popularURLs(5)
	}
	return out
}

// Save writes the statistics to disk, replacing the previous file
// atomically.
func (s *Statistics) Save() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Visitors outside the window are no longer needed.
	cutoff := s.now().Add(-visitorWindow)
	for ip, last := range s.UniqueVisitors {
		if !last.After(cutoff) {
			delete(s.UniqueVisitors, ip)
		}
	}
	s.LastPersisted = s.now()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("could not create statistics directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("could not write statistics file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not replace statistics file: %w", err)
	}
	return nil
}

// Load reads the statistics from disk. A missing file is not an error.
func (s *Statistics) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not open statistics file: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("could not decode statistics: %w", err)
	}
	if s.UniqueVisitors == nil {
		s.UniqueVisitors = make(map[string]time.Time)
	}
	if s.PopularURLs == nil {
		s.PopularURLs = make(map[string]int)
	}
	return nil
}
