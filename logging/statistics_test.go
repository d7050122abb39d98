package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStatistics(t *testing.T) {
	dir := t.TempDir()
	s := NewStatistics(dir)
	if err := s.Load(); err != nil {
		t.Fatalf("Load without a file: %v", err)
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.TrackVisitor("10.0.0.1")
	s.TrackVisitor("10.0.0.2")
	s.UniqueVisitors["10.0.0.3"] = now.Add(-48 * time.Hour)

	s.TrackAnalysis("https://example.com/", 100, false)
	s.TrackAnalysis("https://example.com", 300, true)
	s.TrackAnalysis("https://other.org/blog/", 200, false)
	s.TrackAnalysis("http://localhost:8082/api/analyze", 0, false)

	t.Run("Snapshot", func(t *testing.T) {
		snap := s.Snapshot(false)
		if snap["uniqueVisitors24h"] != 2 {
			t.Errorf("visitors = %v", snap["uniqueVisitors24h"])
		}
		if snap["totalRequests"] != 4 {
			t.Errorf("requests = %v", snap["totalRequests"])
		}
		if snap["errorRate"] != 25.0 {
			t.Errorf("error rate = %v", snap["errorRate"])
		}
		if snap["averageLoadTime"] != 150.0 {
			t.Errorf("average load time = %v", snap["averageLoadTime"])
		}
		if _, ok := snap["popularUrls"]; ok {
			t.Error("popular URLs leaked outside development mode")
		}
	})

	t.Run("PopularURLs", func(t *testing.T) {
		top, ok := s.Snapshot(true)["popularUrls"].([]URLCount)
		if !ok || len(top) != 2 {
			t.Fatalf("popular URLs = %#v", top)
		}
		if top[0] != (URLCount{URL: "https://example.com", Count: 2}) {
			t.Errorf("top URL = %+v", top[0])
		}
		if top[1].URL != "https://other.org/blog" {
			t.Errorf("second URL = %+v", top[1])
		}
	})

	t.Run("Persistence", func(t *testing.T) {
		if err := s.Save(); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, StatisticsFile)); err != nil {
			t.Fatalf("statistics file: %v", err)
		}
		if _, ok := s.UniqueVisitors["10.0.0.3"]; ok {
			t.Error("stale visitor kept after save")
		}

		loaded := NewStatistics(dir)
		if err := loaded.Load(); err != nil {
			t.Fatalf("reload: %v", err)
		}
		if loaded.Requests() != 4 || loaded.ErrorCount != 1 || loaded.PopularURLs["https://example.com"] != 2 {
			t.Errorf("reloaded statistics = %+v", loaded)
		}
	})
}

func TestStatisticsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, StatisticsFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStatistics(dir)
	if err := s.Load(); err == nil {
		t.Error("expected an error for a corrupt statistics file")
	}
	if s.Requests() != 0 || s.PopularURLs == nil {
		t.Error("a failed load must leave the statistics empty and usable")
	}
}

func TestCleanURL(t *testing.T) {
	tests := map[string]string{
		"https://example.com/":          "https://example.com",
		"https://example.com/a/?q=1":    "https://example.com/a",
		"http://localhost:3000/":        "",
		"https://example.com/api/thing": "",
		"not a url":                     "",
	}
	for in, want := range tests {
		if got := cleanURL(in); got != want {
			t.Errorf("cleanURL(%q) = %q, want %q", in, got, want)
		}
	}
}
