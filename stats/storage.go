package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/seo-optimizer/seoaudit/analyzer"
)

// FileName is the name of the audit statistics file in the data directory.
const FileName = "stats.json"

// MonthlyStats holds the audit counters of one calendar month.
type MonthlyStats struct {
	Audits          int       `json:"audits"`
	Failures        int       `json:"failures"`
	DegradedProbes  int       `json:"degraded_probes"`
	GoodResults     int       `json:"good_results"`
	Recommendations int       `json:"recommendations"`
	Issues          int       `json:"issues"`
	ScoreTotal      int       `json:"score_total"`
	LastUpdated     time.Time `json:"last_updated"`
}

// AverageScore is the mean score of the successful audits.
func (m MonthlyStats) AverageScore() float64 {
	if m.Audits == 0 {
		return 0
	}
	return float64(m.ScoreTotal) / float64(m.Audits)
}

// Storage keeps monthly audit statistics and persists them to disk in the
// background.
type Storage struct {
	mutex       sync.RWMutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	now         func() time.Time
}

// NewStorage opens the statistics kept in dataDir and starts the background
// writer. Call Shutdown to flush and stop it.
func NewStorage(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, FileName),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		now:         time.Now,
	}
	if err := s.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	go s.backgroundWriter()
	return s, nil
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return json.Unmarshal(data, &s.stats)
}

// save writes a temporary file and renames it over the real one.
func (s *Storage) save() error {
	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func (s *Storage) backgroundWriter() {
	defer close(s.stopped)
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
			_ = s.save()
		case <-ticker.C:
			_ = s.save()
		case <-s.done:
			return
		}
	}
}

// Shutdown stops the background writer and flushes the statistics.
func (s *Storage) Shutdown() error {
	s.closeOnce.Do(func() { close(s.done) })
	<-s.stopped
	return s.save()
}

func (s *Storage) currentMonth() string {
	return s.now().Format("2006-01")
}

// requestWrite schedules a write unless one is already pending.
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
	}
}

// update applies fn to the current month's counters.
func (s *Storage) update(fn func(m *MonthlyStats)) {
	month := s.currentMonth()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	m, ok := s.stats[month]
	if !ok {
		m = &MonthlyStats{}
		s.stats[month] = m
	}
	fn(m)
	m.LastUpdated = s.now()

	if s.now().Sub(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = s.now()
	}
}

// RecordAudit counts a completed audit.
func (s *Storage) RecordAudit(result *analyzer.AnalysisResult) {
	card := result.ScoreCard
	degraded := result.Probes.DegradedCount()
	s.update(func(m *MonthlyStats) {
		m.Audits++
		m.DegradedProbes += degraded
		m.GoodResults += card.GoodResults
		m.Recommendations += card.Recommendations
		m.Issues += card.Issues
		m.ScoreTotal += card.Score
	})
}

// RecordFailure counts an audit that could not be completed.
func (s *Storage) RecordFailure(string, error) {
	s.update(func(m *MonthlyStats) { m.Failures++ })
}

// GetCurrentStats returns the counters of the current month.
func (s *Storage) GetCurrentStats() MonthlyStats {
	month := s.currentMonth()

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if m, ok := s.stats[month]; ok {
		return *m
	}
	return MonthlyStats{}
}

// Cleanup drops every month except the current one and the retainMonths
// before it.
func (s *Storage) Cleanup(retainMonths int) {
	now := s.now()
	keep := map[string]bool{now.Format("2006-01"): true}
	for i := 1; i <= retainMonths; i++ {
		keep[now.AddDate(0, -i, 0).Format("2006-01")] = true
	}

	s.mutex.Lock()
	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
		}
	}
	s.mutex.Unlock()

	s.requestWrite()
}

// GetMonthlyStats returns the counters of a "YYYY-MM" month.
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if m, ok := s.stats[yearMonth]; ok {
		return *m, true
	}
	return MonthlyStats{}, false
}

// GetAllMonths lists the months with statistics, newest first.
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}
