// Package observability tracks how often each kind of data source is
// imported and how those imports fare.
package observability

import (
	"sort"
	"sync"
	"time"
)

// SourceStats aggregates import outcomes per source kind ("url/csv",
// "pagepile/pagepile", ...). Entries not seen within the window are pruned.
type SourceStats struct {
	mu     sync.RWMutex
	kinds  map[string]*KindStats
	window time.Duration
	now    func() time.Time
}

// KindStats holds the counters of one source kind.
type KindStats struct {
	Kind     string        `json:"kind"`
	Imports  int64         `json:"imports"`
	Failures int64         `json:"failures"`
	Inserted int64         `json:"inserted"`
	Skipped  int64         `json:"skipped"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	LastSeen time.Time     `json:"last_seen"`
	// Errors counts failures by error code.
	Errors map[string]int `json:"errors,omitempty"`
}

// NewSourceStats creates a tracker. A window of zero keeps entries forever.
func NewSourceStats(window time.Duration) *SourceStats {
	return &SourceStats{
		kinds:  make(map[string]*KindStats),
		window: window,
		now:    time.Now,
	}
}

// Record adds one import of kind. A non-empty errCode marks it failed.
func (s *SourceStats) Record(kind string, inserted, skipped int, elapsed time.Duration, errCode string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ks, ok := s.kinds[kind]
	if !ok {
		ks = &KindStats{Kind: kind, Errors: make(map[string]int)}
		s.kinds[kind] = ks
	}
	ks.Imports++
	ks.Inserted += int64(inserted)
	ks.Skipped += int64(skipped)
	ks.Elapsed += elapsed
	ks.LastSeen = s.now()
	if errCode != "" {
		ks.Failures++
		ks.Errors[errCode]++
	}
}

// Top returns copies of the n most imported kinds, most imported first.
// n <= 0 returns all of them.
func (s *SourceStats) Top(n int) []KindStats {
	if s == nil {
		return []KindStats{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]KindStats, 0, len(s.kinds))
	for _, ks := range s.kinds {
		c := *ks
		c.Errors = make(map[string]int, len(ks.Errors))
		for code, count := range ks.Errors {
			c.Errors[code] = count
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Imports != out[j].Imports {
			return out[i].Imports > out[j].Imports
		}
		return out[i].Kind < out[j].Kind
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Prune drops kinds not seen within the window.
func (s *SourceStats) Prune() {
	if s == nil || s.window <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := s.now().Add(-s.window)
	for kind, ks := range s.kinds {
		if ks.LastSeen.Before(threshold) {
			delete(s.kinds, kind)
		}
	}
}
