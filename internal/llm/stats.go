package llm

import (
	"sort"
	"sync"
	"time"
)

type call struct {
	at         time.Time
	durationMs int64
	failed     bool
}

// LatencySnapshot aggregates the generation calls still inside the window.
// Percentiles cover successful calls only.
type LatencySnapshot struct {
	Calls    int     `json:"calls"`
	Failures int     `json:"failures"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// LLMStats keeps a rolling window of generation call outcomes.
type LLMStats struct {
	mu     sync.Mutex
	calls  []call
	window time.Duration
	now    func() time.Time
}

func NewLLMStats(window time.Duration) *LLMStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LLMStats{
		calls:  make([]call, 0, 256),
		window: window,
		now:    time.Now,
	}
}

// Observe records one finished call.
func (s *LLMStats) Observe(d time.Duration, err error) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)
	s.calls = append(s.calls, call{at: now, durationMs: ms, failed: err != nil})
}

func (s *LLMStats) Snapshot() LatencySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(s.now())
	snap := LatencySnapshot{Calls: len(s.calls)}
	ok := make([]int64, 0, len(s.calls))
	var sum int64
	for _, c := range s.calls {
		if c.failed {
			snap.Failures++
			continue
		}
		ok = append(ok, c.durationMs)
		sum += c.durationMs
	}
	if len(ok) == 0 {
		return snap
	}
	sort.Slice(ok, func(i, j int) bool { return ok[i] < ok[j] })

	snap.MinMs = ok[0]
	snap.MaxMs = ok[len(ok)-1]
	snap.AvgMs = float64(sum) / float64(len(ok))
	snap.P50Ms = percentile(ok, 50)
	snap.P95Ms = percentile(ok, 95)
	snap.P99Ms = percentile(ok, 99)
	return snap
}

func (s *LLMStats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	kept := s.calls[:0]
	for _, c := range s.calls {
		if !c.at.Before(cutoff) {
			kept = append(kept, c)
		}
	}
	s.calls = kept
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*frac
}
