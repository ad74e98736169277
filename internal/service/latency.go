package service

import (
	"math"
	"sort"
	"sync"
)

// latencyWindow keeps the most recent pipeline latencies in a ring and
// reports percentiles over them. Safe for concurrent use.
type latencyWindow struct {
	mu      sync.Mutex
	samples []float64 // ms
	next    int
	full    bool
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = 1024
	}
	return &latencyWindow{samples: make([]float64, 0, size)}
}

func (lw *latencyWindow) record(ms float64) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if !lw.full {
		lw.samples = append(lw.samples, ms)
		if len(lw.samples) == cap(lw.samples) {
			lw.full = true
		}
		return
	}
	lw.samples[lw.next] = ms
	lw.next = (lw.next + 1) % len(lw.samples)
}

// snapshot returns the sample count and p50, p95, p99 in ms.
func (lw *latencyWindow) snapshot() (n int, p50, p95, p99 float64) {
	lw.mu.Lock()
	sorted := append([]float64(nil), lw.samples...)
	lw.mu.Unlock()

	if len(sorted) == 0 {
		return 0, 0, 0, 0
	}
	sort.Float64s(sorted)
	return len(sorted), percentile(sorted, 0.50), percentile(sorted, 0.95), percentile(sorted, 0.99)
}

// percentile linearly interpolates the p-th quantile (0..1) of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	if lower >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}

// Stats summarizes recent pipeline latency.
type Stats struct {
	Samples int     `json:"samples"`
	P50Ms   float64 `json:"p50Ms"`
	P95Ms   float64 `json:"p95Ms"`
	P99Ms   float64 `json:"p99Ms"`
}

// Stats reports latency percentiles over the last computed (uncached) runs.
func (s *Service) Stats() Stats {
	n, p50, p95, p99 := s.lat.snapshot()
	return Stats{Samples: n, P50Ms: p50, P95Ms: p95, P99Ms: p99}
}
