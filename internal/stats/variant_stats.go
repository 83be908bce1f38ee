// Package stats aggregates benchmark measurements across a sweep.
package stats

import (
	"math"
	"sync"

	"github.com/influxdata/tdigest"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// VariantStats accumulates running times for one variant.
// Thread-safe: the TUI reads while the orchestrator writes.
type VariantStats struct {
	variant sweep.Variant

	mu     sync.Mutex
	count  int64
	sumMs  int64
	minMs  int64
	maxMs  int64
	digest *tdigest.TDigest
}

// NewVariantStats creates empty stats for v.
func NewVariantStats(v sweep.Variant) *VariantStats {
	return &VariantStats{
		variant: v,
		minMs:   math.MaxInt64,
		digest:  tdigest.NewWithCompression(100), // ~100 centroids, ~10KB
	}
}

// Record adds one running time in milliseconds.
func (s *VariantStats) Record(ms int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.sumMs += ms
	s.minMs = min(s.minMs, ms)
	s.maxMs = max(s.maxMs, ms)
	s.digest.Add(float64(ms), 1)
}

// VariantSummary is a point-in-time copy of VariantStats.
type VariantSummary struct {
	Variant sweep.Variant
	Count   int64
	MinMs   int64
	MaxMs   int64
	MeanMs  float64
	P50Ms   float64
	P95Ms   float64
	P99Ms   float64
}

// Summary returns a snapshot of the accumulated values.
func (s *VariantStats) Summary() VariantSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := VariantSummary{Variant: s.variant, Count: s.count}
	if s.count == 0 {
		return sum
	}
	sum.MinMs = s.minMs
	sum.MaxMs = s.maxMs
	sum.MeanMs = float64(s.sumMs) / float64(s.count)
	sum.P50Ms = s.digest.Quantile(0.50)
	sum.P95Ms = s.digest.Quantile(0.95)
	sum.P99Ms = s.digest.Quantile(0.99)
	return sum
}
