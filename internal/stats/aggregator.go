package stats

import (
	"slices"
	"sync"
	"time"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// Sample is one recorded measurement.
type Sample struct {
	Point      sweep.Point
	DurationMs int64
	Wall       time.Duration // child lifetime as seen by the harness
}

// RangeKey identifies a (shortest, longest) duration range.
type RangeKey struct {
	ShortestNs int64
	LongestNs  int64
}

// RangeSummary reports the fastest variant measured for a range so far.
type RangeSummary struct {
	RangeKey
	Fastest   sweep.Variant
	FastestMs int64
	Results   int
}

// Snapshot is a consistent copy of the aggregator state.
type Snapshot struct {
	Planned   int
	Completed int
	Elapsed   time.Duration
	Variants  []VariantSummary // ascending by variant, only variants with data
	Ranges    []RangeSummary   // in sweep order
	Last      *Sample
}

// Progress returns the completed fraction in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.Planned == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Planned)
}

// ETA estimates the time left from the average pace so far.
// Returns 0 until the first point completes.
func (s Snapshot) ETA() time.Duration {
	if s.Completed == 0 || s.Completed >= s.Planned {
		return 0
	}
	per := s.Elapsed / time.Duration(s.Completed)
	return per * time.Duration(s.Planned-s.Completed)
}

// Aggregator collects measurements for the whole sweep.
type Aggregator struct {
	mu        sync.Mutex
	planned   int
	completed int
	startTime time.Time
	variants  map[sweep.Variant]*VariantStats
	ranges    map[RangeKey]*RangeSummary
	order     []RangeKey
	last      *Sample
	now       func() time.Time
}

// NewAggregator creates an aggregator expecting planned points.
func NewAggregator(planned int) *Aggregator {
	return &Aggregator{
		planned:   planned,
		startTime: time.Now(),
		variants:  make(map[sweep.Variant]*VariantStats),
		ranges:    make(map[RangeKey]*RangeSummary),
		now:       time.Now,
	}
}

// Record adds the measurement for p.
func (a *Aggregator) Record(p sweep.Point, durationMs int64, wall time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	vs, ok := a.variants[p.Variant]
	if !ok {
		vs = NewVariantStats(p.Variant)
		a.variants[p.Variant] = vs
	}
	vs.Record(durationMs)

	key := RangeKey{ShortestNs: p.ShortestNs, LongestNs: p.LongestNs}
	rs, ok := a.ranges[key]
	if !ok {
		rs = &RangeSummary{RangeKey: key, Fastest: p.Variant, FastestMs: durationMs}
		a.ranges[key] = rs
		a.order = append(a.order, key)
	} else if durationMs < rs.FastestMs {
		rs.Fastest = p.Variant
		rs.FastestMs = durationMs
	}
	rs.Results++

	a.completed++
	a.last = &Sample{Point: p, DurationMs: durationMs, Wall: wall}
}

// Completed returns the number of recorded points.
func (a *Aggregator) Completed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completed
}

// Snapshot returns a copy of the current state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		Planned:   a.planned,
		Completed: a.completed,
		Elapsed:   a.now().Sub(a.startTime),
		Variants:  make([]VariantSummary, 0, len(a.variants)),
		Ranges:    make([]RangeSummary, 0, len(a.order)),
	}

	for _, vs := range a.variants {
		snap.Variants = append(snap.Variants, vs.Summary())
	}
	slices.SortFunc(snap.Variants, func(x, y VariantSummary) int {
		return int(x.Variant) - int(y.Variant)
	})

	for _, key := range a.order {
		snap.Ranges = append(snap.Ranges, *a.ranges[key])
	}

	if a.last != nil {
		last := *a.last
		snap.Last = &last
	}
	return snap
}

// Wins counts, per variant, how many ranges it was fastest on.
func (s Snapshot) Wins() map[sweep.Variant]int {
	wins := make(map[sweep.Variant]int)
	for _, r := range s.Ranges {
		wins[r.Fastest]++
	}
	return wins
}
