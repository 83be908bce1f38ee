package sweep

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// Default sweep bounds, in nanoseconds.
const (
	DefaultShortestNs int64 = 100
	DefaultStepNs     int64 = 100
	DefaultLongestNs  int64 = 1500
)

// MaxRangeSlots bounds (longest-shortest)/step so that the point count of a
// grid over every variant fits in an int64.
const MaxRangeSlots int64 = 1 << 30

// ErrInvalidPlan is wrapped by every plan validation failure.
var ErrInvalidPlan = errors.New("invalid sweep plan")

// Plan describes the grid of task-duration ranges and variants to benchmark.
type Plan struct {
	ShortestNs int64
	LongestNs  int64
	StepNs     int64
	Variants   []Variant
}

// DefaultPlan returns the standard 100..1500ns grid over all variants.
func DefaultPlan() Plan {
	return Plan{
		ShortestNs: DefaultShortestNs,
		LongestNs:  DefaultLongestNs,
		StepNs:     DefaultStepNs,
		Variants:   AllVariants(),
	}
}

// Validate checks the bounds produce a non-empty grid of valid points.
func (p Plan) Validate() error {
	if _, err := p.slots(); err != nil {
		return err
	}
	if len(p.Variants) == 0 {
		return fmt.Errorf("%w: no variants selected", ErrInvalidPlan)
	}

	var seen [NumVariants]bool
	for _, v := range p.Variants {
		if !v.Valid() {
			return fmt.Errorf("%w: unknown variant %d", ErrInvalidPlan, int(v))
		}
		if seen[v] {
			return fmt.Errorf("%w: duplicate variant %d", ErrInvalidPlan, int(v))
		}
		seen[v] = true
	}
	return nil
}

// slots returns the number of step slots between shortest and longest,
// rejecting bounds whose arithmetic could overflow.
func (p Plan) slots() (int64, error) {
	switch {
	case p.ShortestNs <= 0:
		return 0, fmt.Errorf("%w: shortest must be positive (got %d)", ErrInvalidPlan, p.ShortestNs)
	case p.StepNs <= 0:
		return 0, fmt.Errorf("%w: step must be positive (got %d)", ErrInvalidPlan, p.StepNs)
	case p.LongestNs <= p.ShortestNs || p.LongestNs-p.ShortestNs < p.StepNs:
		return 0, fmt.Errorf("%w: longest (%d) must be at least shortest (%d) + step (%d)",
			ErrInvalidPlan, p.LongestNs, p.ShortestNs, p.StepNs)
	case p.LongestNs > math.MaxInt64-p.StepNs:
		return 0, fmt.Errorf("%w: longest (%d) too large for step %d", ErrInvalidPlan, p.LongestNs, p.StepNs)
	}
	n := (p.LongestNs - p.ShortestNs) / p.StepNs
	if n > MaxRangeSlots {
		return 0, fmt.Errorf("%w: %d steps between shortest and longest exceeds %d",
			ErrInvalidPlan, n, MaxRangeSlots)
	}
	return n, nil
}

// Points yields every unsized point of the grid in deterministic order:
// shortest ascending, then longest ascending, then variants in plan order.
// The sequence can be ranged over any number of times.
func (p Plan) Points() iter.Seq[Point] {
	return func(yield func(Point) bool) {
		if _, err := p.slots(); err != nil {
			return
		}
		for shortest := p.ShortestNs; shortest <= p.LongestNs-p.StepNs; shortest += p.StepNs {
			for longest := shortest + p.StepNs; longest <= p.LongestNs; longest += p.StepNs {
				for _, v := range p.Variants {
					if !yield(Point{ShortestNs: shortest, LongestNs: longest, Variant: v}) {
						return
					}
				}
			}
		}
	}
}

// Ranges returns the number of (shortest, longest) pairs in the grid, or 0
// when the bounds are invalid.
func (p Plan) Ranges() int {
	n, err := p.slots()
	if err != nil {
		return 0
	}
	// Pair count is the triangular number over the step slots.
	return int(n * (n + 1) / 2)
}

// Len returns the number of points Points yields.
func (p Plan) Len() int {
	return p.Ranges() * len(p.Variants)
}
