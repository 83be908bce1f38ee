// Package sweep enumerates the benchmark configuration space and sizes each
// configuration so every run targets the same aggregate amount of work.
package sweep

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant selects the scheduling strategy the benchmark executable runs.
type Variant int

const (
	VariantOracle Variant = iota
	VariantMultiQueued
	VariantStealing1
	VariantStealing5
	VariantStealing10
	VariantStealing50
	VariantStealing100
)

// NumVariants is the size of the closed variant set.
const NumVariants = 7

var variantNames = [NumVariants]string{
	"oracle",
	"multi-queued",
	"task-stealing-1",
	"task-stealing-5",
	"task-stealing-10",
	"task-stealing-50",
	"task-stealing-100",
}

// AllVariants returns every variant in ascending order.
func AllVariants() []Variant {
	vs := make([]Variant, NumVariants)
	for i := range vs {
		vs[i] = Variant(i)
	}
	return vs
}

// Valid reports whether v is in the closed set 0..6.
func (v Variant) Valid() bool {
	return v >= 0 && v < NumVariants
}

// String returns the strategy name, or "variant(N)" for unknown values.
func (v Variant) String() string {
	if !v.Valid() {
		return fmt.Sprintf("variant(%d)", int(v))
	}
	return variantNames[v]
}

// ParseVariants parses a comma-separated list of variant ids.
// Ranges like "2-6" are accepted. An empty string or "all" selects every variant.
func ParseVariants(s string) ([]Variant, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "all" {
		return AllVariants(), nil
	}

	var out []Variant
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid variant %q", part)
		}
		last := first
		if isRange {
			last, err = strconv.Atoi(hi)
			if err != nil || last < first {
				return nil, fmt.Errorf("invalid variant range %q", part)
			}
		}
		for id := first; id <= last; id++ {
			v := Variant(id)
			if !v.Valid() {
				return nil, fmt.Errorf("variant %d out of range 0-%d", id, NumVariants-1)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// Point is one configuration of the sweep.
// TaskCount is zero until the point has been sized by a Workload.
type Point struct {
	ShortestNs int64
	LongestNs  int64
	TaskCount  int64
	Variant    Variant
}

// Args returns the positional arguments passed to the benchmark executable.
func (p Point) Args() []string {
	return []string{
		strconv.FormatInt(p.ShortestNs, 10),
		strconv.FormatInt(p.LongestNs, 10),
		strconv.FormatInt(p.TaskCount, 10),
		strconv.Itoa(int(p.Variant)),
	}
}

// BaseName is the artifact file stem for the point, e.g. "100_200_80000000_3".
func (p Point) BaseName() string {
	return strings.Join(p.Args(), "_")
}

// String implements fmt.Stringer.
func (p Point) String() string {
	return fmt.Sprintf("[%d-%d ns, %d tasks, %s]", p.ShortestNs, p.LongestNs, p.TaskCount, p.Variant)
}
