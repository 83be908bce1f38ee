package sweep

// DefaultCalibrationNs is the per-core amount of synthetic work (in task
// nanoseconds) each configuration targets.
const DefaultCalibrationNs int64 = 3_000_000_000

// Workload converts a duration range into a task count so that every
// configuration performs roughly CalibrationNs of work per processing unit.
type Workload struct {
	CalibrationNs int64
	Parallelism   int64
}

// TotalWork returns the aggregate task nanoseconds targeted per configuration.
func (w Workload) TotalWork() int64 {
	return w.CalibrationNs * w.Parallelism
}

// TaskCount returns floor(TotalWork / ((shortest+longest)/2)).
// Callers must pass 0 < shortest < longest.
func (w Workload) TaskCount(shortestNs, longestNs int64) int64 {
	// 2*total/(s+l) keeps the half-nanosecond of an odd sum exact.
	return 2 * w.TotalWork() / (shortestNs + longestNs)
}

// Size returns a copy of p with TaskCount filled in.
func (w Workload) Size(p Point) Point {
	p.TaskCount = w.TaskCount(p.ShortestNs, p.LongestNs)
	return p
}
