// Package metrics provides Prometheus metrics for go-tasksystem-sweep.
//
// Every collector owns a private registry so a run can be exported as a
// textfile snapshot at the end without picking up process-wide metrics.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// Failure kinds used for the failures counter label.
const (
	FailureConfig   = "config"
	FailureProcess  = "process"
	FailureStderr   = "stderr"
	FailureParse    = "parse"
	FailureFile     = "file"
	FailureCanceled = "canceled"
	FailureUnknown  = "unknown"
)

// Run duration buckets in milliseconds. The default sweep aims at ~3s per point.
var runDurationBucketsMs = []float64{
	50, 100, 250, 500, 750, 1000, 1500, 2000, 2500, 3000,
	3500, 4000, 5000, 7500, 10000, 20000, 60000,
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version       string
	Executable    string
	PlannedPoints int
	Parallelism   int64
	CalibrationNs int64
}

// Collector manages all Prometheus metrics for a sweep.
type Collector struct {
	registry *prometheus.Registry

	// =========================================================================
	// Overview
	// =========================================================================
	info            *prometheus.GaugeVec
	plannedPoints   prometheus.Gauge
	completedPoints prometheus.Counter
	progress        prometheus.Gauge
	elapsedSeconds  prometheus.Gauge
	running         prometheus.Gauge

	// =========================================================================
	// Measurements
	// =========================================================================
	runDurationMs  *prometheus.HistogramVec
	lastDurationMs *prometheus.GaugeVec
	wallSeconds    prometheus.Histogram
	taskCount      prometheus.Gauge

	// =========================================================================
	// Errors
	// =========================================================================
	failures *prometheus.CounterVec

	mu        sync.Mutex
	planned   int
	completed int
	startTime time.Time
	now       func() time.Time
}

// NewCollector creates a collector on its own registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.NewRegistry())
}

// NewCollectorWithRegistry creates a collector registered on registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry *prometheus.Registry) *Collector {
	c := &Collector{
		registry: registry,
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tasksystem_sweep_info",
				Help: "Information about the sweep (value always 1)",
			},
			[]string{"version", "executable", "parallelism", "calibration_ns"},
		),
		plannedPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasksystem_sweep_planned_points",
			Help: "Number of points in the sweep plan",
		}),
		completedPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasksystem_sweep_completed_points_total",
			Help: "Points executed and recorded successfully",
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasksystem_sweep_progress",
			Help: "Sweep progress (0.0 to 1.0)",
		}),
		elapsedSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasksystem_sweep_elapsed_seconds",
			Help: "Seconds since the sweep started",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasksystem_sweep_benchmark_running",
			Help: "1 while a benchmark child is running",
		}),
		runDurationMs: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tasksystem_sweep_running_time_ms",
				Help:    "Running time reported by the benchmark, per variant",
				Buckets: runDurationBucketsMs,
			},
			[]string{"variant"},
		),
		lastDurationMs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tasksystem_sweep_last_running_time_ms",
				Help: "Most recent running time reported per variant",
			},
			[]string{"variant"},
		),
		wallSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tasksystem_sweep_child_wall_seconds",
			Help:    "Wall-clock lifetime of each benchmark child",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		taskCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasksystem_sweep_task_count",
			Help: "Task count of the most recently started point",
		}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasksystem_sweep_failures_total",
				Help: "Sweep failures by kind",
			},
			[]string{"kind"},
		),
		planned:   cfg.PlannedPoints,
		startTime: time.Now(),
		now:       time.Now,
	}

	registry.MustRegister(
		c.info,
		c.plannedPoints,
		c.completedPoints,
		c.progress,
		c.elapsedSeconds,
		c.running,
		c.runDurationMs,
		c.lastDurationMs,
		c.wallSeconds,
		c.taskCount,
		c.failures,
	)

	c.info.WithLabelValues(
		cfg.Version,
		cfg.Executable,
		strconv.FormatInt(cfg.Parallelism, 10),
		strconv.FormatInt(cfg.CalibrationNs, 10),
	).Set(1)
	c.plannedPoints.Set(float64(cfg.PlannedPoints))

	return c
}

// Registry returns the registry the collector is registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Gatherer returns the gatherer used by the HTTP server and textfile export.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// PointStarted marks a benchmark child as running.
func (c *Collector) PointStarted(p sweep.Point) {
	c.running.Set(1)
	c.taskCount.Set(float64(p.TaskCount))
	c.updateElapsed()
}

// RecordPoint records a successfully recorded point.
func (c *Collector) RecordPoint(p sweep.Point, durationMs int64, wall time.Duration) {
	variant := p.Variant.String()
	c.runDurationMs.WithLabelValues(variant).Observe(float64(durationMs))
	c.lastDurationMs.WithLabelValues(variant).Set(float64(durationMs))
	c.wallSeconds.Observe(wall.Seconds())
	c.completedPoints.Inc()
	c.running.Set(0)

	c.mu.Lock()
	c.completed++
	if c.planned > 0 {
		c.progress.Set(float64(c.completed) / float64(c.planned))
	}
	c.mu.Unlock()

	c.updateElapsed()
}

// RecordFailure counts a failure of the given kind.
func (c *Collector) RecordFailure(kind string) {
	if kind == "" {
		kind = FailureUnknown
	}
	c.failures.WithLabelValues(kind).Inc()
	c.running.Set(0)
	c.updateElapsed()
}

// Completed returns the number of points recorded so far.
func (c *Collector) Completed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

func (c *Collector) updateElapsed() {
	c.elapsedSeconds.Set(c.now().Sub(c.startTime).Seconds())
}
