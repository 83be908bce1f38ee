package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing every problem found.
func Validate(cfg *Config) error {
	var errs []error

	// Executable is required (unless --print-plan)
	if cfg.Executable == "" && !cfg.PrintPlan {
		errs = append(errs, ValidationError{
			Field:   "executable",
			Message: "benchmark executable path is required",
		})
	}

	// Sweep grid
	if err := cfg.Plan().Validate(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "sweep",
			Message: err.Error(),
		})
	}

	if cfg.CalibrationNs < 1 {
		errs = append(errs, ValidationError{
			Field:   "calibration",
			Message: "must be at least 1",
		})
	}

	if cfg.Parallelism < 0 {
		errs = append(errs, ValidationError{
			Field:   "parallelism",
			Message: "must be 0 (detect) or positive",
		})
	}

	// 2*calibration*parallelism must fit in int64
	if cfg.CalibrationNs > 0 && cfg.Parallelism > 0 && cfg.CalibrationNs > math.MaxInt64/2/cfg.Parallelism {
		errs = append(errs, ValidationError{
			Field:   "calibration",
			Message: fmt.Sprintf("calibration %d × parallelism %d overflows", cfg.CalibrationNs, cfg.Parallelism),
		})
	}

	// Every point must get at least one task
	if len(errs) == 0 && cfg.Parallelism > 0 {
		w := cfg.Workload()
		if n := w.TaskCount(cfg.LongestNs-cfg.StepNs, cfg.LongestNs); n < 1 {
			errs = append(errs, ValidationError{
				Field:   "calibration",
				Message: fmt.Sprintf("too small: longest range would get %d tasks", n),
			})
		}
	}

	if cfg.Cooldown < 0 {
		errs = append(errs, ValidationError{
			Field:   "cooldown",
			Message: "must not be negative",
		})
	}

	if cfg.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "timeout",
			Message: "must not be negative",
		})
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true, "pretty": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json', 'text' or 'pretty' (got %q)", cfg.LogFormat),
		})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// VariantIDs returns variants as plain ints (for manifests).
func VariantIDs(vs []sweep.Variant) []int {
	ids := make([]int, len(vs))
	for i, v := range vs {
		ids[i] = int(v)
	}
	return ids
}
