// Package preflight provides startup validation checks.
package preflight

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultGovernorPath is where Linux exposes the CPU frequency governor.
const DefaultGovernorPath = "/sys/devices/system/cpu/cpu0/cpufreq/scaling_governor"

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options selects what RunAll inspects.
type Options struct {
	Executable   string
	Parallelism  int64
	ResultsDir   string
	GovernorPath string // empty means DefaultGovernorPath
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}

	// Benchmark executable
	exeCheck := checkExecutable(opts.Executable)
	result.Checks = append(result.Checks, exeCheck)
	if !exeCheck.Passed {
		result.Passed = false
	}

	// Results root
	dirCheck := checkResultsDir(opts.ResultsDir)
	result.Checks = append(result.Checks, dirCheck)
	if !dirCheck.Passed {
		result.Passed = false
	}

	// CPU count vs scheduler limit (warning only)
	result.Checks = append(result.Checks, checkParallelism(opts.Parallelism, runtime.NumCPU(), runtime.GOMAXPROCS(0)))

	// Frequency scaling (warning only)
	governorPath := opts.GovernorPath
	if governorPath == "" {
		governorPath = DefaultGovernorPath
	}
	result.Checks = append(result.Checks, checkGovernor(governorPath))

	return result
}

// checkExecutable verifies the benchmark binary is a regular executable file.
func checkExecutable(path string) Check {
	// Resolve the way exec.Command will, so a pass here means the run can start.
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Check{
			Name:    "executable",
			Passed:  false,
			Message: executableProblem(path, err),
		}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return Check{
			Name:    "executable",
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", resolved, err),
		}
	}
	if !info.Mode().IsRegular() {
		return Check{
			Name:    "executable",
			Passed:  false,
			Message: fmt.Sprintf("%s is not a regular file", resolved),
		}
	}

	return Check{
		Name:    "executable",
		Passed:  true,
		Message: fmt.Sprintf("found at %s", resolved),
	}
}

// executableProblem describes why path did not resolve to a runnable file.
func executableProblem(path string, err error) string {
	info, statErr := os.Stat(path)
	bare := filepath.Base(path) == path
	switch {
	case errors.Is(err, exec.ErrDot), bare && statErr == nil:
		return fmt.Sprintf("%s is in the working directory but not on $PATH (use ./%s)", path, path)
	case statErr != nil:
		return fmt.Sprintf("not found at %s: %v", path, err)
	case !info.Mode().IsRegular():
		return fmt.Sprintf("%s is not a regular file", path)
	default:
		return fmt.Sprintf("%s is not executable (mode %s)", path, info.Mode().Perm())
	}
}

// checkResultsDir verifies run directories can be created under root.
// A missing root is fine as long as its nearest existing parent is writable.
func checkResultsDir(root string) Check {
	if root == "" {
		root = "."
	}

	dir := root
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return Check{
					Name:    "results_dir",
					Passed:  false,
					Message: fmt.Sprintf("%s is not a directory", dir),
				}
			}
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Check{
				Name:    "results_dir",
				Passed:  false,
				Message: fmt.Sprintf("no existing parent for %s", root),
			}
		}
		dir = parent
	}

	probe, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return Check{
			Name:    "results_dir",
			Passed:  false,
			Message: fmt.Sprintf("%s is not writable: %v", dir, err),
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	return Check{
		Name:    "results_dir",
		Passed:  true,
		Message: fmt.Sprintf("%s is writable", root),
	}
}

// checkParallelism warns when the Go scheduler is limited below the CPU
// count or when the sizing parallelism differs from the machine.
func checkParallelism(parallelism int64, numCPU, maxProcs int) Check {
	check := Check{
		Name:   "parallelism",
		Passed: true,
		Message: fmt.Sprintf("sizing for %d workers (NumCPU %d, GOMAXPROCS %d)",
			parallelism, numCPU, maxProcs),
	}
	if maxProcs < numCPU {
		check.Warning = true
		check.Message += "; GOMAXPROCS below NumCPU, the container may be CPU-limited"
	}
	if parallelism != int64(numCPU) {
		check.Warning = true
		check.Message += "; parallelism differs from NumCPU"
	}
	return check
}

// checkGovernor warns when CPU frequency scaling is not pinned to performance.
func checkGovernor(path string) Check {
	data, err := os.ReadFile(path)
	if err != nil {
		return Check{
			Name:    "cpu_governor",
			Passed:  true,
			Warning: true,
			Message: "unable to read governor (non-Linux or no cpufreq)",
		}
	}

	governor := strings.TrimSpace(string(data))
	return Check{
		Name:    "cpu_governor",
		Passed:  true,
		Warning: governor != "performance",
		Message: fmt.Sprintf("%s (recommend performance)", governor),
	}
}

// PrintResults prints the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed || check.Warning {
			if fix := suggestFix(check.Name); fix != "" {
				fmt.Fprintf(w, "    Fix: %s\n", fix)
			}
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "executable":
		return "build the benchmark and pass its path (chmod +x if needed)"
	case "results_dir":
		return "pass a writable -results-dir"
	case "parallelism":
		return "unset GOMAXPROCS or pass -parallelism explicitly"
	case "cpu_governor":
		return "cpupower frequency-set -g performance"
	default:
		return ""
	}
}
