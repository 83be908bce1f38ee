package orchestrator

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/config"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/process"
)

// PrintPlan writes every sized point of cfg's sweep to w, in run order,
// without executing anything.
func PrintPlan(w io.Writer, cfg *config.Config) error {
	plan := cfg.Plan()
	workload := cfg.Workload()

	fmt.Fprintf(w, "Sweep plan: %d configurations (%d ranges x %d variants)\n",
		plan.Len(), plan.Ranges(), len(plan.Variants))
	fmt.Fprintf(w, "Total work: %d ns (calibration %d ns x parallelism %d)\n",
		workload.TotalWork(), cfg.CalibrationNs, cfg.Parallelism)
	if cfg.Cooldown > 0 {
		fmt.Fprintf(w, "Cooldown:   %s per configuration (%s total)\n",
			cfg.Cooldown, NewCooldown(cfg.Cooldown).EstimatedDuration(plan.Len()))
	}
	fmt.Fprintln(w)

	if plan.Len() == 0 {
		_, err := fmt.Fprintln(w, "No configurations.")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "shortest_ns", "longest_ns", "tasks", "variant", "base name")

	runner := process.NewBenchmarkRunner(cfg.Executable)
	i := 0
	for p := range plan.Points() {
		i++
		sized := workload.Size(p)
		if i == 1 && cfg.Executable != "" {
			fmt.Fprintf(w, "First run:  %s\n\n", runner.CommandString(sized))
		}
		t.Row(
			strconv.Itoa(i),
			strconv.FormatInt(sized.ShortestNs, 10),
			strconv.FormatInt(sized.LongestNs, 10),
			strconv.FormatInt(sized.TaskCount, 10),
			sized.Variant.String(),
			sized.BaseName(),
		)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
