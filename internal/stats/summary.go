package stats

import (
	"fmt"
	"strings"
	"time"
)

// SummaryConfig holds run details shown in the exit summary.
type SummaryConfig struct {
	RunDir      string
	Executable  string
	Parallelism int64
	Err         error // non-nil when the sweep aborted
}

// FormatExitSummary formats the sweep results for display at program exit.
func FormatExitSummary(snap Snapshot, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	b.WriteString("                        go-tasksystem-sweep Exit Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n\n")

	status := "completed"
	if cfg.Err != nil {
		status = "ABORTED"
	}
	fmt.Fprintf(&b, "Status:                 %s\n", status)
	if cfg.Err != nil {
		fmt.Fprintf(&b, "Error:                  %v\n", cfg.Err)
	}
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(snap.Elapsed))
	fmt.Fprintf(&b, "Executable:             %s\n", cfg.Executable)
	fmt.Fprintf(&b, "Parallelism:            %d\n", cfg.Parallelism)
	fmt.Fprintf(&b, "Configurations:         %d / %d\n", snap.Completed, snap.Planned)
	fmt.Fprintf(&b, "Results:                %s\n\n", cfg.RunDir)

	if len(snap.Variants) == 0 {
		b.WriteString("No measurements recorded.\n")
		b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
		return b.String()
	}

	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
	b.WriteString("                          Running Time by Variant (ms)\n")
	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

	wins := snap.Wins()
	fmt.Fprintf(&b, "  %-18s %6s %9s %9s %9s %9s %9s %5s\n",
		"Variant", "Runs", "Min", "P50", "Mean", "P95", "Max", "Wins")
	b.WriteString("  " + strings.Repeat("─", 78) + "\n")
	for _, v := range snap.Variants {
		fmt.Fprintf(&b, "  %-18s %6d %9d %9.0f %9.1f %9.0f %9d %5d\n",
			v.Variant, v.Count, v.MinMs, v.P50Ms, v.MeanMs, v.P95Ms, v.MaxMs, wins[v.Variant])
	}
	b.WriteString("\n")
	b.WriteString("  Wins = duration ranges on which the variant had the lowest running time.\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}
