package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/stats"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// maxRangeRows bounds the range table to the most recent ranges.
const maxRangeRows = 8

// =============================================================================
// Main View Rendering
// =============================================================================

// renderSummaryView renders the main dashboard.
func (m Model) renderSummaryView() string {
	sections := []string{
		m.renderHeader(),
		m.renderProgress(),
		m.renderCurrent(),
	}

	if len(m.snapshot.Variants) > 0 {
		sections = append(sections, m.renderVariantTable())
	}
	if len(m.snapshot.Ranges) > 0 {
		sections = append(sections, m.renderRangeTable())
	}
	if m.err != nil {
		sections = append(sections, m.renderError())
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" go-tasksystem-sweep │ %s │ Points: %d/%d │ Elapsed: %s ",
		GetStatusLabel(m.status),
		m.snapshot.Completed,
		m.planned,
		formatDuration(m.Elapsed()),
	)

	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Progress Section
// =============================================================================

func (m Model) renderProgress() string {
	barWidth := m.width - 30
	if barWidth < 20 {
		barWidth = 20
	}
	progressBar := RenderProgressBar(m.Progress(), barWidth)

	eta := "calculating..."
	switch {
	case m.status == SweepStatusCompleted || m.status == SweepStatusFailed:
		eta = "-"
	case m.snapshot.Completed > 0:
		eta = formatDuration(m.snapshot.ETA())
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Sweep Progress"),
		progressBar,
		RenderKeyValue("ETA", eta),
		RenderKeyValue("Executable", m.executable),
		RenderKeyValue("Results", m.runDir),
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Current Point
// =============================================================================

func (m Model) renderCurrent() string {
	rows := []string{sectionHeaderStyle.Render("Current Point")}

	if m.current == nil {
		rows = append(rows, dimStyle.Render("idle"))
	} else {
		p := m.current
		rows = append(rows,
			RenderKeyValue("Variant", p.Variant.String()),
			RenderKeyValue("Task range", fmt.Sprintf("%s - %s", formatNs(p.ShortestNs), formatNs(p.LongestNs))),
			RenderKeyValue("Tasks", formatNumberWithCommas(p.TaskCount)),
			RenderKeyValue("Running for", formatDuration(m.now().Sub(m.pointStart))),
		)
	}

	if last := m.snapshot.Last; last != nil {
		rows = append(rows, RenderKeyValue("Last result",
			fmt.Sprintf("%d ms %s", last.DurationMs, last.Point)))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Variant Table
// =============================================================================

func (m Model) renderVariantTable() string {
	wins := m.snapshot.Wins()

	header := tableHeaderStyle.Render(fmt.Sprintf("%-18s %5s %8s %8s %8s %8s %5s",
		"Variant", "Runs", "Min", "P50", "P95", "Max", "Wins"))
	rows := []string{sectionHeaderStyle.Render("Running Time (ms)"), header}

	best := bestMedian(m.snapshot.Variants)
	for _, v := range m.snapshot.Variants {
		line := fmt.Sprintf("%-18s %5d %8d %8.0f %8.0f %8d %5d",
			v.Variant, v.Count, v.MinMs, v.P50Ms, v.P95Ms, v.MaxMs, wins[v.Variant])
		if v.Variant == best && len(m.snapshot.Variants) > 1 {
			line = valueGoodStyle.Render(line)
		}
		rows = append(rows, line)
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// bestMedian returns the variant with the lowest median running time.
func bestMedian(vs []stats.VariantSummary) (best sweep.Variant) {
	bestP50 := -1.0
	for _, v := range vs {
		if bestP50 < 0 || v.P50Ms < bestP50 {
			bestP50 = v.P50Ms
			best = v.Variant
		}
	}
	return best
}

// =============================================================================
// Range Table
// =============================================================================

func (m Model) renderRangeTable() string {
	ranges := m.snapshot.Ranges
	skipped := 0
	if len(ranges) > maxRangeRows {
		skipped = len(ranges) - maxRangeRows
		ranges = ranges[skipped:]
	}

	header := tableHeaderStyle.Render(fmt.Sprintf("%-22s %-18s %9s %4s",
		"Range", "Fastest", "ms", "Runs"))
	rows := []string{sectionHeaderStyle.Render("Fastest Variant per Range"), header}
	if skipped > 0 {
		rows = append(rows, dimStyle.Render(fmt.Sprintf("... %d earlier ranges", skipped)))
	}
	for _, r := range ranges {
		rows = append(rows, fmt.Sprintf("%-22s %-18s %9d %4d",
			formatNs(r.ShortestNs)+" - "+formatNs(r.LongestNs), r.Fastest, r.FastestMs, r.Results))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Error & Footer
// =============================================================================

func (m Model) renderError() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		statusError.Render("Sweep aborted"),
		mutedStyle.Render(m.err.Error()),
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

func (m Model) renderFooter() string {
	parts := []string{"q: close dashboard", "ctrl+c: abort sweep"}
	if m.metricsAddr != "" {
		parts = append(parts, "metrics: http://"+m.metricsAddr+"/metrics")
	}
	return footerStyle.Render(strings.Join(parts, " • "))
}
