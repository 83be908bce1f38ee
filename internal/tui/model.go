package tui

import (
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/stats"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/sweep"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// RunStartedMsg reports the run directory once it exists.
type RunStartedMsg struct {
	RunDir string
}

// PointStartedMsg reports that a benchmark child was launched.
type PointStartedMsg struct {
	Point sweep.Point
	At    time.Time
}

// PointDoneMsg reports that a point was recorded.
type PointDoneMsg struct {
	Point      sweep.Point
	DurationMs int64
}

// CooldownMsg reports that the sweep is pausing between points.
type CooldownMsg struct {
	Duration time.Duration
}

// SweepDoneMsg reports the end of the sweep. Err is nil on success.
type SweepDoneMsg struct {
	Err error
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Model represents the TUI state.
type Model struct {
	// Configuration
	executable  string
	runDir      string
	metricsAddr string
	planned     int

	// Current state
	snapshot   stats.Snapshot
	current    *sweep.Point
	pointStart time.Time
	status     SweepStatus
	err        error
	startTime  time.Time
	lastUpdate time.Time

	// Display options
	width  int
	height int

	// Stats source (for fetching updates)
	statsSource StatsSource

	// Called when the user asks to abort the sweep
	onCancel func()

	// Quit flag
	quitting bool

	now func() time.Time
}

// StatsSource provides the sweep statistics.
type StatsSource interface {
	Snapshot() stats.Snapshot
}

// Config holds TUI configuration.
type Config struct {
	Executable    string
	RunDir        string
	MetricsAddr   string
	PlannedPoints int
	StatsSource   StatsSource
	OnCancel      func()
}

// New creates a new TUI model.
func New(cfg Config) Model {
	now := time.Now()
	return Model{
		executable:  cfg.Executable,
		runDir:      cfg.RunDir,
		metricsAddr: cfg.MetricsAddr,
		planned:     cfg.PlannedPoints,
		statsSource: cfg.StatsSource,
		onCancel:    cfg.OnCancel,
		snapshot:    stats.Snapshot{Planned: cfg.PlannedPoints},
		status:      SweepStatusRunning,
		startTime:   now,
		lastUpdate:  now,
		width:       80,
		height:      24,
		now:         time.Now,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			// The terminal is in raw mode so SIGINT arrives as a key.
			if m.onCancel != nil {
				m.onCancel()
			}
			m.quitting = true
			return m, tea.Quit
		case "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case RunStartedMsg:
		m.runDir = msg.RunDir
		return m, nil

	case PointStartedMsg:
		p := msg.Point
		m.current = &p
		m.pointStart = msg.At
		m.status = SweepStatusRunning
		return m, nil

	case PointDoneMsg:
		m.current = nil
		m.refresh()
		return m, nil

	case CooldownMsg:
		m.status = SweepStatusCooldown
		return m, nil

	case SweepDoneMsg:
		m.current = nil
		m.err = msg.Err
		if msg.Err != nil {
			m.status = SweepStatusFailed
		} else {
			m.status = SweepStatusCompleted
		}
		m.refresh()
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderSummaryView()
}

func (m *Model) refresh() {
	if m.statsSource != nil {
		m.snapshot = m.statsSource.Snapshot()
	}
	m.lastUpdate = m.now()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the sweep started.
func (m Model) Elapsed() time.Duration {
	return m.now().Sub(m.startTime)
}

// Progress returns the completed fraction (0.0 to 1.0).
func (m Model) Progress() float64 {
	return m.snapshot.Progress()
}

// Status returns the current sweep status.
func (m Model) Status() SweepStatus {
	return m.status
}

// Current returns the running point, if any.
func (m Model) Current() (sweep.Point, bool) {
	if m.current == nil {
		return sweep.Point{}, false
	}
	return *m.current, true
}

// Err returns the error the sweep finished with.
func (m Model) Err() error {
	return m.err
}

// =============================================================================
// Helpers for external use
// =============================================================================

// Sender is the part of *tea.Program used to push updates.
type Sender interface {
	Send(msg tea.Msg)
}

// send delivers msg unless p is nil, including a nil *tea.Program stored
// in the interface.
func send(p Sender, msg tea.Msg) {
	if p == nil {
		return
	}
	if prog, ok := p.(*tea.Program); ok && prog == nil {
		return
	}
	p.Send(msg)
}

// SendRunStarted notifies the TUI of the run directory.
func SendRunStarted(p Sender, runDir string) {
	send(p, RunStartedMsg{RunDir: runDir})
}

// SendPointStarted notifies the TUI that a point started.
func SendPointStarted(p Sender, point sweep.Point, at time.Time) {
	send(p, PointStartedMsg{Point: point, At: at})
}

// SendPointDone notifies the TUI that a point was recorded.
func SendPointDone(p Sender, point sweep.Point, durationMs int64) {
	send(p, PointDoneMsg{Point: point, DurationMs: durationMs})
}

// SendCooldown notifies the TUI that the sweep is pausing.
func SendCooldown(p Sender, d time.Duration) {
	send(p, CooldownMsg{Duration: d})
}

// SendSweepDone notifies the TUI that the sweep finished.
func SendSweepDone(p Sender, err error) {
	send(p, SweepDoneMsg{Err: err})
}

// =============================================================================
// Formatting Helpers (used by view.go)
// =============================================================================

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatNs formats a nanosecond task duration.
func formatNs(ns int64) string {
	if ns >= 1_000_000 {
		return fmt.Sprintf("%.1fms", float64(ns)/1_000_000)
	}
	if ns >= 1_000 {
		return fmt.Sprintf("%.1fµs", float64(ns)/1_000)
	}
	return fmt.Sprintf("%dns", ns)
}

// formatNumberWithCommas formats a non-negative number with thousand separators.
func formatNumberWithCommas(n int64) string {
	if n < 0 {
		return "0"
	}
	str := strconv.FormatInt(n, 10)
	if len(str) <= 3 {
		return str
	}

	result := make([]byte, 0, len(str)+len(str)/3)
	for i := range len(str) {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, str[i])
	}
	return string(result)
}
