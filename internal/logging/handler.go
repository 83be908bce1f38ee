package logging

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a single log line before truncation.
	MaxLineLength = 4096

	// MaxBufferedLines is the number of recent output lines kept per run.
	MaxBufferedLines = 100
)

// OutputHandler logs captured benchmark output line by line and keeps the
// most recent lines so failures can be reported with context.
type OutputHandler struct {
	point   string
	stream  string
	logger  *slog.Logger
	verbose bool

	// Circular buffer for recent lines
	buffer []string
	bufIdx int
	mu     sync.Mutex
}

// NewOutputHandler creates a handler for one stream ("stdout" or "stderr")
// of the run identified by point.
func NewOutputHandler(point, stream string, logger *slog.Logger, verbose bool) *OutputHandler {
	return &OutputHandler{
		point:   point,
		stream:  stream,
		logger:  logger,
		verbose: verbose,
		buffer:  make([]string, MaxBufferedLines),
	}
}

// HandleOutput processes every line of captured output.
func (h *OutputHandler) HandleOutput(data []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		h.HandleLine(scanner.Text())
	}
}

// HandleLine processes a single line of output.
func (h *OutputHandler) HandleLine(line string) {
	// Truncate if too long
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	// Store in circular buffer
	h.mu.Lock()
	h.buffer[h.bufIdx] = line
	h.bufIdx = (h.bufIdx + 1) % MaxBufferedLines
	h.mu.Unlock()

	h.logLine(line)
}

// logLine logs the line at a level based on content.
func (h *OutputHandler) logLine(line string) {
	level := classifyLine(line)

	// In non-verbose mode, only log warnings and errors
	if !h.verbose && level < slog.LevelWarn {
		return
	}

	h.logger.Log(context.Background(), level, "benchmark_output",
		"point", h.point,
		"stream", h.stream,
		"line", line,
	)
}

// classifyLine determines the log level for a line based on content.
func classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)

	// Crashes and argument errors
	if strings.Contains(lower, "segmentation fault") ||
		strings.Contains(lower, "terminate called") ||
		strings.Contains(lower, "aborted") ||
		strings.Contains(lower, "please add") ||
		strings.Contains(lower, "error") {
		return slog.LevelWarn
	}

	// The measurement line
	if strings.HasPrefix(line, "Running time:") {
		return slog.LevelInfo
	}

	// Debug counters and anything else
	return slog.LevelDebug
}

// RecentLines returns up to n of the most recent lines, oldest first.
func (h *OutputHandler) RecentLines(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}

	lines := make([]string, 0, n)

	// Read from circular buffer in order
	for i := 0; i < n; i++ {
		idx := (h.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		if h.buffer[idx] != "" {
			lines = append(lines, h.buffer[idx])
		}
	}

	return lines
}
