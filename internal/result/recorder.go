package result

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/randomizedcoder/go-tasksystem-sweep/internal/parser"
	"github.com/randomizedcoder/go-tasksystem-sweep/internal/process"
)

const (
	stdoutExt = ".out"
	stderrExt = ".err"
)

// Artifact describes the files written for one point.
type Artifact struct {
	RunDir      string
	BaseName    string
	StdoutFile  string
	StderrFile  string // empty when the benchmark wrote nothing to stderr
	DurationMs  int64
	HasDuration bool
}

// Recorder writes captured benchmark output into a run directory.
type Recorder struct {
	dir string
	out io.Writer
}

// NewRecorder creates a recorder writing into dir and printing
// confirmations to out. A nil out discards confirmations.
func NewRecorder(dir string, out io.Writer) *Recorder {
	if out == nil {
		out = io.Discard
	}
	return &Recorder{dir: dir, out: out}
}

// Record persists res and parses the running time from its stdout.
//
// The .out file is always written (overwriting any existing file). The .err
// file is written only when stderr is non-empty, and in that case Record
// returns a *process.ProcessError after both files are on disk. Output that
// does not follow the running-time grammar yields a *parser.ParseError.
// Either way the returned Artifact lists the files that were written.
func (r *Recorder) Record(res *process.Result) (Artifact, error) {
	base := res.Point.BaseName()
	art := Artifact{
		RunDir:     r.dir,
		BaseName:   base,
		StdoutFile: filepath.Join(r.dir, base+stdoutExt),
	}

	if err := writeFile(art.StdoutFile, res.Stdout); err != nil {
		return art, err
	}

	if res.HasStderr() {
		art.StderrFile = filepath.Join(r.dir, base+stderrExt)
		if err := writeFile(art.StderrFile, res.Stderr); err != nil {
			return art, err
		}
		return art, &process.ProcessError{
			Point: res.Point,
			Op:    "stderr",
			Err:   fmt.Errorf("benchmark wrote %d bytes to stderr (see %s)", len(res.Stderr), art.StderrFile),
		}
	}

	ms, err := parser.ParseRunningTime(string(res.Stdout))
	if err != nil {
		return art, err
	}
	art.DurationMs = ms
	art.HasDuration = true

	fmt.Fprintf(r.out, "Executed in: %d ms %s\n", ms, res.Point)
	return art, nil
}

// writeFile creates or truncates path with data.
func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &FileError{Op: "write", Path: path, Err: err}
	}
	return nil
}
