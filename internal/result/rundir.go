// Package result persists benchmark output and decodes the measurement it carries.
package result

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunDirLayout formats the run directory name from the harness start time.
const RunDirLayout = "2006-01-02_15-04-05"

// FileError reports a failure creating or writing a results file.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// RunDirName returns the directory name for a run started at t.
func RunDirName(t time.Time) string {
	return t.Format(RunDirLayout)
}

// CreateRunDir creates <root>/<timestamp> for a run started at now.
// It fails if the directory already exists; runs never share a directory.
func CreateRunDir(root string, now time.Time) (string, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", &FileError{Op: "create results root", Path: root, Err: err}
	}

	dir := filepath.Join(root, RunDirName(now))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", &FileError{Op: "create run directory", Path: dir, Err: err}
	}
	return dir, nil
}
