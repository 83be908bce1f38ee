package result

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the run description inside a run directory.
const ManifestFile = "manifest.yaml"

// Run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Manifest describes one harness invocation so a run directory can be
// interpreted (and reproduced) without the command line that produced it.
type Manifest struct {
	RunID      string     `yaml:"run_id"`
	Status     string     `yaml:"status"`
	Error      string     `yaml:"error,omitempty"`
	StartedAt  time.Time  `yaml:"started_at"`
	FinishedAt *time.Time `yaml:"finished_at,omitempty"`

	Executable string    `yaml:"executable"`
	Host       HostInfo  `yaml:"host"`
	Sweep      SweepInfo `yaml:"sweep"`

	PlannedPoints   int `yaml:"planned_points"`
	CompletedPoints int `yaml:"completed_points"`
}

// HostInfo records the machine the sweep ran on.
type HostInfo struct {
	Hostname string `yaml:"hostname"`
	OS       string `yaml:"os"`
	Arch     string `yaml:"arch"`
	NumCPU   int    `yaml:"num_cpu"`
}

// SweepInfo records the sweep constants.
type SweepInfo struct {
	ShortestNs    int64  `yaml:"shortest_ns"`
	LongestNs     int64  `yaml:"longest_ns"`
	StepNs        int64  `yaml:"step_ns"`
	Variants      []int  `yaml:"variants"`
	CalibrationNs int64  `yaml:"calibration_ns"`
	Parallelism   int64  `yaml:"parallelism"`
	Cooldown      string `yaml:"cooldown"`
}

// NewManifest returns a running manifest with a fresh run id.
func NewManifest(startedAt time.Time) *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		Status:    StatusRunning,
		StartedAt: startedAt,
	}
}

// Finish marks the manifest completed, or failed with runErr.
func (m *Manifest) Finish(at time.Time, completed int, runErr error) {
	m.FinishedAt = &at
	m.CompletedPoints = completed
	if runErr != nil {
		m.Status = StatusFailed
		m.Error = runErr.Error()
		return
	}
	m.Status = StatusCompleted
	m.Error = ""
}

// WriteManifest writes m to <dir>/manifest.yaml, replacing it atomically.
func WriteManifest(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return &FileError{Op: "encode manifest", Path: dir, Err: err}
	}

	path := filepath.Join(dir, ManifestFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &FileError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &FileError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// ReadManifest loads <dir>/manifest.yaml.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Op: "read", Path: path, Err: err}
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &FileError{Op: "decode manifest", Path: path, Err: err}
	}
	return &m, nil
}
