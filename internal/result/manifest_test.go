package result

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_WriteRead(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(runStart)
	m.Executable = "/opt/task_systems"
	m.Host = HostInfo{Hostname: "bench01", OS: "linux", Arch: "amd64", NumCPU: 16}
	m.Sweep = SweepInfo{
		ShortestNs:    100,
		LongestNs:     1500,
		StepNs:        100,
		Variants:      []int{0, 1, 2, 3, 4, 5, 6},
		CalibrationNs: 3_000_000_000,
		Parallelism:   16,
		Cooldown:      "2s",
	}
	m.PlannedPoints = 735

	require.NoError(t, WriteManifest(dir, m))

	got, err := ReadManifest(dir)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(got.RunID)
	assert.NoError(t, parseErr)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
	assert.True(t, got.StartedAt.Equal(runStart))
	assert.Equal(t, m.Sweep, got.Sweep)
	assert.Equal(t, m.Host, got.Host)
	assert.Equal(t, 735, got.PlannedPoints)
}

func TestManifest_Finish(t *testing.T) {
	end := runStart.Add(time.Hour)

	tests := []struct {
		name       string
		err        error
		wantStatus string
		wantError  string
	}{
		{"completed", nil, StatusCompleted, ""},
		{"failed", errors.New("parse running time: boom"), StatusFailed, "parse running time: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			m := NewManifest(runStart)
			m.Finish(end, 12, tt.err)
			require.NoError(t, WriteManifest(dir, m))

			got, err := ReadManifest(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantError, got.Error)
			assert.Equal(t, 12, got.CompletedPoints)
			require.NotNil(t, got.FinishedAt)
			assert.True(t, got.FinishedAt.Equal(end))
		})
	}
}

func TestNewManifest_UniqueRunIDs(t *testing.T) {
	assert.NotEqual(t, NewManifest(runStart).RunID, NewManifest(runStart).RunID)
}

func TestReadManifest_Missing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	var ferr *FileError
	assert.True(t, errors.As(err, &ferr))
}
