package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// SnapshotFile is the textfile written into the run directory at the end.
const SnapshotFile = "metrics.prom"

// WriteTextfile writes everything gatherer collects to path in the
// Prometheus text exposition format. The file is replaced atomically.
func WriteTextfile(gatherer prometheus.Gatherer, path string) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create metrics snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			tmp.Close()
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metrics snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write metrics snapshot: %w", err)
	}
	return nil
}
