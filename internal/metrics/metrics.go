package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce  sync.Once
	stateLock sync.Mutex

	// Registry holds only sweeper metrics so the textfile output stays free of
	// Go runtime series that node_exporter already exports.
	Registry = prometheus.NewRegistry()
)

// Init initializes all metrics and registers them with Registry
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initSweepMetrics()
		registerSweepMetrics(Registry)

		// Present in the output even before the first run finishes
		LastRunTimestamp.Set(0)
		LastRunState.WithLabelValues("NONE").Set(1)
	})
}

// WriteTextfile atomically writes the current metrics in the text exposition
// format, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
