package unconsole

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts run outcomes on a private registry so they can be dumped in the
// Prometheus textfile format at the end of a build step.
type Metrics struct {
	registry *prometheus.Registry
	scanned  prometheus.Counter
	changed  prometheus.Counter
	failed   prometheus.Counter
	removed  prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unconsole",
			Name:      "files_scanned_total",
			Help:      "Number of eligible files read.",
		}),
		changed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unconsole",
			Name:      "files_changed_total",
			Help:      "Number of files rewritten, or that would be in a dry run.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unconsole",
			Name:      "files_failed_total",
			Help:      "Number of files skipped after an I/O failure.",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unconsole",
			Name:      "statements_removed_total",
			Help:      "Number of console statements removed.",
		}),
	}
	m.registry.MustRegister(m.scanned, m.changed, m.failed, m.removed)
	return m
}

func (m *Metrics) Observe(res Result) {
	m.scanned.Add(float64(res.Scanned))
	m.changed.Add(float64(len(res.Changed)))
	m.failed.Add(float64(len(res.Failed)))
	m.removed.Add(float64(res.Removed))
}

func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
