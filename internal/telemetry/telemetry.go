// Package telemetry counts parsed reports and samples per tool.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns a private registry so that repeated runs in one process
// never collide on metric registration.
type Recorder struct {
	registry *prometheus.Registry
	reports  *prometheus.CounterVec
	samples  *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qckit",
			Name:      "reports_total",
			Help:      "Report files processed, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		samples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "qckit",
			Name:      "samples",
			Help:      "Samples in the last aggregation, by tool.",
		}, []string{"tool"}),
	}
	r.registry.MustRegister(r.reports, r.samples)
	return r
}

// Report implements collect.Observer.
func (r *Recorder) Report(tool, outcome string) {
	r.reports.WithLabelValues(tool, outcome).Inc()
}

// Samples implements collect.Observer.
func (r *Recorder) Samples(tool string, n int) {
	r.samples.WithLabelValues(tool).Set(float64(n))
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the metrics in text exposition format for the
// node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
