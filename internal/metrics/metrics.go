// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the per-run counter set. Each run owns its registry so batch
// runs can export a node-exporter textfile without a server.
type Metrics struct {
	reg *prometheus.Registry

	Hits        *prometheus.CounterVec
	Filtered    *prometheus.CounterVec
	NoHit       *prometheus.CounterVec
	Malformed   *prometheus.CounterVec
	UnknownTaxa *prometheus.CounterVec
	Queries     *prometheus.CounterVec
	Unsupported *prometheus.CounterVec
	Partition   *prometheus.CounterVec
	Conflicts   prometheus.Counter
	StageTime   *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Hits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taxmrca_hits_total",
			Help: "Hit records read, by pass.",
		}, []string{"pass"}),
		Filtered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taxmrca_hits_filtered_total",
			Help: "Hit records above the e-value threshold, by pass.",
		}, []string{"pass"}),
		NoHit: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taxmrca_nohit_rows_total",
			Help: "Unaligned query rows, by pass.",
		}, []string{"pass"}),
		Malformed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taxmrca_malformed_lines_total",
			Help: "Hit lines that failed to parse, by pass.",
		}, []string{"pass"}),
		UnknownTaxa: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taxmrca_unknown_taxa_total",
			Help: "Taxid occurrences with no tree node, by pass.",
		}, []string{"pass"}),
		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taxmrca_queries_total",
			Help: "Queries resolved, by pass.",
		}, []string{"pass"}),
		Unsupported: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taxmrca_unsupported_total",
			Help: "Queries resolved to the root without support, by pass.",
		}, []string{"pass"}),
		Partition: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taxmrca_partition_total",
			Help: "First-pass queries by partition status (old|new).",
		}, []string{"status"}),
		Conflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "taxmrca_conflicts_total",
			Help: "Queries seen by both the resolved and hybrid sets.",
		}),
		StageTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taxmrca_stage_duration_seconds",
			Help:    "Wall time per pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"stage"}),
	}
}

// ObserveStage records how long stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageTime.WithLabelValues(stage).Observe(d.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// WriteTextfile atomically writes the registry in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
