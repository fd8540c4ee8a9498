// Package metrics exposes run results as Prometheus metrics.
//
// leaplint is a batch tool, so metrics are gathered into a private registry
// and written in the text exposition format for node_exporter's textfile
// collector rather than served over HTTP.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/fix"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "leaplint"

// Metrics holds the collectors for one run.
type Metrics struct {
	registry *prometheus.Registry

	nodes     *prometheus.GaugeVec
	columns   *prometheus.GaugeVec
	findings  *prometheus.GaugeVec
	intents   *prometheus.GaugeVec
	conflicts prometheus.Gauge
	duration  *prometheus.GaugeVec
	lastRun   *prometheus.GaugeVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Number of nodes in the project graph by kind.",
		}, []string{"kind"}),
		columns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_columns",
			Help:      "Number of columns by documentation state.",
		}, []string{"documented"}),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "findings",
			Help:      "Findings of the last run by rule and severity.",
		}, []string{"rule", "severity"}),
		intents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fix",
			Name:      "intents",
			Help:      "Edit intents emitted by the last fix run by kind.",
		}, []string{"kind"}),
		conflicts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fix",
			Name:      "conflicts",
			Help:      "Unresolved conflicts of the last fix run.",
		}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run by command.",
		}, []string{"command"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run of a command finished.",
		}, []string{"command"}),
	}

	m.registry.MustRegister(m.nodes, m.columns, m.findings, m.intents, m.conflicts, m.duration, m.lastRun)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveGraph records node counts and column documentation state.
func (m *Metrics) ObserveGraph(g *graph.Graph) {
	m.nodes.Reset()
	m.columns.Reset()

	documented, undocumented := 0, 0
	for _, n := range g.Nodes() {
		m.nodes.WithLabelValues(string(n.Kind)).Inc()
		for _, c := range n.Columns {
			if _, ok := g.EffectiveDescription(n.Name, c.Name); ok {
				documented++
			} else {
				undocumented++
			}
		}
	}
	m.columns.WithLabelValues("true").Set(float64(documented))
	m.columns.WithLabelValues("false").Set(float64(undocumented))
}

// ObserveFindings records findings by rule and severity.
func (m *Metrics) ObserveFindings(findings []core.Finding) {
	m.findings.Reset()
	for _, f := range findings {
		m.findings.WithLabelValues(f.RuleID, f.Severity.String()).Inc()
	}
}

// ObserveFix records the intents and conflicts of a fix run.
func (m *Metrics) ObserveFix(res fix.Result) {
	m.intents.Reset()
	for kind, n := range res.Counts() {
		m.intents.WithLabelValues(string(kind)).Set(float64(n))
	}

	conflicts := 0
	for _, f := range res.Findings {
		if f.RuleID == fix.RuleConflict {
			conflicts++
		}
	}
	m.conflicts.Set(float64(conflicts))
}

// ObserveRun records how long a command took and when it finished.
func (m *Metrics) ObserveRun(command string, took time.Duration, finished time.Time) {
	m.duration.WithLabelValues(command).Set(took.Seconds())
	m.lastRun.WithLabelValues(command).Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry to path in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
