// Package metrics exports per-run suite metrics in the Prometheus text format
// for node-exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dkoosis/simrun/pkg/orchestrator"
	"github.com/dkoosis/simrun/pkg/status"
)

const (
	// Namespace prefixes every metric name.
	Namespace = "simrun"
	// FileName is the textfile written into the run directory.
	FileName = "metrics.prom"
)

// Recorder holds one run's metrics in a private registry.
type Recorder struct {
	reg *prometheus.Registry

	testsTotal   prometheus.Gauge
	testsByState *prometheus.GaugeVec
	execErrors   prometheus.Gauge
	durations    *prometheus.GaugeVec
	testResult   *prometheus.GaugeVec
	testDuration *prometheus.GaugeVec
	suitePassed  prometheus.Gauge
}

// New creates a Recorder whose metrics carry a run_id label.
func New(runID string) *Recorder {
	labels := prometheus.Labels{"run_id": runID}
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		testsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "tests_total",
			Help: "Number of tests in the suite", ConstLabels: labels,
		}),
		testsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "tests",
			Help: "Number of tests by final status", ConstLabels: labels,
		}, []string{"status"}),
		execErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "execution_errors",
			Help: "Number of tests whose simulation could not complete", ConstLabels: labels,
		}),
		durations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "duration_seconds",
			Help: "Wall time by phase", ConstLabels: labels,
		}, []string{"phase"}),
		testResult: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "test_passed",
			Help: "1 if the test passed, 0 otherwise", ConstLabels: labels,
		}, []string{"test", "status"}),
		testDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "test_duration_seconds",
			Help: "Simulation wall time per test", ConstLabels: labels,
		}, []string{"test"}),
		suitePassed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "suite_passed",
			Help: "1 if every test passed", ConstLabels: labels,
		}),
	}
	r.reg.MustRegister(
		r.testsTotal, r.testsByState, r.execErrors, r.durations,
		r.testResult, r.testDuration, r.suitePassed,
	)
	return r
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// Observe sets every metric from a collected summary.
func (r *Recorder) Observe(sum *orchestrator.Summary, suite time.Duration) {
	r.testsTotal.Set(float64(sum.Total()))
	for _, st := range []status.Status{status.Passed, status.Failed, status.Inconclusive, status.LogMissing, status.Unknown} {
		r.testsByState.WithLabelValues(label(st)).Set(0)
	}
	for st, n := range sum.Counts() {
		r.testsByState.WithLabelValues(label(st)).Set(float64(n))
	}
	r.testsByState.WithLabelValues(missingLabel).Set(float64(len(sum.Missing())))
	r.execErrors.Set(float64(len(sum.Errors())))

	r.durations.WithLabelValues("build").Set(sum.BuildDuration.Seconds())
	r.durations.WithLabelValues("simulation").Set(sum.SimDuration.Seconds())
	r.durations.WithLabelValues("suite").Set(suite.Seconds())

	for _, e := range sum.Entries {
		st := missingLabel
		if e.Found {
			st = label(e.Result.Status)
		}
		r.testResult.WithLabelValues(e.Name, st).Set(boolFloat(e.Passed()))
		if e.Duration > 0 {
			r.testDuration.WithLabelValues(e.Name).Set(e.Duration.Seconds())
		}
	}
	r.suitePassed.Set(boolFloat(sum.Passed()))
}

// WriteTextfile writes the registry atomically to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// missingLabel marks tests without a status file.
const missingLabel = "missing"

func label(s status.Status) string {
	switch s {
	case status.Passed:
		return "passed"
	case status.Failed:
		return "failed"
	case status.Inconclusive:
		return "inconclusive"
	case status.LogMissing:
		return "log_missing"
	default:
		return "unknown"
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
