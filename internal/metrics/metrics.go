// Package metrics exposes Prometheus counters for the MCP tool surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "playcall"

// Outcome labels for tool calls.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder owns a private registry. A nil *Recorder records nothing.
type Recorder struct {
	reg        *prometheus.Registry
	toolCalls  *prometheus.CounterVec
	toolTime   *prometheus.HistogramVec
	ingestions *prometheus.CounterVec
}

// NewRecorder registers the tool and ingestion collectors. players, when not
// nil, is sampled on every scrape as the table size gauge.
func NewRecorder(players func() int) *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "MCP tool calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "MCP tool call latency.",
			Buckets:   []float64{.005, .05, .25, 1, 2.5, 5, 10, 30, 60},
		}, []string{"tool"}),
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Ingestions by result status.",
		}, []string{"status"}),
	}
	r.reg.MustRegister(r.toolCalls, r.toolTime, r.ingestions)
	if players != nil {
		r.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players",
			Help:      "Players in the consolidated table.",
		}, func() float64 { return float64(players()) }))
	}
	return r
}

// RecordTool counts one tool call and observes its latency.
func (r *Recorder) RecordTool(tool string, d time.Duration, failed bool) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeError
	}
	r.toolCalls.WithLabelValues(tool, outcome).Inc()
	r.toolTime.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordIngestion counts one ingestion result by status label, "error" for
// failures.
func (r *Recorder) RecordIngestion(status string) {
	if r == nil {
		return
	}
	r.ingestions.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
