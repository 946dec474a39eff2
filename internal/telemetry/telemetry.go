// Package telemetry provides observability with Prometheus metrics and structured logging.
package telemetry

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for AuroraAI
type Metrics struct {
	// Orchestration metrics
	OrchestrationsTotal     *prometheus.CounterVec
	OrchestrationDuration   *prometheus.HistogramVec
	OrchestrationIterations *prometheus.HistogramVec
	CandidateScores         *prometheus.HistogramVec

	// Adapter metrics
	AdapterInvocations *prometheus.CounterVec
	AdapterErrors      *prometheus.CounterVec
	AdapterLatency     *prometheus.HistogramVec

	// Admission metrics
	AdmissionsTotal   *prometheus.CounterVec
	TokensConsumed    *prometheus.CounterVec
	BlockedIdentities prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		OrchestrationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auroraai_orchestrations_total",
				Help: "Total number of orchestration runs",
			},
			[]string{"modality", "status"},
		),

		OrchestrationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auroraai_orchestration_duration_seconds",
				Help:    "Orchestration duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"modality"},
		),

		OrchestrationIterations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auroraai_orchestration_iterations",
				Help:    "Improvement iterations per orchestration run",
				Buckets: []float64{1, 2, 3, 4, 5},
			},
			[]string{"modality"},
		),

		CandidateScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auroraai_candidate_final_score",
				Help:    "Final scores of scored candidates",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"modality", "adapter"},
		),

		AdapterInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auroraai_adapter_invocations_total",
				Help: "Adapter invocations by outcome",
			},
			[]string{"adapter", "status"},
		),

		AdapterErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auroraai_adapter_errors_total",
				Help: "Adapter failures by structured reason",
			},
			[]string{"adapter", "reason"},
		),

		AdapterLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auroraai_adapter_latency_seconds",
				Help:    "Adapter invocation latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"adapter"},
		),

		AdmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auroraai_admissions_total",
				Help: "Rate limiter admission outcomes",
			},
			[]string{"tier", "outcome"},
		),

		TokensConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auroraai_tokens_consumed_total",
				Help: "Tokens consumed against hourly budgets",
			},
			[]string{"tier"},
		),

		BlockedIdentities: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "auroraai_blocked_identities",
				Help: "Identities currently under a rate limit block",
			},
		),

		registry: registry,
	}
}

// Handler returns the HTTP handler serving the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// NewLogger builds the process-wide slog logger from config values
func NewLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
