// Package metrics provides Prometheus metrics for the chat service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stage labels.
const (
	StageTranslate = "translate"
	StageFetch     = "fetch"
	StageTruncate  = "truncate"
	StageStream    = "stream"
	StagePersist   = "persist"
)

// Metrics holds all Prometheus metrics for the service. Each instance owns
// its registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Pipeline metrics
	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec

	// openFDA metrics
	FDAResponsesTotal *prometheus.CounterVec
	FDARecordsTotal   prometheus.Counter

	ContextTruncationsTotal prometheus.Counter
	ChatsPersistedTotal     prometheus.Counter
	IndexRepairsTotal       prometheus.Counter
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fdagpt_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fdagpt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "fdagpt_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	m.StageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fdagpt_pipeline_stage_duration_seconds",
			Help:    "Duration of chat pipeline stages in seconds",
			Buckets: []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	m.StageErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fdagpt_pipeline_stage_errors_total",
			Help: "Total number of failed chat pipeline stages",
		},
		[]string{"stage"},
	)

	m.FDAResponsesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fdagpt_fda_responses_total",
			Help: "openFDA responses by HTTP status",
		},
		[]string{"status"},
	)

	m.FDARecordsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "fdagpt_fda_records_total",
			Help: "Total number of drug-label records returned by openFDA",
		},
	)

	m.ContextTruncationsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "fdagpt_context_truncations_total",
			Help: "Number of times fetched context was truncated to fit the budget",
		},
	)

	m.ChatsPersistedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "fdagpt_chats_persisted_total",
			Help: "Number of chat turns persisted",
		},
	)

	m.IndexRepairsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "fdagpt_index_repairs_total",
			Help: "Number of chat index entries written by the repair batch",
		},
	)

	return m
}

// Handler serves this instance's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStage records one pipeline stage; err marks it failed.
func (m *Metrics) RecordStage(stage string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		m.StageErrors.WithLabelValues(stage).Inc()
	}
}

// RecordFDAResponse records an openFDA response status and record count.
func (m *Metrics) RecordFDAResponse(status int, records int) {
	if m == nil {
		return
	}
	m.FDAResponsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	m.FDARecordsTotal.Add(float64(records))
}

func (m *Metrics) RecordTruncation() {
	if m == nil {
		return
	}
	m.ContextTruncationsTotal.Inc()
}

func (m *Metrics) RecordPersisted() {
	if m == nil {
		return
	}
	m.ChatsPersistedTotal.Inc()
}

func (m *Metrics) RecordIndexRepair() {
	if m == nil {
		return
	}
	m.IndexRepairsTotal.Inc()
}
