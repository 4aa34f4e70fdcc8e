package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	boards          *prometheus.CounterVec
	alarms          *prometheus.CounterVec
	alarmCache      *prometheus.CounterVec
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by route, method and error code",
		}, []string{"route", "method", "code"}),
		boards: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_boards_total",
			Help: "Ticket boards classified, by viewer role",
		}, []string{"role"}),
		alarms: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_alarm_evaluations_total",
			Help: "Escalation alarm evaluations, by result",
		}, []string{"result"}),
		alarmCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_alarm_cache_total",
			Help: "Alarm cache lookups, by outcome",
		}, []string{"outcome"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordBoard counts one classification run.
func (m *Metrics) RecordBoard(role string) {
	if m == nil {
		return
	}
	m.boards.WithLabelValues(role).Inc()
}

// RecordAlarm counts one alarm evaluation.
func (m *Metrics) RecordAlarm(raised bool) {
	if m == nil {
		return
	}
	m.alarms.WithLabelValues(strconv.FormatBool(raised)).Inc()
}

// RecordAlarmCache counts an alarm cache hit, miss or error.
func (m *Metrics) RecordAlarmCache(outcome string) {
	if m == nil {
		return
	}
	m.alarmCache.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
