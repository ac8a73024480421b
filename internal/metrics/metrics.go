// Package metrics provides Prometheus metrics for the API client and the
// state containers. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	ActionsTotal       *prometheus.CounterVec
	SessionActive      prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_api_requests_total",
				Help: "Total number of remote API requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskboard_api_request_duration_seconds",
				Help:    "Remote API request duration by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_store_actions_total",
				Help: "State container actions by container, action and outcome.",
			},
			[]string{"container", "action", "outcome"},
		),
		SessionActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskboard_session_authenticated",
				Help: "1 while the session is authenticated, 0 otherwise.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.APIRequestsTotal)
	reg.MustRegister(m.APIRequestDuration)
	reg.MustRegister(m.ActionsTotal)
	reg.MustRegister(m.SessionActive)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one remote call. status is the HTTP status code, or
// 0 when the request never produced a response.
func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.APIRequestsTotal.WithLabelValues(method, route, label).Inc()
	m.APIRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordAction increments the action counter. outcome is "ok" or an error kind.
func (m *Metrics) RecordAction(container, action, outcome string) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(container, action, outcome).Inc()
}

// SetAuthenticated updates the session gauge.
func (m *Metrics) SetAuthenticated(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.SessionActive.Set(1)
	} else {
		m.SessionActive.Set(0)
	}
}
