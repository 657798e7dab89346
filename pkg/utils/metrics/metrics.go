// Package metrics exposes Prometheus counters for event translation, Slack API
// usage and the HTTP transport. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "abbot"

// Translation outcomes
const (
	OutcomeTranslated = "translated"
	OutcomeDropped    = "dropped"
	OutcomeFailed     = "failed"
)

// Metrics holds the collectors registered to a private registry
type Metrics struct {
	reg *prometheus.Registry

	translations        *prometheus.CounterVec
	slackAPICalls       *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	duplicateDeliveries prometheus.Counter
	roomsRefreshed      prometheus.Counter
}

// New creates a Metrics instance with Go runtime and process collectors
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Inbound Slack payloads by translated kind and outcome",
		}, []string{"kind", "outcome"}),
		slackAPICalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slack_api_calls_total",
			Help:      "Slack Web API calls issued by the resolver",
		}, []string{"method", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		duplicateDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_deliveries_total",
			Help:      "Slack event retries dropped as duplicates",
		}),
		roomsRefreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_refreshed_total",
			Help:      "Rooms refreshed by the background worker",
		}),
	}

	m.reg.MustRegister(
		m.translations,
		m.slackAPICalls,
		m.httpRequests,
		m.duplicateDeliveries,
		m.roomsRefreshed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Translation counts one translated, dropped or failed payload
func (m *Metrics) Translation(kind, outcome string) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(kind, outcome).Inc()
}

// SlackAPICall counts one Slack Web API call
func (m *Metrics) SlackAPICall(method string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.slackAPICalls.WithLabelValues(method, result).Inc()
}

// HTTPRequest counts one served HTTP request
func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// DuplicateDelivery counts one dropped Slack retry
func (m *Metrics) DuplicateDelivery() {
	if m == nil {
		return
	}
	m.duplicateDeliveries.Inc()
}

// RoomsRefreshed counts rooms refreshed by the worker
func (m *Metrics) RoomsRefreshed(n int) {
	if m == nil {
		return
	}
	m.roomsRefreshed.Add(float64(n))
}
