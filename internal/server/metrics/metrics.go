// Package metrics exposes Prometheus metrics of the CMS server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth outcomes recorded per authenticator
const (
	OutcomeSuccess = "success"
	OutcomeMiss    = "miss"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
)

// Collector collects server metrics
type Collector struct {
	upserts      *prometheus.CounterVec
	authOutcomes *prometheus.CounterVec
	logins       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics in reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zenga_upserts_total",
			Help: "Upserts by entity and branch taken (insert, update, race)",
		}, []string{"entity", "branch"}),
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zenga_auth_attempts_total",
			Help: "Request authentication attempts by authenticator and outcome",
		}, []string{"authenticator", "outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zenga_logins_total",
			Help: "Interactive logins by method and result",
		}, []string{"method", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zenga_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zenga_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.upserts,
		c.authOutcomes,
		c.logins,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// ObserveUpsert records the branch taken by an upsert
func (c *Collector) ObserveUpsert(entity, branch string) {
	c.upserts.WithLabelValues(entity, branch).Inc()
}

// RecordAuthOutcome records the result of one authenticator for one request
func (c *Collector) RecordAuthOutcome(authenticator, outcome string) {
	c.authOutcomes.WithLabelValues(authenticator, outcome).Inc()
}

// RecordLogin records an interactive login attempt
func (c *Collector) RecordLogin(method string, ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	c.logins.WithLabelValues(method, result).Inc()
}

// RecordHTTPRequest records a served HTTP request
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
