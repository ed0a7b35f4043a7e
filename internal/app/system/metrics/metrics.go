// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private Prometheus registry and the vectors the app records.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	APIRequests       *prometheus.CounterVec
	APIRequestSeconds *prometheus.HistogramVec
	Uploads           *prometheus.CounterVec
	Mutations         *prometheus.CounterVec
	Logins            *prometheus.CounterVec
}

// New creates a Collector with the process and Go runtime collectors attached.
func New(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	c := &Collector{
		registry: reg,
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Backend API calls by method and outcome (success, application, transport).",
		}, []string{"method", "outcome"}),
		APIRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Backend API call latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "File uploads by outcome (ok, rejected, failed).",
		}, []string{"outcome"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_mutations_total",
			Help:      "Back-office create/update/delete operations by resource and outcome.",
		}, []string{"resource", "action", "outcome"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Sign-in attempts by method and outcome.",
		}, []string{"method", "outcome"}),
	}
	reg.MustRegister(c.APIRequests, c.APIRequestSeconds, c.Uploads, c.Mutations, c.Logins)
	return c
}

// ObserveAPICall records one backend call.
func (c *Collector) ObserveAPICall(method, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.APIRequests.WithLabelValues(method, outcome).Inc()
	c.APIRequestSeconds.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveUpload records one upload attempt.
func (c *Collector) ObserveUpload(outcome string) {
	if c == nil {
		return
	}
	c.Uploads.WithLabelValues(outcome).Inc()
}

// ObserveMutation records one create/update/delete.
func (c *Collector) ObserveMutation(resource, action string, ok bool) {
	if c == nil {
		return
	}
	c.Mutations.WithLabelValues(resource, action, outcome(ok)).Inc()
}

// ObserveLogin records one sign-in attempt.
func (c *Collector) ObserveLogin(method string, ok bool) {
	if c == nil {
		return
	}
	c.Logins.WithLabelValues(method, outcome(ok)).Inc()
}

// Registry exposes the underlying registry (tests gather from it).
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
