// Package metrics holds the prometheus collectors of the deployment pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yz4230/sitehost/internal/entity"
)

const (
	namespace = "sitehost"

	OutcomeSuccess = "success"
)

var (
	requestBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	deployBuckets  = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200}
)

type Metrics struct {
	registry *prometheus.Registry

	deployResults    *prometheus.CounterVec
	deployDuration   *prometheus.HistogramVec
	deletes          *prometheus.CounterVec
	publishedObjects prometheus.Counter
	inFlight         prometheus.Gauge
	requestTotal     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// New registers every collector on a private registry, so several instances
// can live in one process.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		deployResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "results_total",
			Help:      "Number of order item deployments by outcome",
		}, []string{"outcome"}),
		deployDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "duration_seconds",
			Help:      "Duration of order item deployments",
			Buckets:   deployBuckets,
		}, []string{"outcome"}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "deletes_total",
			Help:      "Number of deployment deletions by outcome",
		}, []string{"outcome"}),
		publishedObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "objects_total",
			Help:      "Number of objects uploaded to the bucket",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "in_flight",
			Help:      "Deployments currently running",
		}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   requestBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.deployResults,
		m.deployDuration,
		m.deletes,
		m.publishedObjects,
		m.inFlight,
		m.requestTotal,
		m.requestDuration,
	)
	return m
}

// Outcome is the label value of a result: "success" or its failure kind.
func Outcome(result entity.DeployResult) string {
	if result.OK {
		return OutcomeSuccess
	}
	if result.Kind == entity.FailureNone {
		return string(entity.FailureInternal)
	}
	return string(result.Kind)
}

// DeployStarted marks a deployment as running; call the returned func with
// its result when it ends.
func (m *Metrics) DeployStarted() func(entity.DeployResult) {
	start := time.Now()
	m.inFlight.Inc()
	return func(result entity.DeployResult) {
		m.inFlight.Dec()
		outcome := Outcome(result)
		m.deployResults.WithLabelValues(outcome).Inc()
		m.deployDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RecordDelete(result entity.DeployResult) {
	m.deletes.WithLabelValues(Outcome(result)).Inc()
}

func (m *Metrics) RecordPublished(objects int) {
	m.publishedObjects.Add(float64(objects))
}

func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestDuration.With(labels).Observe(duration.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
