// Package metrics holds the prometheus collectors shared by the processing
// pipeline and the http api.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "photosearch"

// Result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	registry = prometheus.NewRegistry()

	processTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "process_total",
		Help:      "Number of processed images by routine and result.",
	}, []string{"routine", "result"})

	processDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "process_duration_seconds",
		Help:      "Time spent processing a single image.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"routine"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of http requests by route and status code.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 10},
	}, []string{"route", "code"})

	httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Number of http requests currently being served.",
	})
)

func init() {
	registry.MustRegister(
		processTotal,
		processDuration,
		httpRequestDuration,
		httpRequestsInFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveProcess records a single processing attempt
func ObserveProcess(routine string, duration time.Duration, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}

	processTotal.WithLabelValues(routine, result).Inc()
	processDuration.WithLabelValues(routine).Observe(duration.Seconds())
}

// ObserveRequest records a completed http request
func ObserveRequest(route string, code int, duration time.Duration) {
	httpRequestDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(duration.Seconds())
}

// RequestStarted increments the in-flight gauge and returns a function that decrements it
func RequestStarted() func() {
	httpRequestsInFlight.Inc()
	return httpRequestsInFlight.Dec
}

// Handler serves the collected metrics in the prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func Registry() *prometheus.Registry {
	return registry
}
