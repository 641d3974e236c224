package handler

import (
	"net/http"

	"photosearch/metrics"

	"github.com/felixge/httpsnoop"
)

// Metrics is a handler that collects performance metrics
func Metrics(h http.Handler, routeMatcher RouteMatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeMatcher.Match(r)

		done := metrics.RequestStarted()
		defer done()

		respMetrics := httpsnoop.CaptureMetricsFn(w, func(ww http.ResponseWriter) {
			h.ServeHTTP(ww, r)
		})

		metrics.ObserveRequest(route, respMetrics.Code, respMetrics.Duration)
	})
}
