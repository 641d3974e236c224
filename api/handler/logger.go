package handler

import (
	"fmt"
	"net/http"

	"github.com/felixge/httpsnoop"
	"go.uber.org/zap"
)

// Logger logs every request with zap. Server errors are logged at error
// level, rejected requests such as undecodable uploads at info, the rest at debug.
// routes may be nil.
func Logger(log *zap.SugaredLogger, routes RouteMatcher, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respMetrics := httpsnoop.CaptureMetricsFn(w, func(ww http.ResponseWriter) {
			h.ServeHTTP(ww, r)
		})

		route := RouteNotFound
		if routes != nil {
			route = routes.Match(r)
		}

		logFields := LogFields(r,
			"route", route,
			"remote-addr", r.RemoteAddr,
			"user-agent", r.UserAgent(),
			"uri", r.URL.String(),
			"bytes-read", r.ContentLength,
			"status-code", respMetrics.Code,
			"bytes-written", respMetrics.Written,
			"elapsed", fmt.Sprintf("%.9fs", respMetrics.Duration.Seconds()),
		)

		switch {
		case respMetrics.Code >= 500:
			log.Errorw("Request failed", logFields...)
		case respMetrics.Code >= 400:
			log.Infow("Request rejected", logFields...)
		default:
			log.Debugw("Request completed", logFields...)
		}
	})
}

// LogFields prefixes keysAndValues with the request id and method
func LogFields(r *http.Request, keysAndValues ...interface{}) []interface{} {
	return append([]interface{}{
		"request-id", GetReqID(r.Context()),
		"http-method", r.Method,
	}, keysAndValues...)
}
