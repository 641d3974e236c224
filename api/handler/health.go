package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"photosearch/health"
)

// Health reports the checker status. Unhealthy answers 503 with a
// Retry-After of one check interval; HEAD requests get the status code only.
func Health(healthChecker *health.Checker) Handler {
	return func(w http.ResponseWriter, r *http.Request) *Error {
		status := healthChecker.Status()

		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Content-Type", "application/json")

		if !status.Healthy {
			w.Header().Set("Retry-After", strconv.Itoa(int(health.CheckInterval.Seconds())))
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		if r.Method == http.MethodHead {
			return nil
		}

		if err := json.NewEncoder(w).Encode(status); err != nil {
			return InternalServerError()
		}

		return nil
	}
}
