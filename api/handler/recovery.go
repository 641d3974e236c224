package handler

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recovery is a handler for handling panics
func Recovery(log *zap.SugaredLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				log.Errorw("panic handling request",
					"request-id", GetReqID(r.Context()),
					"panic", err,
					"stacktrace", string(debug.Stack()),
				)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
