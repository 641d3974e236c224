package handler

import (
	"context"
	"net/http"

	"github.com/gofrs/uuid/v5"
)

type ctxKeyRequestID struct{}

// RequestIDHeader is read from incoming requests and set on responses
const RequestIDHeader = "X-Request-Id"

// AddRequestID is a handler that assigns every request an id
func AddRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			if u, err := uuid.NewV4(); err == nil {
				id = u.String()
			}
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetReqID returns the request id stored in ctx, if any
func GetReqID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(ctxKeyRequestID{}).(string); ok {
		return id
	}
	return ""
}
