// Package middleware wires authorization into the HTTP request path.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/brightpath/casehub/pkg/contextkeys"
)

// RequestIDHeader carries the request ID on responses and may supply one
// on requests from trusted proxies.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request an ID, honoring one provided upstream.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)
		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
