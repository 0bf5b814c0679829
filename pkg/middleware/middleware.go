// Package middleware holds the handler chain shared by the fake backend
// services used in tests.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/diagnosis/roomstay/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

const RequestIDHeader = "X-Request-ID"

// Trace tags each request with the fake service's name and the caller's
// X-Request-ID, echoes that id on the response and logs the exchange. A
// request that arrives without an id is served untagged; the fakes never mint
// one, so a client that forgets the header shows up in the recorded traffic.
func Trace(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), logger.ServiceKey, service)
			if id := r.Header.Get(RequestIDHeader); id != "" {
				ctx = context.WithValue(ctx, logger.RequestIDKey, id)
				w.Header().Set(RequestIDHeader, id)
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.DebugContext(ctx, "Fake service answered",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
