package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/agpsystems/agp/context"
)

// RequestLogger stores a request-scoped log entry in the context and logs
// each request when it completes. Must run after chi's RequestID middleware.
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			entry := log.WithFields(logrus.Fields{
				"request_id": chimw.GetReqID(r.Context()),
				"remote_ip":  r.RemoteAddr,
			})
			r = r.WithContext(context.ContextSetLogger(r.Context(), entry))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			fields := entry.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
			switch {
			case status >= 500:
				fields.Error("Request failed")
			case status >= 400:
				fields.Warn("Request rejected")
			default:
				fields.Info("Request handled")
			}
		})
	}
}

// Logger returns the request-scoped log entry set by RequestLogger.
func Logger(r *http.Request) *logrus.Entry {
	return context.ContextGetLogger(r.Context())
}
