package logging

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// New builds a logger for the given level ("debug", "info", ...) and format ("text" or "json").
func New(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out == nil {
		out = os.Stdout
	}
	logger.SetOutput(out)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// WithLogger stores a request-scoped entry in ctx.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext returns the request-scoped entry, or one derived from the standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && entry != nil {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Middleware attaches a request logger to the context and logs each completed request.
// It must run after chi's middleware.RequestID.
func Middleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := logger.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(WithLogger(r.Context(), entry)))

			fields := logrus.Fields{
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				entry.WithFields(fields).Error("request failed")
			default:
				entry.WithFields(fields).Info("request completed")
			}
		})
	}
}
