// Package trace logs and counts every HTTP request. It runs after chi's
// RequestID middleware and before routing so the request logger is in
// context for the handlers.
package trace

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fluxo/internal/log"
	"fluxo/internal/metrics"
)

// unmatchedRoute labels requests no route handled, so that scanners
// cannot blow up the metric cardinality with arbitrary paths.
const unmatchedRoute = "unmatched"

// Middleware handles request tracing and logging
type Middleware struct {
	logger    *log.Logger
	extractIP func(*http.Request) string
}

func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = log.Discard()
	}
	return &Middleware{
		logger:    logger.WithComponent(log.ComponentHTTP),
		extractIP: extractIP,
	}
}

// Middleware stores a request-scoped logger in the context, then logs the
// completion of the request and counts it by route pattern and status.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		ctx := r.Context()
		reqLogger := m.logger.With(log.FieldRequestID, middleware.GetReqID(ctx))
		r = r.WithContext(log.NewContext(ctx, reqLogger))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.HTTPRequests.WithLabelValues(routePattern(r), strconv.Itoa(status)).Inc()
		log.NewStructuredLogger(reqLogger).LogHTTPEnd(r.Context(), r, status, time.Since(start).Milliseconds(), clientIP)
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}
