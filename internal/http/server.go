package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fluxo/internal/analytics"
	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
	"fluxo/internal/middleware/ratelimit"
	"fluxo/internal/middleware/security"
	"fluxo/internal/middleware/trace"
)

// SnapshotService is what the API needs from services.SnapshotService.
type SnapshotService interface {
	Snapshot(ctx context.Context, orgID string) (*analytics.Result, error)
	Compute(ctx context.Context, raw []core.RawTransaction, goal *core.GoalDescriptor) (*analytics.Result, error)
	RecordTransaction(ctx context.Context, orgID string, tx core.RawTransaction) (string, error)
}

// Options wires the server. Reports and Ready are optional.
type Options struct {
	Addr           string
	Snapshots      SnapshotService
	Reports        ledger.ReportReader
	Ready          func(ctx context.Context) error
	RateLimitRPM   int
	RequestTimeout time.Duration
	Logger         *log.Logger
}

type Server struct {
	http.Server
	snapshots SnapshotService
	reports   ledger.ReportReader
	ready     func(ctx context.Context) error
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		snapshots: opts.Snapshots,
		reports:   opts.Reports,
		ready:     opts.Ready,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		detector:  security.NewDetector(),
		logger:    logger.WithComponent(log.ComponentHTTP),
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.With(limited).Post("/snapshots", s.handleComputeSnapshot)
		r.Route("/organizations/{orgID}", func(r chi.Router) {
			r.Get("/snapshot", s.handleOrganizationSnapshot)
			r.With(limited).Post("/transactions", s.handleRecordTransaction)
			r.Get("/reports/latest", s.handleLatestReport)
		})
	})

	return r
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
