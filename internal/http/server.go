package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"renohub/internal/core"
	"renohub/internal/log"
	"renohub/internal/middleware/ratelimit"
	"renohub/internal/middleware/security"
	"renohub/internal/middleware/trace"
	"renohub/internal/prompt"
	"renohub/internal/telemetry"
)

// DashboardService is what the API needs from the aggregation layer.
type DashboardService interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
	Summarize(ctx context.Context, req prompt.Request) (string, error)
}

// ReadinessCheck is one dependency checked by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options configures the server. Zero values fall back to the defaults
// noted on each field.
type Options struct {
	// RequestTimeout bounds each dashboard request; default 25s.
	RequestTimeout time.Duration
	// AllowOrigin is the CORS origin; default "*".
	AllowOrigin string
	// SummaryRateLimit is the per-client POST budget per minute; default 20.
	SummaryRateLimit int
	Readiness        []ReadinessCheck
	Logger           *log.Logger
}

// Server is the dashboard API server.
type Server struct {
	http.Server

	svc            DashboardService
	requestTimeout time.Duration
	readiness      []ReadinessCheck
	logger         *log.Logger
	startedAt      time.Time

	detector        *security.Detector
	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc DashboardService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 25 * time.Second
	}
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = "*"
	}

	detector := security.NewDetector()
	s := &Server{
		svc:             svc,
		requestTimeout:  opts.RequestTimeout,
		readiness:       opts.Readiness,
		logger:          opts.Logger.WithComponent(log.ComponentHTTP),
		startedAt:       time.Now(),
		detector:        detector,
		rateLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.SummaryRateLimit}),
		traceMiddleware: trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
	}

	limitPOST := s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	}, http.MethodPost)

	mux := http.NewServeMux()
	mux.Handle("/api/dashboard", limitPOST(http.HandlerFunc(s.handleDashboard)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", telemetry.Handler())

	headersCfg := security.DefaultHeadersConfig()
	headersCfg.AllowOrigin = opts.AllowOrigin
	headers := security.NewHeadersMiddleware(headersCfg)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.traceMiddleware.Middleware(detector.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
