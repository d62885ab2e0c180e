package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fermatlab/gauss/internal/config"
	apperrors "github.com/fermatlab/gauss/internal/errors"
	"github.com/fermatlab/gauss/internal/logging"
	"github.com/fermatlab/gauss/internal/mult"
	"github.com/fermatlab/gauss/internal/service"
)

// Server exposes the multiplication service over HTTP. It owns the listener
// lifecycle: hardening and throttling middleware, Prometheus metrics, and a
// drain-then-stop shutdown on cancellation or SIGINT/SIGTERM.
type Server struct {
	registry *mult.Registry
	svc      service.Service
	cfg      config.AppConfig

	addr     string
	hsrv     *http.Server
	timeouts Timeouts

	logger    logging.Logger
	limiter   *RateLimiter
	security  SecurityPolicy
	telemetry *Telemetry

	sigCh chan os.Signal
}

// middleware is one layer of the request-processing chain.
type middleware func(http.HandlerFunc) http.HandlerFunc

// NewServer assembles a Server exposing the registry's backends on the
// /api/v1 endpoints; cfg supplies the port and threshold knobs. Every
// collaborator has a production default; options swap individual pieces,
// in order, which is how tests plug in stub services and tight rate
// limits. The returned server is ready for Start.
func NewServer(registry *mult.Registry, cfg config.AppConfig, opts ...Option) *Server {
	srv := &Server{
		registry:  registry,
		cfg:       cfg,
		logger:    logging.NewLogger(os.Stdout, "server"),
		security:  DefaultSecurityPolicy(),
		telemetry: NewTelemetry(),
		timeouts:  DefaultTimeouts(),
		sigCh:     make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(srv)
	}

	// Collaborators an option did not supply get their defaults here, after
	// the option pass, so overrides never construct throwaway instances.
	if srv.svc == nil {
		srv.svc = service.NewMultiplierService(srv.registry, srv.cfg, srv.security.MaxOperandBits)
	}
	if srv.limiter == nil {
		srv.limiter = NewRateLimiter(DefaultRateLimiterConfig())
	}
	if srv.addr == "" {
		srv.addr = ":" + cfg.Port
	}

	srv.hsrv = &http.Server{
		Addr:         srv.addr,
		Handler:      srv.routes(),
		ReadTimeout:  srv.timeouts.Read,
		WriteTimeout: srv.timeouts.Write,
		IdleTimeout:  srv.timeouts.Idle,
	}
	return srv
}

// routes builds the request multiplexer. Every endpoint, /metrics included,
// goes through the same chain so throttling and hardening headers apply
// uniformly.
func (s *Server) routes() *http.ServeMux {
	chain := []middleware{
		s.security.Middleware,
		s.limiter.Middleware,
		s.withRequestLog,
		s.withTelemetry,
	}

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		// Innermost layer last in the chain slice, so walk it backwards.
		for i := len(chain) - 1; i >= 0; i-- {
			h = chain[i](h)
		}
		return h
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/product", wrap(s.handleProduct))
	mux.HandleFunc("/api/v1/backends", wrap(s.handleBackends))
	mux.HandleFunc("/healthz", wrap(s.handleHealth))
	mux.HandleFunc("/metrics", wrap(s.handleScrape))
	return mux
}

// Start runs the listener until ctx is canceled or a termination signal
// arrives, then drains in-flight requests within the shutdown budget. The
// error is non-nil when the listener could not start or draining timed
// out.
func (s *Server) Start(ctx context.Context) error {
	signal.Notify(s.sigCh, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening",
			logging.String("addr", s.hsrv.Addr),
			logging.Int("parallel_threshold_bits", s.cfg.Threshold),
			logging.Int("fft_threshold_words", s.cfg.FFTThreshold),
			logging.Int("karatsuba_threshold_words", s.cfg.KaratsubaThreshold))
		s.logger.Println("Serving:")
		s.logger.Println("  POST /api/v1/product")
		s.logger.Println("  GET /api/v1/backends")
		s.logger.Println("  GET /healthz")

		err := s.hsrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, draining connections")
	case sig := <-s.sigCh:
		s.logger.Info("termination signal received, draining connections",
			logging.String("signal", sig.String()))
	case err := <-serveErr:
		return apperrors.NewServerError("http listener failed", err)
	}

	// The parent context is typically already dead at this point, so the
	// drain deadline hangs off the background context instead.
	drainCtx, cancel := context.WithTimeout(context.Background(), s.timeouts.Shutdown)
	defer cancel()
	if err := s.hsrv.Shutdown(drainCtx); err != nil {
		return apperrors.NewServerError("graceful shutdown did not complete", err)
	}

	s.logger.Info("server stopped")
	return nil
}
