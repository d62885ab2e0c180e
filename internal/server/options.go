package server

import (
	"log"
	"time"

	"github.com/fermatlab/gauss/internal/logging"
	"github.com/fermatlab/gauss/internal/service"
)

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger replaces the server's logger. A nil logger keeps the default.
func WithLogger(lg logging.Logger) Option {
	return func(s *Server) {
		if lg != nil {
			s.logger = lg
		}
	}
}

// WithStdLogger accepts a standard library logger and adapts it to the
// unified interface. A nil logger keeps the default.
func WithStdLogger(std *log.Logger) Option {
	return func(s *Server) {
		if std != nil {
			s.logger = logging.NewStdAdapter(std)
		}
	}
}

// WithService injects the computation service, which is how tests substitute
// a mock for the real multiplier stack.
func WithService(svc service.Service) Option {
	return func(s *Server) {
		if svc != nil {
			s.svc = svc
		}
	}
}

// WithAddr overrides the listen address from the application configuration.
// The usual host:port forms apply; ":0" picks a free port.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithTimeouts replaces the whole timeout set at once.
func WithTimeouts(t Timeouts) Option {
	return func(s *Server) {
		s.timeouts = t
	}
}

// WithRateLimiter swaps in a pre-built rate limiter, usually one with a
// tighter budget than the production default.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) {
		s.limiter = rl
	}
}

// WithSecurityPolicy replaces the hardening settings wholesale.
func WithSecurityPolicy(pol SecurityPolicy) Option {
	return func(s *Server) {
		s.security = pol
	}
}

// WithMaxOperandBits caps the per-operand bit length accepted by the API,
// keeping a single request from tying up the host with an enormous product.
func WithMaxOperandBits(maxBits int) Option {
	return func(s *Server) {
		s.security.MaxOperandBits = maxBits
	}
}

// Timeouts groups every deadline the HTTP server applies.
type Timeouts struct {
	Request  time.Duration // budget for one computation request
	Shutdown time.Duration // grace period for draining on shutdown
	Read     time.Duration // full request read, header and body
	Write    time.Duration // response write deadline
	Idle     time.Duration // keep-alive wait between requests
}

// DefaultTimeouts returns the production defaults. The write deadline is
// sized for streaming the decimal expansion of very large products.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Request:  5 * time.Minute,
		Shutdown: 30 * time.Second,
		Read:     10 * time.Second,
		Write:    10 * time.Minute,
		Idle:     2 * time.Minute,
	}
}
