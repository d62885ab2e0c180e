package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server-level series. Registered once at package load because every
// NewServer call builds its own Telemetry, and re-registering the same
// series in the default registry panics. Per-backend multiplication
// series live in the mult package, next to the code that drives them.
var (
	inflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gauss_active_requests",
		Help: "Requests currently being served",
	})
	requestCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gauss_requests_total",
		Help: "Requests accepted since process start",
	})
)

// Telemetry owns the Prometheus exposition endpoint and the request
// accounting around it.
type Telemetry struct {
	exposition http.Handler
}

// NewTelemetry returns a Telemetry backed by the default promhttp handler,
// which also carries the standard process and Go runtime series.
func NewTelemetry() *Telemetry {
	return &Telemetry{exposition: promhttp.Handler()}
}

// RequestStarted marks one request in flight; the lifetime counter rises
// with it.
func (m *Telemetry) RequestStarted() {
	requestCount.Inc()
	inflight.Inc()
}

// RequestDone marks one request finished.
func (m *Telemetry) RequestDone() {
	inflight.Dec()
}

// ServeExposition writes the scrape text for the /metrics endpoint.
func (m *Telemetry) ServeExposition(w http.ResponseWriter, r *http.Request) {
	m.exposition.ServeHTTP(w, r)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.telemetry.ServeExposition(w, r)
}

// withTelemetry brackets a handler with the in-flight accounting.
func (s *Server) withTelemetry(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.telemetry.RequestStarted()
		defer s.telemetry.RequestDone()
		next(w, r)
	}
}
