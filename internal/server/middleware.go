// Package server provides the HTTP server implementation for the multiplication API.
package server

import (
	"net/http"
	"time"

	"github.com/fermatlab/gauss/internal/logging"
)

// withRequestLog surrounds a handler with structured request logs: one
// line on arrival with the caller's address, one on completion with the
// elapsed time.
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info("request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.String("remote", r.RemoteAddr))

		began := time.Now()
		defer func() {
			s.logger.Info("done",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Dur("duration", time.Since(began)))
		}()

		next(w, r)
	}
}
