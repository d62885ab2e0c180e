package server

import (
	"net/http"
	"strings"
)

// SecurityPolicy bundles the response header policy and the request
// admission limits.
type SecurityPolicy struct {
	EnableCORS     bool     // answer cross-origin requests
	AllowedOrigins []string // origins admitted by CORS; "*" admits any
	AllowedMethods []string // methods advertised to CORS preflights

	// MaxOperandBits caps the bit length of a single operand, parsed or
	// synthesized, so one request cannot queue an arbitrarily large
	// multiplication. The default of 1 << 24 is roughly 5 million digits.
	MaxOperandBits int
	// MaxBodyBytes caps the request body size. Default 16 MiB.
	MaxBodyBytes int64
	// FFTMemoryBudget caps the estimated transform memory of one request,
	// in bytes. Requests over budget are rejected before any allocation.
	// Default 2 GiB.
	FFTMemoryBudget uint64
}

// DefaultSecurityPolicy returns the production defaults: CORS open to every
// origin, and the admission limits described on SecurityPolicy.
func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		EnableCORS:      true,
		AllowedOrigins:  []string{"*"},
		AllowedMethods:  []string{"GET", "POST", "OPTIONS"},
		MaxOperandBits:  1 << 24,
		MaxBodyBytes:    16 << 20,
		FFTMemoryBudget: 2 << 30,
	}
}

// Middleware stamps the hardening headers on every response and, when CORS
// is enabled, answers preflight requests without invoking next.
func (c SecurityPolicy) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if c.EnableCORS {
			c.applyCORS(w, r)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		next(w, r)
	}
}

// applyCORS writes the Access-Control headers when the request origin is on
// the allow list. An entry of "*" matches any origin, including none.
func (c SecurityPolicy) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	match := ""
	for _, allowed := range c.AllowedOrigins {
		if allowed == origin || allowed == "*" {
			match = allowed
			break
		}
	}
	if match == "" {
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", match)
	h.Set("Access-Control-Allow-Methods", strings.Join(c.AllowedMethods, ", "))
	h.Set("Access-Control-Allow-Headers", "Content-Type, Accept")
	h.Set("Access-Control-Max-Age", "86400")
}
