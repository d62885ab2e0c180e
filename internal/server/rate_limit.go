package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter bounds the number of requests per client IP within a fixed
// time window. A large multiplication is expensive, so the server refuses
// clients that hammer the product endpoint rather than queueing them.
type RateLimiter struct {
	mu      sync.Mutex // write-heavy, a plain Mutex beats RWMutex here
	clients map[string]*clientWindow

	rate       int           // budget per window
	window     time.Duration // window length, one minute in production
	sweepEvery time.Duration // cadence of the stale-entry sweeper
	done       chan struct{}
}

// clientWindow counts one client's requests since its window opened.
type clientWindow struct {
	count int
	start time.Time
}

// RateLimiterConfig sets the per-client budget and the sweep cadence.
// Zero or negative values take the defaults.
type RateLimiterConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func (c RateLimiterConfig) withDefaults() RateLimiterConfig {
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 60
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	return c
}

// DefaultRateLimiterConfig allows 60 requests per minute per client and
// sweeps stale entries every 5 minutes.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{}.withDefaults()
}

// NewRateLimiter creates a rate limiter and starts its background sweep
// goroutine. Call Stop to terminate it.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	cfg = cfg.withDefaults()
	rl := &RateLimiter{
		clients:    make(map[string]*clientWindow),
		rate:       cfg.RequestsPerMinute,
		window:     time.Minute,
		sweepEvery: cfg.CleanupInterval,
		done:       make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow reports whether a request from the given client fits in the current
// window, consuming one unit of its budget when it does.
func (rl *RateLimiter) Allow(addr string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cw := rl.clients[addr]
	if cw == nil || now.Sub(cw.start) >= rl.window {
		// First sighting or lapsed window: a fresh budget with this
		// request already counted against it.
		rl.clients[addr] = &clientWindow{count: 1, start: now}
		return true
	}
	if cw.count >= rl.rate {
		return false
	}
	cw.count++
	return true
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			rl.sweep(now)
		case <-rl.done:
			return
		}
	}
}

// sweep drops clients whose window ended more than one full window ago.
// Anything younger might still be mid-window and keeps its entry.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, cw := range rl.clients {
		if now.Sub(cw.start) > 2*rl.window {
			delete(rl.clients, ip)
		}
	}
}

// Stop terminates the background sweeper. The limiter itself keeps
// answering Allow afterwards.
func (rl *RateLimiter) Stop() {
	close(rl.done)
}

// Middleware rejects requests that exceed the client's budget with a 429
// and a Retry-After hint before they ever reach next.
func (rl *RateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	const overBudget = `{"error":"Too Many Requests","message":"Rate limit exceeded, retry later."}`

	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			h := w.Header()
			h.Set("Content-Type", "application/json")
			h.Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(overBudget))
			return
		}
		next(w, r)
	}
}

// clientIP resolves the address the limit is keyed on: the first entry of
// the X-Forwarded-For chain when a proxy set one, then X-Real-IP, then the
// raw connection address with its port stripped.
func clientIP(r *http.Request) string {
	if chain := r.Header.Get("X-Forwarded-For"); chain != "" {
		return firstForwarded(chain)
	}
	if v := r.Header.Get("X-Real-IP"); v != "" {
		return strings.TrimSpace(v)
	}
	return hostOnly(r.RemoteAddr)
}

// firstForwarded takes the leading entry of a comma-separated header value,
// which for X-Forwarded-For is the original client.
func firstForwarded(chain string) string {
	head, _, _ := strings.Cut(chain, ",")
	return strings.TrimSpace(head)
}

// hostOnly reduces "127.0.0.1:8080" or "[::1]:8080" to the bare host.
// Addresses that never carried a port pass through with any IPv6 brackets
// removed.
func hostOnly(remote string) string {
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return strings.Trim(remote, "[]")
}
