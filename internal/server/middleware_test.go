package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFirstForwarded(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1":                    "127.0.0.1",
		"127.0.0.1, 192.168.1.1":       "127.0.0.1",
		"10.0.0.1, 10.0.0.2, 10.0.0.3": "10.0.0.1",
		"":                             "",
		"   1.2.3.4   ":                "1.2.3.4",
	}

	for give, want := range cases {
		if got := firstForwarded(give); got != want {
			t.Errorf("firstForwarded(%q) = %q, want %q", give, got, want)
		}
	}
}

func TestHostOnly(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:8080": "127.0.0.1",
		"192.168.1.1":    "192.168.1.1",
		"[::1]:8080":     "::1",
		"[::1]":          "::1",
	}

	for give, want := range cases {
		if got := hostOnly(give); got != want {
			t.Errorf("hostOnly(%q) = %q, want %q", give, got, want)
		}
	}
}

// Proxy headers outrank the raw connection address, and the forwarded chain's
// first hop outranks X-Real-IP.
func TestClientIP(t *testing.T) {
	fromPeer := func(headers map[string]string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = "9.9.9.9:1234"
		for name, val := range headers {
			req.Header.Set(name, val)
		}
		return req
	}

	t.Run("forwarded chain", func(t *testing.T) {
		req := fromPeer(map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"})
		if got := clientIP(req); got != "1.2.3.4" {
			t.Errorf("clientIP = %q, want the chain's first hop", got)
		}
	})

	t.Run("real-ip header", func(t *testing.T) {
		req := fromPeer(map[string]string{"X-Real-IP": "5.6.7.8"})
		if got := clientIP(req); got != "5.6.7.8" {
			t.Errorf("clientIP = %q, want the X-Real-IP value", got)
		}
	})

	t.Run("bare connection", func(t *testing.T) {
		if got := clientIP(fromPeer(nil)); got != "9.9.9.9" {
			t.Errorf("clientIP = %q, want the peer address without its port", got)
		}
	})
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerMinute: 2,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()
	rl.window = 20 * time.Millisecond // shrink the window so the test can outlive it

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("the first two requests must fit the budget")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("the third request in one window must be refused")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("a different client has its own budget")
	}

	time.Sleep(30 * time.Millisecond)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("an elapsed window must refresh the budget")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerMinute: 1,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()

	handler := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = "1.2.3.4:5678"
		w := httptest.NewRecorder()
		handler(w, req)
		return w
	}

	if w := send(); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", w.Code)
	}

	w := send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestSecurityPolicyPreflight(t *testing.T) {
	nextCalled := false
	handler := DefaultSecurityPolicy().Middleware(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/product", http.NoBody)
	req.Header.Set("Origin", "http://example.com")

	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
	if nextCalled {
		t.Error("a preflight must never reach the wrapped handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerMinute: 4,
		CleanupInterval:   5 * time.Millisecond,
	})
	defer rl.Stop()
	rl.window = 5 * time.Millisecond

	tracked := func() int {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		return len(rl.clients)
	}

	rl.Allow("4.4.4.4")
	if n := tracked(); n != 1 {
		t.Fatalf("tracked clients = %d, want 1", n)
	}

	// The sweep drops entries older than two windows; poll rather than
	// guessing a single sleep long enough for slow CI hosts.
	deadline := time.Now().Add(time.Second)
	for tracked() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := tracked(); n != 0 {
		t.Errorf("%d stale clients survived the sweep", n)
	}
}
