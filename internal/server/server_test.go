package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/fermatlab/gauss/internal/config"
	"github.com/fermatlab/gauss/internal/mult"
	"github.com/fermatlab/gauss/internal/service/mocks"
)

// createTestServer initializes a server instance for testing with a real
// backend registry and default configuration.
func createTestServer(opts ...Option) *Server {
	cfg := config.AppConfig{
		Port:               "8080",
		Threshold:          4096,
		FFTThreshold:       1800,
		KaratsubaThreshold: 32,
	}
	return NewServer(mult.NewRegistry(), cfg, opts...)
}

// postProduct builds a POST request against the product endpoint.
func postProduct(body string) *http.Request {
	return httptest.NewRequest("POST", "/api/v1/product", strings.NewReader(body))
}

// doProduct runs one request through the product handler and returns the
// recorded response.
func doProduct(t *testing.T, server *Server, body string) *http.Response {
	t.Helper()
	w := httptest.NewRecorder()
	server.handleProduct(w, postProduct(body))
	return w.Result()
}

// decodeProduct reads and closes a product response body.
func decodeProduct(t *testing.T, resp *http.Response) ProductResponse {
	t.Helper()
	defer resp.Body.Close()
	var out ProductResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode product response: %v", err)
	}
	return out
}

// TestHandleProduct walks the product endpoint through successful
// multiplications, validation rejections, and backend failures.
func TestHandleProduct(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		wantStatus  int
		wantProduct string
		errContains string
	}{
		{
			name:        "success",
			body:        `{"x":"6","y":"7"}`,
			wantStatus:  http.StatusOK,
			wantProduct: "42",
		},
		{
			name:        "negative operand",
			body:        `{"x":"-6","y":"7"}`,
			wantStatus:  http.StatusOK,
			wantProduct: "-42",
		},
		{
			name:        "missing operands",
			body:        `{}`,
			wantStatus:  http.StatusBadRequest,
			errContains: "Missing operands",
		},
		{
			name:        "invalid x",
			body:        `{"x":"abc","y":"7"}`,
			wantStatus:  http.StatusBadRequest,
			errContains: "must be a decimal integer",
		},
		{
			name:        "invalid JSON",
			body:        `{"x":`,
			wantStatus:  http.StatusBadRequest,
			errContains: "Invalid JSON body",
		},
		{
			name:        "unknown backend",
			body:        `{"x":"6","y":"7","backend":"toomcook"}`,
			wantStatus:  http.StatusOK, // compute failures ride in the JSON body, not the status
			errContains: "unknown multiplier",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doProduct(t, createTestServer(), tc.body)
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}

			raw, _ := io.ReadAll(resp.Body)

			if tc.errContains != "" {
				var detail string
				if tc.wantStatus == http.StatusOK {
					var got ProductResponse
					if err := json.Unmarshal(raw, &got); err != nil {
						t.Fatalf("unmarshal product response: %v", err)
					}
					detail = got.Error
				} else {
					var got ErrorResponse
					if err := json.Unmarshal(raw, &got); err != nil {
						t.Fatalf("unmarshal error response: %v", err)
					}
					detail = got.Message
				}
				if !strings.Contains(detail, tc.errContains) {
					t.Errorf("error detail = %q, want substring %q", detail, tc.errContains)
				}
				return
			}

			var got ProductResponse
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("unmarshal product response: %v", err)
			}
			want, _ := new(big.Int).SetString(tc.wantProduct, 10)
			if got.Product == nil || got.Product.Cmp(want) != 0 {
				t.Errorf("Product = %v, want %s", got.Product, tc.wantProduct)
			}
			if got.Backend != DefaultBackend {
				t.Errorf("Backend = %s, want %s", got.Backend, DefaultBackend)
			}
		})
	}
}

// TestHandleProductSynthesized exercises server-side operand synthesis from
// a bit length and seed.
func TestHandleProductSynthesized(t *testing.T) {
	resp := doProduct(t, createTestServer(), `{"bits":64,"seed":7}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got := decodeProduct(t, resp)
	if got.Error != "" {
		t.Fatalf("unexpected error: %s", got.Error)
	}
	if got.XBits != 64 || got.YBits != 64 {
		t.Errorf("operand bits = %d and %d, want 64 and 64", got.XBits, got.YBits)
	}
	if got.Product == nil {
		t.Fatal("Product = nil, want a value")
	}
	// Two 64-bit operands multiply to 127 or 128 bits.
	if got.Bits < 127 || got.Bits > 128 {
		t.Errorf("Bits = %d, want 127 or 128", got.Bits)
	}
}

// A backend failure is reported in the response body rather than as an HTTP
// error.
func TestHandleProductCalculationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockService(ctrl)
	mockSvc.EXPECT().
		Multiply(gomock.Any(), DefaultBackend, gomock.Any(), gomock.Any()).
		Return(nil, errors.New("calc error"))

	resp := doProduct(t, createTestServer(WithService(mockSvc)), `{"x":"6","y":"7"}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got := decodeProduct(t, resp)
	if !strings.Contains(got.Error, "calc error") {
		t.Errorf("Error = %q, want substring %q", got.Error, "calc error")
	}
	if got.Product != nil {
		t.Errorf("Product = %s, want nil", got.Product.String())
	}
}

// Requests above the transform memory budget are rejected before any
// calculation starts.
func TestHandleProductMemoryBudget(t *testing.T) {
	pol := DefaultSecurityPolicy()
	pol.FFTMemoryBudget = 1 // reject everything

	resp := doProduct(t, createTestServer(WithSecurityPolicy(pol)), `{"bits":4096,"seed":1}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}

	var got ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if !strings.Contains(got.Message, "transform memory") {
		t.Errorf("Message = %q, want the budget wording", got.Message)
	}
}

func TestHandleHealth(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	w := httptest.NewRecorder()

	server.handleHealth(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if got["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", got["status"])
	}
}

func TestHandleBackends(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/api/v1/backends", http.NoBody)
	w := httptest.NewRecorder()

	server.handleBackends(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode backends response: %v", err)
	}

	backends, ok := got["backends"].([]any)
	if !ok {
		t.Fatalf("backends field = %T, want an array", got["backends"])
	}
	if len(backends) != 3 {
		t.Errorf("len(backends) = %d, want 3", len(backends))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := createTestServer()

	cases := []struct {
		name    string
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{"product GET", "GET", "/api/v1/product", server.handleProduct},
		{"health POST", "POST", "/healthz", server.handleHealth},
		{"backends POST", "POST", "/api/v1/backends", server.handleBackends},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, http.NoBody)
			w := httptest.NewRecorder()

			tc.handler(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want 405", resp.StatusCode)
			}
		})
	}
}

// The request log wrapper must still invoke the inner handler.
func TestWithRequestLog(t *testing.T) {
	server := createTestServer()

	called := false
	inner := func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}

	wrapped := server.withRequestLog(inner)

	req := httptest.NewRequest("GET", "/probe", http.NoBody)
	w := httptest.NewRecorder()

	// Run under a deadline in case the wrapper ever blocks on its logger.
	done := make(chan struct{})
	go func() {
		wrapped(w, req)
		close(done)
	}()

	select {
	case <-done:
		if !called {
			t.Error("inner handler was not called")
		}
	case <-time.After(2 * time.Second):
		t.Error("middleware timed out")
	}
}

// The backend named in the request body reaches the service; omitting it
// selects the default.
func TestBackendSelectionPassedToService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockService(ctrl)
	mockSvc.EXPECT().
		Multiply(gomock.Any(), "karatsuba", gomock.Any(), gomock.Any()).
		Return(big.NewInt(42), nil)
	mockSvc.EXPECT().
		Multiply(gomock.Any(), DefaultBackend, gomock.Any(), gomock.Any()).
		Return(big.NewInt(42), nil)

	server := createTestServer(WithService(mockSvc))

	for _, body := range []string{
		`{"x":"6","y":"7","backend":"karatsuba"}`,
		`{"x":"6","y":"7"}`,
	} {
		resp := doProduct(t, server, body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status for body %s = %d, want 200", body, resp.StatusCode)
		}
	}
}

func TestParseProductRequest(t *testing.T) {
	cases := []struct {
		name         string
		body         string
		maxBodyBytes int64
		wantBackend  string
		wantStatus   int
		errContains  string
	}{
		{
			name:        "valid with default backend",
			body:        `{"x":"1","y":"2"}`,
			wantBackend: DefaultBackend,
		},
		{
			name:        "explicit backend",
			body:        `{"backend":"big"}`,
			wantBackend: "big",
		},
		{
			name:        "invalid JSON",
			body:        `not json`,
			errContains: "Invalid JSON body",
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:         "body too large",
			body:         `{"x":"12345678901234567890"}`,
			maxBodyBytes: 10,
			errContains:  "byte limit",
			wantStatus:   http.StatusRequestEntityTooLarge,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pol := DefaultSecurityPolicy()
			if tc.maxBodyBytes > 0 {
				pol.MaxBodyBytes = tc.maxBodyBytes
			}
			server := createTestServer(WithSecurityPolicy(pol))

			w := httptest.NewRecorder()
			req, err := server.parseProductRequest(w, postProduct(tc.body))

			if tc.errContains != "" {
				if err == nil {
					t.Fatal("err = nil, want an error")
				}
				parseErr, ok := err.(ProductParseError)
				if !ok {
					t.Fatalf("err is %T, want ProductParseError", err)
				}
				if !strings.Contains(parseErr.Msg, tc.errContains) {
					t.Errorf("Msg = %q, want substring %q", parseErr.Msg, tc.errContains)
				}
				if parseErr.Status != tc.wantStatus {
					t.Errorf("Status = %d, want %d", parseErr.Status, tc.wantStatus)
				}
				return
			}

			if err != nil {
				t.Fatalf("parseProductRequest: %v", err)
			}
			if req.Backend != tc.wantBackend {
				t.Errorf("Backend = %s, want %s", req.Backend, tc.wantBackend)
			}
		})
	}
}

// TestResolveOperands covers operand resolution for both request forms.
func TestResolveOperands(t *testing.T) {
	server := createTestServer()

	t.Run("synthesized", func(t *testing.T) {
		x, y, err := server.resolveOperands(ProductRequest{Bits: 64, Seed: 5})
		if err != nil {
			t.Fatal(err)
		}
		if x.BitLen() != 64 || y.BitLen() != 64 {
			t.Errorf("operand bits = %d and %d, want 64 and 64", x.BitLen(), y.BitLen())
		}
	})

	t.Run("bits above limit", func(t *testing.T) {
		_, _, err := server.resolveOperands(ProductRequest{Bits: server.security.MaxOperandBits + 1})
		if err == nil {
			t.Fatal("err = nil, want the size rejection")
		}
		if !strings.Contains(err.Error(), "exceeds maximum allowed") {
			t.Errorf("err = %v, want the size wording", err)
		}
	})

	t.Run("missing operands", func(t *testing.T) {
		_, _, err := server.resolveOperands(ProductRequest{})
		if err == nil {
			t.Fatal("err = nil, want the missing-operand rejection")
		}
		if !strings.Contains(err.Error(), "Missing operands") {
			t.Errorf("err = %v, want the missing-operand wording", err)
		}
	})

	t.Run("explicit operands", func(t *testing.T) {
		x, y, err := server.resolveOperands(ProductRequest{X: "123", Y: "-456"})
		if err != nil {
			t.Fatal(err)
		}
		if x.Int64() != 123 || y.Int64() != -456 {
			t.Errorf("operands = %s and %s, want 123 and -456", x, y)
		}
	})
}

// TestParseDecimalOperand covers the operand parsing helper and its size
// gates.
func TestParseDecimalOperand(t *testing.T) {
	cases := []struct {
		name        string
		value       string
		maxBits     int
		errContains string
	}{
		{
			name:    "valid",
			value:   "65535",
			maxBits: 16,
		},
		{
			name:    "valid signed",
			value:   "-42",
			maxBits: 16,
		},
		{
			name:    "no limit",
			value:   "123456789012345678901234567890",
			maxBits: 0,
		},
		{
			name:        "not a number",
			value:       "12a3",
			maxBits:     16,
			errContains: "must be a decimal integer",
		},
		{
			name:        "digit gate",
			value:       "12345678",
			maxBits:     16,
			errContains: "digits",
		},
		{
			name:        "bit limit",
			value:       "65536",
			maxBits:     16,
			errContains: "exceeds maximum allowed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := parseDecimalOperand("x", tc.value, tc.maxBits)

			if tc.errContains != "" {
				if err == nil {
					t.Fatal("err = nil, want a rejection")
				}
				if !strings.Contains(err.Error(), tc.errContains) {
					t.Errorf("err = %q, want substring %q", err.Error(), tc.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("parseDecimalOperand: %v", err)
			}
			if v.String() != tc.value {
				t.Errorf("parsed value = %s, want %s", v.String(), tc.value)
			}
		})
	}
}

func TestWithLogger(t *testing.T) {
	// A nil logger must leave the default in place, not clear it.
	server := createTestServer(WithLogger(nil))
	if server.logger == nil {
		t.Error("WithLogger(nil) cleared the default logger")
	}

	// WithStdLogger wraps a plain *log.Logger behind the interface.
	std := log.New(io.Discard, "http: ", 0)
	server = createTestServer(WithStdLogger(std))
	if server.logger == nil {
		t.Error("WithStdLogger did not install the wrapped logger")
	}
}

func TestWithService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Same nil contract as WithLogger: the default service survives.
	server := createTestServer(WithService(nil))
	if server.svc == nil {
		t.Error("WithService(nil) cleared the default service")
	}

	custom := mocks.NewMockService(ctrl)
	server = createTestServer(WithService(custom))
	if server.svc != custom {
		t.Error("WithService did not install the custom service")
	}
}

func TestWithTimeouts(t *testing.T) {
	want := Timeouts{
		Request:  10 * time.Minute,
		Shutdown: 60 * time.Second,
		Read:     5 * time.Second,
		Write:    15 * time.Minute,
		Idle:     5 * time.Minute,
	}

	server := createTestServer(WithTimeouts(want))
	if server.timeouts.Request != want.Request {
		t.Errorf("RequestTimeout = %v, want %v", server.timeouts.Request, want.Request)
	}
	if server.timeouts.Shutdown != want.Shutdown {
		t.Errorf("ShutdownTimeout = %v, want %v", server.timeouts.Shutdown, want.Shutdown)
	}
	if server.hsrv.ReadTimeout != want.Read {
		t.Errorf("hsrv.ReadTimeout = %v, want %v", server.hsrv.ReadTimeout, want.Read)
	}
}

func TestWithAddr(t *testing.T) {
	server := createTestServer(WithAddr("127.0.0.1:9090"))
	if server.hsrv.Addr != "127.0.0.1:9090" {
		t.Errorf("Addr = %s, want 127.0.0.1:9090", server.hsrv.Addr)
	}

	// Without the option the listen address comes from the config port.
	server = createTestServer()
	if server.hsrv.Addr != ":8080" {
		t.Errorf("Addr = %s, want :8080", server.hsrv.Addr)
	}
}

func TestWithMaxOperandBits(t *testing.T) {
	server := createTestServer(WithMaxOperandBits(1000))
	if server.security.MaxOperandBits != 1000 {
		t.Errorf("MaxOperandBits = %d, want 1000", server.security.MaxOperandBits)
	}
}

func TestProductParseErrorMessage(t *testing.T) {
	err := ProductParseError{Msg: "bad operand", Status: http.StatusBadRequest}
	if err.Error() != "bad operand" {
		t.Errorf("Error() = %q, want %q", err.Error(), "bad operand")
	}
}

func TestBuildProductResponse(t *testing.T) {
	cases := []struct {
		name        string
		backend     string
		x, y        *big.Int
		product     *big.Int
		duration    time.Duration
		err         error
		wantProduct int64
		wantBits    int
		wantErr     string
	}{
		{
			name:        "successful multiplication",
			backend:     "fft",
			x:           big.NewInt(6),
			y:           big.NewInt(7),
			product:     big.NewInt(42),
			duration:    100 * time.Millisecond,
			wantProduct: 42,
			wantBits:    6,
		},
		{
			name:     "multiplication with error",
			backend:  "karatsuba",
			x:        big.NewInt(999),
			y:        big.NewInt(999),
			duration: 50 * time.Millisecond,
			err:      errors.New("calculation failed"),
			wantErr:  "calculation failed",
		},
		{
			name:        "zero result",
			backend:     "big",
			x:           big.NewInt(0),
			y:           big.NewInt(5),
			product:     big.NewInt(0),
			duration:    1 * time.Nanosecond,
			wantProduct: 0,
			wantBits:    0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := buildProductResponse(tc.backend, tc.x, tc.y, tc.product, tc.duration, tc.err)

			if got.Backend != tc.backend {
				t.Errorf("Backend = %s, want %s", got.Backend, tc.backend)
			}
			if got.Duration != tc.duration.String() {
				t.Errorf("Duration = %s, want %s", got.Duration, tc.duration.String())
			}
			if got.XBits != tc.x.BitLen() || got.YBits != tc.y.BitLen() {
				t.Errorf("operand bits = %d and %d, want %d and %d",
					got.XBits, got.YBits, tc.x.BitLen(), tc.y.BitLen())
			}

			if tc.product != nil {
				if got.Product == nil {
					t.Error("Product = nil, want a value")
				} else if got.Product.Cmp(big.NewInt(tc.wantProduct)) != 0 {
					t.Errorf("Product = %s, want %d", got.Product.String(), tc.wantProduct)
				}
				if got.Bits != tc.wantBits {
					t.Errorf("Bits = %d, want %d", got.Bits, tc.wantBits)
				}
			} else if got.Product != nil {
				t.Errorf("Product = %s, want nil", got.Product.String())
			}

			if got.Error != tc.wantErr {
				t.Errorf("Error = %q, want %q", got.Error, tc.wantErr)
			}
		})
	}
}
