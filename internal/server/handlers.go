package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/fermatlab/gauss/internal/bigfft"
	"github.com/fermatlab/gauss/internal/logging"
	"github.com/fermatlab/gauss/internal/randsrc"
	"github.com/fermatlab/gauss/internal/service"
)

// DefaultBackend is the multiplication backend used when a request does not
// name one.
const DefaultBackend = "fft"

// handleHealth reports liveness with a constant payload and a timestamp.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.replyJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Unix(),
	})
}

// handleBackends lists the registered multiplication backends by name.
func (s *Server) handleBackends(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.replyJSON(w, http.StatusOK, BackendsResponse{Backends: s.registry.Names()})
}

// handleProduct runs one multiplication request end to end: decode the JSON
// body, resolve the operands (parsed or synthesized), admit the request
// against the size and memory gates, multiply under the request timeout, and
// reply with the result.
func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	req, err := s.parseProductRequest(w, r)
	if err != nil {
		s.replyParseError(w, err)
		return
	}

	x, y, err := s.resolveOperands(req)
	if err != nil {
		s.replyParseError(w, err)
		return
	}

	// Refuse work whose transform arena would not fit the memory budget,
	// before anything is allocated.
	if budget := s.security.FFTMemoryBudget; budget > 0 {
		est := bigfft.EstimateFFTMemory(uint64(x.BitLen()), uint64(y.BitLen()))
		if est.TotalBytes > budget {
			s.replyError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Estimated transform memory (%d MiB) exceeds the server budget (%d MiB)",
					est.TotalBytes>>20, budget>>20))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeouts.Request)
	defer cancel()

	began := time.Now()
	product, err := s.svc.Multiply(ctx, req.Backend, x, y)
	duration := time.Since(began)

	if errors.Is(err, service.ErrOperandTooLarge) {
		s.replyParseError(w, operandTooLarge(s.security.MaxOperandBits))
		return
	}

	if err == nil {
		s.logger.Debug("product computed",
			logging.String("backend", req.Backend),
			logging.Int("x_bits", x.BitLen()),
			logging.Int("y_bits", y.BitLen()),
			logging.Dur("duration", duration))
	}

	s.replyJSON(w, http.StatusOK, buildProductResponse(req.Backend, x, y, product, duration, err))
}

// parseProductRequest decodes and normalizes the JSON body of a product
// request. The body size is capped by the security configuration; an
// oversized body maps to 413 and malformed JSON to 400, both as
// ProductParseError values.
func (s *Server) parseProductRequest(w http.ResponseWriter, r *http.Request) (ProductRequest, error) {
	var req ProductRequest

	body := r.Body
	if s.security.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.security.MaxBodyBytes)
	}

	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ProductRequest{}, parseFailure(http.StatusRequestEntityTooLarge,
				"Request body exceeds the %d byte limit", maxErr.Limit)
		}
		return ProductRequest{}, parseFailure(http.StatusBadRequest, "Invalid JSON body: %v", err)
	}

	if req.Backend == "" {
		req.Backend = DefaultBackend
	}

	return req, nil
}

// resolveOperands turns a decoded request into the two operands to multiply.
// A positive Bits field synthesizes both deterministically from the seed;
// otherwise the decimal strings X and Y are parsed. Either way the operands
// are validated against the configured maximum bit length, and rejections
// come back as a ProductParseError naming the gate that refused the
// request.
func (s *Server) resolveOperands(req ProductRequest) (x, y *big.Int, err error) {
	maxBits := s.security.MaxOperandBits

	if req.Bits > 0 {
		if maxBits > 0 && req.Bits > maxBits {
			return nil, nil, operandTooLarge(maxBits)
		}
		var genErr error
		x, y, genErr = randsrc.OperandPair(req.Seed, req.Bits)
		if genErr != nil {
			return nil, nil, parseFailure(http.StatusInternalServerError,
				"Operand synthesis failed: %v", genErr)
		}
		return x, y, nil
	}

	if req.X == "" || req.Y == "" {
		return nil, nil, parseFailure(http.StatusBadRequest,
			"Missing operands: provide both 'x' and 'y', or 'bits'")
	}

	if x, err = parseDecimalOperand("x", req.X, maxBits); err != nil {
		return nil, nil, err
	}
	if y, err = parseDecimalOperand("y", req.Y, maxBits); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// parseDecimalOperand parses one decimal operand string, optionally with a
// leading minus sign, rejecting values above maxBits bits (0 means
// unlimited). The digit count is gated before conversion so a huge string
// cannot buy an expensive parse only to be rejected afterwards: maxBits/3
// digits is already more than any value of maxBits bits can have. name is
// the JSON field reported in ProductParseErrors.
func parseDecimalOperand(name, value string, maxBits int) (*big.Int, error) {
	if maxBits > 0 && len(value) > maxBits/3+2 {
		return nil, parseFailure(http.StatusBadRequest,
			"Operand '%s' has %d digits, exceeding the %d bit limit", name, len(value), maxBits)
	}

	digits, negative := strings.CutPrefix(value, "-")
	v, err := bigfft.FromDecimalString(digits)
	if err != nil {
		return nil, parseFailure(http.StatusBadRequest,
			"Invalid '%s' operand: must be a decimal integer", name)
	}
	if negative {
		v.Neg(v)
	}

	if maxBits > 0 && v.BitLen() > maxBits {
		return nil, operandTooLarge(maxBits)
	}

	return v, nil
}

// buildProductResponse constructs the response payload for one
// multiplication: the backend that ran, the operand sizes, the wall time,
// and either the product or the error when the calculation failed (product
// is nil in that case).
func buildProductResponse(backend string, x, y, product *big.Int, duration time.Duration, err error) ProductResponse {
	out := ProductResponse{
		XBits:    x.BitLen(),
		YBits:    y.BitLen(),
		Duration: duration.String(),
		Backend:  backend,
	}

	if err != nil {
		out.Error = err.Error()
	} else {
		out.Product = product
		out.Bits = product.BitLen()
	}

	return out
}

// parseFailure builds the typed error replyParseError maps onto an HTTP
// reply.
func parseFailure(status int, format string, args ...any) ProductParseError {
	return ProductParseError{
		Msg:    fmt.Sprintf(format, args...),
		Status: status,
	}
}

// operandTooLarge is the uniform rejection for every size gate, so clients
// see one wording regardless of which check fired.
func operandTooLarge(maxBits int) ProductParseError {
	return parseFailure(http.StatusBadRequest,
		"Operand size exceeds maximum allowed (%d bits). This limit prevents resource exhaustion.", maxBits)
}

// requireMethod rejects a request whose method differs from want with a 405
// and reports whether the handler may proceed.
func (s *Server) requireMethod(w http.ResponseWriter, r *http.Request, want string) bool {
	if r.Method != want {
		s.replyError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// replyParseError maps a parse or validation error to an HTTP error reply.
func (s *Server) replyParseError(w http.ResponseWriter, err error) {
	var parseErr ProductParseError
	if errors.As(err, &parseErr) {
		s.replyError(w, parseErr.Status, parseErr.Msg)
		return
	}
	s.replyError(w, http.StatusBadRequest, err.Error())
}

// replyJSON writes payload as the JSON body of a response with the given
// status.
func (s *Server) replyJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode JSON response", err)
	}
}

// replyError writes the standard error body: the status text plus a
// human-readable detail line.
func (s *Server) replyError(w http.ResponseWriter, status int, detail string) {
	s.replyJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: detail,
	})
}
