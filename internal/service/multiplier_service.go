package service

//go:generate mockgen -source=multiplier_service.go -destination=mocks/mock_service.go -package=mocks

import (
	"context"
	"errors"
	"math/big"

	"github.com/fermatlab/gauss/internal/config"
	apperrors "github.com/fermatlab/gauss/internal/errors"
	"github.com/fermatlab/gauss/internal/mult"
	"github.com/fermatlab/gauss/internal/orchestration"
)

var (
	// ErrOperandTooLarge is returned when an operand exceeds the configured
	// maximum size.
	ErrOperandTooLarge = errors.New("operand size exceeds the configured maximum")
)

// CrossCheckBackend is the reserved backend name that runs every registered
// backend on the same operands and returns the product only when they agree.
const CrossCheckBackend = "all"

// Service is the multiplication entry point the HTTP layer talks to.
type Service interface {
	// Multiply computes x*y with the named backend. The reserved name
	// CrossCheckBackend runs every registered backend instead and returns
	// the product only when they all agree. Validation and calculation
	// failures come back as the error.
	Multiply(ctx context.Context, backend string, x, y *big.Int) (*big.Int, error)
}

// MultiplierService is the production Service. It centralizes operand
// validation, backend retrieval, and execution options.
type MultiplierService struct {
	registry *mult.Registry
	config   config.AppConfig
	maxBits  int
}

// Ensure MultiplierService implements Service interface.
var _ Service = (*MultiplierService)(nil)

// NewMultiplierService builds a service resolving backends from registry.
// maxBits caps the accepted operand size in bits; 0 lifts the cap.
func NewMultiplierService(registry *mult.Registry, cfg config.AppConfig, maxBits int) *MultiplierService {
	return &MultiplierService{
		registry: registry,
		config:   cfg,
		maxBits:  maxBits,
	}
}

// Multiply validates the operands, resolves the requested backend, and
// executes the multiplication with the configured options.
func (s *MultiplierService) Multiply(ctx context.Context, backend string, x, y *big.Int) (*big.Int, error) {
	if x == nil || y == nil {
		return nil, apperrors.NewValidationError("operand", "must not be nil", nil)
	}
	if s.maxBits > 0 && (x.BitLen() > s.maxBits || y.BitLen() > s.maxBits) {
		return nil, ErrOperandTooLarge
	}

	opts := s.config.ToMultOptions()

	// The cross-check pseudo-backend runs everything and demands agreement.
	if backend == CrossCheckBackend {
		return orchestration.RunCrossCheck(ctx, s.registry, s.registry.Names(), x, y, opts)
	}

	m, err := s.registry.Get(backend)
	if err != nil {
		return nil, err
	}

	// Progress stays nil; service calls are synchronous and have no
	// terminal to draw on.
	return m.Multiply(ctx, x, y, opts, nil)
}
