package server

import (
	"github.com/fermatlab/gauss/pkg/models"
)

// The wire shapes of the API live in pkg/models so external clients and the
// golden-data tooling share one definition. The aliases keep this package's
// call sites and tests on the short names.
type (
	// ProductRequest is the JSON body accepted by the product endpoint.
	ProductRequest = models.ProductRequest
	// ProductResponse is the JSON response for a product request.
	ProductResponse = models.ProductResponse
	// BackendsResponse is the JSON response of the backend listing endpoint.
	BackendsResponse = models.BackendsResponse
	// HealthResponse is the JSON response of the health endpoint.
	HealthResponse = models.HealthResponse
	// ErrorResponse is the standardized JSON response for an API error.
	ErrorResponse = models.ErrorResponse
)

// ProductParseError is a request rejection carrying the HTTP status the
// reply should use.
type ProductParseError struct {
	Msg    string
	Status int
}

func (e ProductParseError) Error() string {
	return e.Msg
}
