package shelfrank

import "github.com/kailas-cloud/shelfrank/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrUpstreamUnavailable = domain.ErrUpstreamUnavailable
	ErrUpstreamMalformed   = domain.ErrUpstreamMalformed
	ErrEmptyInput          = domain.ErrEmptyInput
	ErrCatalogUnavailable  = domain.ErrCatalogUnavailable
	ErrInvalidArgument     = domain.ErrInvalidArgument
)

// UpstreamError carries the failing service and operation. It unwraps to
// one of the sentinels above.
type UpstreamError = domain.UpstreamError
