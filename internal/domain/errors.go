package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable signals that an external service could not be reached,
	// timed out, or answered with a non-success status.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamMalformed signals a success response missing required fields.
	ErrUpstreamMalformed = errors.New("upstream response malformed")
	// ErrEmptyInput signals a blank search query.
	ErrEmptyInput = errors.New("empty input")
	// ErrCatalogUnavailable signals a catalog store failure.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrInvalidArgument signals a malformed caller argument.
	ErrInvalidArgument = errors.New("invalid argument")
)

// UpstreamError wraps an upstream failure with the service and operation that produced it.
type UpstreamError struct {
	Service Service
	Op      string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Service, e.Op, e.Err.Error())
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstreamError wraps err (which should wrap one of the upstream sentinels).
func NewUpstreamError(svc Service, op string, err error) error {
	return &UpstreamError{Service: svc, Op: op, Err: err}
}

// IsUpstreamFailure reports whether err is an unavailability or a malformed payload.
func IsUpstreamFailure(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamMalformed)
}
