package fediverse

import "errors"

// Errors surfaced by the adapters. Every returned error wraps exactly one of them.
var (
	// ErrInvalidInput means the provider rejected a caller-supplied domain,
	// token or authorization code. Retrying with the same input cannot succeed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConnection means the provider could not be reached or kept failing
	// after the allowed number of tries.
	ErrConnection = errors.New("connection error")
)

// errRejected is returned by client implementations when the provider refuses
// the request itself rather than failing to serve it.
var errRejected = errors.New("rejected by provider")

func isRejected(err error) bool {
	return errors.Is(err, errRejected)
}
