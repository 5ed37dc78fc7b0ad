package shared

import "errors"

var (
	// ErrOwnerMissing indicates a request without an authenticated owner.
	ErrOwnerMissing = errors.New("owner missing from request context")
	// ErrInvalidToken indicates a bearer token that failed verification.
	ErrInvalidToken = errors.New("invalid bearer token")
)
