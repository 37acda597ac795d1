package brc100

import "errors"

var (
	// ErrRequestExpired indicates a pending request aged out before it was
	// resolved.
	ErrRequestExpired = errors.New("brc100: request expired")

	// ErrRequestNotFound indicates the request id is unknown, already
	// resolved, or expired.
	ErrRequestNotFound = errors.New("brc100: request not found")

	// ErrInvalidRequest indicates a malformed application request.
	ErrInvalidRequest = errors.New("brc100: invalid request")
)
