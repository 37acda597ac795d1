package network

import "errors"

var (
	// ErrConnectionFailed indicates the client could not reach the backend.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrTxNotFound indicates the backend definitively reported the
	// transaction does not exist. Transient failures never map to this.
	ErrTxNotFound = errors.New("network: transaction not found")

	// ErrInvalidResponse indicates the backend returned a malformed or
	// unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")
)
