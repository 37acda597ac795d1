package locks

import "errors"

var (
	// ErrCancelled indicates a scan was abandoned at a caller-requested
	// cancellation point; partial results were discarded.
	ErrCancelled = errors.New("locks: scan cancelled")
)
