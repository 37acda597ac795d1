package wallet

import "errors"

var (
	// ErrInvalidInput indicates a request failed validation before any
	// network or store access.
	ErrInvalidInput = errors.New("wallet: invalid input")

	// ErrNoSpendableCoins indicates the wallet holds no free outputs to
	// fund the request.
	ErrNoSpendableCoins = errors.New("wallet: no spendable coins")

	// ErrLockAlreadyReleased indicates the referenced lock was already
	// unlocked.
	ErrLockAlreadyReleased = errors.New("wallet: lock already released")

	// ErrLockBusy indicates the lock output is reserved by an in-flight
	// broadcast.
	ErrLockBusy = errors.New("wallet: lock release already pending")
)
