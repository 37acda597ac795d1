package store

import "errors"

var (
	// ErrUTXONotFound indicates the referenced outpoint is not in the store.
	ErrUTXONotFound = errors.New("store: utxo not found")

	// ErrUTXONotFree indicates a spend reservation hit a UTXO that is
	// already pending or spent.
	ErrUTXONotFree = errors.New("store: utxo not free")

	// ErrConflictingSpend indicates an outpoint is already recorded as spent
	// by a different transaction.
	ErrConflictingSpend = errors.New("store: conflicting spend")

	// ErrLockNotFound indicates the referenced lock is not in the store.
	ErrLockNotFound = errors.New("store: lock not found")

	// ErrLockBlockKnown indicates an attempt to overwrite an already-known
	// lock creation height.
	ErrLockBlockKnown = errors.New("store: lock block already known")

	// ErrTxNotFound indicates the referenced transaction record is absent.
	ErrTxNotFound = errors.New("store: transaction not found")
)
