package store

import (
	"time"

	"github.com/simplysats/libwallet-go/tx"
)

// UTXOStore persists owned outputs and drives them through the
// free/pending/spent protocol. Implementations must make MarkPending
// all-or-nothing: concurrent spends of overlapping coin sets may not both
// succeed.
type UTXOStore interface {
	// AddUTXO inserts or overwrites an owned output.
	AddUTXO(rec *UTXORecord) error

	// GetUTXO fetches one output, or ErrUTXONotFound.
	GetUTXO(txid string, vout uint32) (*UTXORecord, error)

	// GetSpendable lists free outputs in the given basket. An empty basket
	// matches everything.
	GetSpendable(basket string) ([]*UTXORecord, error)

	// MarkPending reserves every outpoint for pendingTxID. Fails without
	// changing anything if any outpoint is missing or not free.
	MarkPending(outpoints []tx.Outpoint, pendingTxID string) error

	// Rollback releases outpoints reserved by pendingTxID back to free.
	// Outpoints that are already free are skipped; the call is idempotent.
	Rollback(outpoints []tx.Outpoint, pendingTxID string) error

	// ConfirmSpent marks outpoints as consumed by finalTxID. Repeating the
	// call with the same finalTxID is a no-op; a different txid on an
	// already spent outpoint is ErrConflictingSpend.
	ConfirmSpent(outpoints []tx.Outpoint, finalTxID string) error

	// DeleteUTXO removes an output outright.
	DeleteUTXO(txid string, vout uint32) error

	// RecordTransaction stores a broadcast transaction for history.
	RecordTransaction(rec *TxRecord) error

	// GetTransaction fetches a recorded transaction, or ErrTxNotFound.
	GetTransaction(txid string) (*TxRecord, error)

	// WithAtomicUpdate runs fn inside one write transaction. Either every
	// mutation fn makes is applied, or none are.
	WithAtomicUpdate(fn func(StateTxn) error) error
}

// StateTxn exposes the mutating store operations inside an atomic update.
type StateTxn interface {
	AddUTXO(rec *UTXORecord) error
	ConfirmSpent(outpoints []tx.Outpoint, finalTxID string) error
	Rollback(outpoints []tx.Outpoint, pendingTxID string) error
	RecordTransaction(rec *TxRecord) error
}

// LockStore persists CLTV locks.
type LockStore interface {
	// AddLockIfNotExists inserts a lock unless its outpoint is already
	// known. Returns true when the lock was inserted.
	AddLockIfNotExists(rec *LockRecord) (bool, error)

	// GetLock fetches one lock, or ErrLockNotFound.
	GetLock(txid string, vout uint32) (*LockRecord, error)

	// UpdateLockBlock sets the confirmation height of a lock whose height
	// is still unknown. A known height is never overwritten.
	UpdateLockBlock(txid string, vout uint32, lockBlock uint32) error

	// MarkUnlocked stamps a lock as released.
	MarkUnlocked(txid string, vout uint32, at time.Time) error

	// DeleteLock removes a lock outright.
	DeleteLock(txid string, vout uint32) error

	// ListLocks returns every lock that has not been released.
	ListLocks() ([]*LockRecord, error)

	// GetLocks returns every unreleased lock with its maturity computed
	// against currentHeight.
	GetLocks(currentHeight uint32) ([]LockStatus, error)
}
