package store

import (
	"time"

	"github.com/simplysats/libwallet-go/tx"
)

// SpendState tracks an owned UTXO through the broadcast protocol.
type SpendState int

const (
	// SpendStateFree means the UTXO is available for selection.
	SpendStateFree SpendState = iota

	// SpendStatePending means the UTXO is reserved by an in-flight
	// broadcast. PendingTxID names the reserving transaction.
	SpendStatePending

	// SpendStateSpent means a broadcast consumed the UTXO. SpentTxID names
	// the transaction the network accepted, which may differ from the
	// locally precomputed id.
	SpendStateSpent
)

// String implements fmt.Stringer.
func (s SpendState) String() string {
	switch s {
	case SpendStateFree:
		return "free"
	case SpendStatePending:
		return "pending"
	case SpendStateSpent:
		return "spent"
	}
	return "unknown"
}

// UTXORecord is one owned output and its spend state.
type UTXORecord struct {
	TxID     string
	Vout     uint32
	Satoshis uint64
	Script   []byte
	Address  string
	Basket   string

	SpendState  SpendState
	PendingTxID string // set while pending
	SpentTxID   string // set once spent

	CreatedAt time.Time
}

// Outpoint returns the record's outpoint.
func (r *UTXORecord) Outpoint() tx.Outpoint {
	return tx.Outpoint{TxID: r.TxID, Vout: r.Vout}
}

// TxRecord is a broadcast transaction kept for history.
type TxRecord struct {
	TxID      string // final network-accepted id
	LocalTxID string // precomputed id, when it differed
	RawTx     []byte
	Fee       uint64
	Kind      string // "send", "consolidate", "lock", "unlock"
	CreatedAt time.Time
}

// LockRecord is one CLTV lock the wallet knows about.
type LockRecord struct {
	TxID        string
	Vout        uint32
	Satoshis    uint64
	Script      []byte
	Address     string
	UnlockBlock uint32

	// LockBlock is the height the lock confirmed at; 0 while unknown.
	LockBlock uint32

	// OrdinalOrigin is the origin outpoint of a wrapped ordinal, "" for
	// plain value locks.
	OrdinalOrigin string

	CreatedAt  time.Time
	UnlockedAt *time.Time // set once released
}

// Outpoint returns the lock's outpoint.
func (r *LockRecord) Outpoint() tx.Outpoint {
	return tx.Outpoint{TxID: r.TxID, Vout: r.Vout}
}

// LockStatus pairs a lock with its maturity relative to a chain height.
type LockStatus struct {
	Lock            *LockRecord
	Spendable       bool
	BlocksRemaining uint32 // 0 when spendable
}
