package broadcast

import "errors"

var (
	// ErrUTXOLockFailure indicates the spend reservation failed before any
	// network submission; no state was changed.
	ErrUTXOLockFailure = errors.New("broadcast: could not reserve inputs")

	// ErrBroadcastRejected indicates every backend refused the transaction.
	// The reserved inputs were rolled back to free.
	ErrBroadcastRejected = errors.New("broadcast: all backends rejected transaction")

	// ErrStateStuckPending indicates the broadcast failed and the rollback
	// failed too, leaving inputs reserved. Manual intervention is needed;
	// the error text names the stuck outpoints.
	ErrStateStuckPending = errors.New("broadcast: rollback failed, inputs stuck pending")

	// ErrRecordFailed indicates the network accepted the transaction but
	// recording the result locally failed. The coins are spent on-chain
	// while the store still shows them pending.
	ErrRecordFailed = errors.New("broadcast: accepted but local state update failed")
)
