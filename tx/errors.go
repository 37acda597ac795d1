package tx

import "errors"

var (
	// ErrInvalidAmount indicates a zero or otherwise unusable satoshi amount.
	ErrInvalidAmount = errors.New("tx: invalid amount")

	// ErrNoInputs indicates no UTXOs were supplied to a builder.
	ErrNoInputs = errors.New("tx: no inputs")

	// ErrNoOutputs indicates a multi-output build with an empty recipient list.
	ErrNoOutputs = errors.New("tx: no outputs")

	// ErrInsufficientFunds indicates the inputs cannot cover amount plus fee.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrTooFewInputs indicates a consolidation with fewer than two UTXOs.
	ErrTooFewInputs = errors.New("tx: need at least 2 UTXOs to consolidate")

	// ErrFeeExceedsInput indicates the fee would consume the entire input value.
	ErrFeeExceedsInput = errors.New("tx: fee exceeds total input")

	// ErrInvalidKey indicates a WIF could not be decoded into a private key.
	ErrInvalidKey = errors.New("tx: invalid private key")

	// ErrInvalidTxID indicates a transaction id is not 64 hex characters.
	ErrInvalidTxID = errors.New("tx: invalid txid")

	// ErrSigningFailed indicates transaction signing failed.
	ErrSigningFailed = errors.New("tx: signing failed")

	// ErrLockNotYetSpendable indicates the chain has not reached the lock's
	// unlock height.
	ErrLockNotYetSpendable = errors.New("tx: lock not yet spendable")
)
