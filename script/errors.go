package script

import "errors"

var (
	// ErrInvalidPubKey indicates the public key is not 33 or 65 bytes.
	ErrInvalidPubKey = errors.New("script: public key must be 33 or 65 bytes")

	// ErrInvalidUnlockBlock indicates the unlock block height is zero.
	ErrInvalidUnlockBlock = errors.New("script: unlock block height must be > 0")

	// ErrInvalidAddress indicates the address is not a valid mainnet P2PKH address.
	ErrInvalidAddress = errors.New("script: invalid address")
)
