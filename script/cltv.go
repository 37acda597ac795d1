package script

import (
	"fmt"
	"math"
)

// CLTVFields holds the semantic content of a CLTV locking script.
type CLTVFields struct {
	UnlockBlock   uint32 // absolute block height the coins unlock at
	PublicKeyHash []byte // hash160 of the embedded public key (20 bytes)
}

// EncodeCLTVScript builds the time-lock locking script:
//
//	<scriptNum(unlockBlock)> OP_CHECKLOCKTIMEVERIFY OP_DROP <pubKey> OP_CHECKSIG
//
// pubKey must be a 33-byte compressed or 65-byte uncompressed public key.
func EncodeCLTVScript(pubKey []byte, unlockBlock uint32) ([]byte, error) {
	if len(pubKey) != 33 && len(pubKey) != 65 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidPubKey, len(pubKey))
	}
	if unlockBlock == 0 {
		return nil, ErrInvalidUnlockBlock
	}

	s := WritePushNumber(nil, int64(unlockBlock))
	s = append(s, OpCHECKLOCKTIMEVERIFY, OpDROP)
	s = WritePushData(s, pubKey)
	s = append(s, OpCHECKSIG)
	return s, nil
}

// ParseCLTVScript decodes scriptBytes as a CLTV locking script. It returns
// nil for anything that does not match the expected opcode sequence — the
// common case when scanning regular payment outputs — and never an error.
func ParseCLTVScript(scriptBytes []byte) *CLTVFields {
	num, pos, ok := ReadPushData(scriptBytes, 0)
	if !ok {
		return nil
	}

	height, ok := DecodeScriptNum(num)
	if !ok || height <= 0 || height > math.MaxUint32 {
		return nil
	}

	if pos+2 > len(scriptBytes) ||
		scriptBytes[pos] != OpCHECKLOCKTIMEVERIFY ||
		scriptBytes[pos+1] != OpDROP {
		return nil
	}
	pos += 2

	pubKey, pos, ok := ReadPushData(scriptBytes, pos)
	if !ok || (len(pubKey) != 33 && len(pubKey) != 65) {
		return nil
	}

	if pos != len(scriptBytes)-1 || scriptBytes[pos] != OpCHECKSIG {
		return nil
	}

	return &CLTVFields{
		UnlockBlock:   uint32(height),
		PublicKeyHash: Hash160(pubKey),
	}
}

// IsCLTVScript reports whether scriptBytes parses as a CLTV locking script.
func IsCLTVScript(scriptBytes []byte) bool {
	return ParseCLTVScript(scriptBytes) != nil
}
