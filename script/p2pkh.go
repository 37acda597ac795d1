package script

import (
	"crypto/sha256"
	"fmt"

	sdkscript "github.com/bsv-blockchain/go-sdk/script"
	"golang.org/x/crypto/ripemd160"
)

// PubKeyHashLen is the length of a hash160 public key hash.
const PubKeyHashLen = 20

// Hash160 computes RIPEMD160(SHA256(data)).
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sha[:])
	return r.Sum(nil)
}

// P2PKHLockingScript builds the standard pay-to-pubkey-hash locking script:
//
//	OP_DUP OP_HASH160 <pkh_20> OP_EQUALVERIFY OP_CHECKSIG
func P2PKHLockingScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != PubKeyHashLen {
		return nil, fmt.Errorf("%w: pubkey hash must be %d bytes, got %d",
			ErrInvalidAddress, PubKeyHashLen, len(pubKeyHash))
	}
	s := make([]byte, 0, 25)
	s = append(s, OpDUP, OpHASH160)
	s = WritePushData(s, pubKeyHash)
	s = append(s, OpEQUALVERIFY, OpCHECKSIG)
	return s, nil
}

// AddressToLockingScript decodes a base58check mainnet P2PKH address and
// returns its locking script.
func AddressToLockingScript(address string) ([]byte, error) {
	pkh, err := AddressToPubKeyHash(address)
	if err != nil {
		return nil, err
	}
	return P2PKHLockingScript(pkh)
}

// AddressToPubKeyHash decodes a base58check mainnet P2PKH address into its
// 20-byte public key hash.
func AddressToPubKeyHash(address string) ([]byte, error) {
	addr, err := sdkscript.NewAddressFromString(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	pkh := []byte(addr.PublicKeyHash)
	if len(pkh) != PubKeyHashLen {
		return nil, fmt.Errorf("%w: decoded hash is %d bytes", ErrInvalidAddress, len(pkh))
	}
	return pkh, nil
}

// ParseP2PKHScript extracts the public key hash from a standard P2PKH
// locking script. Returns nil for any other script shape.
func ParseP2PKHScript(scriptBytes []byte) []byte {
	if len(scriptBytes) != 25 ||
		scriptBytes[0] != OpDUP || scriptBytes[1] != OpHASH160 ||
		scriptBytes[2] != PubKeyHashLen ||
		scriptBytes[23] != OpEQUALVERIFY || scriptBytes[24] != OpCHECKSIG {
		return nil
	}
	return scriptBytes[3:23]
}
