package tx

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	sdkscript "github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
)

// keyFromWIF decodes a WIF private key.
func keyFromWIF(wif string) (*ec.PrivateKey, error) {
	priv, err := ec.PrivateKeyFromWif(strings.TrimSpace(wif))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return priv, nil
}

// addressAndScript derives the mainnet P2PKH address and locking script for
// a private key.
func addressAndScript(priv *ec.PrivateKey) (string, *sdkscript.Script, error) {
	addr, err := sdkscript.NewAddressFromPublicKey(priv.PubKey(), true)
	if err != nil {
		return "", nil, fmt.Errorf("%w: address from pubkey: %w", ErrInvalidKey, err)
	}
	lock, err := p2pkh.Lock(addr)
	if err != nil {
		return "", nil, fmt.Errorf("%w: lock script: %w", ErrInvalidKey, err)
	}
	return addr.AddressString, lock, nil
}

// AddressFromWIF derives the mainnet P2PKH address controlled by a WIF key.
func AddressFromWIF(wif string) (string, error) {
	priv, err := keyFromWIF(wif)
	if err != nil {
		return "", err
	}
	address, _, err := addressAndScript(priv)
	return address, err
}

// PubKeyFromWIF returns the compressed public key of a WIF key.
func PubKeyFromWIF(wif string) ([]byte, error) {
	priv, err := keyFromWIF(wif)
	if err != nil {
		return nil, err
	}
	return priv.PubKey().Compressed(), nil
}

// txidToHash converts a display-order txid hex string to the internal
// byte-order hash used in transaction inputs.
func txidToHash(txid string) (*chainhash.Hash, error) {
	b, err := hex.DecodeString(txid)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTxID, txid)
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return chainhash.NewHash(b)
}
