package tx

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"
)

// BuildConsolidation sweeps every supplied UTXO into a single output back to
// the key's own address. Requires at least two inputs; the single output
// carries total minus fee.
func BuildConsolidation(wif string, utxos []UTXO, feeRate float64) (*BuiltTransaction, error) {
	if len(utxos) < 2 {
		return nil, ErrTooFewInputs
	}

	priv, err := keyFromWIF(wif)
	if err != nil {
		return nil, err
	}
	address, lock, err := addressAndScript(priv)
	if err != nil {
		return nil, err
	}

	var total uint64
	for _, u := range utxos {
		total += u.Satoshis
	}

	fee := EstimateFee(SizeEstimate{P2PKHInputs: len(utxos), P2PKHOutputs: 1}.Size(), feeRate)
	if fee >= total {
		return nil, fmt.Errorf("%w: fee %d, input %d", ErrFeeExceedsInput, fee, total)
	}

	sdkTx := transaction.NewTransaction()
	for _, u := range utxos {
		if err := addP2PKHInput(sdkTx, u, priv, transaction.DefaultSequenceNumber); err != nil {
			return nil, err
		}
	}
	sdkTx.AddOutput(&transaction.TransactionOutput{
		Satoshis:      total - fee,
		LockingScript: lock,
	})

	produced := []ProducedOutput{{
		Vout:          0,
		Satoshis:      total - fee,
		LockingScript: lock.Bytes(),
		Address:       address,
		Basket:        BasketDefault,
	}}

	return finalize(sdkTx, fee, 0, address, outpointsOf(utxos), produced)
}
