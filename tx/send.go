package tx

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	sdkscript "github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"

	"github.com/simplysats/libwallet-go/script"
)

// addP2PKHInput appends an input spending u, signed by priv.
func addP2PKHInput(sdkTx *transaction.Transaction, u UTXO, priv *ec.PrivateKey, sequence uint32) error {
	h, err := txidToHash(u.TxID)
	if err != nil {
		return err
	}
	in := &transaction.TransactionInput{
		SourceTXID:       h,
		SourceTxOutIndex: u.Vout,
		SequenceNumber:   sequence,
	}
	sdkTx.AddInput(in)

	lockBytes := u.Script
	if len(lockBytes) == 0 {
		lockBytes, err = script.P2PKHLockingScript(script.Hash160(priv.PubKey().Compressed()))
		if err != nil {
			return err
		}
	}
	in.SetSourceTxOutput(&transaction.TransactionOutput{
		Satoshis:      u.Satoshis,
		LockingScript: sdkscript.NewFromBytes(lockBytes),
	})

	unlocker, err := p2pkh.Unlock(priv, nil)
	if err != nil {
		return fmt.Errorf("%w: unlocker: %w", ErrSigningFailed, err)
	}
	in.UnlockingScriptTemplate = unlocker
	return nil
}

// finalize signs the transaction and assembles the BuiltTransaction.
func finalize(sdkTx *transaction.Transaction, fee, change uint64, changeAddress string,
	spent []Outpoint, produced []ProducedOutput) (*BuiltTransaction, error) {

	if err := sdkTx.Sign(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return &BuiltTransaction{
		RawTx:          sdkTx.Bytes(),
		TxID:           sdkTx.TxID().String(),
		Fee:            fee,
		Change:         change,
		ChangeAddress:  changeAddress,
		OutputCount:    len(sdkTx.Outputs),
		SpentOutpoints: spent,
		Produced:       produced,
	}, nil
}

// BuildSimpleSend builds a signed one-recipient P2PKH send. Change, when
// positive, returns to the source address; any positive change is kept.
func BuildSimpleSend(wif, toAddress string, satoshis uint64, selected []UTXO,
	totalInput uint64, feeRate float64) (*BuiltTransaction, error) {

	if satoshis == 0 {
		return nil, ErrInvalidAmount
	}
	if len(selected) == 0 {
		return nil, ErrNoInputs
	}

	priv, err := keyFromWIF(wif)
	if err != nil {
		return nil, err
	}
	fromAddress, fromLock, err := addressAndScript(priv)
	if err != nil {
		return nil, err
	}

	fee, change, err := changeAndFee(totalInput, satoshis, len(selected), 1, feeRate)
	if err != nil {
		return nil, err
	}

	toLock, err := script.AddressToLockingScript(toAddress)
	if err != nil {
		return nil, err
	}

	sdkTx := transaction.NewTransaction()
	for _, u := range selected {
		if err := addP2PKHInput(sdkTx, u, priv, transaction.DefaultSequenceNumber); err != nil {
			return nil, err
		}
	}

	sdkTx.AddOutput(&transaction.TransactionOutput{
		Satoshis:      satoshis,
		LockingScript: sdkscript.NewFromBytes(toLock),
	})

	var produced []ProducedOutput
	if change > 0 {
		sdkTx.AddOutput(&transaction.TransactionOutput{
			Satoshis:      change,
			LockingScript: fromLock,
		})
		produced = append(produced, ProducedOutput{
			Vout:          1,
			Satoshis:      change,
			LockingScript: fromLock.Bytes(),
			Address:       fromAddress,
			Basket:        BasketDefault,
		})
	}

	return finalize(sdkTx, fee, change, fromAddress, outpointsOf(selected), produced)
}

// BuildMultiKeySend builds a signed send where every input carries its own
// key. Change returns to the address of changeWIF, independent of the input
// addresses.
func BuildMultiKeySend(changeWIF, toAddress string, satoshis uint64, selected []KeyedUTXO,
	totalInput uint64, feeRate float64) (*BuiltTransaction, error) {

	if satoshis == 0 {
		return nil, ErrInvalidAmount
	}
	if len(selected) == 0 {
		return nil, ErrNoInputs
	}

	changePriv, err := keyFromWIF(changeWIF)
	if err != nil {
		return nil, err
	}
	changeAddress, changeLock, err := addressAndScript(changePriv)
	if err != nil {
		return nil, err
	}

	fee, change, err := changeAndFee(totalInput, satoshis, len(selected), 1, feeRate)
	if err != nil {
		return nil, err
	}

	toLock, err := script.AddressToLockingScript(toAddress)
	if err != nil {
		return nil, err
	}

	sdkTx := transaction.NewTransaction()
	spent := make([]Outpoint, 0, len(selected))
	for i, ku := range selected {
		priv, keyErr := keyFromWIF(ku.WIF)
		if keyErr != nil {
			return nil, fmt.Errorf("input %d: %w", i, keyErr)
		}
		if err := addP2PKHInput(sdkTx, ku.UTXO, priv, transaction.DefaultSequenceNumber); err != nil {
			return nil, err
		}
		spent = append(spent, Outpoint{TxID: ku.TxID, Vout: ku.Vout})
	}

	sdkTx.AddOutput(&transaction.TransactionOutput{
		Satoshis:      satoshis,
		LockingScript: sdkscript.NewFromBytes(toLock),
	})

	var produced []ProducedOutput
	if change > 0 {
		sdkTx.AddOutput(&transaction.TransactionOutput{
			Satoshis:      change,
			LockingScript: changeLock,
		})
		produced = append(produced, ProducedOutput{
			Vout:          1,
			Satoshis:      change,
			LockingScript: changeLock.Bytes(),
			Address:       changeAddress,
			Basket:        BasketDefault,
		})
	}

	return finalize(sdkTx, fee, change, changeAddress, spent, produced)
}

// BuildMultiOutputSend builds a signed send with N recipient outputs plus
// optional change. The fee is computed against the actual output count.
func BuildMultiOutputSend(wif string, outputs []Recipient, selected []UTXO,
	totalInput uint64, feeRate float64) (*BuiltTransaction, error) {

	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}
	if len(selected) == 0 {
		return nil, ErrNoInputs
	}

	var sendTotal uint64
	for _, o := range outputs {
		if o.Satoshis == 0 {
			return nil, fmt.Errorf("%w: output to %s", ErrInvalidAmount, o.Address)
		}
		sendTotal += o.Satoshis
	}

	priv, err := keyFromWIF(wif)
	if err != nil {
		return nil, err
	}
	fromAddress, fromLock, err := addressAndScript(priv)
	if err != nil {
		return nil, err
	}

	fee, change, err := changeAndFee(totalInput, sendTotal, len(selected), len(outputs), feeRate)
	if err != nil {
		return nil, err
	}

	sdkTx := transaction.NewTransaction()
	for _, u := range selected {
		if err := addP2PKHInput(sdkTx, u, priv, transaction.DefaultSequenceNumber); err != nil {
			return nil, err
		}
	}

	for _, o := range outputs {
		lock, lockErr := script.AddressToLockingScript(o.Address)
		if lockErr != nil {
			return nil, lockErr
		}
		sdkTx.AddOutput(&transaction.TransactionOutput{
			Satoshis:      o.Satoshis,
			LockingScript: sdkscript.NewFromBytes(lock),
		})
	}

	var produced []ProducedOutput
	if change > 0 {
		sdkTx.AddOutput(&transaction.TransactionOutput{
			Satoshis:      change,
			LockingScript: fromLock,
		})
		produced = append(produced, ProducedOutput{
			Vout:          uint32(len(outputs)),
			Satoshis:      change,
			LockingScript: fromLock.Bytes(),
			Address:       fromAddress,
			Basket:        BasketDefault,
		})
	}

	return finalize(sdkTx, fee, change, fromAddress, outpointsOf(selected), produced)
}
