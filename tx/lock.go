package tx

import (
	"fmt"

	sdkscript "github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	sighash "github.com/bsv-blockchain/go-sdk/transaction/sighash"

	"github.com/simplysats/libwallet-go/script"
)

// BuildLockCreate builds a signed transaction that locks satoshis under a
// CHECKLOCKTIMEVERIFY script until currentHeight+unlockBlocks. Output layout:
//
//	vout 0: CLTV lock output
//	vout 1: zero-value data tag (only when ordinalOrigin is set)
//	last:   change, when positive
//
// The data tag marks locks that wrap an ordinal so detection can recover the
// origin outpoint later.
func BuildLockCreate(wif string, satoshis uint64, unlockBlocks, currentHeight uint32,
	selected []UTXO, totalInput uint64, feeRate float64, ordinalOrigin string) (*LockCreateResult, error) {

	if satoshis == 0 || unlockBlocks == 0 {
		return nil, ErrInvalidAmount
	}
	if len(selected) == 0 {
		return nil, ErrNoInputs
	}

	priv, err := keyFromWIF(wif)
	if err != nil {
		return nil, err
	}
	address, changeLock, err := addressAndScript(priv)
	if err != nil {
		return nil, err
	}

	unlockBlock := currentHeight + unlockBlocks
	lockScript, err := script.EncodeCLTVScript(priv.PubKey().Compressed(), unlockBlock)
	if err != nil {
		return nil, err
	}

	var dataScript []byte
	if ordinalOrigin != "" {
		dataScript = script.BuildDataTagScript([]byte("lock"), []byte(ordinalOrigin))
	}

	est := SizeEstimate{
		P2PKHInputs: len(selected),
		CLTVOutputs: 1,
		DataBytes:   len(dataScript),
	}
	prelim := uint64(0)
	if totalInput > satoshis {
		prelim = totalInput - satoshis
	}
	if prelim > changeThreshold {
		est.P2PKHOutputs = 1
	}
	fee := EstimateFee(est.Size(), feeRate)
	if totalInput < satoshis+fee {
		return nil, fmt.Errorf("%w: need %d + %d fee, have %d",
			ErrInsufficientFunds, satoshis, fee, totalInput)
	}
	change := totalInput - satoshis - fee

	sdkTx := transaction.NewTransaction()
	for _, u := range selected {
		if err := addP2PKHInput(sdkTx, u, priv, transaction.DefaultSequenceNumber); err != nil {
			return nil, err
		}
	}

	sdkTx.AddOutput(&transaction.TransactionOutput{
		Satoshis:      satoshis,
		LockingScript: sdkscript.NewFromBytes(lockScript),
	})
	produced := []ProducedOutput{{
		Vout:          0,
		Satoshis:      satoshis,
		LockingScript: lockScript,
		Address:       address,
		Basket:        BasketLocks,
	}}

	if dataScript != nil {
		sdkTx.AddOutput(&transaction.TransactionOutput{
			Satoshis:      0,
			LockingScript: sdkscript.NewFromBytes(dataScript),
		})
	}

	if change > 0 {
		sdkTx.AddOutput(&transaction.TransactionOutput{
			Satoshis:      change,
			LockingScript: changeLock,
		})
		produced = append(produced, ProducedOutput{
			Vout:          uint32(len(sdkTx.Outputs) - 1),
			Satoshis:      change,
			LockingScript: changeLock.Bytes(),
			Address:       address,
			Basket:        BasketDefault,
		})
	}

	built, err := finalize(sdkTx, fee, change, address, outpointsOf(selected), produced)
	if err != nil {
		return nil, err
	}
	return &LockCreateResult{
		Built:       built,
		UnlockBlock: unlockBlock,
		LockVout:    0,
		LockScript:  lockScript,
	}, nil
}

// BuildLockRelease spends a matured CLTV output back to toAddress. The
// transaction sets nLockTime to the unlock height and a sequence below
// 0xffffffff so the node enforces the lock time. Fails while the chain has
// not reached the unlock height.
func BuildLockRelease(wif string, locked LockedOutput, toAddress string,
	currentHeight uint32, feeRate float64) (*BuiltTransaction, error) {

	if currentHeight < locked.UnlockBlock {
		return nil, fmt.Errorf("%w: %d blocks remaining (height %d, unlocks at %d)",
			ErrLockNotYetSpendable, locked.UnlockBlock-currentHeight, currentHeight, locked.UnlockBlock)
	}

	priv, err := keyFromWIF(wif)
	if err != nil {
		return nil, err
	}

	fee := EstimateFee(SizeEstimate{CLTVInputs: 1, P2PKHOutputs: 1}.Size(), feeRate)
	if fee >= locked.Satoshis {
		return nil, fmt.Errorf("%w: fee %d, locked %d", ErrFeeExceedsInput, fee, locked.Satoshis)
	}

	toLock, err := script.AddressToLockingScript(toAddress)
	if err != nil {
		return nil, err
	}

	sourceTxid, err := txidToHash(locked.TxID)
	if err != nil {
		return nil, err
	}

	sdkTx := transaction.NewTransaction()
	sdkTx.LockTime = locked.UnlockBlock

	// Sequence must be < 0xffffffff for nLockTime to be enforced.
	in := &transaction.TransactionInput{
		SourceTXID:       sourceTxid,
		SourceTxOutIndex: locked.Vout,
		SequenceNumber:   0xfffffffe,
	}
	sdkTx.AddInput(in)
	in.SetSourceTxOutput(&transaction.TransactionOutput{
		Satoshis:      locked.Satoshis,
		LockingScript: sdkscript.NewFromBytes(locked.Script),
	})

	sdkTx.AddOutput(&transaction.TransactionOutput{
		Satoshis:      locked.Satoshis - fee,
		LockingScript: sdkscript.NewFromBytes(toLock),
	})

	// Sign manually (not using a template — the CLTV script is custom).
	sigHash, err := sdkTx.CalcInputSignatureHash(0, sighash.AllForkID)
	if err != nil {
		return nil, fmt.Errorf("%w: calc sighash: %w", ErrSigningFailed, err)
	}
	sig, err := priv.Sign(sigHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	sigBytes := append(sig.Serialize(), byte(sighash.AllForkID))

	// Unlocking script: <sig+flag> <pubkey>
	unlockScript := &sdkscript.Script{}
	if err := unlockScript.AppendPushData(sigBytes); err != nil {
		return nil, fmt.Errorf("%w: push sig: %w", ErrSigningFailed, err)
	}
	if err := unlockScript.AppendPushData(priv.PubKey().Compressed()); err != nil {
		return nil, fmt.Errorf("%w: push pubkey: %w", ErrSigningFailed, err)
	}
	in.UnlockingScript = unlockScript

	return &BuiltTransaction{
		RawTx:          sdkTx.Bytes(),
		TxID:           sdkTx.TxID().String(),
		Fee:            fee,
		Change:         0,
		ChangeAddress:  toAddress,
		OutputCount:    1,
		SpentOutpoints: []Outpoint{{TxID: locked.TxID, Vout: locked.Vout}},
		Produced: []ProducedOutput{{
			Vout:          0,
			Satoshis:      locked.Satoshis - fee,
			LockingScript: toLock,
			Address:       toAddress,
			Basket:        BasketDefault,
		}},
	}, nil
}
