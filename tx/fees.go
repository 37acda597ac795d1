package tx

import (
	"fmt"
	"math"
)

// Serialized size estimates in bytes. P2PKH figures follow the standard
// 148/34/10 model; CLTV figures pad for the script-number push, the CLTV
// opcodes and the full pubkey in the unlocking script.
const (
	TxOverhead      = 10
	P2PKHInputSize  = 148
	P2PKHOutputSize = 34
	CLTVInputSize   = 165
	CLTVOutputSize  = 55

	// DefaultFeeRate is satoshis per byte.
	DefaultFeeRate = 0.5

	// changeThreshold is the preliminary-change cutoff, in satoshis, below
	// which no change output is planned when sizing the transaction. Actual
	// change is kept whenever it ends up positive; there is no dust floor.
	changeThreshold = 100
)

// SizeEstimate counts the pieces of a planned transaction.
type SizeEstimate struct {
	P2PKHInputs  int
	CLTVInputs   int
	P2PKHOutputs int
	CLTVOutputs  int
	DataBytes    int // OP_RETURN payload bytes, including script overhead
}

// Size returns the estimated serialized size in bytes.
func (e SizeEstimate) Size() int {
	size := TxOverhead +
		e.P2PKHInputs*P2PKHInputSize +
		e.CLTVInputs*CLTVInputSize +
		e.P2PKHOutputs*P2PKHOutputSize +
		e.CLTVOutputs*CLTVOutputSize
	if e.DataBytes > 0 {
		// value(8) + script length varint(~2) + OP_FALSE OP_RETURN(2)
		size += 12 + e.DataBytes
	}
	return size
}

// EstimateFee returns ceil(size * feeRate), never less than 1 satoshi.
func EstimateFee(size int, feeRate float64) uint64 {
	if feeRate <= 0 {
		feeRate = DefaultFeeRate
	}
	fee := uint64(math.Ceil(float64(size) * feeRate))
	if fee == 0 {
		fee = 1
	}
	return fee
}

// changeAndFee computes the fee and change for a P2PKH spend of sendTotal
// satoshis across numRecipients outputs. The output count used for sizing
// includes a change output only when the preliminary change (before fees)
// clears changeThreshold.
func changeAndFee(totalInput, sendTotal uint64, numInputs, numRecipients int, feeRate float64) (fee, change uint64, err error) {
	prelim := uint64(0)
	if totalInput > sendTotal {
		prelim = totalInput - sendTotal
	}

	numOutputs := numRecipients
	if prelim > changeThreshold {
		numOutputs++
	}

	fee = EstimateFee(SizeEstimate{P2PKHInputs: numInputs, P2PKHOutputs: numOutputs}.Size(), feeRate)

	if totalInput < sendTotal+fee {
		return 0, 0, fmt.Errorf("%w: need %d + %d fee, have %d",
			ErrInsufficientFunds, sendTotal, fee, totalInput)
	}
	return fee, totalInput - sendTotal - fee, nil
}
