package tx

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplysats/libwallet-go/script"
)

// Well-known keys (private keys 1 and 2 on secp256k1).
const (
	testWIF1     = "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn"
	testAddress1 = "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"
	testWIF2     = "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU74NMTptX4"
	testAddress2 = "1cMh228HTCiwS8ZsaakH8A8wze1JR5ZsP"
)

var testPKH1, _ = hex.DecodeString("751e76e8199196d454941c45d1b3a323f1433bd6")

func testTxID(fill byte) string {
	return strings.Repeat(hex.EncodeToString([]byte{fill}), 32)
}

func testUTXO(t *testing.T, fill byte, vout uint32, satoshis uint64) UTXO {
	t.Helper()
	lock, err := script.AddressToLockingScript(testAddress1)
	require.NoError(t, err)
	return UTXO{TxID: testTxID(fill), Vout: vout, Satoshis: satoshis, Script: lock}
}

func TestEstimateFee(t *testing.T) {
	assert.Equal(t, uint64(113), EstimateFee(SizeEstimate{P2PKHInputs: 1, P2PKHOutputs: 2}.Size(), 0.5))
	assert.Equal(t, uint64(96), EstimateFee(SizeEstimate{P2PKHInputs: 1, P2PKHOutputs: 1}.Size(), 0.5))
	assert.Equal(t, uint64(1), EstimateFee(1, 0.5), "fee is never below 1 satoshi")
	assert.Equal(t, uint64(113), EstimateFee(226, 0), "non-positive rate falls back to default")
}

func TestChangeAndFee(t *testing.T) {
	t.Run("with change", func(t *testing.T) {
		// 1 input, 1 recipient + change output: 10+148+68 = 226 bytes.
		fee, change, err := changeAndFee(10000, 5000, 1, 1, 0.5)
		require.NoError(t, err)
		assert.Equal(t, uint64(113), fee)
		assert.Equal(t, uint64(4887), change)
	})

	t.Run("preliminary change under threshold sizes without change output", func(t *testing.T) {
		// prelim = 96 <= 100, so only 1 output: 10+148+34 = 192 bytes, fee 96.
		fee, change, err := changeAndFee(5096, 5000, 1, 1, 0.5)
		require.NoError(t, err)
		assert.Equal(t, uint64(96), fee)
		assert.Equal(t, uint64(0), change)
	})

	t.Run("insufficient", func(t *testing.T) {
		_, _, err := changeAndFee(5000, 5000, 1, 1, 0.5)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})
}

func TestBuildSimpleSend(t *testing.T) {
	u := testUTXO(t, 0xab, 0, 10000)

	built, err := BuildSimpleSend(testWIF1, testAddress2, 5000, []UTXO{u}, 10000, 0.5)
	require.NoError(t, err)

	assert.Len(t, built.TxID, 64)
	assert.Equal(t, uint64(113), built.Fee)
	assert.Equal(t, uint64(4887), built.Change)
	assert.Equal(t, testAddress1, built.ChangeAddress)
	assert.Equal(t, 2, built.OutputCount)
	assert.NotEmpty(t, built.RawTx)

	require.Len(t, built.SpentOutpoints, 1)
	assert.Equal(t, Outpoint{TxID: u.TxID, Vout: 0}, built.SpentOutpoints[0])

	require.Len(t, built.Produced, 1)
	assert.Equal(t, uint32(1), built.Produced[0].Vout)
	assert.Equal(t, uint64(4887), built.Produced[0].Satoshis)
	assert.Equal(t, testAddress1, built.Produced[0].Address)
	assert.Equal(t, BasketDefault, built.Produced[0].Basket)
}

func TestBuildSimpleSendNoChange(t *testing.T) {
	u := testUTXO(t, 0xab, 0, 5096)

	built, err := BuildSimpleSend(testWIF1, testAddress2, 5000, []UTXO{u}, 5096, 0.5)
	require.NoError(t, err)
	assert.Equal(t, uint64(96), built.Fee)
	assert.Equal(t, uint64(0), built.Change)
	assert.Equal(t, 1, built.OutputCount)
	assert.Empty(t, built.Produced)
}

func TestBuildSimpleSendDerivesScriptWhenMissing(t *testing.T) {
	u := UTXO{TxID: testTxID(0xcd), Vout: 2, Satoshis: 10000}

	built, err := BuildSimpleSend(testWIF1, testAddress2, 5000, []UTXO{u}, 10000, 0.5)
	require.NoError(t, err)
	assert.Len(t, built.TxID, 64)
}

func TestBuildSimpleSendValidation(t *testing.T) {
	u := testUTXO(t, 0xab, 0, 10000)

	_, err := BuildSimpleSend(testWIF1, testAddress2, 0, []UTXO{u}, 10000, 0.5)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = BuildSimpleSend(testWIF1, testAddress2, 5000, nil, 10000, 0.5)
	assert.ErrorIs(t, err, ErrNoInputs)

	_, err = BuildSimpleSend("not-a-wif", testAddress2, 5000, []UTXO{u}, 10000, 0.5)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = BuildSimpleSend(testWIF1, "not-an-address", 5000, []UTXO{u}, 10000, 0.5)
	assert.Error(t, err)

	bad := u
	bad.TxID = "zz"
	_, err = BuildSimpleSend(testWIF1, testAddress2, 5000, []UTXO{bad}, 10000, 0.5)
	assert.ErrorIs(t, err, ErrInvalidTxID)
}

func TestBuildMultiKeySend(t *testing.T) {
	lock2, err := script.AddressToLockingScript(testAddress2)
	require.NoError(t, err)

	selected := []KeyedUTXO{
		{UTXO: testUTXO(t, 0x01, 0, 6000), WIF: testWIF1, Address: testAddress1},
		{UTXO: UTXO{TxID: testTxID(0x02), Vout: 1, Satoshis: 6000, Script: lock2}, WIF: testWIF2, Address: testAddress2},
	}

	built, err := BuildMultiKeySend(testWIF1, testAddress2, 10000, selected, 12000, 0.5)
	require.NoError(t, err)

	// 2 inputs, 2 outputs: 10+296+68 = 374 bytes, fee 187, change 1813.
	assert.Equal(t, uint64(187), built.Fee)
	assert.Equal(t, uint64(1813), built.Change)
	assert.Equal(t, testAddress1, built.ChangeAddress, "change goes to the change key, not an input key")
	assert.Len(t, built.SpentOutpoints, 2)

	badKey := selected
	badKey[1].WIF = "garbage"
	_, err = BuildMultiKeySend(testWIF1, testAddress2, 10000, badKey, 12000, 0.5)
	require.ErrorIs(t, err, ErrInvalidKey)
	assert.Contains(t, err.Error(), "input 1")
}

func TestBuildMultiOutputSend(t *testing.T) {
	u := testUTXO(t, 0xab, 0, 20000)
	outputs := []Recipient{
		{Address: testAddress2, Satoshis: 4000},
		{Address: testAddress1, Satoshis: 6000},
	}

	built, err := BuildMultiOutputSend(testWIF1, outputs, []UTXO{u}, 20000, 0.5)
	require.NoError(t, err)

	// 1 input, 3 outputs: 10+148+102 = 260 bytes, fee 130, change 9870.
	assert.Equal(t, uint64(130), built.Fee)
	assert.Equal(t, uint64(9870), built.Change)
	assert.Equal(t, 3, built.OutputCount)
	require.Len(t, built.Produced, 1)
	assert.Equal(t, uint32(2), built.Produced[0].Vout, "change sits after the recipient outputs")

	_, err = BuildMultiOutputSend(testWIF1, nil, []UTXO{u}, 20000, 0.5)
	assert.ErrorIs(t, err, ErrNoOutputs)

	_, err = BuildMultiOutputSend(testWIF1, []Recipient{{Address: testAddress2}}, []UTXO{u}, 20000, 0.5)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestBuildConsolidation(t *testing.T) {
	utxos := []UTXO{
		testUTXO(t, 0x01, 0, 3000),
		testUTXO(t, 0x02, 1, 4000),
		testUTXO(t, 0x03, 0, 5000),
	}

	built, err := BuildConsolidation(testWIF1, utxos, 0.5)
	require.NoError(t, err)

	// 3 inputs, 1 output: 10+444+34 = 488 bytes, fee 244.
	assert.Equal(t, uint64(244), built.Fee)
	assert.Equal(t, 1, built.OutputCount)
	assert.Len(t, built.SpentOutpoints, 3)
	require.Len(t, built.Produced, 1)
	assert.Equal(t, uint64(12000-244), built.Produced[0].Satoshis)
	assert.Equal(t, testAddress1, built.Produced[0].Address)
}

func TestBuildConsolidationValidation(t *testing.T) {
	_, err := BuildConsolidation(testWIF1, []UTXO{testUTXO(t, 0x01, 0, 3000)}, 0.5)
	assert.ErrorIs(t, err, ErrTooFewInputs)

	// 2 inputs, 1 output: 340 bytes, fee 170 >= 160 total.
	dust := []UTXO{testUTXO(t, 0x01, 0, 100), testUTXO(t, 0x02, 0, 60)}
	_, err = BuildConsolidation(testWIF1, dust, 0.5)
	assert.ErrorIs(t, err, ErrFeeExceedsInput)
}

func TestBuildLockCreate(t *testing.T) {
	u := testUTXO(t, 0xab, 0, 10000)

	res, err := BuildLockCreate(testWIF1, 5000, 100, 800000, []UTXO{u}, 10000, 0.5, "")
	require.NoError(t, err)

	assert.Equal(t, uint32(800100), res.UnlockBlock)
	assert.Equal(t, uint32(0), res.LockVout)

	fields := script.ParseCLTVScript(res.LockScript)
	require.NotNil(t, fields, "lock output must carry a parseable CLTV script")
	assert.Equal(t, uint32(800100), fields.UnlockBlock)
	assert.Equal(t, testPKH1, fields.PublicKeyHash)

	// 1 input, 1 CLTV + 1 change output: 10+148+55+34 = 247 bytes, fee 124.
	assert.Equal(t, uint64(124), res.Built.Fee)
	assert.Equal(t, uint64(4876), res.Built.Change)
	assert.Equal(t, 2, res.Built.OutputCount)

	require.Len(t, res.Built.Produced, 2)
	assert.Equal(t, BasketLocks, res.Built.Produced[0].Basket)
	assert.Equal(t, uint32(0), res.Built.Produced[0].Vout)
	assert.Equal(t, BasketDefault, res.Built.Produced[1].Basket)
	assert.Equal(t, uint32(1), res.Built.Produced[1].Vout)
}

func TestBuildLockCreateWithOrdinalTag(t *testing.T) {
	u := testUTXO(t, 0xab, 0, 10000)
	origin := testTxID(0x0e) + "_0"

	res, err := BuildLockCreate(testWIF1, 5000, 10, 800000, []UTXO{u}, 10000, 0.5, origin)
	require.NoError(t, err)

	// lock, data tag, change
	assert.Equal(t, 3, res.Built.OutputCount)
	require.Len(t, res.Built.Produced, 2)
	assert.Equal(t, uint32(2), res.Built.Produced[1].Vout, "change follows the data tag output")
}

func TestBuildLockRelease(t *testing.T) {
	lockScript, err := script.EncodeCLTVScript(mustPubKey(t, testWIF1), 800100)
	require.NoError(t, err)
	locked := LockedOutput{
		TxID:        testTxID(0xab),
		Vout:        0,
		Satoshis:    5000,
		Script:      lockScript,
		UnlockBlock: 800100,
	}

	built, err := BuildLockRelease(testWIF1, locked, testAddress1, 800100, 0.5)
	require.NoError(t, err)

	// 1 CLTV input, 1 output: 10+165+34 = 209 bytes, fee 105.
	assert.Equal(t, uint64(105), built.Fee)
	assert.Equal(t, 1, built.OutputCount)
	require.Len(t, built.Produced, 1)
	assert.Equal(t, uint64(4895), built.Produced[0].Satoshis)

	// nLockTime occupies the last four bytes of the serialization.
	require.GreaterOrEqual(t, len(built.RawTx), 4)
	lockTime := binary.LittleEndian.Uint32(built.RawTx[len(built.RawTx)-4:])
	assert.Equal(t, uint32(800100), lockTime)
}

func TestBuildLockReleaseNotYetSpendable(t *testing.T) {
	locked := LockedOutput{TxID: testTxID(0xab), Satoshis: 5000, UnlockBlock: 800100}

	_, err := BuildLockRelease(testWIF1, locked, testAddress1, 800099, 0.5)
	require.ErrorIs(t, err, ErrLockNotYetSpendable)
	assert.Contains(t, err.Error(), "1 blocks remaining")
}

func mustPubKey(t *testing.T, wif string) []byte {
	t.Helper()
	priv, err := keyFromWIF(wif)
	require.NoError(t, err)
	return priv.PubKey().Compressed()
}
