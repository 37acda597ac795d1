package script

import (
	"bytes"
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPubKey(t *testing.T) []byte {
	t.Helper()
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	return priv.PubKey().Compressed()
}

// --- script number tests ---

func TestEncodeScriptNumZero(t *testing.T) {
	assert.Empty(t, EncodeScriptNum(0))
}

func TestEncodeScriptNumSmall(t *testing.T) {
	assert.Equal(t, []byte{0x01}, EncodeScriptNum(1))
	assert.Equal(t, []byte{0x10}, EncodeScriptNum(16))
	assert.Equal(t, []byte{0x7f}, EncodeScriptNum(127))
}

func TestEncodeScriptNumSignByte(t *testing.T) {
	// 128 has the high bit set, so a 0x00 sign byte is appended.
	assert.Equal(t, []byte{0x80, 0x00}, EncodeScriptNum(128))
	// -128 encodes as magnitude 128 with the 0x80 sign byte.
	assert.Equal(t, []byte{0x80, 0x80}, EncodeScriptNum(-128))
	// -1 folds the sign bit into the single magnitude byte.
	assert.Equal(t, []byte{0x81}, EncodeScriptNum(-1))
}

func TestEncodeScriptNumHeights(t *testing.T) {
	// 800100 = 0x0c35e4, little-endian, high bit of 0x0c clear.
	assert.Equal(t, []byte{0xe4, 0x35, 0x0c}, EncodeScriptNum(800100))
}

func TestScriptNumRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, 16, 17, 127, 128, 255, 256, 800000, 800100,
		-1, -127, -128, -255, -800100, 1 << 31, 1<<47 - 1} {
		got, ok := DecodeScriptNum(EncodeScriptNum(n))
		require.True(t, ok, "n=%d", n)
		assert.Equal(t, n, got, "n=%d", n)
	}
}

func TestDecodeScriptNumTooLong(t *testing.T) {
	_, ok := DecodeScriptNum(bytes.Repeat([]byte{0x01}, 9))
	assert.False(t, ok)
}

// --- push data tests ---

func TestPushDataRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x05},            // OP_5 short form
		{0x11},            // 17, too big for short form
		bytes.Repeat([]byte{0xaa}, 75),
		bytes.Repeat([]byte{0xbb}, 76),  // OP_PUSHDATA1
		bytes.Repeat([]byte{0xcc}, 300), // OP_PUSHDATA2
	}
	for _, data := range cases {
		buf := WritePushData(nil, data)
		got, next, ok := ReadPushData(buf, 0)
		require.True(t, ok, "len=%d", len(data))
		assert.Equal(t, data, got)
		assert.Equal(t, len(buf), next)
	}
}

func TestWritePushDataShortForms(t *testing.T) {
	assert.Equal(t, []byte{Op0}, WritePushData(nil, nil))
	assert.Equal(t, []byte{Op1}, WritePushData(nil, []byte{1}))
	assert.Equal(t, []byte{Op16}, WritePushData(nil, []byte{16}))
	// 0 and 17 do not fit the short form.
	assert.Equal(t, []byte{0x01, 0x00}, WritePushData(nil, []byte{0}))
	assert.Equal(t, []byte{0x01, 0x11}, WritePushData(nil, []byte{17}))
}

func TestReadPushDataTruncated(t *testing.T) {
	// Declares 10 bytes but carries 2.
	_, _, ok := ReadPushData([]byte{0x0a, 0x01, 0x02}, 0)
	assert.False(t, ok)

	// OP_PUSHDATA2 with a truncated length prefix.
	_, _, ok = ReadPushData([]byte{OpPUSHDATA2, 0x05}, 0)
	assert.False(t, ok)

	// Non-push opcode.
	_, _, ok = ReadPushData([]byte{OpDUP}, 0)
	assert.False(t, ok)

	// Out of range position.
	_, _, ok = ReadPushData([]byte{0x01, 0xff}, 5)
	assert.False(t, ok)
}

// --- CLTV tests ---

func TestCLTVRoundTrip(t *testing.T) {
	pubKey := testPubKey(t)

	for _, height := range []uint32{1, 16, 100, 500000, 800100, 4000000} {
		s, err := EncodeCLTVScript(pubKey, height)
		require.NoError(t, err)

		fields := ParseCLTVScript(s)
		require.NotNil(t, fields, "height=%d", height)
		assert.Equal(t, height, fields.UnlockBlock)
		assert.Equal(t, Hash160(pubKey), fields.PublicKeyHash)
	}
}

func TestEncodeCLTVScriptRejectsBadInput(t *testing.T) {
	pubKey := testPubKey(t)

	_, err := EncodeCLTVScript(pubKey[:10], 800000)
	assert.ErrorIs(t, err, ErrInvalidPubKey)

	_, err = EncodeCLTVScript(pubKey, 0)
	assert.ErrorIs(t, err, ErrInvalidUnlockBlock)
}

func TestParseCLTVScriptRejectsNonLocks(t *testing.T) {
	pkh := Hash160(testPubKey(t))
	p2pkh, err := P2PKHLockingScript(pkh)
	require.NoError(t, err)

	assert.Nil(t, ParseCLTVScript(p2pkh))
	assert.Nil(t, ParseCLTVScript(nil))
	assert.Nil(t, ParseCLTVScript([]byte{OpRETURN}))
	assert.Nil(t, ParseCLTVScript(BuildDataTagScript([]byte("ord"))))
}

func TestParseCLTVScriptRejectsTruncated(t *testing.T) {
	pubKey := testPubKey(t)
	s, err := EncodeCLTVScript(pubKey, 800100)
	require.NoError(t, err)

	for i := 1; i < len(s); i++ {
		assert.Nil(t, ParseCLTVScript(s[:i]), "truncated at %d", i)
	}

	// Trailing garbage after OP_CHECKSIG.
	assert.Nil(t, ParseCLTVScript(append(append([]byte{}, s...), 0x00)))
}

func TestParseCLTVScriptShortFormHeight(t *testing.T) {
	// Heights 1-16 may be pushed with the OP_1..OP_16 short form.
	pubKey := testPubKey(t)
	s := []byte{Op1 + 4} // OP_5
	s = append(s, OpCHECKLOCKTIMEVERIFY, OpDROP)
	s = WritePushData(s, pubKey)
	s = append(s, OpCHECKSIG)

	fields := ParseCLTVScript(s)
	require.NotNil(t, fields)
	assert.Equal(t, uint32(5), fields.UnlockBlock)
}

// --- P2PKH tests ---

func TestP2PKHScriptRoundTrip(t *testing.T) {
	pkh := Hash160(testPubKey(t))
	s, err := P2PKHLockingScript(pkh)
	require.NoError(t, err)
	assert.Len(t, s, 25)
	assert.Equal(t, pkh, ParseP2PKHScript(s))
}

func TestParseP2PKHScriptRejectsOtherScripts(t *testing.T) {
	pubKey := testPubKey(t)
	cltv, err := EncodeCLTVScript(pubKey, 800000)
	require.NoError(t, err)
	assert.Nil(t, ParseP2PKHScript(cltv))
	assert.Nil(t, ParseP2PKHScript(nil))
}

func TestAddressToLockingScript(t *testing.T) {
	// Genesis coinbase address.
	s, err := AddressToLockingScript("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	require.NoError(t, err)
	assert.Len(t, s, 25)

	_, err = AddressToLockingScript("not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

// --- data tag tests ---

func TestDataTagRoundTrip(t *testing.T) {
	pushes := [][]byte{[]byte("lock"), []byte("abc123_0")}
	s := BuildDataTagScript(pushes...)
	got := ParseDataTagScript(s)
	require.Len(t, got, 2)
	assert.Equal(t, pushes[0], got[0])
	assert.Equal(t, pushes[1], got[1])

	assert.Nil(t, ParseDataTagScript([]byte{OpRETURN}))
}
