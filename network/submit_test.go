package network

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTxID(t *testing.T) {
	assert.True(t, IsValidTxID(strings.Repeat("ab", 32)))
	assert.True(t, IsValidTxID(strings.Repeat("AB", 32)))
	assert.False(t, IsValidTxID(""))
	assert.False(t, IsValidTxID(strings.Repeat("ab", 31)))
	assert.False(t, IsValidTxID(strings.Repeat("ab", 33)))
	assert.False(t, IsValidTxID(strings.Repeat("zz", 32)))
	assert.False(t, IsValidTxID("0x"+strings.Repeat("ab", 31)))
}

func TestIsAlreadyKnown(t *testing.T) {
	assert.True(t, IsAlreadyKnown("258: txn-already-known"))
	assert.True(t, IsAlreadyKnown("Transaction already in the mempool"))
	assert.True(t, IsAlreadyKnown("TXN-ALREADY-IN-MEMPOOL"))
	assert.False(t, IsAlreadyKnown("insufficient priority"))
	assert.False(t, IsAlreadyKnown(""))
}
