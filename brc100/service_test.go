package brc100

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplysats/libwallet-go/broadcast"
	"github.com/simplysats/libwallet-go/network"
	"github.com/simplysats/libwallet-go/script"
	"github.com/simplysats/libwallet-go/store"
	"github.com/simplysats/libwallet-go/tx"
	"github.com/simplysats/libwallet-go/wallet"
)

const (
	testWIF1     = "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn"
	testAddress1 = "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"
	testAddress2 = "1cMh228HTCiwS8ZsaakH8A8wze1JR5ZsP"
)

type stubBroadcaster struct{}

func (stubBroadcaster) Send(_ context.Context, built *tx.BuiltTransaction, _ string) (*broadcast.Outcome, error) {
	return &broadcast.Outcome{FinalTxID: built.TxID, AcceptedBy: "explorer"}, nil
}

func testService(t *testing.T) (*Service, *store.BoltStore) {
	t.Helper()
	s, err := store.OpenBoltStore(filepath.Join(t.TempDir(), "wallet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	chain := &network.MockChainQuery{
		GetCurrentHeightFn: func(ctx context.Context) (uint32, error) { return 800000, nil },
	}
	engine := wallet.NewEngine(wallet.Config{
		UTXOStore:   s,
		LockStore:   s,
		Broadcaster: stubBroadcaster{},
		Chain:       chain,
		Logger:      zerolog.Nop(),
	})

	registry := NewRegistry(0, 0)
	t.Cleanup(registry.Stop)
	return NewService(engine, registry, zerolog.Nop()), s
}

func fundWallet(t *testing.T, s *store.BoltStore, satoshis uint64) {
	t.Helper()
	lock, err := script.AddressToLockingScript(testAddress1)
	require.NoError(t, err)
	require.NoError(t, s.AddUTXO(&store.UTXORecord{
		TxID:     strings.Repeat("aa", 32),
		Vout:     0,
		Satoshis: satoshis,
		Script:   lock,
		Basket:   tx.BasketDefault,
	}))
}

func TestHandleCreateAction(t *testing.T) {
	svc, s := testService(t)
	fundWallet(t, s, 20000)

	res, err := svc.HandleCreateAction(context.Background(), testWIF1, CreateActionParams{
		Description: "pay two",
		Outputs: []tx.Recipient{
			{Address: testAddress2, Satoshis: 4000},
			{Address: testAddress1, Satoshis: 6000},
		},
	})
	require.NoError(t, err)
	assert.Len(t, res.TxID, 64)
	assert.Equal(t, uint64(10000), res.Satoshis)
	assert.NotEmpty(t, res.RequestID)

	// The request resolved with the same outcome.
	assert.ErrorIs(t, svc.Registry().Resolve(res.RequestID, Response{}), ErrRequestNotFound)
}

func TestHandleCreateActionValidation(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.HandleCreateAction(context.Background(), testWIF1, CreateActionParams{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestHandleCreateActionEngineFailure(t *testing.T) {
	svc, _ := testService(t)

	// No coins in the wallet.
	_, err := svc.HandleCreateAction(context.Background(), testWIF1, CreateActionParams{
		Outputs: []tx.Recipient{{Address: testAddress2, Satoshis: 4000}},
	})
	assert.ErrorIs(t, err, wallet.ErrNoSpendableCoins)
}

func TestHandleLockBSV(t *testing.T) {
	svc, s := testService(t)
	fundWallet(t, s, 20000)

	res, err := svc.HandleLockBSV(context.Background(), testWIF1, LockParams{
		Satoshis:     5000,
		UnlockBlocks: 100,
	})
	require.NoError(t, err)
	assert.Len(t, res.TxID, 64)
	assert.Equal(t, uint32(800100), res.UnlockBlock)

	lock, err := s.GetLock(res.TxID, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), lock.Satoshis)
}

func TestHandleLockBSVValidation(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.HandleLockBSV(context.Background(), testWIF1, LockParams{Satoshis: 0, UnlockBlocks: 100})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.HandleLockBSV(context.Background(), testWIF1, LockParams{Satoshis: 5000, UnlockBlocks: 0})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestHandleUnlockBSV(t *testing.T) {
	svc, s := testService(t)

	pubKey, err := tx.PubKeyFromWIF(testWIF1)
	require.NoError(t, err)
	lockScript, err := script.EncodeCLTVScript(pubKey, 800000)
	require.NoError(t, err)
	lockTxID := strings.Repeat("cc", 32)
	_, err = s.AddLockIfNotExists(&store.LockRecord{
		TxID:        lockTxID,
		Vout:        0,
		Satoshis:    5000,
		Script:      lockScript,
		Address:     testAddress1,
		UnlockBlock: 800000,
	})
	require.NoError(t, err)

	res, err := svc.HandleUnlockBSV(context.Background(), testWIF1, UnlockParams{
		TxID:      lockTxID,
		Vout:      0,
		ToAddress: testAddress1,
	})
	require.NoError(t, err)
	assert.Len(t, res.TxID, 64)
	assert.Equal(t, uint64(4895), res.Satoshis)
}

func TestHandleUnlockBSVValidation(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.HandleUnlockBSV(context.Background(), testWIF1, UnlockParams{ToAddress: testAddress1})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.HandleUnlockBSV(context.Background(), testWIF1, UnlockParams{TxID: strings.Repeat("cc", 32)})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
