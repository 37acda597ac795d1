package broadcast

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplysats/libwallet-go/network"
	"github.com/simplysats/libwallet-go/store"
	"github.com/simplysats/libwallet-go/tx"
)

func testTxID(fill string) string {
	return strings.Repeat(fill, 32)
}

func openTestStore(t *testing.T) *store.BoltStore {
	t.Helper()
	s, err := store.OpenBoltStore(filepath.Join(t.TempDir(), "wallet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// builtFixture seeds the store with one free input and returns a built
// transaction spending it, producing a change output at vout 1.
func builtFixture(t *testing.T, s *store.BoltStore) *tx.BuiltTransaction {
	t.Helper()
	require.NoError(t, s.AddUTXO(&store.UTXORecord{
		TxID: testTxID("aa"), Vout: 0, Satoshis: 10000, Basket: "default",
	}))
	return &tx.BuiltTransaction{
		RawTx:          []byte{0x01, 0x00, 0x00, 0x00},
		TxID:           testTxID("bb"),
		Fee:            113,
		Change:         4887,
		SpentOutpoints: []tx.Outpoint{{TxID: testTxID("aa"), Vout: 0}},
		Produced: []tx.ProducedOutput{{
			Vout: 1, Satoshis: 4887, Address: "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", Basket: "default",
		}},
	}
}

func acceptingBackend(name, txid string) *network.MockBackend {
	return &network.MockBackend{
		NameValue: name,
		SubmitFn: func(ctx context.Context, rawTxHex string) (*network.SubmitResult, error) {
			return &network.SubmitResult{Status: network.SubmitAccepted, TxID: txid}, nil
		},
	}
}

func rejectingBackend(name, reason string) *network.MockBackend {
	return &network.MockBackend{
		NameValue: name,
		SubmitFn: func(ctx context.Context, rawTxHex string) (*network.SubmitResult, error) {
			return &network.SubmitResult{Status: network.SubmitRejected, Reason: reason}, nil
		},
	}
}

func TestSendSuccess(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	o := New([]network.BroadcastBackend{acceptingBackend("explorer", built.TxID)},
		nil, s, nil, zerolog.Nop())

	outcome, err := o.Send(context.Background(), built, "send")
	require.NoError(t, err)
	assert.Equal(t, built.TxID, outcome.FinalTxID)
	assert.Equal(t, "explorer", outcome.AcceptedBy)

	spent, err := s.GetUTXO(testTxID("aa"), 0)
	require.NoError(t, err)
	assert.Equal(t, store.SpendStateSpent, spent.SpendState)
	assert.Equal(t, built.TxID, spent.SpentTxID)

	change, err := s.GetUTXO(built.TxID, 1)
	require.NoError(t, err)
	assert.Equal(t, store.SpendStateFree, change.SpendState)
	assert.Equal(t, uint64(4887), change.Satoshis)

	rec, err := s.GetTransaction(built.TxID)
	require.NoError(t, err)
	assert.Equal(t, "send", rec.Kind)
	assert.Empty(t, rec.LocalTxID)
}

func TestSendCascadesPastRejection(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	o := New([]network.BroadcastBackend{
		rejectingBackend("explorer", "insufficient fee"),
		acceptingBackend("processor-json", built.TxID),
	}, nil, s, nil, zerolog.Nop())

	outcome, err := o.Send(context.Background(), built, "send")
	require.NoError(t, err)
	assert.Equal(t, "processor-json", outcome.AcceptedBy)
}

func TestSendFinalTxIDDiffers(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)
	final := testTxID("cc")

	o := New([]network.BroadcastBackend{acceptingBackend("explorer", final)},
		nil, s, nil, zerolog.Nop())

	outcome, err := o.Send(context.Background(), built, "send")
	require.NoError(t, err)
	assert.Equal(t, final, outcome.FinalTxID)

	spent, err := s.GetUTXO(testTxID("aa"), 0)
	require.NoError(t, err)
	assert.Equal(t, final, spent.SpentTxID, "spent state carries the final id")

	_, err = s.GetUTXO(final, 1)
	assert.NoError(t, err, "produced outputs land under the final id")

	rec, err := s.GetTransaction(final)
	require.NoError(t, err)
	assert.Equal(t, built.TxID, rec.LocalTxID)
}

func TestSendMalformedTxIDIsRejection(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	o := New([]network.BroadcastBackend{
		acceptingBackend("explorer", "OK"), // accepted status, garbage txid
		acceptingBackend("processor-json", built.TxID),
	}, nil, s, nil, zerolog.Nop())

	outcome, err := o.Send(context.Background(), built, "send")
	require.NoError(t, err)
	assert.Equal(t, "processor-json", outcome.AcceptedBy)
}

func ambiguousBackend(name, raw string) *network.MockBackend {
	return &network.MockBackend{
		NameValue: name,
		SubmitFn: func(ctx context.Context, rawTxHex string) (*network.SubmitResult, error) {
			return &network.SubmitResult{Status: network.SubmitAmbiguous, Raw: raw}, nil
		},
	}
}

func TestSendCascadesPastAmbiguousResponse(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	o := New([]network.BroadcastBackend{
		ambiguousBackend("explorer", `"unexpected error text"`),
		acceptingBackend("processor-json", built.TxID),
	}, nil, s, nil, zerolog.Nop())

	outcome, err := o.Send(context.Background(), built, "send")
	require.NoError(t, err)
	assert.Equal(t, "processor-json", outcome.AcceptedBy, "an untrusted 200 never wins the cascade")
}

func TestSendAllAmbiguousRollsBack(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	o := New([]network.BroadcastBackend{
		ambiguousBackend("explorer", "<html>gateway</html>"),
	}, nil, s, nil, zerolog.Nop())

	_, err := o.Send(context.Background(), built, "send")
	require.ErrorIs(t, err, ErrBroadcastRejected)
	assert.Contains(t, err.Error(), "ambiguous response")
	assert.Contains(t, err.Error(), "<html>gateway</html>")

	rec, err := s.GetUTXO(testTxID("aa"), 0)
	require.NoError(t, err)
	assert.Equal(t, store.SpendStateFree, rec.SpendState)
}

func TestSendAllRejectedRollsBack(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	o := New([]network.BroadcastBackend{
		rejectingBackend("explorer", "bad script"),
		rejectingBackend("processor-json", "bad script"),
	}, nil, s, nil, zerolog.Nop())

	_, err := o.Send(context.Background(), built, "send")
	require.ErrorIs(t, err, ErrBroadcastRejected)
	assert.Contains(t, err.Error(), "bad script")

	rec, err := s.GetUTXO(testTxID("aa"), 0)
	require.NoError(t, err)
	assert.Equal(t, store.SpendStateFree, rec.SpendState, "inputs return to free after rejection")
}

func TestSendAlreadyKnownResolvedByProbe(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)
	spender := testTxID("dd")

	chain := &network.MockChainQuery{
		IsOutputSpentFn: func(ctx context.Context, txid string, vout uint32) (string, error) {
			assert.Equal(t, testTxID("aa"), txid)
			assert.Equal(t, uint32(0), vout)
			return spender, nil
		},
	}
	o := New([]network.BroadcastBackend{
		rejectingBackend("explorer", "257: txn-already-known"),
	}, chain, s, nil, zerolog.Nop())

	outcome, err := o.Send(context.Background(), built, "send")
	require.NoError(t, err)
	assert.Equal(t, spender, outcome.FinalTxID)
	assert.Equal(t, "spent-probe", outcome.AcceptedBy)

	rec, err := s.GetUTXO(testTxID("aa"), 0)
	require.NoError(t, err)
	assert.Equal(t, spender, rec.SpentTxID)
}

func TestSendAlreadyKnownProbeFailureStaysRejected(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	chain := &network.MockChainQuery{
		IsOutputSpentFn: func(ctx context.Context, txid string, vout uint32) (string, error) {
			return "", assert.AnError
		},
	}
	o := New([]network.BroadcastBackend{
		rejectingBackend("explorer", "txn-already-in-mempool"),
	}, chain, s, nil, zerolog.Nop())

	_, err := o.Send(context.Background(), built, "send")
	require.ErrorIs(t, err, ErrBroadcastRejected)

	rec, err := s.GetUTXO(testTxID("aa"), 0)
	require.NoError(t, err)
	assert.Equal(t, store.SpendStateFree, rec.SpendState)
}

func TestSendUnspentProbeStaysRejected(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	chain := &network.MockChainQuery{
		IsOutputSpentFn: func(ctx context.Context, txid string, vout uint32) (string, error) {
			return "", nil
		},
	}
	o := New([]network.BroadcastBackend{
		rejectingBackend("explorer", "already known"),
	}, chain, s, nil, zerolog.Nop())

	_, err := o.Send(context.Background(), built, "send")
	assert.ErrorIs(t, err, ErrBroadcastRejected)
}

// failingRollbackStore wraps a real store but refuses rollbacks.
type failingRollbackStore struct {
	store.UTXOStore
}

func (f *failingRollbackStore) Rollback(outpoints []tx.Outpoint, pendingTxID string) error {
	return assert.AnError
}

func TestSendStuckPending(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	o := New([]network.BroadcastBackend{
		rejectingBackend("explorer", "bad script"),
	}, nil, &failingRollbackStore{UTXOStore: s}, nil, zerolog.Nop())

	_, err := o.Send(context.Background(), built, "send")
	require.ErrorIs(t, err, ErrStateStuckPending)
	assert.Contains(t, err.Error(), testTxID("aa")+":0")
}

func TestSendSkipsDownBackends(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	health := network.NewHealthTracker(0)
	defer health.Stop()
	health.MarkDown("explorer")

	explorerCalled := false
	explorer := &network.MockBackend{
		NameValue: "explorer",
		SubmitFn: func(ctx context.Context, rawTxHex string) (*network.SubmitResult, error) {
			explorerCalled = true
			return &network.SubmitResult{Status: network.SubmitAccepted, TxID: built.TxID}, nil
		},
	}

	o := New([]network.BroadcastBackend{
		explorer,
		acceptingBackend("processor-json", built.TxID),
	}, nil, s, health, zerolog.Nop())

	outcome, err := o.Send(context.Background(), built, "send")
	require.NoError(t, err)
	assert.False(t, explorerCalled)
	assert.Equal(t, "processor-json", outcome.AcceptedBy)
}

func TestSendMarksTransportFailuresDown(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	health := network.NewHealthTracker(0)
	defer health.Stop()

	o := New([]network.BroadcastBackend{
		rejectingBackend("explorer", "connection failed: dial tcp: refused"),
		acceptingBackend("processor-json", built.TxID),
	}, nil, s, health, zerolog.Nop())

	_, err := o.Send(context.Background(), built, "send")
	require.NoError(t, err)
	assert.True(t, health.IsDown("explorer"))
	assert.False(t, health.IsDown("processor-json"))
}

func TestSendReservationFailureTouchesNoBackend(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	// Reserve the input under another transaction first.
	require.NoError(t, s.MarkPending(built.SpentOutpoints, testTxID("ee")))

	called := false
	backend := &network.MockBackend{
		NameValue: "explorer",
		SubmitFn: func(ctx context.Context, rawTxHex string) (*network.SubmitResult, error) {
			called = true
			return &network.SubmitResult{Status: network.SubmitAccepted, TxID: built.TxID}, nil
		},
	}
	o := New([]network.BroadcastBackend{backend}, nil, s, nil, zerolog.Nop())

	_, err := o.Send(context.Background(), built, "send")
	require.ErrorIs(t, err, ErrUTXOLockFailure)
	assert.False(t, called)
}

func TestSendHonorsCancellationBeforeReserving(t *testing.T) {
	s := openTestStore(t)
	built := builtFixture(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New([]network.BroadcastBackend{acceptingBackend("explorer", built.TxID)},
		nil, s, nil, zerolog.Nop())

	_, err := o.Send(ctx, built, "send")
	require.ErrorIs(t, err, context.Canceled)

	rec, err := s.GetUTXO(testTxID("aa"), 0)
	require.NoError(t, err)
	assert.Equal(t, store.SpendStateFree, rec.SpendState)
}
