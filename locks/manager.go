package locks

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/simplysats/libwallet-go/network"
	"github.com/simplysats/libwallet-go/script"
	"github.com/simplysats/libwallet-go/store"
	"github.com/simplysats/libwallet-go/tx"
)

// AverageBlockIntervalMs is the expected time between blocks, used when
// estimating creation heights for locks whose confirmation is unknown.
const AverageBlockIntervalMs = 600000

// Manager drives the CLTV lock lifecycle: chain detection, reconciliation
// with stored state, and phantom cleanup.
type Manager struct {
	history network.HistorySource
	chain   network.ChainQuery
	locks   store.LockStore
	log     zerolog.Logger
}

// NewManager creates a lock manager.
func NewManager(history network.HistorySource, chain network.ChainQuery,
	lockStore store.LockStore, log zerolog.Logger) *Manager {
	return &Manager{
		history: history,
		chain:   chain,
		locks:   lockStore,
		log:     log.With().Str("component", "locks").Logger(),
	}
}

// Detect scans the address history for unspent CLTV outputs owned by
// walletPKH. Outputs locked to other keys are discarded. cancel is polled
// after every network round trip; a true answer abandons the scan with
// ErrCancelled and no partial results.
//
// Spent-ness checks fail open: when the backend cannot answer, or its answer
// cannot be confirmed, the output is assumed unspent. A lock wrongly listed
// is recoverable; one wrongly dropped is not.
func (m *Manager) Detect(ctx context.Context, address string, walletPKH []byte,
	cancel func() bool) ([]*store.LockRecord, error) {

	history, err := m.history.GetHistory(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("locks: fetch history: %w", err)
	}
	if cancelled(cancel) {
		return nil, ErrCancelled
	}
	if len(history) == 0 {
		return nil, nil
	}

	txids := make([]string, 0, len(history))
	for _, item := range history {
		txids = append(txids, item.TxID)
	}

	details, err := m.history.GetTransactionDetailsBatch(ctx, txids)
	if err != nil {
		return nil, fmt.Errorf("locks: fetch transaction details: %w", err)
	}
	if cancelled(cancel) {
		return nil, ErrCancelled
	}

	var detected []*store.LockRecord
	seen := make(map[tx.Outpoint]bool)

	for _, detail := range details {
		if detail == nil {
			continue
		}
		origin := ordinalOriginOf(detail)

		for _, out := range detail.Outputs {
			scriptBytes, err := hex.DecodeString(out.ScriptPubKey.Hex)
			if err != nil {
				continue
			}
			fields := script.ParseCLTVScript(scriptBytes)
			if fields == nil {
				continue
			}
			if !bytes.Equal(fields.PublicKeyHash, walletPKH) {
				continue
			}

			op := tx.Outpoint{TxID: detail.TxID, Vout: out.N}
			if seen[op] {
				continue
			}
			seen[op] = true

			spent, err := m.isOutputSpent(ctx, op)
			if err != nil {
				return nil, err
			}
			if cancelled(cancel) {
				return nil, ErrCancelled
			}
			if spent {
				continue
			}

			// Unconfirmed transactions report block time 0; leave CreatedAt
			// zero rather than pinning it to the epoch, so downstream
			// elapsed-time estimates treat the lock as brand new.
			var createdAt time.Time
			if detail.BlockTime > 0 {
				createdAt = time.Unix(detail.BlockTime, 0)
			}

			detected = append(detected, &store.LockRecord{
				TxID:          detail.TxID,
				Vout:          out.N,
				Satoshis:      out.Satoshis(),
				Script:        scriptBytes,
				Address:       address,
				UnlockBlock:   fields.UnlockBlock,
				LockBlock:     detail.BlockHeight,
				OrdinalOrigin: origin,
				CreatedAt:     createdAt,
			})
		}
	}
	return detected, nil
}

// isOutputSpent reports whether an outpoint is spent. A claimed spend is
// confirmed by fetching the spending transaction and checking its inputs;
// any failure along the way resolves to unspent.
func (m *Manager) isOutputSpent(ctx context.Context, op tx.Outpoint) (bool, error) {
	spender, err := m.chain.IsOutputSpent(ctx, op.TxID, op.Vout)
	if err != nil {
		m.log.Warn().Err(err).Str("txid", op.TxID).Uint32("vout", op.Vout).
			Msg("spent query failed, assuming unspent")
		return false, nil
	}
	if spender == "" {
		return false, nil
	}

	detail, err := m.chain.GetTransaction(ctx, spender)
	if err != nil {
		m.log.Warn().Err(err).Str("spender", spender).
			Msg("could not confirm spend, assuming unspent")
		return false, nil
	}
	return detail.SpendsOutpoint(op.TxID, op.Vout), nil
}

// Reconcile merges chain-detected locks into preloaded state. It is a pure
// function: no I/O, no mutation of its inputs.
//
//   - A lock present in both keeps the earlier CreatedAt, and takes the
//     detected creation height only when the preloaded one is unknown.
//   - Locks only detected are adopted as-is.
//   - Preloaded locks the scan did not find are retained; detection gaps
//     must not erase known state.
func Reconcile(detected, preloaded []*store.LockRecord) []*store.LockRecord {
	byOutpoint := make(map[tx.Outpoint]*store.LockRecord, len(preloaded))
	merged := make([]*store.LockRecord, 0, len(preloaded)+len(detected))

	for _, p := range preloaded {
		cp := *p
		byOutpoint[p.Outpoint()] = &cp
		merged = append(merged, &cp)
	}

	for _, d := range detected {
		existing, ok := byOutpoint[d.Outpoint()]
		if !ok {
			cp := *d
			merged = append(merged, &cp)
			continue
		}
		if d.CreatedAt.Before(existing.CreatedAt) && !d.CreatedAt.IsZero() {
			existing.CreatedAt = d.CreatedAt
		}
		if existing.LockBlock == 0 {
			existing.LockBlock = d.LockBlock
		}
		if existing.OrdinalOrigin == "" {
			existing.OrdinalOrigin = d.OrdinalOrigin
		}
	}
	return merged
}

// EstimateLockBlock estimates the creation height of a lock first seen
// elapsedMs ago, counting back from currentHeight by the number of block
// intervals that fit, rounded half up. The estimate never goes below 1.
func EstimateLockBlock(currentHeight uint32, elapsedMs, avgBlockMs int64) uint32 {
	if avgBlockMs <= 0 {
		avgBlockMs = AverageBlockIntervalMs
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	blocksBack := uint32((elapsedMs + avgBlockMs/2) / avgBlockMs)
	if blocksBack >= currentHeight {
		return 1
	}
	return currentHeight - blocksBack
}

// Sync detects locks for an address and folds them into the store: new locks
// are inserted, known locks gain creation heights they were missing. Locks
// still unconfirmed get an estimated creation height.
func (m *Manager) Sync(ctx context.Context, address string, walletPKH []byte,
	cancel func() bool) (added int, err error) {

	detected, err := m.Detect(ctx, address, walletPKH, cancel)
	if err != nil {
		return 0, err
	}
	if len(detected) == 0 {
		return 0, nil
	}

	height, err := m.chain.GetCurrentHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("locks: fetch height: %w", err)
	}

	for _, d := range detected {
		if d.LockBlock == 0 {
			var elapsed int64
			if !d.CreatedAt.IsZero() {
				elapsed = time.Since(d.CreatedAt).Milliseconds()
			}
			d.LockBlock = EstimateLockBlock(height, elapsed, AverageBlockIntervalMs)
		}

		inserted, err := m.locks.AddLockIfNotExists(d)
		if err != nil {
			return added, fmt.Errorf("locks: store lock %s:%d: %w", d.TxID, d.Vout, err)
		}
		if inserted {
			added++
			m.log.Info().Str("txid", d.TxID).Uint32("vout", d.Vout).
				Uint32("unlock_block", d.UnlockBlock).Msg("detected lock")
			continue
		}

		// Known lock: backfill the creation height if we did not have one.
		if err := m.locks.UpdateLockBlock(d.TxID, d.Vout, d.LockBlock); err != nil &&
			!errors.Is(err, store.ErrLockBlockKnown) {
			return added, fmt.Errorf("locks: update lock block %s:%d: %w", d.TxID, d.Vout, err)
		}
	}
	return added, nil
}

// VoidPhantoms removes stored locks whose transaction the network has never
// seen, such as leftovers of a broadcast the wallet recorded but the network
// dropped. Only a definitive not-found voids a lock; any other failure skips
// it so a flaky backend cannot erase real locks.
func (m *Manager) VoidPhantoms(ctx context.Context) ([]tx.Outpoint, error) {
	locks, err := m.locks.ListLocks()
	if err != nil {
		return nil, fmt.Errorf("locks: list locks: %w", err)
	}

	var voided []tx.Outpoint
	for _, rec := range locks {
		_, err := m.chain.GetTransaction(ctx, rec.TxID)
		if err == nil {
			continue
		}
		if !errors.Is(err, network.ErrTxNotFound) {
			m.log.Warn().Err(err).Str("txid", rec.TxID).
				Msg("phantom check inconclusive, keeping lock")
			continue
		}

		if err := m.locks.DeleteLock(rec.TxID, rec.Vout); err != nil {
			return voided, fmt.Errorf("locks: delete phantom %s:%d: %w", rec.TxID, rec.Vout, err)
		}
		m.log.Info().Str("txid", rec.TxID).Uint32("vout", rec.Vout).Msg("voided phantom lock")
		voided = append(voided, rec.Outpoint())
	}
	return voided, nil
}

// TimeUntilSpendable reports how many blocks remain until the lock can be
// spent; zero means spendable now.
func TimeUntilSpendable(rec *store.LockRecord, currentHeight uint32) uint32 {
	if currentHeight >= rec.UnlockBlock {
		return 0
	}
	return rec.UnlockBlock - currentHeight
}

// ordinalOriginOf extracts the ordinal origin from a lock transaction's data
// tag output, when present.
func ordinalOriginOf(detail *network.TxDetail) string {
	for _, out := range detail.Outputs {
		scriptBytes, err := hex.DecodeString(out.ScriptPubKey.Hex)
		if err != nil {
			continue
		}
		pushes := script.ParseDataTagScript(scriptBytes)
		if len(pushes) == 2 && string(pushes[0]) == "lock" {
			return string(pushes[1])
		}
	}
	return ""
}

func cancelled(cancel func() bool) bool {
	return cancel != nil && cancel()
}
