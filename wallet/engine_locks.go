package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/simplysats/libwallet-go/locks"
	"github.com/simplysats/libwallet-go/script"
	"github.com/simplysats/libwallet-go/store"
	"github.com/simplysats/libwallet-go/tx"
)

// CreateLockResult reports a completed lock creation.
type CreateLockResult struct {
	TxID        string
	LockVout    uint32
	UnlockBlock uint32
	Fee         uint64
	AcceptedBy  string
}

// CreateLock locks satoshis under a CLTV script until the chain is
// unlockBlocks past its current height. ordinalOrigin, when set, tags the
// lock transaction with the wrapped ordinal's origin outpoint.
func (e *Engine) CreateLock(ctx context.Context, wif string, satoshis uint64, unlockBlocks uint32,
	ordinalOrigin string, utxos []tx.UTXO) (*CreateLockResult, error) {

	if satoshis == 0 || unlockBlocks == 0 {
		return nil, fmt.Errorf("%w: zero amount or duration", ErrInvalidInput)
	}
	account, err := tx.AddressFromWIF(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	unlock := e.accounts.Lock(account)
	defer unlock()

	height, err := e.chain.GetCurrentHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet: fetch height: %w", err)
	}

	utxos, err = e.spendableOrGiven(utxos)
	if err != nil {
		return nil, err
	}
	selected, total, err := e.selectCoins(utxos, satoshis)
	if err != nil {
		return nil, err
	}

	res, err := tx.BuildLockCreate(wif, satoshis, unlockBlocks, height, selected, total, e.feeRate, ordinalOrigin)
	if err != nil {
		return nil, err
	}
	outcome, err := e.caster.Send(ctx, res.Built, "lock")
	if err != nil {
		return nil, err
	}

	// Record the lock under the final txid; the lock output already landed
	// in the locks basket via the broadcast commit.
	if _, err := e.locks.AddLockIfNotExists(&store.LockRecord{
		TxID:          outcome.FinalTxID,
		Vout:          res.LockVout,
		Satoshis:      satoshis,
		Script:        res.LockScript,
		Address:       account,
		UnlockBlock:   res.UnlockBlock,
		LockBlock:     height + 1, // earliest block it can confirm in
		OrdinalOrigin: ordinalOrigin,
	}); err != nil {
		return nil, fmt.Errorf("wallet: record lock: %w", err)
	}

	e.log.Info().Str("txid", outcome.FinalTxID).Uint32("unlock_block", res.UnlockBlock).
		Uint64("satoshis", satoshis).Msg("lock created")
	return &CreateLockResult{
		TxID:        outcome.FinalTxID,
		LockVout:    res.LockVout,
		UnlockBlock: res.UnlockBlock,
		Fee:         res.Built.Fee,
		AcceptedBy:  outcome.AcceptedBy,
	}, nil
}

// ReleaseLockResult reports a completed lock release.
type ReleaseLockResult struct {
	TxID       string
	Satoshis   uint64
	Fee        uint64
	AcceptedBy string
}

// ReleaseLock spends a matured lock back to toAddress. Fails while the chain
// has not reached the unlock height, when the lock was already released, or
// while a previous release is still in flight.
func (e *Engine) ReleaseLock(ctx context.Context, wif, lockTxID string, lockVout uint32,
	toAddress string) (*ReleaseLockResult, error) {

	if _, err := script.AddressToPubKeyHash(toAddress); err != nil {
		return nil, fmt.Errorf("%w: address %q: %w", ErrInvalidInput, toAddress, err)
	}
	account, err := tx.AddressFromWIF(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	unlock := e.accounts.Lock(account)
	defer unlock()

	lock, err := e.locks.GetLock(lockTxID, lockVout)
	if err != nil {
		return nil, err
	}
	if lock.UnlockedAt != nil {
		return nil, fmt.Errorf("%w: %s:%d", ErrLockAlreadyReleased, lockTxID, lockVout)
	}

	// The lock output may be tracked as a UTXO; refuse to double-spend one
	// that is reserved by an in-flight broadcast.
	if rec, err := e.utxos.GetUTXO(lockTxID, lockVout); err == nil {
		switch rec.SpendState {
		case store.SpendStatePending:
			return nil, fmt.Errorf("%w: %s:%d reserved by %s", ErrLockBusy, lockTxID, lockVout, rec.PendingTxID)
		case store.SpendStateSpent:
			return nil, fmt.Errorf("%w: %s:%d spent by %s", ErrLockAlreadyReleased, lockTxID, lockVout, rec.SpentTxID)
		}
	}

	height, err := e.chain.GetCurrentHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet: fetch height: %w", err)
	}

	built, err := tx.BuildLockRelease(wif, tx.LockedOutput{
		TxID:        lock.TxID,
		Vout:        lock.Vout,
		Satoshis:    lock.Satoshis,
		Script:      lock.Script,
		UnlockBlock: lock.UnlockBlock,
	}, toAddress, height, e.feeRate)
	if err != nil {
		return nil, err
	}

	outcome, err := e.caster.Send(ctx, built, "unlock")
	if err != nil {
		return nil, err
	}

	if err := e.locks.MarkUnlocked(lock.TxID, lock.Vout, time.Now()); err != nil {
		return nil, fmt.Errorf("wallet: mark unlocked: %w", err)
	}

	e.log.Info().Str("txid", outcome.FinalTxID).Str("lock", lockTxID).Msg("lock released")
	return &ReleaseLockResult{
		TxID:       outcome.FinalTxID,
		Satoshis:   built.Produced[0].Satoshis,
		Fee:        built.Fee,
		AcceptedBy: outcome.AcceptedBy,
	}, nil
}

// GetLocks lists the wallet's unreleased locks with maturity computed
// against the current chain height.
func (e *Engine) GetLocks(ctx context.Context) ([]store.LockStatus, error) {
	height, err := e.chain.GetCurrentHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet: fetch height: %w", err)
	}
	return e.locks.GetLocks(height)
}

// SyncLocks scans the chain for locks paying wif's key and folds them into
// the store. cancel is polled between network round trips.
func (e *Engine) SyncLocks(ctx context.Context, wif string, cancel func() bool) (int, error) {
	account, err := tx.AddressFromWIF(wif)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	pubKey, err := tx.PubKeyFromWIF(wif)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	// Syncs take the same account mutex as spends so a scan cannot interleave
	// with an in-flight send's lock bookkeeping.
	unlock := e.accounts.Lock(account)
	defer unlock()

	return e.lockMgr.Sync(ctx, account, script.Hash160(pubKey), cancel)
}

// ReconcileLocks merges chain-detected locks into preloaded records without
// touching the store.
func (e *Engine) ReconcileLocks(detected, preloaded []*store.LockRecord) []*store.LockRecord {
	return locks.Reconcile(detected, preloaded)
}

// VoidPhantomLocks drops stored locks whose transactions the network has
// definitively never seen.
func (e *Engine) VoidPhantomLocks(ctx context.Context) ([]tx.Outpoint, error) {
	return e.lockMgr.VoidPhantoms(ctx)
}
