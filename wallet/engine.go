package wallet

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simplysats/libwallet-go/broadcast"
	"github.com/simplysats/libwallet-go/coinselect"
	"github.com/simplysats/libwallet-go/locks"
	"github.com/simplysats/libwallet-go/network"
	"github.com/simplysats/libwallet-go/script"
	"github.com/simplysats/libwallet-go/store"
	"github.com/simplysats/libwallet-go/tx"
)

// Broadcaster sends built transactions through the backend cascade.
type Broadcaster interface {
	Send(ctx context.Context, built *tx.BuiltTransaction, kind string) (*broadcast.Outcome, error)
}

// Engine is the wallet facade: it validates requests, selects coins, builds
// and signs transactions, and runs them through the broadcast protocol.
// Operations that spend from the same account are serialized; different
// accounts run concurrently.
type Engine struct {
	utxos    store.UTXOStore
	locks    store.LockStore
	lockMgr  *locks.Manager
	caster   Broadcaster
	chain    network.ChainQuery
	accounts *keyedMutex

	feeRate float64
	buffer  uint64
	log     zerolog.Logger
}

// Config carries the engine's dependencies and tunables.
type Config struct {
	UTXOStore   store.UTXOStore
	LockStore   store.LockStore
	LockManager *locks.Manager
	Broadcaster Broadcaster
	Chain       network.ChainQuery

	// FeeRate is satoshis per byte; non-positive means tx.DefaultFeeRate.
	FeeRate float64

	// SelectionBuffer is the coin-selection margin in satoshis;
	// zero means coinselect.DefaultBuffer.
	SelectionBuffer uint64

	Logger zerolog.Logger
}

// NewEngine creates a wallet engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		utxos:    cfg.UTXOStore,
		locks:    cfg.LockStore,
		lockMgr:  cfg.LockManager,
		caster:   cfg.Broadcaster,
		chain:    cfg.Chain,
		accounts: newKeyedMutex(),
		feeRate:  cfg.FeeRate,
		buffer:   cfg.SelectionBuffer,
		log:      cfg.Logger.With().Str("component", "wallet").Logger(),
	}
}

// SendResult reports a completed send.
type SendResult struct {
	TxID       string
	Fee        uint64
	Change     uint64
	AcceptedBy string
}

// SendSimple sends satoshis to one address, funded by coins held by wif.
// When utxos is nil the wallet's free default-basket outputs fund the spend.
func (e *Engine) SendSimple(ctx context.Context, wif, toAddress string, satoshis uint64,
	utxos []tx.UTXO) (*SendResult, error) {

	if satoshis == 0 {
		return nil, fmt.Errorf("%w: zero amount", ErrInvalidInput)
	}
	if _, err := script.AddressToPubKeyHash(toAddress); err != nil {
		return nil, fmt.Errorf("%w: address %q: %w", ErrInvalidInput, toAddress, err)
	}
	account, err := tx.AddressFromWIF(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	unlock := e.accounts.Lock(account)
	defer unlock()

	utxos, err = e.spendableOrGiven(utxos)
	if err != nil {
		return nil, err
	}
	selected, total, err := e.selectCoins(utxos, satoshis)
	if err != nil {
		return nil, err
	}

	built, err := tx.BuildSimpleSend(wif, toAddress, satoshis, selected, total, e.feeRate)
	if err != nil {
		return nil, err
	}
	outcome, err := e.caster.Send(ctx, built, "send")
	if err != nil {
		return nil, err
	}
	return &SendResult{
		TxID:       outcome.FinalTxID,
		Fee:        built.Fee,
		Change:     built.Change,
		AcceptedBy: outcome.AcceptedBy,
	}, nil
}

// SendMultiKey sends satoshis to one address funded by coins held under
// multiple keys; change returns to changeWIF's address.
func (e *Engine) SendMultiKey(ctx context.Context, changeWIF, toAddress string, satoshis uint64,
	utxos []tx.KeyedUTXO) (*SendResult, error) {

	if satoshis == 0 {
		return nil, fmt.Errorf("%w: zero amount", ErrInvalidInput)
	}
	if _, err := script.AddressToPubKeyHash(toAddress); err != nil {
		return nil, fmt.Errorf("%w: address %q: %w", ErrInvalidInput, toAddress, err)
	}
	account, err := tx.AddressFromWIF(changeWIF)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if len(utxos) == 0 {
		return nil, ErrNoSpendableCoins
	}

	unlock := e.accounts.Lock(account)
	defer unlock()

	candidates := make([]coinselect.Candidate, len(utxos))
	byOutpoint := make(map[tx.Outpoint]tx.KeyedUTXO, len(utxos))
	for i, u := range utxos {
		candidates[i] = coinselect.Candidate{
			TxID: u.TxID, Vout: u.Vout, Satoshis: u.Satoshis, KeyRef: u.Address,
		}
		byOutpoint[tx.Outpoint{TxID: u.TxID, Vout: u.Vout}] = u
	}
	res := coinselect.SelectKeyed(candidates, satoshis, coinselect.Options{Buffer: e.buffer})
	if !res.Sufficient {
		return nil, fmt.Errorf("%w: have %d, need %d", tx.ErrInsufficientFunds, res.Total, satoshis)
	}
	selected := make([]tx.KeyedUTXO, len(res.Selected))
	for i, c := range res.Selected {
		selected[i] = byOutpoint[tx.Outpoint{TxID: c.TxID, Vout: c.Vout}]
	}

	built, err := tx.BuildMultiKeySend(changeWIF, toAddress, satoshis, selected, res.Total, e.feeRate)
	if err != nil {
		return nil, err
	}
	outcome, err := e.caster.Send(ctx, built, "send")
	if err != nil {
		return nil, err
	}
	return &SendResult{
		TxID:       outcome.FinalTxID,
		Fee:        built.Fee,
		Change:     built.Change,
		AcceptedBy: outcome.AcceptedBy,
	}, nil
}

// SendMultiOutput sends to several recipients in one transaction.
func (e *Engine) SendMultiOutput(ctx context.Context, wif string, outputs []tx.Recipient,
	utxos []tx.UTXO) (*SendResult, error) {

	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: no outputs", ErrInvalidInput)
	}
	var sendTotal uint64
	for _, o := range outputs {
		if o.Satoshis == 0 {
			return nil, fmt.Errorf("%w: zero amount to %s", ErrInvalidInput, o.Address)
		}
		if _, err := script.AddressToPubKeyHash(o.Address); err != nil {
			return nil, fmt.Errorf("%w: address %q: %w", ErrInvalidInput, o.Address, err)
		}
		sendTotal += o.Satoshis
	}
	account, err := tx.AddressFromWIF(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	unlock := e.accounts.Lock(account)
	defer unlock()

	utxos, err = e.spendableOrGiven(utxos)
	if err != nil {
		return nil, err
	}
	selected, total, err := e.selectCoins(utxos, sendTotal)
	if err != nil {
		return nil, err
	}

	built, err := tx.BuildMultiOutputSend(wif, outputs, selected, total, e.feeRate)
	if err != nil {
		return nil, err
	}
	outcome, err := e.caster.Send(ctx, built, "send")
	if err != nil {
		return nil, err
	}
	return &SendResult{
		TxID:       outcome.FinalTxID,
		Fee:        built.Fee,
		Change:     built.Change,
		AcceptedBy: outcome.AcceptedBy,
	}, nil
}

// ConsolidateResult reports a completed consolidation.
type ConsolidateResult struct {
	TxID         string
	Fee          uint64
	Inputs       int
	Consolidated uint64
	AcceptedBy   string
}

// Consolidate sweeps the wallet's free outputs (or the given ones) into a
// single output back to wif's address.
func (e *Engine) Consolidate(ctx context.Context, wif string, utxos []tx.UTXO) (*ConsolidateResult, error) {
	account, err := tx.AddressFromWIF(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	unlock := e.accounts.Lock(account)
	defer unlock()

	utxos, err = e.spendableOrGiven(utxos)
	if err != nil {
		return nil, err
	}

	built, err := tx.BuildConsolidation(wif, utxos, e.feeRate)
	if err != nil {
		return nil, err
	}
	outcome, err := e.caster.Send(ctx, built, "consolidate")
	if err != nil {
		return nil, err
	}
	return &ConsolidateResult{
		TxID:         outcome.FinalTxID,
		Fee:          built.Fee,
		Inputs:       len(built.SpentOutpoints),
		Consolidated: built.Produced[0].Satoshis,
		AcceptedBy:   outcome.AcceptedBy,
	}, nil
}

// spendableOrGiven returns the supplied coins, or loads the wallet's free
// default-basket outputs when none were supplied.
func (e *Engine) spendableOrGiven(utxos []tx.UTXO) ([]tx.UTXO, error) {
	if utxos != nil {
		if len(utxos) == 0 {
			return nil, ErrNoSpendableCoins
		}
		return utxos, nil
	}

	records, err := e.utxos.GetSpendable(tx.BasketDefault)
	if err != nil {
		return nil, fmt.Errorf("wallet: load spendable: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoSpendableCoins
	}
	out := make([]tx.UTXO, len(records))
	for i, r := range records {
		out[i] = tx.UTXO{TxID: r.TxID, Vout: r.Vout, Satoshis: r.Satoshis, Script: r.Script}
	}
	return out, nil
}

// selectCoins runs greedy selection over the coins for target satoshis.
func (e *Engine) selectCoins(utxos []tx.UTXO, target uint64) ([]tx.UTXO, uint64, error) {
	candidates := make([]coinselect.Candidate, len(utxos))
	byOutpoint := make(map[tx.Outpoint]tx.UTXO, len(utxos))
	for i, u := range utxos {
		candidates[i] = coinselect.Candidate{TxID: u.TxID, Vout: u.Vout, Satoshis: u.Satoshis}
		byOutpoint[tx.Outpoint{TxID: u.TxID, Vout: u.Vout}] = u
	}

	res := coinselect.Select(candidates, target, coinselect.Options{Buffer: e.buffer})
	if !res.Sufficient {
		return nil, 0, fmt.Errorf("%w: have %d, need %d", tx.ErrInsufficientFunds, res.Total, target)
	}
	selected := make([]tx.UTXO, len(res.Selected))
	for i, c := range res.Selected {
		selected[i] = byOutpoint[tx.Outpoint{TxID: c.TxID, Vout: c.Vout}]
	}
	return selected, res.Total, nil
}
