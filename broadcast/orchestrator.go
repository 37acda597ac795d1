package broadcast

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simplysats/libwallet-go/network"
	"github.com/simplysats/libwallet-go/store"
	"github.com/simplysats/libwallet-go/tx"
)

// Outcome is the result of a successful broadcast.
type Outcome struct {
	// FinalTxID is the id the network accepted. It may differ from the
	// locally precomputed id and is the one recorded everywhere.
	FinalTxID string

	// AcceptedBy names the backend that accepted the transaction, or
	// "spent-probe" when acceptance was inferred from a spent input.
	AcceptedBy string
}

// Orchestrator runs the broadcast protocol: reserve inputs, submit through
// the backend cascade, then either commit the result or roll the
// reservation back.
type Orchestrator struct {
	backends []network.BroadcastBackend
	chain    network.ChainQuery
	store    store.UTXOStore
	health   *network.HealthTracker
	log      zerolog.Logger
}

// New creates an orchestrator. Backends are tried in the given order.
func New(backends []network.BroadcastBackend, chain network.ChainQuery,
	utxoStore store.UTXOStore, health *network.HealthTracker, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		backends: backends,
		chain:    chain,
		store:    utxoStore,
		health:   health,
		log:      log.With().Str("component", "broadcast").Logger(),
	}
}

// Send broadcasts a built transaction. kind labels the transaction in the
// history record ("send", "consolidate", "lock", "unlock").
//
// Context cancellation is honored only before the inputs are reserved: once
// the transaction may have reached a backend, abandoning the protocol
// mid-flight would leave state unaccounted for, so the remaining steps run to
// completion.
func (o *Orchestrator) Send(ctx context.Context, built *tx.BuiltTransaction, kind string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := o.store.MarkPending(built.SpentOutpoints, built.TxID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUTXOLockFailure, err)
	}
	o.log.Debug().Str("txid", built.TxID).Int("inputs", len(built.SpentOutpoints)).
		Msg("inputs reserved")

	finalTxID, acceptedBy, reasons := o.cascade(ctx, built)

	if finalTxID == "" && anyAlreadyKnown(reasons) {
		finalTxID = o.probeSpent(ctx, built)
		if finalTxID != "" {
			acceptedBy = "spent-probe"
		}
	}

	if finalTxID == "" {
		if err := o.store.Rollback(built.SpentOutpoints, built.TxID); err != nil {
			o.log.Error().Err(err).Str("txid", built.TxID).Msg("rollback failed")
			return nil, fmt.Errorf("%w: %s: %w", ErrStateStuckPending,
				formatOutpoints(built.SpentOutpoints), err)
		}
		return nil, fmt.Errorf("%w: %s", ErrBroadcastRejected, strings.Join(reasons, "; "))
	}

	if err := o.commit(built, finalTxID, kind); err != nil {
		o.log.Error().Err(err).Str("txid", finalTxID).Msg("state commit failed")
		return nil, fmt.Errorf("%w: %w", ErrRecordFailed, err)
	}

	o.log.Info().Str("txid", finalTxID).Str("backend", acceptedBy).Msg("transaction broadcast")
	return &Outcome{FinalTxID: finalTxID, AcceptedBy: acceptedBy}, nil
}

// cascade tries each backend in order, skipping ones marked down, and
// returns the first accepted txid along with every rejection reason seen.
func (o *Orchestrator) cascade(ctx context.Context, built *tx.BuiltTransaction) (finalTxID, acceptedBy string, reasons []string) {
	rawHex := hex.EncodeToString(built.RawTx)

	for _, backend := range o.backends {
		name := backend.Name()
		if o.health != nil && o.health.IsDown(name) {
			o.log.Debug().Str("backend", name).Msg("skipping backend marked down")
			continue
		}

		res, err := backend.Submit(ctx, rawHex)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if res.Status == network.SubmitAccepted && network.IsValidTxID(res.TxID) {
			return strings.ToLower(res.TxID), name, reasons
		}

		// Ambiguous answers are treated as rejections for the cascade, but
		// the raw body is logged apart so an operator can tell an untrusted
		// 200 from a definite refusal.
		if res.Status == network.SubmitAmbiguous {
			reasons = append(reasons, fmt.Sprintf("%s: ambiguous response: %s", name, res.Raw))
			o.log.Warn().Str("backend", name).Str("raw", res.Raw).
				Msg("ambiguous backend response not trusted as acceptance")
			continue
		}

		reasons = append(reasons, fmt.Sprintf("%s: %s", name, res.Reason))
		if o.health != nil && isTransportFailure(res.Reason) {
			o.health.MarkDown(name)
		}
		o.log.Warn().Str("backend", name).Str("reason", res.Reason).Msg("backend rejected transaction")
	}
	return "", "", reasons
}

// probeSpent resolves an "already known" rejection: if the network already
// carries the transaction, one of its inputs shows as spent, and the
// spending txid is the network's id for it. Probe failures resolve to "",
// re-raising the original rejection.
func (o *Orchestrator) probeSpent(ctx context.Context, built *tx.BuiltTransaction) string {
	if o.chain == nil || len(built.SpentOutpoints) == 0 {
		return ""
	}
	op := built.SpentOutpoints[0]
	spender, err := o.chain.IsOutputSpent(ctx, op.TxID, op.Vout)
	if err != nil {
		o.log.Warn().Err(err).Msg("spent probe failed")
		return ""
	}
	if spender == "" || !network.IsValidTxID(spender) {
		return ""
	}
	o.log.Info().Str("txid", spender).Msg("already-known rejection resolved via spent probe")
	return strings.ToLower(spender)
}

// commit records the accepted transaction, finalizes the spent inputs and
// inserts produced outputs, all under the final txid in one atomic unit.
func (o *Orchestrator) commit(built *tx.BuiltTransaction, finalTxID, kind string) error {
	localTxID := ""
	if finalTxID != built.TxID {
		localTxID = built.TxID
		o.log.Warn().Str("local", built.TxID).Str("final", finalTxID).
			Msg("backend assigned a different txid")
	}

	return o.store.WithAtomicUpdate(func(txn store.StateTxn) error {
		if err := txn.RecordTransaction(&store.TxRecord{
			TxID:      finalTxID,
			LocalTxID: localTxID,
			RawTx:     built.RawTx,
			Fee:       built.Fee,
			Kind:      kind,
		}); err != nil {
			return err
		}
		if err := txn.ConfirmSpent(built.SpentOutpoints, finalTxID); err != nil {
			return err
		}
		for _, p := range built.Produced {
			if err := txn.AddUTXO(&store.UTXORecord{
				TxID:     finalTxID,
				Vout:     p.Vout,
				Satoshis: p.Satoshis,
				Script:   p.LockingScript,
				Address:  p.Address,
				Basket:   p.Basket,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func anyAlreadyKnown(reasons []string) bool {
	for _, r := range reasons {
		if network.IsAlreadyKnown(r) {
			return true
		}
	}
	return false
}

func isTransportFailure(reason string) bool {
	return strings.Contains(strings.ToLower(reason), "connection failed")
}

func formatOutpoints(outpoints []tx.Outpoint) string {
	parts := make([]string, len(outpoints))
	for i, op := range outpoints {
		parts[i] = fmt.Sprintf("%s:%d", op.TxID, op.Vout)
	}
	return strings.Join(parts, ", ")
}
