package network

import "context"

// BroadcastBackend is one submission endpoint in the broadcast cascade.
type BroadcastBackend interface {
	// Name identifies the backend in logs and health tracking.
	Name() string

	// Submit sends a raw transaction (hex) to the backend. The returned
	// SubmitResult classifies the outcome; err is reserved for local
	// failures such as request construction.
	Submit(ctx context.Context, rawTxHex string) (*SubmitResult, error)
}

// ChainQuery answers point questions about chain state.
type ChainQuery interface {
	// IsOutputSpent returns the txid of the transaction spending the given
	// outpoint, or "" when the outpoint is unspent.
	IsOutputSpent(ctx context.Context, txid string, vout uint32) (string, error)

	// GetTransaction fetches a transaction by id. Returns ErrTxNotFound
	// only when the backend definitively reports the tx does not exist.
	GetTransaction(ctx context.Context, txid string) (*TxDetail, error)

	// GetCurrentHeight returns the current chain tip height.
	GetCurrentHeight(ctx context.Context) (uint32, error)
}

// HistorySource lists the transaction history of an address.
type HistorySource interface {
	// GetHistory returns every transaction touching the address.
	GetHistory(ctx context.Context, address string) ([]TxHistoryItem, error)

	// GetTransactionDetailsBatch fetches full details for a set of txids.
	// The result preserves request order; entries the backend does not know
	// are nil.
	GetTransactionDetailsBatch(ctx context.Context, txids []string) ([]*TxDetail, error)
}

// TxHistoryItem is one entry of an address history.
type TxHistoryItem struct {
	TxID   string `json:"tx_hash"`
	Height int64  `json:"height"` // 0 or negative while unconfirmed
}

// TxDetail is a decoded transaction as reported by an explorer.
type TxDetail struct {
	TxID        string     `json:"txid"`
	BlockHash   string     `json:"blockhash"`
	BlockHeight uint32     `json:"blockheight"`
	BlockTime   int64      `json:"blocktime"`
	Inputs      []TxInput  `json:"vin"`
	Outputs     []TxOutput `json:"vout"`
}

// TxInput is one input of a decoded transaction.
type TxInput struct {
	SourceTxID string `json:"txid"`
	SourceVout uint32 `json:"vout"`
}

// TxOutput is one output of a decoded transaction.
type TxOutput struct {
	Value        float64        `json:"value"` // whole coins
	N            uint32         `json:"n"`
	ScriptPubKey ScriptPubKeyTD `json:"scriptPubKey"`
}

// ScriptPubKeyTD carries the locking script of a decoded output.
type ScriptPubKeyTD struct {
	Hex       string   `json:"hex"`
	Addresses []string `json:"addresses"`
}

// Satoshis converts the whole-coin output value to satoshis.
func (o TxOutput) Satoshis() uint64 {
	return uint64(o.Value*1e8 + 0.5)
}

// SpendsOutpoint reports whether the transaction spends the given outpoint.
func (d *TxDetail) SpendsOutpoint(txid string, vout uint32) bool {
	for _, in := range d.Inputs {
		if in.SourceTxID == txid && in.SourceVout == vout {
			return true
		}
	}
	return false
}
