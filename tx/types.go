package tx

// Basket labels applied to produced outputs.
const (
	BasketDefault = "default"
	BasketLocks   = "locks"
)

// Outpoint identifies a transaction output by display-order txid and index.
type Outpoint struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}

// UTXO is one spendable output offered to a builder. Script holds the raw
// locking script bytes of the output being spent.
type UTXO struct {
	TxID     string `json:"txid"`
	Vout     uint32 `json:"vout"`
	Satoshis uint64 `json:"satoshis"`
	Script   []byte `json:"script"`
}

// KeyedUTXO is a UTXO with its own signing key, for spends that draw from
// heterogeneous addresses.
type KeyedUTXO struct {
	UTXO
	WIF     string `json:"wif"`
	Address string `json:"address"`
}

// Recipient is one destination of a multi-output send.
type Recipient struct {
	Address  string `json:"address"`
	Satoshis uint64 `json:"satoshis"`
}

// ProducedOutput describes an output this wallet will own once the
// transaction is accepted (change, consolidated value, created locks). The
// orchestrator inserts these as fresh UTXOs under the final txid.
type ProducedOutput struct {
	Vout          uint32
	Satoshis      uint64
	LockingScript []byte
	Address       string
	Basket        string
}

// BuiltTransaction is the ephemeral result of a builder: a fully signed
// transaction plus everything the broadcast orchestrator needs to run the
// pending/confirm/rollback protocol.
//
// TxID is computed locally from the signed bytes before any network call, so
// outputs can be marked pending without waiting on a backend-assigned id.
// The id a backend finally reports may differ; downstream recording must use
// that final id.
type BuiltTransaction struct {
	RawTx          []byte
	TxID           string
	Fee            uint64
	Change         uint64
	ChangeAddress  string
	OutputCount    int
	SpentOutpoints []Outpoint
	Produced       []ProducedOutput
}

// LockedOutput identifies a CLTV output being released.
type LockedOutput struct {
	TxID        string
	Vout        uint32
	Satoshis    uint64
	Script      []byte
	UnlockBlock uint32
}

// LockCreateResult pairs a built lock-creation transaction with the lock's
// parameters.
type LockCreateResult struct {
	Built       *BuiltTransaction
	UnlockBlock uint32
	LockVout    uint32
	LockScript  []byte
}

func outpointsOf(utxos []UTXO) []Outpoint {
	out := make([]Outpoint, len(utxos))
	for i, u := range utxos {
		out[i] = Outpoint{TxID: u.TxID, Vout: u.Vout}
	}
	return out
}
