package network

import "strings"

// SubmitStatus classifies a broadcast attempt.
type SubmitStatus int

const (
	// SubmitRejected means the backend refused the transaction with a
	// definite error.
	SubmitRejected SubmitStatus = iota

	// SubmitAccepted means the backend acknowledged the transaction with a
	// well-formed txid.
	SubmitAccepted

	// SubmitAmbiguous means the backend answered in a way that cannot be
	// trusted in either direction: an HTTP 200 wrapping an unparseable body,
	// or a success payload without a plausible txid. Ambiguity must never be
	// treated as acceptance; the raw body is kept for diagnosis.
	SubmitAmbiguous
)

// SubmitResult is the outcome of one backend submission.
type SubmitResult struct {
	Status SubmitStatus
	TxID   string // set when accepted; the backend-reported id
	Reason string // set when rejected; backend's error text
	Raw    string // set when ambiguous; the untrusted response body
}

func accepted(txid string) *SubmitResult {
	return &SubmitResult{Status: SubmitAccepted, TxID: txid}
}

func rejected(reason string) *SubmitResult {
	return &SubmitResult{Status: SubmitRejected, Reason: reason}
}

func ambiguous(raw string) *SubmitResult {
	return &SubmitResult{Status: SubmitAmbiguous, Raw: raw}
}

// IsValidTxID reports whether s looks like a transaction id: exactly 64
// lowercase-insensitive hex characters.
func IsValidTxID(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// IsAlreadyKnown reports whether a rejection reason indicates the network has
// already seen the transaction. Backends phrase this differently; match the
// common variants.
func IsAlreadyKnown(reason string) bool {
	r := strings.ToLower(reason)
	for _, marker := range []string{
		"txn-already-known",
		"txn-already-in-mempool",
		"already in the mempool",
		"transaction already in the mempool",
		"already known",
		"257:", // bitcoind reject code for already-known
	} {
		if strings.Contains(r, marker) {
			return true
		}
	}
	return false
}
