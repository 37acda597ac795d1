// Package coinselect picks unspent outputs to fund a spend.
//
// Selection is a deliberately greedy prefix accumulation over the candidates
// in the order given: callers that want fewer inputs pre-sort descending,
// callers that want to sweep dust pre-sort ascending. No knapsack
// minimization is attempted and no consolidation heuristic is applied.
package coinselect

// Candidate is one spendable output offered to the selector.
type Candidate struct {
	TxID     string
	Vout     uint32
	Satoshis uint64

	// KeyRef identifies the signing key for multi-key spends. The selector
	// itself is address-agnostic and never inspects it.
	KeyRef string
}

// Options tunes selection behavior.
type Options struct {
	// Buffer is a fixed satoshi margin added to the target before the real,
	// size-dependent fee is known. It only exists to avoid a near-miss
	// reselection once the fee is computed; it is not a fee estimate. The
	// original wallet used 100/200/500 at different call sites with no
	// documented rationale, so it is a tunable here.
	Buffer uint64
}

// DefaultBuffer is the selection margin used when Options.Buffer is zero.
const DefaultBuffer = uint64(200)

// Result reports the outcome of a selection pass.
type Result struct {
	Selected []Candidate
	Total    uint64
	// Sufficient is false when even the full candidate set cannot cover
	// target+buffer; Selected then holds every candidate.
	Sufficient bool
}

// SelectKeyed is Select for multi-key spends: every candidate must carry a
// KeyRef naming its signing key. Selection behavior is identical; the split
// exists so single-key call sites cannot accidentally mix keyed candidates.
func SelectKeyed(candidates []Candidate, target uint64, opts Options) Result {
	return Select(candidates, target, opts)
}

// Select accumulates candidates in order until the running total covers
// target plus the fee buffer.
func Select(candidates []Candidate, target uint64, opts Options) Result {
	buffer := opts.Buffer
	if buffer == 0 {
		buffer = DefaultBuffer
	}
	need := target + buffer

	var res Result
	for _, c := range candidates {
		if res.Total >= need {
			break
		}
		res.Selected = append(res.Selected, c)
		res.Total += c.Satoshis
	}
	res.Sufficient = res.Total >= need
	return res
}
