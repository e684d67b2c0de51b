// Package address implements the per-script reconciliation engine: folding
// historical and streamed transactions into a balance and transaction set
// while preserving exactly-once semantics across a loading window.
package address

import (
	"fmt"

	"github.com/watchonly/mwck/chain"
)

// Kind discriminates the three ways a transaction can be reported for a
// script.
type Kind int

const (
	// Mempool reports a newly broadcast, unconfirmed transaction.
	Mempool Kind = iota
	// Confirmed reports a transaction included in a block.
	Confirmed
	// Removed reports a transaction that should no longer be considered
	// part of the script's history (dropped from the mempool, or
	// reorged out of a block).
	Removed
)

func (k Kind) String() string {
	switch k {
	case Mempool:
		return "mempool"
	case Confirmed:
		return "confirmed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a single transaction report for a script, either fetched during
// history sync or pushed over the websocket.
type Event struct {
	Kind   Kind
	Script chain.Script
	Tx     chain.Tx
}

func (e Event) String() string {
	return fmt.Sprintf("%s | %s | %s", e.Kind, e.Script, e.Tx.Txid)
}
