package address

import (
	"sync"

	"github.com/watchonly/mwck/chain"
)

// State is a point-in-time snapshot of a Tracker: a script, its
// chronologically-ordered transactions (spec §3 total order), and the
// balances those transactions imply.
type State struct {
	Script       chain.Script
	Transactions []chain.Tx
	Balances     chain.Balances
}

// Publish delivers an Event produced by a Tracker to whatever fan-out the
// owner (the wallet) wires up. Taking this as a plain function rather than
// an interface back into the wallet package avoids a package import cycle
// between address and its caller.
type Publish func(Event)

// Tracker is the per-script reconciliation state machine described in spec
// §4.7: it folds add/remove transaction events into a balance and
// transaction set, buffering realtime events while a historical sync is in
// flight so that the sync's own events apply first.
type Tracker struct {
	mu sync.Mutex

	script       chain.Script
	transactions map[chain.Txid]chain.Tx
	balances     chain.Balances
	queue        []Event
	loading      bool
	publish      Publish
}

// New creates a Tracker for script with no prior history. loading starts
// true: the owner is expected to immediately kick off a history sync and
// call SetLoading(false) once it completes.
func New(script chain.Script, publish Publish) *Tracker {
	return &Tracker{
		script:       script,
		transactions: make(map[chain.Txid]chain.Tx),
		loading:      true,
		publish:      publish,
	}
}

// NewFromState rebuilds a Tracker from a previously captured State,
// replaying its transactions through addTransaction so balances are
// recomputed consistently.
func NewFromState(state State, publish Publish) *Tracker {
	t := New(state.Script, publish)
	for _, tx := range state.Transactions {
		t.addTransaction(tx)
	}
	return t
}

// GetState returns a snapshot of the tracker's current transactions
// (rendered in spec §3's total order) and balances.
func (t *Tracker) GetState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.getStateLocked()
}

func (t *Tracker) getStateLocked() State {
	txs := make([]chain.Tx, 0, len(t.transactions))
	for _, tx := range t.transactions {
		txs = append(txs, tx)
	}
	chain.SortTransactions(txs)
	return State{
		Script:       t.script,
		Transactions: txs,
		Balances:     t.balances,
	}
}

// ProcessEvent applies event to the tracker. When realtime is true and the
// tracker is currently loading historical state, the event is queued rather
// than applied, so that it cannot be reordered ahead of the sync's own
// events (spec §4.6.4, §4.7, §8 invariant 3).
func (t *Tracker) ProcessEvent(event Event, realtime bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processEventLocked(event, realtime)
}

func (t *Tracker) processEventLocked(event Event, realtime bool) {
	if realtime && t.loading {
		t.queue = append(t.queue, event)
		return
	}

	switch event.Kind {
	case Mempool:
		t.addTransaction(event.Tx)
		t.publishLocked(Event{Kind: Mempool, Script: t.script, Tx: event.Tx})
	case Confirmed:
		t.addTransaction(event.Tx)
		t.publishLocked(Event{Kind: Confirmed, Script: t.script, Tx: event.Tx})
	case Removed:
		t.removeTransaction(event.Tx.Txid)
		// Corrected per spec §9's open question: the original
		// implementation rebroadcasts removals wrapped in a
		// Confirmed event, which it calls out as a bug. Emit Removed.
		t.publishLocked(Event{Kind: Removed, Script: t.script, Tx: event.Tx})
	}
}

func (t *Tracker) publishLocked(event Event) {
	if t.publish != nil {
		t.publish(event)
	}
}

// SetLoading toggles the loading gate. Transitioning from true to false
// drains any events queued during the sync window, applying them in FIFO
// order as non-realtime events.
func (t *Tracker) SetLoading(loading bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loading && !loading {
		t.drainQueueLocked()
	}
	t.loading = loading
}

func (t *Tracker) drainQueueLocked() {
	queue := t.queue
	t.queue = nil
	for _, event := range queue {
		t.processEventLocked(event, false)
	}
}

// addTransaction idempotently applies tx's balance contribution. If a
// version of tx is already stored, its prior contribution is first undone
// via removeTransaction, so re-applying a tx (e.g. a mempool->confirmed
// status transition) moves its value between balance sides with zero net
// drift rather than double-counting.
func (t *Tracker) addTransaction(tx chain.Tx) {
	if _, ok := t.transactions[tx.Txid]; ok {
		t.removeTransaction(tx.Txid)
	}

	for _, in := range tx.Vin {
		if in.Prevout == nil || !in.Prevout.Script.Equal(t.script) {
			continue
		}
		if tx.Status.Confirmed {
			t.balances.Confirmed.Spent += in.Prevout.Value
		} else {
			t.balances.Mempool.Spent += in.Prevout.Value
		}
	}

	for _, out := range tx.Vout {
		if !out.Script.Equal(t.script) {
			continue
		}
		if tx.Status.Confirmed {
			t.balances.Confirmed.Funded += out.Value
		} else {
			t.balances.Mempool.Funded += out.Value
		}
	}

	t.transactions[tx.Txid] = tx
}

// removeTransaction reverses the balance contribution of the stored
// version of txid, if any, and removes it from the transaction set.
func (t *Tracker) removeTransaction(txid chain.Txid) {
	tx, ok := t.transactions[txid]
	if !ok {
		return
	}
	delete(t.transactions, txid)

	for _, in := range tx.Vin {
		if in.Prevout == nil || !in.Prevout.Script.Equal(t.script) {
			continue
		}
		if tx.Status.Confirmed {
			t.balances.Confirmed.Spent -= in.Prevout.Value
		} else {
			t.balances.Mempool.Spent -= in.Prevout.Value
		}
	}

	for _, out := range tx.Vout {
		if !out.Script.Equal(t.script) {
			continue
		}
		if tx.Status.Confirmed {
			t.balances.Confirmed.Funded -= out.Value
		} else {
			t.balances.Mempool.Funded -= out.Value
		}
	}
}

// NewestConfirmed returns the txid and block height of the chronologically
// latest confirmed transaction known to the tracker, or ok=false if none is
// confirmed. It takes the tracker lock itself; the sync protocol (spec
// §4.6.4), which already holds the lock, runs the same search over
// TransactionsLocked instead.
func (t *Tracker) NewestConfirmed() (txid chain.Txid, height uint32, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.getStateLocked()
	for i := len(state.Transactions) - 1; i >= 0; i-- {
		tx := state.Transactions[i]
		if tx.Status.Confirmed {
			return tx.Txid, *tx.Status.BlockHeight, true
		}
	}
	return chain.Txid{}, 0, false
}

// Script returns the script this tracker watches.
func (t *Tracker) Script() chain.Script {
	return t.script
}

// Lock and Unlock expose the tracker's mutex directly for callers (the
// sync protocol, spec §4.6.4) that need to hold it across several
// operations -- acquire tracker state, issue an HTTP request, then mutate.
// This mirrors the teacher's own per-entry-locked map pattern
// (peer.go's activeChanMtx guarding activeChannels) rather than hiding the
// lock behind a larger do-everything method.
func (t *Tracker) Lock()   { t.mu.Lock() }
func (t *Tracker) Unlock() { t.mu.Unlock() }

// TransactionsLocked returns the chronologically-ordered transaction
// snapshot. The caller must hold the tracker lock (via Lock/Unlock) for the
// duration of use.
func (t *Tracker) TransactionsLocked() []chain.Tx {
	state := t.getStateLocked()
	return state.Transactions
}

// ProcessEventLocked is ProcessEvent for a caller that already holds the
// tracker lock.
func (t *Tracker) ProcessEventLocked(event Event, realtime bool) {
	t.processEventLocked(event, realtime)
}

// SetLoadingLocked is SetLoading for a caller that already holds the
// tracker lock.
func (t *Tracker) SetLoadingLocked(loading bool) {
	if t.loading && !loading {
		t.drainQueueLocked()
	}
	t.loading = loading
}

// GetStateLocked is GetState for a caller that already holds the tracker
// lock.
func (t *Tracker) GetStateLocked() State {
	return t.getStateLocked()
}
