// Package mwck implements a watch-only, multi-address chain observer: it
// keeps a live balance and transaction history for a set of scripts by
// merging REST historical fetches with a reconnecting websocket push feed.
// Grounded on the teacher's server.go (top-level component wiring) and
// original_source/src/wallet/mod.rs (the reconciliation protocol itself).
package mwck

import (
	"context"
	"sync"

	"github.com/go-errors/errors"

	"github.com/watchonly/mwck/address"
	"github.com/watchonly/mwck/chain"
	"github.com/watchonly/mwck/esplora"
	"github.com/watchonly/mwck/socket"
)

// Wallet is the top-level handle: it owns the REST client, the websocket
// connection manager, and one Tracker per watched script.
type Wallet struct {
	api *esplora.Client
	ws  *socket.Manager

	mu        sync.Mutex
	addresses map[string]*address.Tracker

	events *socket.Bus[Event]

	ingestOnce sync.Once
}

// New constructs a Wallet against the REST/websocket endpoints derived from
// opts. It does not connect; call Connect to bring up the websocket
// supervisor and start the streaming ingestion loop.
func New(opts Options) (*Wallet, error) {
	if opts.Hostname == "" {
		return nil, errors.New("hostname must not be empty")
	}

	transport := socket.NewWSTransport()
	w := &Wallet{
		api:       esplora.New(opts.apiURL()),
		ws:        socket.NewManager(transport, opts.wsURL()),
		addresses: make(map[string]*address.Tracker),
		events:    socket.NewBus[Event](256),
	}
	return w, nil
}

// Subscribe returns a subscription to the wallet's Event bus.
func (w *Wallet) Subscribe() *socket.Subscription[Event] {
	return w.events.Subscribe()
}

// Connect brings up the websocket connection supervisor and, the first time
// it is called, starts the streaming ingestion loop that reconciles tracker
// state against connection lifecycle and push events (spec §4.6.3).
func (w *Wallet) Connect(ctx context.Context, waitForConnection bool) {
	w.ingestOnce.Do(func() {
		go w.ingest(ctx)
	})
	w.ws.Start(ctx, waitForConnection)
}

// Disconnect tears down the websocket supervisor.
func (w *Wallet) Disconnect(ctx context.Context, waitForClose bool) {
	w.ws.Stop(ctx, waitForClose)
}

// Watch begins tracking scripts, returning their current state once any
// newly-added scripts have completed their initial history sync (spec
// §4.6.1). Scripts already being watched are left untouched and their
// current (possibly still-loading) state is returned as-is.
func (w *Wallet) Watch(ctx context.Context, scripts []chain.Script) ([]address.State, error) {
	w.ws.TrackScriptpubkeys(scripts)

	type newEntry struct {
		script  chain.Script
		tracker *address.Tracker
	}
	var fresh []newEntry

	w.mu.Lock()
	for _, script := range scripts {
		key := script.Key()
		if _, ok := w.addresses[key]; ok {
			continue
		}
		tracker := address.New(script, w.publishAddressEvent(script))
		w.addresses[key] = tracker
		fresh = append(fresh, newEntry{script: script, tracker: tracker})
	}
	w.mu.Unlock()

	for _, entry := range fresh {
		if err := w.syncAddressHistory(ctx, entry.script, entry.tracker); err != nil {
			return nil, err
		}
	}

	states := make([]address.State, 0, len(scripts))
	w.mu.Lock()
	for _, script := range scripts {
		tracker, ok := w.addresses[script.Key()]
		if !ok {
			continue
		}
		states = append(states, tracker.GetState())
	}
	w.mu.Unlock()

	return states, nil
}

// Unwatch stops tracking scripts. Removing an unwatched script is silent.
func (w *Wallet) Unwatch(ctx context.Context, scripts []chain.Script) error {
	w.mu.Lock()
	for _, script := range scripts {
		delete(w.addresses, script.Key())
	}
	w.mu.Unlock()

	w.ws.UntrackScriptpubkeys(scripts)
	return nil
}

// GetState returns a snapshot of every currently watched script's state.
func (w *Wallet) GetState() []address.State {
	w.mu.Lock()
	defer w.mu.Unlock()

	states := make([]address.State, 0, len(w.addresses))
	for _, tracker := range w.addresses {
		states = append(states, tracker.GetState())
	}
	return states
}

// GetAddressState returns the snapshot for a single watched script.
func (w *Wallet) GetAddressState(script chain.Script) (address.State, bool) {
	w.mu.Lock()
	tracker, ok := w.addresses[script.Key()]
	w.mu.Unlock()
	if !ok {
		return address.State{}, false
	}
	return tracker.GetState(), true
}

// publishAddressEvent returns an address.Publish closure that rewraps a
// tracker-level Event as a wallet-level Event on the shared bus.
func (w *Wallet) publishAddressEvent(script chain.Script) address.Publish {
	return func(evt address.Event) {
		w.events.Publish(Event{Kind: EventAddressEvent, Script: script, Address: evt})
	}
}

// ingest is the streaming ingestion loop (spec §4.6.3): it consumes the
// socket manager's WebsocketEvent stream for the lifetime of ctx.
func (w *Wallet) ingest(ctx context.Context) {
	sub := w.ws.SubscribeMessages()
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-sub.C():
			if !ok {
				return
			}
			switch evt.Kind {
			case socket.WsOffline:
				return

			case socket.WsDisconnected:
				w.events.Publish(Event{Kind: EventDisconnected})

			case socket.WsConnected:
				w.initAddresses(ctx)

			case socket.WsAddressEvent:
				w.handleAddressEvent(evt.Address, true)

			case socket.WsError:
				log.Warnf("websocket reported an error")
			}
		}
	}
}

// handleAddressEvent routes a tracker-level event to its tracker, if the
// script is currently watched. Unknown scripts are dropped with a warning
// (spec §4.6.3).
func (w *Wallet) handleAddressEvent(evt address.Event, realtime bool) {
	w.mu.Lock()
	tracker, ok := w.addresses[evt.Script.Key()]
	w.mu.Unlock()

	if !ok {
		log.Warnf("address event for unwatched script %s", evt.Script)
		return
	}
	tracker.ProcessEvent(evt, realtime)
}

// initAddresses re-issues a Subscribe for every currently watched script and
// sequentially re-syncs each tracker (spec §4.6.3). Per-address sync is
// intentionally sequential; a future bounded-concurrency sync would not
// change the AddressReady contract since it is already per-address.
func (w *Wallet) initAddresses(ctx context.Context) {
	w.mu.Lock()
	scripts := make([]chain.Script, 0, len(w.addresses))
	trackers := make([]*address.Tracker, 0, len(w.addresses))
	for _, tracker := range w.addresses {
		scripts = append(scripts, tracker.Script())
		trackers = append(trackers, tracker)
	}
	w.mu.Unlock()

	if len(scripts) == 0 {
		return
	}

	w.ws.TrackScriptpubkeys(scripts)

	for _, tracker := range trackers {
		if err := w.syncAddressHistory(ctx, tracker.Script(), tracker); err != nil {
			log.Errorf("sync address history for %s: %v", tracker.Script(), err)
		}
	}
}

// syncAddressHistory implements the initial-sync / reconciliation protocol
// (spec §4.6.4): it holds the tracker lock across the REST fetch, so
// realtime events for this script wait on that lock rather than interleave
// with the sync, prunes any stale tail the fetch no longer reports, applies
// the freshly fetched transactions, and finally clears the loading gate,
// which drains any realtime events the tracker queued while it was loading
// before the lock was taken.
func (w *Wallet) syncAddressHistory(ctx context.Context, script chain.Script, tracker *address.Tracker) error {
	tracker.Lock()
	tracker.SetLoadingLocked(true)

	current := tracker.TransactionsLocked()
	lastTxid, lastHeight, hasConfirmed := newestConfirmed(current)

	var untilTxid *chain.Txid
	var untilHeight *uint32
	if hasConfirmed {
		untilTxid = &lastTxid
		untilHeight = &lastHeight
	}

	fetched, err := w.api.FetchAddressHistory(ctx, script, untilTxid, untilHeight)
	if err != nil {
		tracker.SetLoadingLocked(false)
		tracker.Unlock()
		return errors.Errorf("sync address history for %s: %v", script, err)
	}

	fetchedTxids := make(map[chain.Txid]struct{}, len(fetched))
	for _, tx := range fetched {
		fetchedTxids[tx.Txid] = struct{}{}
	}

	for i := len(current) - 1; i >= 0; i-- {
		tx := current[i]
		stale := !tx.Status.Confirmed || !hasConfirmed || *tx.Status.BlockHeight > lastHeight
		if !stale {
			break
		}
		if _, ok := fetchedTxids[tx.Txid]; ok {
			continue
		}
		tracker.ProcessEventLocked(address.Event{
			Kind:   address.Removed,
			Script: script,
			Tx:     tx,
		}, false)
	}

	for _, tx := range fetched {
		kind := address.Mempool
		if tx.Status.Confirmed {
			kind = address.Confirmed
		}
		tracker.ProcessEventLocked(address.Event{Kind: kind, Script: script, Tx: tx}, false)
	}

	tracker.SetLoadingLocked(false)
	tracker.Unlock()

	w.events.Publish(Event{Kind: EventAddressReady, Script: script})
	return nil
}

// newestConfirmed finds the chronologically latest confirmed transaction in
// an already sorted (spec §3 order) transaction slice.
func newestConfirmed(txs []chain.Tx) (txid chain.Txid, height uint32, ok bool) {
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if tx.Status.Confirmed {
			return tx.Txid, *tx.Status.BlockHeight, true
		}
	}
	return chain.Txid{}, 0, false
}
