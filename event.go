package mwck

import (
	"fmt"

	"github.com/watchonly/mwck/address"
	"github.com/watchonly/mwck/chain"
)

// EventKind discriminates the values published on a Wallet's event bus.
type EventKind int

const (
	// EventInitializing is published once, synthetically, by callers that
	// want a consistent "just started" marker; the wallet itself does not
	// publish it (kept for API-surface parity with spec §4.6, which
	// enumerates it as a variant of the language-neutral Event type).
	EventInitializing EventKind = iota
	// EventDisconnected is published when the websocket disconnects;
	// trackers are not cleared -- they reconcile on next connect.
	EventDisconnected
	// EventAddressReady is published once a tracker's historical sync
	// (initial or post-reconnect) has completed.
	EventAddressReady
	// EventAddressEvent carries a single tracker-level transaction event.
	EventAddressEvent
)

// Event is one value on the Wallet's event bus (spec §4.6, §6).
type Event struct {
	Kind    EventKind
	Script  chain.Script
	Address address.Event
}

func (e Event) String() string {
	switch e.Kind {
	case EventInitializing:
		return "initializing wallet"
	case EventDisconnected:
		return "wallet disconnected"
	case EventAddressReady:
		return fmt.Sprintf("address ready %s", e.Script)
	case EventAddressEvent:
		return e.Address.String()
	default:
		return "unknown wallet event"
	}
}
