package socket

import (
	"context"
	"encoding/json"

	"github.com/watchonly/mwck/address"
	"github.com/watchonly/mwck/chain"
)

// WebsocketEventKind discriminates the events the message task (and, on
// connect/disconnect/offline, the supervisor) publishes on the shared
// WebsocketEvent bus (spec §4.3).
type WebsocketEventKind int

const (
	WsAddressEvent WebsocketEventKind = iota
	WsOffline
	WsDisconnected
	WsConnected
	WsError
)

// WebsocketEvent is one value on the connection's event bus.
type WebsocketEvent struct {
	Kind    WebsocketEventKind
	Address address.Event
}

// inboundResponse mirrors the server->client push shape from spec §6.
type inboundResponse struct {
	MultiScriptpubkeyTransactions map[string]inboundAddressTxs `json:"multi-scriptpubkey-transactions"`
}

type inboundAddressTxs struct {
	Mempool   []chain.Tx `json:"mempool"`
	Confirmed []chain.Tx `json:"confirmed"`
	Removed   []chain.Tx `json:"removed"`
}

// messageManager owns the Source for one connection, grounded on
// original_source/src/socket/message.rs.
type messageManager struct {
	source     Source
	bus        *Bus[WebsocketEvent]
	disconnect *disconnectSignal
	lastResp   *lastResponse
}

func newMessageManager(source Source, bus *Bus[WebsocketEvent], disconnect *disconnectSignal, lastResp *lastResponse) *messageManager {
	return &messageManager{
		source:     source,
		bus:        bus,
		disconnect: disconnect,
		lastResp:   lastResp,
	}
}

type readResult struct {
	frame TextFrame
	err   error
}

// run reads frames until a disconnect is signaled or the source errors.
// The blocking Next() call is driven from a background goroutine so that an
// in-flight read can never prevent the disconnect signal from being
// observed promptly, mirroring the concurrent tokio::select! race in
// original_source/src/socket/message.rs.
func (m *messageManager) run(ctx context.Context, connID uint32) {
	done := m.disconnect.C()
	results := make(chan readResult, 1)

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			frame, err := m.source.Next(readCtx)
			select {
			case results <- readResult{frame, err}:
			case <-readCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return

		case res := <-results:
			if res.err != nil {
				m.disconnect.Signal()
				return
			}

			m.lastResp.touch()

			if res.frame == "" {
				continue
			}

			if err := m.handleFrame(string(res.frame)); err != nil {
				log.Errorf("failed to parse websocket response %d: %v", connID, err)
			}
		}
	}
}

func (m *messageManager) handleFrame(text string) error {
	var resp inboundResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return err
	}

	for rawScript, txs := range resp.MultiScriptpubkeyTransactions {
		script, err := chain.ScriptFromHex(rawScript)
		if err != nil {
			log.Errorf("invalid scriptpubkey in push message %q: %v", rawScript, err)
			continue
		}

		// Ordering matters: a tx migrating mempool->confirmed arrives
		// as both a removed (from mempool) and a confirmed. Applying
		// removed first yields the correct balance (spec §4.3).
		m.notify(address.Removed, script, txs.Removed)
		m.notify(address.Mempool, script, txs.Mempool)
		m.notify(address.Confirmed, script, txs.Confirmed)
	}
	return nil
}

func (m *messageManager) notify(kind address.Kind, script chain.Script, txs []chain.Tx) {
	for _, tx := range txs {
		m.bus.Publish(WebsocketEvent{
			Kind: WsAddressEvent,
			Address: address.Event{
				Kind:   kind,
				Script: script,
				Tx:     tx,
			},
		})
	}
}
