package socket

import (
	"context"

	"github.com/watchonly/mwck/chain"
)

// ControlEventKind discriminates the four intents the control task
// understands (spec §4.2).
type ControlEventKind int

const (
	CtlSubscribe ControlEventKind = iota
	CtlUnsubscribe
	CtlPing
	CtlClose
)

// ControlEvent is one caller intent destined for the control task's
// mailbox.
type ControlEvent struct {
	Kind    ControlEventKind
	Scripts []chain.Script
}

// controlManager owns the Sink for one connection and maintains the
// authoritative active script-set for that connection (spec §4.2),
// grounded on original_source/src/socket/control.rs.
type controlManager struct {
	sink       Sink
	mailbox    chan ControlEvent
	disconnect *disconnectSignal
	closeAck   chan struct{}

	activeSpks map[string]chain.Script
}

func newControlManager(sink Sink, mailbox chan ControlEvent, disconnect *disconnectSignal, closeAck chan struct{}) *controlManager {
	return &controlManager{
		sink:       sink,
		mailbox:    mailbox,
		disconnect: disconnect,
		closeAck:   closeAck,
		activeSpks: make(map[string]chain.Script),
	}
}

// run processes control events until a send failure (signals disconnect),
// an explicit Close (closes the sink, fires the close-ack), or an observed
// disconnect signal (exits without closing the sink).
func (m *controlManager) run(ctx context.Context, connID uint32) {
	done := m.disconnect.C()

	for {
		select {
		case <-done:
			return

		case event := <-m.mailbox:
			switch event.Kind {
			case CtlClose:
				_ = m.sink.Close()
				if m.closeAck != nil {
					close(m.closeAck)
				}
				return

			case CtlPing:
				if err := m.sink.Send(ctx, TextFrame(`{"action":"ping"}`)); err != nil {
					m.disconnect.Signal()
					return
				}

			case CtlSubscribe:
				changed := false
				for _, spk := range event.Scripts {
					key := spk.Key()
					if _, ok := m.activeSpks[key]; !ok {
						m.activeSpks[key] = spk
						changed = true
					}
				}
				if changed {
					if err := m.sendActiveSet(ctx); err != nil {
						m.disconnect.Signal()
						return
					}
				}

			case CtlUnsubscribe:
				changed := false
				for _, spk := range event.Scripts {
					key := spk.Key()
					if _, ok := m.activeSpks[key]; ok {
						delete(m.activeSpks, key)
						changed = true
					}
				}
				if changed {
					if err := m.sendActiveSet(ctx); err != nil {
						m.disconnect.Signal()
						return
					}
				}
			}
		}
	}
}

// sendActiveSet emits the full active script-set as a single
// state-replacing frame (spec §4.2's rationale: this is deliberately
// idempotent across reconnects, and implementers MUST NOT optimize to
// deltas -- spec §9).
func (m *controlManager) sendActiveSet(ctx context.Context) error {
	frame, err := encodeTrackScriptpubkeys(m.activeSpks)
	if err != nil {
		return err
	}
	return m.sink.Send(ctx, frame)
}
