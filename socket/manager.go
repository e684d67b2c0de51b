package socket

import (
	"context"
	"sync"
	"time"

	"github.com/watchonly/mwck/chain"
)

// dialTimeout bounds how long a single connection attempt may take.
const dialTimeout = 60 * time.Second

// reconnectCooldown is the deliberate back-pressure between a disconnect
// and the next connection attempt (spec §4.5).
const reconnectCooldown = 30 * time.Second

// Manager is the connection supervisor (spec §4.5): a state machine over
// Status that brings up and tears down the control, message and heartbeat
// tasks for each connection attempt, with a rate-limited reconnect.
// Grounded on original_source/src/socket/connection.rs::Manager.
type Manager struct {
	transport Transport
	wsURL     string

	statusBus *Bus[Status]
	eventBus  *Bus[WebsocketEvent]

	// mailbox is the control task's mailbox. It is long-lived across
	// reconnects: messages queued while disconnected are delivered to
	// whichever control task starts next (spec §5's "lossy-on-overflow
	// is acceptable only if subscription changes are reissued on
	// reconnect", which the wallet layer guarantees via initAddresses).
	mailbox chan ControlEvent

	runOnce sync.Once
}

// NewManager constructs a Manager that will dial wsURL via transport.
func NewManager(transport Transport, wsURL string) *Manager {
	return &Manager{
		transport: transport,
		wsURL:     wsURL,
		statusBus: NewBus[Status](1),
		eventBus:  NewBus[WebsocketEvent](256),
		mailbox:   make(chan ControlEvent, 256),
	}
}

// SubscribeStatus returns a subscription to connection Status changes.
func (m *Manager) SubscribeStatus() *Subscription[Status] {
	return m.statusBus.Subscribe()
}

// SubscribeMessages returns a subscription to the WebsocketEvent bus.
func (m *Manager) SubscribeMessages() *Subscription[WebsocketEvent] {
	return m.eventBus.Subscribe()
}

// TrackScriptpubkeys asks the control task to add scripts to the active
// set, re-emitting the full set if it changed.
func (m *Manager) TrackScriptpubkeys(scripts []chain.Script) {
	m.send(ControlEvent{Kind: CtlSubscribe, Scripts: scripts})
}

// UntrackScriptpubkeys asks the control task to remove scripts from the
// active set.
func (m *Manager) UntrackScriptpubkeys(scripts []chain.Script) {
	m.send(ControlEvent{Kind: CtlUnsubscribe, Scripts: scripts})
}

func (m *Manager) send(event ControlEvent) {
	select {
	case m.mailbox <- event:
	default:
		log.Warnf("control mailbox full, dropping %v event", event.Kind)
	}
}

// Start spawns the supervisor loop. If waitForConnection, it blocks until
// the status bus first observes Connected or Offline.
func (m *Manager) Start(ctx context.Context, waitForConnection bool) {
	var wait *Subscription[Status]
	if waitForConnection {
		wait = m.SubscribeStatus()
	}

	m.runOnce.Do(func() {
		go m.run(ctx)
	})

	if waitForConnection {
		for {
			select {
			case status := <-wait.C():
				if status == StatusConnected || status == StatusOffline {
					wait.Unsubscribe()
					return
				}
			case <-ctx.Done():
				wait.Unsubscribe()
				return
			}
		}
	}
}

// Stop enqueues a Close event. If waitForClose, it blocks until the status
// bus observes Offline.
func (m *Manager) Stop(ctx context.Context, waitForClose bool) {
	var wait *Subscription[Status]
	if waitForClose {
		wait = m.SubscribeStatus()
	}

	m.send(ControlEvent{Kind: CtlClose})

	if waitForClose {
		defer wait.Unsubscribe()
		for {
			select {
			case status := <-wait.C():
				if status == StatusOffline {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

// connection bundles the live state of one connection attempt.
type connection struct {
	wg         sync.WaitGroup
	disconnect *disconnectSignal
	closeAck   chan struct{}
}

func (m *Manager) run(ctx context.Context) {
	status := &statusUpdater{status: StatusReady, bus: m.statusBus}
	var conn *connection
	var connID uint32

	for {
		switch status.get() {
		case StatusOffline:
			if conn != nil {
				conn.wg.Wait()
			}
			m.eventBus.Publish(WebsocketEvent{Kind: WsOffline})
			return

		case StatusReady:
			status.update(StatusConnecting)

		case StatusConnecting:
			c, ok := m.connect(ctx, connID)
			connID++
			if ok {
				conn = c
				status.update(StatusConnected)
			} else {
				conn = nil
				status.update(StatusDisconnected)
			}

		case StatusDisconnected:
			if conn != nil {
				conn.wg.Wait()
			}
			m.eventBus.Publish(WebsocketEvent{Kind: WsDisconnected})
			conn = nil
			select {
			case <-time.After(reconnectCooldown):
			case <-ctx.Done():
				status.update(StatusOffline)
				continue
			}
			status.update(StatusReady)

		case StatusConnected:
			select {
			case <-conn.disconnect.C():
				status.update(StatusDisconnected)

			case <-conn.closeAck:
				conn.disconnect.Signal()
				status.update(StatusOffline)

			case <-ctx.Done():
				conn.disconnect.Signal()
				status.update(StatusOffline)
			}
		}
	}
}

// connect dials a fresh connection and spawns its control, message and
// heartbeat tasks. Returns ok=false (having already published WsError) if
// the dial failed.
func (m *Manager) connect(ctx context.Context, connID uint32) (*connection, bool) {
	sink, source, err := m.transport.Connect(ctx, m.wsURL, dialTimeout)
	if err != nil {
		log.Warnf("failed to connect to %s: %v", m.wsURL, err)
		m.eventBus.Publish(WebsocketEvent{Kind: WsError})
		return nil, false
	}

	conn := &connection{
		disconnect: newDisconnectSignal(),
		closeAck:   make(chan struct{}),
	}
	lastResp := newLastResponse()

	control := newControlManager(sink, m.mailbox, conn.disconnect, conn.closeAck)
	message := newMessageManager(source, m.eventBus, conn.disconnect, lastResp)
	heartbeat := newHeartbeatManager(m.mailbox, conn.disconnect, lastResp)

	conn.wg.Add(3)
	go func() {
		defer conn.wg.Done()
		control.run(ctx, connID)
	}()
	go func() {
		defer conn.wg.Done()
		message.run(ctx, connID)
	}()
	go func() {
		defer conn.wg.Done()
		heartbeat.run(connID)
	}()

	m.eventBus.Publish(WebsocketEvent{Kind: WsConnected})
	return conn, true
}
