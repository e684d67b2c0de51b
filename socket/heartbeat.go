package socket

import (
	"time"
)

const (
	heartbeatPollInterval    = 1 * time.Second
	heartbeatPingAfter       = 30 * time.Second
	heartbeatDisconnectAfter = 60 * time.Second
)

// heartbeatManager observes the shared last-response watermark and asks the
// control task to ping when the channel has been quiet too long, escalating
// to a disconnect if it stays quiet (spec §4.4), grounded on
// original_source/src/socket/ping.rs.
type heartbeatManager struct {
	mailbox    chan ControlEvent
	disconnect *disconnectSignal
	lastResp   *lastResponse
}

func newHeartbeatManager(mailbox chan ControlEvent, disconnect *disconnectSignal, lastResp *lastResponse) *heartbeatManager {
	return &heartbeatManager{
		mailbox:    mailbox,
		disconnect: disconnect,
		lastResp:   lastResp,
	}
}

func (m *heartbeatManager) run(connID uint32) {
	ticker := time.NewTicker(heartbeatPollInterval)
	defer ticker.Stop()

	done := m.disconnect.C()
	pinged := false

	for {
		select {
		case <-done:
			return

		case <-ticker.C:
			elapsed := m.lastResp.elapsed()
			switch {
			case elapsed > heartbeatDisconnectAfter:
				log.Tracef("heartbeat %d: unresponsive for %s, disconnecting", connID, elapsed)
				m.disconnect.Signal()
				return

			case !pinged && elapsed > heartbeatPingAfter:
				log.Tracef("heartbeat %d: no response for %s, requesting ping", connID, elapsed)
				select {
				case m.mailbox <- ControlEvent{Kind: CtlPing}:
				case <-done:
					return
				}
				pinged = true

			case pinged && elapsed <= heartbeatPingAfter:
				pinged = false
			}
		}
	}
}
