package socket

import "sync"

// disconnectSignal is a one-shot, idempotent "a disconnect has occurred"
// broadcast shared by the control, message and heartbeat tasks of a single
// connection. Only the boolean fact matters (spec §5's "capacity 1
// broadcast"), so this is a closed-channel signal rather than a value
// broadcast: any number of goroutines can select on C() and all observe the
// close simultaneously.
type disconnectSignal struct {
	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

func newDisconnectSignal() *disconnectSignal {
	return &disconnectSignal{ch: make(chan struct{})}
}

// C returns the channel that closes when a disconnect has been signaled.
func (d *disconnectSignal) C() <-chan struct{} {
	return d.ch
}

// Signal fires the disconnect, if it hasn't already.
func (d *disconnectSignal) Signal() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.ch)
	}
}
