// Package socket implements the connection manager: the reconnect/keepalive
// state machine coordinating the control, message and heartbeat tasks over
// a single duplex push channel (spec §4.1-§4.5).
package socket

import (
	"context"
	"time"

	"github.com/go-errors/errors"
)

// TextFrame is a single text message exchanged over the duplex channel.
type TextFrame string

// ErrorKind discriminates the two ways a Transport operation can fail.
type ErrorKind int

const (
	// ErrTimeout indicates the operation did not complete before its
	// deadline.
	ErrTimeout ErrorKind = iota
	// ErrWire indicates an underlying transport/protocol failure.
	ErrWire
)

// TransportError wraps a transport failure with its ErrorKind.
type TransportError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	if e.Kind == ErrTimeout {
		return "transport: timeout"
	}
	return errors.Errorf("transport: %v", e.Err).Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

func wireError(err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Kind: ErrWire, Err: err}
}

func timeoutError() error {
	return &TransportError{Kind: ErrTimeout}
}

// Sink is the send half of a duplex channel. It is single-owner: only the
// control task ever holds one.
type Sink interface {
	Send(ctx context.Context, frame TextFrame) error
	Close() error
}

// Source is the receive half of a duplex channel. It is single-owner: only
// the message task ever holds one.
type Source interface {
	Next(ctx context.Context) (TextFrame, error)
}

// Transport abstracts dialing a platform-neutral duplex frame channel, so
// the connection manager never depends on a concrete websocket library
// directly (spec §4.1). The default implementation is backed by
// gorilla/websocket (ws_transport.go).
type Transport interface {
	Connect(ctx context.Context, url string, timeout time.Duration) (Sink, Source, error)
}
