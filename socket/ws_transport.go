package socket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSTransport is the default Transport, backed by gorilla/websocket -- the
// domain dependency the teacher repo's own websocket RPC client wiring
// (chainregistry.go's chain.NewRPCClient) reaches for, and the one most of
// the pack's websocket-shaped repos import directly.
type WSTransport struct {
	Dialer *websocket.Dialer
}

// NewWSTransport constructs a WSTransport using gorilla/websocket's default
// dialer.
func NewWSTransport() *WSTransport {
	return &WSTransport{Dialer: websocket.DefaultDialer}
}

// Connect dials url, honoring timeout for the handshake.
func (t *WSTransport) Connect(ctx context.Context, url string, timeout time.Duration) (Sink, Source, error) {
	base := t.Dialer
	if base == nil {
		base = websocket.DefaultDialer
	}
	// Copy so the handshake timeout never leaks into a shared dialer.
	dialer := *base
	dialer.HandshakeTimeout = timeout

	dialCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, _, err := dialer.DialContext(dialCtx, url, nil)
	if err != nil {
		if dialCtx.Err() == context.DeadlineExceeded {
			return nil, nil, timeoutError()
		}
		return nil, nil, wireError(err)
	}

	return &wsSink{conn: conn}, &wsSource{conn: conn}, nil
}

// wsSink wraps a *websocket.Conn for sending. gorilla/websocket connections
// are not safe for concurrent writers, hence the mutex -- this constraint is
// exactly why the spec makes Sink single-owner (spec §3, "Ownership").
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(ctx context.Context, frame TextFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return wireError(err)
	}
	return nil
}

func (s *wsSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}

// wsSource wraps a *websocket.Conn for receiving.
type wsSource struct {
	conn *websocket.Conn
}

func (s *wsSource) Next(ctx context.Context) (TextFrame, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(deadline)
	}
	// ReadMessage does not observe ctx on its own; expire the read
	// deadline on cancellation so the owning task's reader goroutine is
	// never left blocked after a disconnect.
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()
	kind, data, err := s.conn.ReadMessage()
	if err != nil {
		return "", wireError(err)
	}
	if kind != websocket.TextMessage {
		return "", nil
	}
	return TextFrame(data), nil
}
