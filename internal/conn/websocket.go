package conn

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketDialer opens gorilla websocket connections.
type WebSocketDialer struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReadLimit caps inbound frame size in bytes; zero means no limit.
	ReadLimit int64
}

// Dial implements Dialer. The handshake and the read loop run on their own
// goroutine.
func (d WebSocketDialer) Dial(endpoint string, ev Events) Transport {
	ctx, cancel := context.WithCancel(context.Background())
	t := &wsTransport{cancel: cancel, writeTimeout: d.WriteTimeout}
	if t.writeTimeout <= 0 {
		t.writeTimeout = 5 * time.Second
	}
	go t.run(ctx, d, endpoint, ev)
	return t
}

type wsTransport struct {
	cancel       context.CancelFunc
	writeTimeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (t *wsTransport) run(ctx context.Context, d WebSocketDialer, endpoint string, ev Events) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		ev.Errored(fmt.Errorf("dial %s: %w", endpoint, err))
		ev.Closed()
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		ev.Closed()
		return
	}
	t.conn = conn
	t.mu.Unlock()

	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}
	ev.Opened()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !t.isClosed() {
				ev.Errored(err)
			}
			break
		}
		ev.Message(frame)
	}
	conn.Close()
	ev.Closed()
}

func (t *wsTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *wsTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.conn == nil {
		return ErrTransportClosed
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close sends a normal close frame when the connection is open and aborts
// a handshake still in progress.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.cancel()
	if t.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(t.writeTimeout))
	return t.conn.Close()
}
