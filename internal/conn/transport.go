// Package conn owns the persistent connection to the chat backend: the
// lifecycle state machine, reconnect backoff and the websocket transport.
package conn

// Transport is an open or opening connection handle.
type Transport interface {
	// Send writes one text frame.
	Send(frame []byte) error
	// Close tears the connection down. Events may still arrive afterwards.
	Close() error
}

// Events receives transport notifications. They may be called from any
// goroutine; Closed is always the last call for a given transport.
type Events interface {
	Opened()
	Message(frame []byte)
	Errored(err error)
	Closed()
}

// Dialer starts connecting to endpoint and returns at once. The outcome is
// reported through ev: Opened on success, or Errored followed by Closed.
type Dialer interface {
	Dial(endpoint string, ev Events) Transport
}
