package conn

import "errors"

var (
	// ErrNotConnected is returned by Manager.Send while the status is not connected.
	// Nothing is buffered for later delivery.
	ErrNotConnected = errors.New("not connected")
	// ErrTransportClosed is returned when writing to a transport that was closed
	// or never finished opening.
	ErrTransportClosed = errors.New("transport closed")
)
