package domain

import "context"

// ConnectionStatus is the four-state machine governing the logical
// connect/disconnect lifecycle.
type ConnectionStatus string

const (
	StatusDisconnected  ConnectionStatus = "disconnected"
	StatusConnecting    ConnectionStatus = "connecting"
	StatusConnected     ConnectionStatus = "connected"
	StatusDisconnecting ConnectionStatus = "disconnecting"
)

// Transitional reports whether the status is one of the in-flight states.
func (s ConnectionStatus) Transitional() bool {
	return s == StatusConnecting || s == StatusDisconnecting
}

// Dialer establishes the logical connection to a server. The state machine
// treats Dial as the connecting suspend point: a nil error commits the
// connected state, an error falls back to disconnected. The production
// implementation is a simulated fixed delay; a real handshake slots in here
// without touching the state machine.
type Dialer interface {
	Dial(ctx context.Context, server Server) error
}
