// Package core declares the contracts between the relay engine and the
// transport adapters.
package core

// Channel is the server-side handle of one transport connection. Emit
// delivers a named event with positional arguments to the remote peer.
// Senders treat delivery as fire-and-forget: an Emit on a connection
// that is already gone must return an error, never panic or block.
type Channel interface {
	Emit(event string, args ...any) error
	Close() error
}
