// Package transport defines the contract the engine's two pipeline
// directions call to move frames on and off the wire, independent of
// whether the frames are DNS-wrapped or plain UDP, and independent of
// client vs. server role.
package transport

import "covertun/internal/buffer"

// Transport moves one AEAD-sealed frame at a time on and off the wire.
type Transport interface {
	// Send writes frame to the peer. On the server side, Send before the
	// first validated receive returns vpnerr.ErrNoPeerYet.
	Send(frame *buffer.Frame) error

	// Receive blocks until one frame has arrived, filling frame with it.
	Receive(frame *buffer.Frame) error

	// MarkLastReceivedValid promotes the most recently observed peer
	// address to trusted, the only address Send will use afterward.
	MarkLastReceivedValid()

	// ReadyToSend reports whether Send has a destination to use yet. A
	// client transport is always ready; a server transport is ready only
	// after MarkLastReceivedValid has been called at least once.
	ReadyToSend() bool

	// NeedsKeepalive reports whether this transport's peering model
	// requires periodic empty frames to hold NAT/path state open. Server
	// transports (passive, peer-initiated) do not.
	NeedsKeepalive() bool

	Close() error
}
