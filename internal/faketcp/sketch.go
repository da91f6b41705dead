// Package faketcp is a design sketch, not an implementation. The original
// implementation this tunnel is modeled on includes a raw-socket fake-TCP
// transport alongside its DNS transport: a hand-built three-way handshake
// (SYN / SYN-ACK / ACK) over a raw IP socket, no active ACK tracking beyond
// sequence numbers that are never allowed to overflow, no graceful
// disconnect (only RST), and server-side connection reaping by age rather
// than by a disconnect callback. Porting that to a connection-oriented,
// root-privileged raw socket is substantial additional surface — capturing
// traffic, computing IP/TCP checksums, and tracking per-peer sequence state
// — that this module does not implement; the DNS transport in
// internal/transport/dns covers the spec's required path.
package faketcp

// sketch documents the shape a fake-TCP transport would take if built: one
// instance per peer, holding local/remote addresses, a SYN/SYN-ACK/ACK
// state machine, and the next send/receive sequence numbers, sending
// through a raw IP socket rather than a connected UDP one.
type sketch struct {
	state       sketchState
	nextSendSeq uint32
	nextRecvSeq uint32
}

type sketchState int

const (
	sketchStateInitial sketchState = iota
	sketchStateSynSent
	sketchStateSynReceived
	sketchStateEstablished
)
