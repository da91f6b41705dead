package dns

import (
	"net"
	"sync"

	"covertun/internal/buffer"
	"covertun/internal/dnscodec"
	"covertun/internal/transport/udp"
)

// Server wraps a udp.Server, decoding inbound DNS queries and encoding
// outbound DNS responses. Alongside the peer-address latch udp.Server
// already keeps, it keeps its own observed/confirmed latch for the query id
// a response must echo — the two latches are promoted together so a
// response always echoes the id of the query whose address it targets.
type Server struct {
	udp *udp.Server

	mu          sync.Mutex
	observedID  uint16
	confirmedID uint16
}

// NewServer binds a udp.Server at bind and wraps it in the DNS codec.
func NewServer(bind *net.UDPAddr) (*Server, error) {
	u, err := udp.NewServer(bind)
	if err != nil {
		return nil, err
	}
	return &Server{udp: u}, nil
}

func (s *Server) Receive(frame *buffer.Frame) error {
	wire := buffer.New()
	if err := s.udp.Receive(wire); err != nil {
		return err
	}
	payload, id, err := dnscodec.DecodeQuery(wire.Bytes())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.observedID = id
	s.mu.Unlock()

	frame.Reset()
	frame.Append(payload)
	return nil
}

func (s *Server) MarkLastReceivedValid() {
	s.mu.Lock()
	s.confirmedID = s.observedID
	s.mu.Unlock()
	s.udp.MarkLastReceivedValid()
}

func (s *Server) Send(frame *buffer.Frame) error {
	s.mu.Lock()
	id := s.confirmedID
	s.mu.Unlock()

	encoded, err := dnscodec.EncodeResponse(frame.Bytes(), id)
	if err != nil {
		return err
	}
	return s.udp.Send(buffer.FromBytes(encoded))
}

func (s *Server) ReadyToSend() bool { return s.udp.ReadyToSend() }

func (s *Server) NeedsKeepalive() bool { return s.udp.NeedsKeepalive() }

func (s *Server) Close() error { return s.udp.Close() }

// LocalAddr returns the address the underlying socket is bound to.
func (s *Server) LocalAddr() net.Addr { return s.udp.LocalAddr() }
