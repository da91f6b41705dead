package udp

import (
	"fmt"
	"net"
	"sync"

	"covertun/internal/buffer"
	"covertun/internal/vpnerr"
)

// Server is the server-side plain UDP transport: one bound socket and a
// last-valid-peer latch. The latch has two fields — observed (whoever sent
// most recently) and confirmed (who Send actually targets) — deliberately
// kept separate: a single field would let an unauthenticated sender redirect
// replies before its frame had even been decrypted.
type Server struct {
	conn *net.UDPConn

	mu        sync.Mutex
	observed  *net.UDPAddr
	confirmed *net.UDPAddr
}

// NewServer binds a UDP socket at bind.
func NewServer(bind *net.UDPAddr) (*Server, error) {
	conn, err := net.ListenUDP("udp", bind)
	if err != nil {
		return nil, fmt.Errorf("udp: listen: %w", err)
	}
	return &Server{conn: conn}, nil
}

func (s *Server) Receive(frame *buffer.Frame) error {
	n, addr, err := s.conn.ReadFromUDP(frame.Slice())
	if err != nil {
		return fmt.Errorf("%w: %w", vpnerr.ErrTransientIO, err)
	}
	frame.SetLength(n)

	s.mu.Lock()
	s.observed = addr
	s.mu.Unlock()
	return nil
}

// MarkLastReceivedValid promotes the most recently observed sender to the
// confirmed peer Send will target. The caller is expected to call this only
// after the frame just received from Receive decrypted successfully.
func (s *Server) MarkLastReceivedValid() {
	s.mu.Lock()
	s.confirmed = s.observed
	s.mu.Unlock()
}

func (s *Server) Send(frame *buffer.Frame) error {
	s.mu.Lock()
	dst := s.confirmed
	s.mu.Unlock()
	if dst == nil {
		return vpnerr.ErrNoPeerYet
	}
	_, err := s.conn.WriteToUDP(frame.Bytes(), dst)
	if err != nil {
		return fmt.Errorf("%w: %w", vpnerr.ErrTransientIO, err)
	}
	return nil
}

func (s *Server) ReadyToSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed != nil
}

func (s *Server) NeedsKeepalive() bool { return false }

// LocalAddr returns the address the server's socket is bound to.
func (s *Server) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Server) Close() error {
	return s.conn.Close()
}
