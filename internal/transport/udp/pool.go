//go:build linux

// Package udp implements the plain UDP transports the DNS codec wraps:
// a client with a rotating socket pool (many source ports, each used for a
// while then retired) and a server with a single bound socket and a
// last-valid-peer latch.
package udp

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"covertun/internal/vpnerr"
)

// readSafetyTimeout bounds every pooled socket's read, as a belt-and-braces
// measure against the readiness poll mis-dispatching: if a socket is woken
// but has nothing to read, the read returns quickly instead of blocking.
const readSafetyTimeout = time.Millisecond

type poolEntry struct {
	id        int
	conn      *net.UDPConn
	dupFd     int // epoll-registered duplicate of conn's fd, owned independently
	createdAt time.Time
}

// Pool is the client-side rotating socket pool: a bounded number of
// send-eligible sockets (age < sendDuration) handle outbound traffic, new
// sockets are created lazily on send as needed, and a socket keeps
// receiving for a further lingerDuration after aging out of send
// eligibility so in-flight replies are not dropped, before finally being
// evicted once its total age exceeds sendDuration+lingerDuration.
type Pool struct {
	mu             sync.Mutex
	remote         *net.UDPAddr
	reg            *registry
	entries        map[int]*poolEntry
	maxSend        int
	sendDuration   time.Duration
	lingerDuration time.Duration
}

// NewPool prepares a pool dialing sockets to remote on demand, keyed by a
// private readiness-poll registry. No sockets are dialed up front — the
// first Send call creates the first one.
func NewPool(remote *net.UDPAddr, maxSend int, sendDuration, lingerDuration time.Duration) (*Pool, error) {
	if maxSend < 1 {
		return nil, errors.New("udp: pool requires at least one send-eligible socket")
	}
	reg, err := newRegistry()
	if err != nil {
		return nil, fmt.Errorf("udp: new registry: %w", err)
	}
	return &Pool{
		remote:         remote,
		reg:            reg,
		entries:        make(map[int]*poolEntry),
		maxSend:        maxSend,
		sendDuration:   sendDuration,
		lingerDuration: lingerDuration,
	}, nil
}

// Send implements the spec's send algorithm: evict anything past its total
// lifetime, then either create a new socket (if fewer than maxSend are
// currently send-eligible) or pick one send-eligible socket uniformly at
// random, and write b through it.
func (p *Pool) Send(b []byte) error {
	p.mu.Lock()
	p.evictExpiredLocked()

	eligible := p.sendEligibleLocked()
	var entry *poolEntry
	if len(eligible) < p.maxSend {
		e, err := p.dialAndRegisterLocked()
		if err != nil {
			p.mu.Unlock()
			return fmt.Errorf("%w: %w", vpnerr.ErrTransientIO, err)
		}
		entry = e
	} else {
		entry = eligible[rand.Intn(len(eligible))]
	}
	p.mu.Unlock()

	if _, err := entry.conn.Write(b); err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil
		}
		p.evict(entry.id)
		return fmt.Errorf("%w: %w", vpnerr.ErrTransientIO, err)
	}
	return nil
}

// Receive blocks until any pooled socket has a datagram and reads it into
// buf, retrying past spurious wakeups and benign ConnectionRefused errors.
func (p *Pool) Receive(buf []byte) (int, error) {
	for {
		ids, err := p.reg.wait()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", vpnerr.ErrTransientIO, err)
		}
		for _, id := range ids {
			p.mu.Lock()
			entry := p.entries[id]
			p.mu.Unlock()
			if entry == nil {
				continue
			}

			_ = entry.conn.SetReadDeadline(time.Now().Add(readSafetyTimeout))
			n, err := entry.conn.Read(buf)
			if err != nil {
				if errors.Is(err, syscall.ECONNREFUSED) {
					p.evict(id)
					continue
				}
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					// Readiness poll said this socket was ready but nothing
					// arrived in time to claim it — a spurious wakeup, not
					// a real error.
					continue
				}
				p.evict(id)
				return 0, fmt.Errorf("%w: %w", vpnerr.ErrTransientIO, err)
			}
			return n, nil
		}
	}
}

// sendEligibleLocked returns the entries younger than sendDuration. Caller
// must hold p.mu.
func (p *Pool) sendEligibleLocked() []*poolEntry {
	now := time.Now()
	eligible := make([]*poolEntry, 0, len(p.entries))
	for _, e := range p.entries {
		if now.Sub(e.createdAt) < p.sendDuration {
			eligible = append(eligible, e)
		}
	}
	return eligible
}

// evictExpiredLocked removes every entry whose total age exceeds
// sendDuration+lingerDuration. Caller must hold p.mu.
func (p *Pool) evictExpiredLocked() {
	now := time.Now()
	maxAge := p.sendDuration + p.lingerDuration
	var expired []int
	for id, e := range p.entries {
		if now.Sub(e.createdAt) >= maxAge {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		p.removeLocked(id)
	}
}

// dialAndRegisterLocked dials a fresh socket to remote, registers it with
// the readiness poll under an id one past the current maximum (or 0 if the
// pool is empty), and inserts it. Caller must hold p.mu.
func (p *Pool) dialAndRegisterLocked() (*poolEntry, error) {
	conn, err := net.DialUDP("udp", nil, p.remote)
	if err != nil {
		return nil, fmt.Errorf("udp: dial: %w", err)
	}
	fd, err := dupFd(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("udp: dup fd: %w", err)
	}

	id := 0
	for existing := range p.entries {
		if existing >= id {
			id = existing + 1
		}
	}

	if err := p.reg.add(id, fd); err != nil {
		_ = unix.Close(fd)
		_ = conn.Close()
		return nil, fmt.Errorf("udp: register fd: %w", err)
	}
	entry := &poolEntry{id: id, conn: conn, dupFd: fd, createdAt: time.Now()}
	p.entries[id] = entry
	return entry, nil
}

// dupFd duplicates conn's underlying file descriptor so the readiness-poll
// registry can hold and close its own reference independent of conn's
// lifecycle.
func dupFd(conn *net.UDPConn) (int, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var dup int
	var dupErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		dup, dupErr = unix.Dup(int(fd))
	})
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	if dupErr != nil {
		return 0, dupErr
	}
	return dup, nil
}

func (p *Pool) evict(id int) {
	p.mu.Lock()
	p.removeLocked(id)
	p.mu.Unlock()
}

// removeLocked deregisters and closes the entry for id, if present. Caller
// must hold p.mu.
func (p *Pool) removeLocked(id int) {
	entry, ok := p.entries[id]
	if !ok {
		return
	}
	delete(p.entries, id)
	_ = p.reg.remove(id)
	_ = unix.Close(entry.dupFd)
	_ = entry.conn.Close()
}

// SendEligibleCount reports how many sockets are currently send-eligible,
// for tests asserting the pool never exceeds its configured bound.
func (p *Pool) SendEligibleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sendEligibleLocked())
}

// TotalCount reports send-eligible plus lingering sockets.
func (p *Pool) TotalCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *Pool) Close() error {
	p.mu.Lock()
	for id := range p.entries {
		p.removeLocked(id)
	}
	p.mu.Unlock()
	return p.reg.close()
}
