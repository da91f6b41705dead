//go:build linux

package udp

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// registry is an epoll-backed readiness poll over a set of UDP socket file
// descriptors. It is keyed by integer pool id rather than fd or pointer:
// the epoll token carries only the id, and the pool looks up the real fd
// from its own map. This avoids a cyclic pool<->registry reference — on
// eviction the pool deregisters the id here before closing the socket, so
// the registry's view never outlives a socket it doesn't know is gone.
//
// add/remove/wait are called from different goroutines (a sender lazily
// dialing or evicting a socket, a receive loop waiting) and must be safe
// to interleave: mu guards every access to fds and every EpollCtl call.
type registry struct {
	epfd int
	mu   sync.Mutex
	fds  map[int]int // id -> fd, needed because EpollWait only returns ids
}

func newRegistry() (*registry, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &registry{epfd: epfd, fds: make(map[int]int)}, nil
}

func (r *registry) add(id, fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLERR | unix.EPOLLHUP,
		Fd:     int32(id),
	}); err != nil {
		return err
	}
	r.fds[id] = fd
	return nil
}

func (r *registry) remove(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fd, ok := r.fds[id]
	if !ok {
		return nil
	}
	delete(r.fds, id)
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wait blocks until at least one registered socket is readable, returning
// the ready ids.
func (r *registry) wait() ([]int, error) {
	var evs [16]unix.EpollEvent
	for {
		n, err := unix.EpollWait(r.epfd, evs[:], -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids := make([]int, 0, n)
		for i := 0; i < n; i++ {
			ids = append(ids, int(evs[i].Fd))
		}
		return ids, nil
	}
}

func (r *registry) close() error {
	return unix.Close(r.epfd)
}
