//go:build linux

package tun

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	ifNameSize = 16
	tunSetIff  = 0x400454ca
	iffTun     = 0x0001
	iffNoPI    = 0x1000
)

// ifReq mirrors struct ifreq's name+flags prefix, the only part TUNSETIFF
// cares about.
type ifReq struct {
	Name  [ifNameSize]byte
	Flags uint16
	_     [22]byte // pad to sizeof(struct ifreq)
}

type device struct {
	file   *os.File
	name   string
	epIn   int
	epOut  int
	closed atomic.Bool
}

// Open creates (or attaches to) a tun interface named name in
// IFF_TUN|IFF_NO_PI mode and wraps it with a non-blocking, epoll-readiness
// backed Read/Write pair so the engine's pipeline workers block only on
// their own goroutine, not the whole runtime.
func Open(name string) (Device, error) {
	f, err := os.OpenFile("/dev/net/tun", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("tun: open /dev/net/tun: %w", err)
	}

	var req ifReq
	copy(req.Name[:], name)
	req.Flags = iffTun | iffNoPI

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(tunSetIff), uintptr(unsafe.Pointer(&req))); errno != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("tun: TUNSETIFF ioctl: %w", errno)
	}
	actualName := trimZeroes(req.Name[:])

	fd := int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("tun: set nonblocking: %w", err)
	}

	epIn, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("tun: epoll create (read): %w", err)
	}
	epOut, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		_ = unix.Close(epIn)
		_ = f.Close()
		return nil, fmt.Errorf("tun: epoll create (write): %w", err)
	}
	if err := unix.EpollCtl(epIn, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLERR | unix.EPOLLHUP, Fd: int32(fd)}); err != nil {
		_ = unix.Close(epOut)
		_ = unix.Close(epIn)
		_ = f.Close()
		return nil, fmt.Errorf("tun: epoll ctl (read): %w", err)
	}
	if err := unix.EpollCtl(epOut, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: unix.EPOLLOUT | unix.EPOLLERR | unix.EPOLLHUP, Fd: int32(fd)}); err != nil {
		_ = unix.Close(epOut)
		_ = unix.Close(epIn)
		_ = f.Close()
		return nil, fmt.Errorf("tun: epoll ctl (write): %w", err)
	}

	return &device{file: f, name: actualName, epIn: epIn, epOut: epOut}, nil
}

func (d *device) Name() string { return d.name }

func (d *device) Read(p []byte) (int, error) {
	if d.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	for {
		n, err := unix.Read(int(d.file.Fd()), p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			if werr := d.waitReadable(); werr != nil {
				return 0, werr
			}
			continue
		case errors.Is(err, unix.EBADF):
			return 0, io.ErrClosedPipe
		default:
			return 0, err
		}
	}
}

func (d *device) Write(p []byte) (int, error) {
	if d.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	total := 0
	for total < len(p) {
		n, err := unix.Write(int(d.file.Fd()), p[total:])
		switch {
		case err == nil:
			total += n
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			if werr := d.waitWritable(); werr != nil {
				return total, werr
			}
		case errors.Is(err, unix.EBADF):
			return total, io.ErrClosedPipe
		default:
			return total, err
		}
	}
	return total, nil
}

func (d *device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = unix.Close(d.epIn)
	_ = unix.Close(d.epOut)
	return d.file.Close()
}

func (d *device) waitReadable() error {
	var evs [1]unix.EpollEvent
	for {
		n, err := unix.EpollWait(d.epIn, evs[:], -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			if d.closed.Load() {
				return io.ErrClosedPipe
			}
			return err
		}
		if n > 0 {
			return nil
		}
	}
}

func (d *device) waitWritable() error {
	var evs [1]unix.EpollEvent
	for {
		n, err := unix.EpollWait(d.epOut, evs[:], -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			if d.closed.Load() {
				return io.ErrClosedPipe
			}
			return err
		}
		if n > 0 {
			return nil
		}
	}
}

func trimZeroes(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
