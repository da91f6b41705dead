//go:build linux

package udp

import (
	"net"
	"time"

	"covertun/internal/buffer"
)

const (
	defaultSendDuration   = 45 * time.Second
	defaultLingerDuration = 30 * time.Second
)

// Client is the client-side plain UDP transport: a rotating socket pool
// sending to one fixed remote address. It always needs keepalives, since it
// is the peer that must keep NAT/path state alive by initiating traffic.
type Client struct {
	pool *Pool
}

// NewClient prepares a client pooling up to numSockets send-eligible
// sockets to remote, created lazily as Send needs them.
func NewClient(remote *net.UDPAddr, numSockets int) (*Client, error) {
	pool, err := NewPool(remote, numSockets, defaultSendDuration, defaultLingerDuration)
	if err != nil {
		return nil, err
	}
	return &Client{pool: pool}, nil
}

func (c *Client) Send(frame *buffer.Frame) error {
	return c.pool.Send(frame.Bytes())
}

func (c *Client) Receive(frame *buffer.Frame) error {
	n, err := c.pool.Receive(frame.Slice())
	if err != nil {
		return err
	}
	frame.SetLength(n)
	return nil
}

func (c *Client) MarkLastReceivedValid() {}

func (c *Client) ReadyToSend() bool { return true }

func (c *Client) NeedsKeepalive() bool { return true }

func (c *Client) Close() error {
	return c.pool.Close()
}
