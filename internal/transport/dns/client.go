//go:build linux

// Package dns wraps the udp transports with the DNS query/response codec,
// so the engine's pipeline sees the same transport.Transport contract
// whether or not DNS mimicry is in play.
package dns

import (
	"crypto/rand"
	"encoding/binary"
	"net"

	"covertun/internal/buffer"
	"covertun/internal/dnscodec"
	"covertun/internal/transport/udp"
)

// Client wraps a udp.Client, encoding every outbound frame as a DNS query
// and decoding every inbound datagram as a DNS response.
type Client struct {
	udp *udp.Client
}

// NewClient dials a client-side socket pool toward remote and wraps it in
// the DNS query/response codec.
func NewClient(remote *net.UDPAddr, numSockets int) (*Client, error) {
	u, err := udp.NewClient(remote, numSockets)
	if err != nil {
		return nil, err
	}
	return &Client{udp: u}, nil
}

func (c *Client) Send(frame *buffer.Frame) error {
	id := randomID()
	encoded, err := dnscodec.EncodeQuery(frame.Bytes(), id)
	if err != nil {
		return err
	}
	wire := buffer.FromBytes(encoded)
	return c.udp.Send(wire)
}

func (c *Client) Receive(frame *buffer.Frame) error {
	wire := buffer.New()
	if err := c.udp.Receive(wire); err != nil {
		return err
	}
	payload, _, err := dnscodec.DecodeResponse(wire.Bytes())
	if err != nil {
		return err
	}
	frame.Reset()
	frame.Append(payload)
	return nil
}

func (c *Client) MarkLastReceivedValid() { c.udp.MarkLastReceivedValid() }

func (c *Client) ReadyToSend() bool { return c.udp.ReadyToSend() }

func (c *Client) NeedsKeepalive() bool { return c.udp.NeedsKeepalive() }

func (c *Client) Close() error { return c.udp.Close() }

func randomID() uint16 {
	var b [2]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint16(b[:])
}
