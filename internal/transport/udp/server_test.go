package udp

import (
	"errors"
	"net"
	"testing"
	"time"

	"covertun/internal/buffer"
	"covertun/internal/vpnerr"
)

func mustResolveLoopback(t *testing.T) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ResolveUDPAddr: %v", err)
	}
	return addr
}

func TestServerReadyToSendTransition(t *testing.T) {
	server, err := NewServer(mustResolveLoopback(t))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer server.Close()

	if server.ReadyToSend() {
		t.Fatal("server ready to send before any datagram observed")
	}

	client, err := net.DialUDP("udp", nil, server.conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("hello world!")); err != nil {
		t.Fatalf("client Write: %v", err)
	}

	frame := buffer.New()
	if err := server.conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	if err := server.Receive(frame); err != nil {
		t.Fatalf("server Receive: %v", err)
	}

	if server.ReadyToSend() {
		t.Fatal("server ready to send before MarkLastReceivedValid")
	}
	server.MarkLastReceivedValid()
	if !server.ReadyToSend() {
		t.Fatal("server not ready to send after MarkLastReceivedValid")
	}

	echo := buffer.FromBytes(frame.Bytes())
	if err := server.Send(echo); err != nil {
		t.Fatalf("server Send: %v", err)
	}

	reply := make([]byte, 64)
	if err := client.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	n, err := client.Read(reply)
	if err != nil {
		t.Fatalf("client Read: %v", err)
	}
	if string(reply[:n]) != "hello world!" {
		t.Fatalf("echo mismatch: got %q", reply[:n])
	}
}

func TestServerSendBeforePeerReturnsNoPeerYet(t *testing.T) {
	server, err := NewServer(mustResolveLoopback(t))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer server.Close()

	if err := server.Send(buffer.FromBytes([]byte("x"))); !errors.Is(err, vpnerr.ErrNoPeerYet) {
		t.Fatalf("Send before any peer observed: got %v, want ErrNoPeerYet", err)
	}
}
