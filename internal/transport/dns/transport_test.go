//go:build linux

package dns

import (
	"fmt"
	"net"
	"testing"
	"time"

	"covertun/internal/buffer"
)

func TestLoopbackHandshakeAndEcho(t *testing.T) {
	bindAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ResolveUDPAddr: %v", err)
	}
	server, err := NewServer(bindAddr)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer server.Close()

	if server.ReadyToSend() {
		t.Fatal("server ready to send before any query received")
	}

	client, err := NewClient(mustLocalAddr(t, server), 2)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if err := client.Send(buffer.FromBytes([]byte("hello world!"))); err != nil {
		t.Fatalf("client Send: %v", err)
	}

	serverFrame := buffer.New()
	done := make(chan error, 1)
	go func() { done <- server.Receive(serverFrame) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server Receive: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server Receive")
	}
	if string(serverFrame.Bytes()) != "hello world!" {
		t.Fatalf("server received %q, want %q", serverFrame.Bytes(), "hello world!")
	}

	server.MarkLastReceivedValid()
	if !server.ReadyToSend() {
		t.Fatal("server not ready to send after MarkLastReceivedValid")
	}

	if err := server.Send(buffer.FromBytes(serverFrame.Bytes())); err != nil {
		t.Fatalf("server Send: %v", err)
	}

	clientFrame := buffer.New()
	if err := client.Receive(clientFrame); err != nil {
		t.Fatalf("client Receive: %v", err)
	}
	if string(clientFrame.Bytes()) != "hello world!" {
		t.Fatalf("client received %q, want %q", clientFrame.Bytes(), "hello world!")
	}
}

func TestEchoAtVolume(t *testing.T) {
	bindAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ResolveUDPAddr: %v", err)
	}
	server, err := NewServer(bindAddr)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer server.Close()

	client, err := NewClient(mustLocalAddr(t, server), 2)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	go func() {
		frame := buffer.New()
		for {
			if err := server.Receive(frame); err != nil {
				return
			}
			server.MarkLastReceivedValid()
			if err := server.Send(buffer.FromBytes(frame.Bytes())); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 10000; i++ {
		want := fmt.Sprintf("%d", i)
		if err := client.Send(buffer.FromBytes([]byte(want))); err != nil {
			t.Fatalf("client Send(%d): %v", i, err)
		}
		frame := buffer.New()
		if err := client.Receive(frame); err != nil {
			t.Fatalf("client Receive(%d): %v", i, err)
		}
		if string(frame.Bytes()) != want {
			t.Fatalf("echo mismatch: got %q, want %q", frame.Bytes(), want)
		}
	}
}

func mustLocalAddr(t *testing.T, server *Server) *net.UDPAddr {
	t.Helper()
	addr, ok := server.LocalAddr().(*net.UDPAddr)
	if !ok {
		t.Fatal("server local address is not a *net.UDPAddr")
	}
	return addr
}
