//go:build linux

package udp

import (
	"net"
	"testing"
	"time"
)

func TestPoolNeverExceedsSendEligibleBound(t *testing.T) {
	server, err := net.ListenUDP("udp", mustResolveLoopback(t))
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer server.Close()

	pool, err := NewPool(server.LocalAddr().(*net.UDPAddr), 3, 20*time.Millisecond, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	for i := 0; i < 20; i++ {
		if err := pool.Send([]byte("x")); err != nil {
			t.Fatalf("Send: %v", err)
		}
		if got := pool.SendEligibleCount(); got > 3 {
			t.Fatalf("send-eligible count = %d, want <= 3", got)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if total := pool.TotalCount(); total < 1 {
		t.Fatalf("total count = %d, want >= 1", total)
	}
}

func TestPoolSendRoundTrip(t *testing.T) {
	server, err := net.ListenUDP("udp", mustResolveLoopback(t))
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer server.Close()

	pool, err := NewPool(server.LocalAddr().(*net.UDPAddr), 2, time.Second, time.Second)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	if err := pool.Send([]byte("0")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 16)
	if err := server.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	n, from, err := server.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}
	if string(buf[:n]) != "0" {
		t.Fatalf("server received %q, want %q", buf[:n], "0")
	}

	if _, err := server.WriteToUDP([]byte("0"), from); err != nil {
		t.Fatalf("WriteToUDP: %v", err)
	}

	reply := make([]byte, 16)
	n, err = pool.Receive(reply)
	if err != nil {
		t.Fatalf("pool Receive: %v", err)
	}
	if string(reply[:n]) != "0" {
		t.Fatalf("pool received %q, want %q", reply[:n], "0")
	}
}
