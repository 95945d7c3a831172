package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestDatagramDialer_EchoesOverLoopbackUDP(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("ListenUDP failed: %v", err)
	}
	defer serverConn.Close()

	go func() {
		buf := make([]byte, 1024)
		n, peer, err := serverConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		serverConn.WriteToUDP(buf[:n], peer)
	}()

	dialer := &DatagramDialer{}
	adapter, err := dialer.Dial(context.Background(), nil, serverConn.LocalAddr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer adapter.Close()

	if adapter.Protocol() != "udp" {
		t.Errorf("Protocol() = %s, want udp", adapter.Protocol())
	}

	sink := newCaptureSink()
	datagramAdapter := adapter.(*DatagramAdapter)
	go datagramAdapter.ReadLoop(sink)

	if err := adapter.Write(context.Background(), []byte("hello-udp")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	sink.waitForBytes(t, "hello-udp")
}

func TestDatagramAdapter_DeliversOneDatagramPerRead(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("ListenUDP failed: %v", err)
	}
	defer serverConn.Close()

	dialer := &DatagramDialer{}
	adapter, err := dialer.Dial(context.Background(), nil, serverConn.LocalAddr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer adapter.Close()

	sink := newCaptureSink()
	datagramAdapter := adapter.(*DatagramAdapter)
	go datagramAdapter.ReadLoop(sink)

	clientAddr := adapter.LocalAddr().(*net.UDPAddr)
	serverConn.WriteToUDP([]byte("first"), clientAddr)
	serverConn.WriteToUDP([]byte("second"), clientAddr)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		n := len(sink.delivers)
		sink.mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.delivers) != 2 {
		t.Fatalf("got %d Deliver calls, want 2 (one per datagram, no coalescing)", len(sink.delivers))
	}
	if string(sink.delivers[0]) != "first" || string(sink.delivers[1]) != "second" {
		t.Errorf("deliveries = %q, %q, want %q, %q", sink.delivers[0], sink.delivers[1], "first", "second")
	}
}
