package transport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu       sync.Mutex
	delivers [][]byte
	lostCh   chan error
}

func newCaptureSink() *captureSink {
	return &captureSink{lostCh: make(chan error, 1)}
}

func (s *captureSink) TryEstablish(Adapter) bool { return true }

func (s *captureSink) Deliver(data []byte, _ net.Addr, _ bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), data...)
	s.delivers = append(s.delivers, cp)
}

func (s *captureSink) Failed(error) {}

func (s *captureSink) Lost(exc error) {
	select {
	case s.lostCh <- exc:
	default:
	}
}

func (s *captureSink) waitForBytes(t *testing.T, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		var got []byte
		for _, d := range s.delivers {
			got = append(got, d...)
		}
		s.mu.Unlock()
		if string(got) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("did not observe delivered bytes %q in time", want)
}

func TestStreamDialer_EchoesOverLoopbackTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		conn.Write(buf[:n])
	}()

	dialer := &StreamDialer{}
	adapter, err := dialer.Dial(context.Background(), nil, ln.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer adapter.Close()

	if adapter.Protocol() != "tcp" {
		t.Errorf("Protocol() = %s, want tcp", adapter.Protocol())
	}

	sink := newCaptureSink()
	streamAdapter := adapter.(*StreamAdapter)
	go streamAdapter.ReadLoop(sink)

	if err := adapter.Write(context.Background(), []byte("ping")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	sink.waitForBytes(t, "ping")
}

func TestStreamAdapter_CloseSignalsGracefulLost(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen failed: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	dialer := &StreamDialer{}
	adapter, err := dialer.Dial(context.Background(), nil, ln.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	serverConn := <-accepted
	defer serverConn.Close()

	sink := newCaptureSink()
	streamAdapter := adapter.(*StreamAdapter)
	go streamAdapter.ReadLoop(sink)

	adapter.Close()

	select {
	case exc := <-sink.lostCh:
		if exc != nil {
			t.Errorf("Lost(%v), want a graceful (nil) loss after local Close", exc)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadLoop never reported Lost after Close")
	}
}
