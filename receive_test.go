package taps

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/taps-go/taps/internal/core"
)

type receivedEvent struct {
	data []byte
	ctx  core.MessageContext
	eom  bool
}

type waitingHandler struct {
	core.NoopHandler
	received chan receivedEvent
}

func newWaitingHandler() *waitingHandler {
	return &waitingHandler{received: make(chan receivedEvent, 16)}
}

func (h *waitingHandler) OnReceived(data []byte, ctx core.MessageContext) {
	h.received <- receivedEvent{data: data, ctx: ctx, eom: true}
}

func (h *waitingHandler) OnReceivedPartial(data []byte, ctx core.MessageContext, eom bool) {
	h.received <- receivedEvent{data: data, ctx: ctx, eom: eom}
}

func (h *waitingHandler) waitForOne(t *testing.T) receivedEvent {
	t.Helper()
	select {
	case ev := <-h.received:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a received event")
		return receivedEvent{}
	}
}

func TestReceive_RawStreamHonorsMinIncompleteAndMaxLength(t *testing.T) {
	h := newWaitingHandler()
	conn := newConnection(h, nil)
	conn.bindPassive(context.Background(), &stubAdapter{protocol: "tcp"}, nil)

	conn.Receive(context.Background(), 5, -1)

	// Feeding fewer bytes than minIncomplete must not resolve the waiter.
	conn.Deliver([]byte("abc"), nil, false)
	select {
	case ev := <-h.received:
		t.Fatalf("received %q before minIncomplete was reached", ev.data)
	case <-time.After(50 * time.Millisecond):
	}

	conn.Deliver([]byte("de"), nil, false)
	ev := h.waitForOne(t)
	if string(ev.data) != "abcde" {
		t.Errorf("delivered data = %q, want %q", ev.data, "abcde")
	}

	conn.dispatcher.Stop()
}

func TestReceive_RawStreamMaxLengthCapsDelivery(t *testing.T) {
	h := newWaitingHandler()
	conn := newConnection(h, nil)
	conn.bindPassive(context.Background(), &stubAdapter{protocol: "tcp"}, nil)

	conn.Receive(context.Background(), 1, 3)
	conn.Deliver([]byte("abcdef"), nil, false)

	ev := h.waitForOne(t)
	if string(ev.data) != "abc" {
		t.Errorf("delivered data = %q, want %q (capped by maxLength)", ev.data, "abc")
	}

	conn.dispatcher.Stop()
}

func TestReceive_AtEOFFiresReceivedEvenWithBytesLeftByMaxLength(t *testing.T) {
	h := newWaitingHandler()
	conn := newConnection(h, nil)
	conn.bindPassive(context.Background(), &stubAdapter{protocol: "tcp"}, nil)

	conn.Receive(context.Background(), 1, 3)
	conn.Deliver([]byte("abcdef"), nil, true) // eof=true, but maxLength leaves "def" in the buffer

	ev := h.waitForOne(t)
	if string(ev.data) != "abc" {
		t.Errorf("delivered data = %q, want %q", ev.data, "abc")
	}
	if !ev.eom {
		t.Error("at_eof must fire a complete received event regardless of bytes left in the buffer by maxLength")
	}

	conn.dispatcher.Stop()
}

func TestReceive_DatagramDeliversOneCompleteMessageWithPeer(t *testing.T) {
	h := newWaitingHandler()
	conn := newConnection(h, nil)
	conn.bindPassive(context.Background(), &stubAdapter{protocol: "udp"}, nil)

	peer := &net.UDPAddr{IP: net.ParseIP("192.0.2.9"), Port: 5353}
	conn.Receive(context.Background(), 0, -1)
	conn.Deliver([]byte("datagram-payload"), peer, false)

	ev := h.waitForOne(t)
	if string(ev.data) != "datagram-payload" {
		t.Errorf("delivered data = %q, want %q", ev.data, "datagram-payload")
	}
	if !ev.eom {
		t.Error("datagram delivery must always be a complete message (eom true)")
	}
	if ev.ctx.PeerAddr != peer {
		t.Errorf("PeerAddr = %v, want %v", ev.ctx.PeerAddr, peer)
	}

	conn.dispatcher.Stop()
}
