// Package transport implements the per-protocol transport adapters (C6):
// the bridge between an OS socket (or quic-go session) and a Connection's
// message pipeline. Grounded on the teacher's internal/transport package
// (Transport interface, UDPv4Transport) — the same split of a narrow
// interface plus one concrete type per protocol family, generalized here
// from "mDNS over IPv4 UDP" to "whichever protocol the selector chose".
package transport

import (
	"context"
	"net"
)

// Sink is the callback surface an Adapter reports to. The concrete
// *taps.Connection implements Sink (the listener's demux path also feeds
// datagrams straight into it); adapters never import the root package directly,
// which is what lets internal/transport sit below taps in the import
// graph.
type Sink interface {
	// TryEstablish reports that this adapter completed its handshake
	// first. It returns true if this adapter won the race and should be
	// kept; false if the Sink already has a winning adapter, in which
	// case the caller MUST close its socket and stop.
	TryEstablish(a Adapter) bool

	// Deliver hands a received chunk to the sink. For stream adapters
	// this is raw bytes appended to the stream buffer; for datagram
	// adapters it is exactly one datagram, with peer set.
	Deliver(data []byte, peer net.Addr, eof bool)

	// Failed reports a non-fatal read-side error (e.g. a transient
	// socket read failure); the sink passes it to the handler's
	// OnReceiveError unchanged.
	Failed(err error)

	// Lost reports the adapter is gone: exc nil means a graceful close
	// (the sink fires Closed, unless it is already Closing on its own
	// initiative), exc non-nil means an abnormal loss (ConnectionError).
	Lost(exc error)
}

// Adapter is the per-attempt, per-protocol state holder a Connection
// takes ownership of once established. Exactly one Adapter is bound to a
// Connection in Established state; zero otherwise (§3 invariant).
type Adapter interface {
	// Write sends data on the underlying socket/stream. The caller (the
	// Connection) has already run the framer's Encode step.
	Write(ctx context.Context, data []byte) error

	// Close releases the adapter's OS resources. Idempotent.
	Close() error

	// LocalAddr and RemoteAddr report the adapter's bound/peer address,
	// once known (nil before establishment).
	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	// Protocol names the protocol family this adapter implements, for
	// diagnostics and the Connection's logging.
	Protocol() string
}

// Dial attempts to establish exactly one Adapter for candidate described
// by network/localAddr/remoteAddr. It is the entry point the racing
// engine uses (the listener accepts through StreamListener/QUICListener
// instead); protocol-specific dial logic lives in stream.go, datagram.go
// and quic.go.
type Dialer interface {
	Dial(ctx context.Context, localAddr, remoteAddr net.Addr) (Adapter, error)
}
