package core

import (
	"context"
	"net"
)

// ConnectionState is the four-state machine from §3 of SPEC_FULL.md:
// Establishing may transition directly to Closed on failure; exactly one
// transport adapter is bound when the state is Established, zero
// otherwise.
type ConnectionState int

const (
	Establishing ConnectionState = iota
	Established
	Closing
	Closed
)

// String renders the state the way a log line or test failure message
// wants it.
func (s ConnectionState) String() string {
	switch s {
	case Establishing:
		return "Establishing"
	case Established:
		return "Established"
	case Closing:
		return "Closing"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Direction is the symbolic value the "direction" transport property
// takes — see §3 of SPEC_FULL.md.
type Direction int

const (
	Bidirectional Direction = iota
	UnidirectionalSend
	UnidirectionalReceive
)

func (d Direction) String() string {
	switch d {
	case Bidirectional:
		return "Bidirectional"
	case UnidirectionalSend:
		return "Unidirectional-Send"
	case UnidirectionalReceive:
		return "Unidirectional-Receive"
	default:
		return "Unknown"
	}
}

// MessageContext carries per-message metadata: the peer address for
// datagram connections, and any fields a framer chooses to attach.
type MessageContext struct {
	PeerAddr net.Addr
	Fields   map[string]any
}

// Connection is the minimal handle surface internal packages (transport
// adapters, the racing engine, the listener's datagram demux map) need in
// order to deliver events and inspect state, without depending on the
// root package's concrete connection type. The root package's
// *taps.Connection struct implements this interface.
type Connection interface {
	// State returns the connection's current state. Safe for concurrent
	// use; adapters call it from connect_made-equivalent callbacks to
	// decide whether they lost the race.
	State() ConnectionState

	// LocalEndpoint and RemoteEndpoint return the (possibly adapter-
	// resolved) endpoints this connection is bound to.
	LocalEndpoint() *LocalEndpoint
	RemoteEndpoint() *RemoteEndpoint

	// Send queues data for transmission and returns its message
	// reference synchronously.
	Send(ctx context.Context, data []byte) (uint64, error)

	// Receive queues a read, honoring minIncomplete/maxLength the way
	// §4.3 of SPEC_FULL.md describes (maxLength == -1 means "all
	// available").
	Receive(ctx context.Context, minIncomplete, maxLength int)

	// Close transitions the connection to Closing and schedules the
	// adapter close.
	Close(ctx context.Context) error
}

// Framer is the application-pluggable codec inserted into the send/receive
// path (C7). Decode returns ErrNeedMoreData when the buffer does not yet
// hold a complete message; any other error is a permanent framing failure
// for that attempt (see internal/framer's byte-budget policy for how
// repeated failures are handled).
type Framer interface {
	// Start is invoked once, when the connection it is attached to
	// reaches Established.
	Start(ctx context.Context) error

	// Encode transforms an application message into wire bytes.
	Encode(ctx context.Context, msg []byte, msgCtx MessageContext, eom bool) ([]byte, error)

	// Decode attempts to pull one complete message off the front of buf.
	// On success it returns the message, the number of bytes of buf it
	// consumed, and whether this message completes a logical unit (eom).
	// On ErrNeedMoreData, consumed and the returned message are ignored.
	Decode(buf []byte) (msgCtx MessageContext, msg []byte, consumed int, eom bool, err error)
}

// ErrNeedMoreData is returned by Framer.Decode when the buffer does not
// yet contain a complete message.
var ErrNeedMoreData = needMoreData{}

type needMoreData struct{}

func (needMoreData) Error() string { return "framer: need more data" }

// IsNeedMoreData reports whether err is (or wraps) ErrNeedMoreData.
func IsNeedMoreData(err error) bool {
	_, ok := err.(needMoreData)
	return ok
}

// EventHandler is the event sink a Preconnection is configured with and
// every Connection/Listener it spawns inherits — one method per on_*
// callback in §4.5/§6 of SPEC_FULL.md, replacing the source's per-event
// callback slots per the §9 redesign note. All methods are invoked from a
// single per-Connection/Listener dispatch goroutine, never synchronously
// from the call that caused them, and never concurrently with each other.
//
// Implementations that do not care about a given event can embed
// NoopHandler and override only the methods they need.
type EventHandler interface {
	OnReady(conn Connection)
	OnInitiateError(err error)
	OnConnectionReceived(conn Connection)
	OnListenError(err error)
	OnStopped()
	OnSent(ref uint64)
	OnSendError(ref uint64, err error)
	OnExpired(ref uint64)
	OnReceived(msg []byte, ctx MessageContext)
	OnReceivedPartial(msg []byte, ctx MessageContext, eom bool)
	OnReceiveError(err error)
	OnConnectionError(err error)
	OnClosed()
}

// NoopHandler implements EventHandler with no-op methods so callers can
// embed it and override only the events they care about.
type NoopHandler struct{}

func (NoopHandler) OnReady(Connection)                             {}
func (NoopHandler) OnInitiateError(error)                          {}
func (NoopHandler) OnConnectionReceived(Connection)                {}
func (NoopHandler) OnListenError(error)                            {}
func (NoopHandler) OnStopped()                                     {}
func (NoopHandler) OnSent(uint64)                                  {}
func (NoopHandler) OnSendError(uint64, error)                      {}
func (NoopHandler) OnExpired(uint64)                               {}
func (NoopHandler) OnReceived([]byte, MessageContext)              {}
func (NoopHandler) OnReceivedPartial([]byte, MessageContext, bool) {}
func (NoopHandler) OnReceiveError(error)                           {}
func (NoopHandler) OnConnectionError(error)                        {}
func (NoopHandler) OnClosed()                                      {}
