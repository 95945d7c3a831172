// Package framer drives the deframe loop that sits between a transport
// adapter's raw byte stream and a Connection's message-delivery events
// (C7). It owns the receive cursor and the undelivered-backlog budget;
// the application-supplied core.Framer only implements Encode/Decode/
// Start.
//
// Grounded on the teacher's internal/transport/udp.go 64KiB socket read
// buffer for the default backlog size, and on spec.md §9's resolution of
// the framer-failure open question: NeedMoreData means "more data will
// help", bounded by a byte budget after which the connection fires
// ReceiveError and the driver stops invoking the framer.
package framer

import (
	"context"
	"sync"

	tapserrors "github.com/taps-go/taps/internal/errors"
	"github.com/taps-go/taps/internal/core"
)

// DefaultMaxBacklog is the byte budget a connection's undelivered receive
// buffer may grow to before the driver gives up and reports ReceiveError,
// matching the teacher's 64KiB socket buffer choice.
const DefaultMaxBacklog = 64 * 1024

// Message is one complete, deframed application message plus its
// context.
type Message struct {
	Ctx  core.MessageContext
	Data []byte
	EOM  bool
}

// Driver serializes deframe invocations for one connection: at most one
// Decode call is ever in flight, matching §4.4's invariant. Successfully
// deframed messages are delivered via the Deliver callback in arrival
// order; a backlog overflow is reported via the Fail callback exactly
// once, after which the driver stops invoking the framer for this
// connection.
type Driver struct {
	mu         sync.Mutex
	framer     core.Framer
	buf        []byte
	maxBacklog int
	failed     bool

	Deliver func(Message)
	Fail    func(error)
}

// NewDriver wraps f with a deframe driver using the given backlog budget
// (0 selects DefaultMaxBacklog).
func NewDriver(f core.Framer, maxBacklog int) *Driver {
	if maxBacklog <= 0 {
		maxBacklog = DefaultMaxBacklog
	}
	return &Driver{framer: f, maxBacklog: maxBacklog}
}

// Start invokes the wrapped framer's Start hook once, when the owning
// connection reaches Established.
func (d *Driver) Start(ctx context.Context) error {
	return d.framer.Start(ctx)
}

// Feed appends newly arrived bytes and drains as many complete messages
// as the framer can currently produce. The Connection calls Feed from
// the single goroutine reading its adapter, so no internal locking
// against concurrent Feed calls is required; the mutex here guards
// against a Feed racing a concurrent read of failed state only.
func (d *Driver) Feed(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failed {
		return
	}

	d.buf = append(d.buf, data...)

	for {
		msgCtx, msg, consumed, eom, err := d.framer.Decode(d.buf)
		if err != nil {
			if core.IsNeedMoreData(err) {
				d.checkBacklog(nil)
				return
			}
			// A Failed decode yields the pending receive until more
			// data arrives, per §4.4; repeated Failed results alongside
			// a growing buffer eventually trip the budget check below.
			d.checkBacklog(err)
			return
		}

		out := make([]byte, len(msg))
		copy(out, msg)
		if d.Deliver != nil {
			d.Deliver(Message{Ctx: msgCtx, Data: out, EOM: eom})
		}

		if consumed >= len(d.buf) {
			d.buf = d.buf[:0]
			return
		}
		d.buf = d.buf[consumed:]
	}
}

func (d *Driver) checkBacklog(decodeErr error) {
	if len(d.buf) <= d.maxBacklog {
		return
	}
	d.failed = true
	if d.Fail == nil {
		return
	}
	if decodeErr != nil {
		d.Fail(&tapserrors.ReceiveError{Err: decodeErr, Details: "framer decode failed"})
		return
	}
	d.Fail(&tapserrors.ReceiveError{Details: "undelivered framer backlog exceeded the configured budget"})
}
