package taps

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/taps-go/taps/internal/core"
	tapserrors "github.com/taps-go/taps/internal/errors"
	"github.com/taps-go/taps/internal/events"
	"github.com/taps-go/taps/internal/framer"
	"github.com/taps-go/taps/internal/multicast"
	"github.com/taps-go/taps/internal/transport"
)

// Connection owns one established transport adapter, the message
// reference counter, and the event-dispatch goroutine (§4.5). Values are
// never constructed directly by applications — they come back from
// Preconnection.Initiate or as the connection_received argument to a
// Listener's handler.
type Connection struct {
	mu         sync.Mutex
	state      core.ConnectionState
	adapter    transport.Adapter
	protocol   string
	isDatagram bool

	local  *core.LocalEndpoint
	remote *core.RemoteEndpoint

	framer      core.Framer
	framerDrv   *framer.Driver
	nextRef     uint64
	handler     core.EventHandler
	dispatcher  *events.Dispatcher
	log         *zap.Logger

	msgCh chan receivedMessage

	streamMu      sync.Mutex
	streamBuf     []byte
	streamAtEOF   bool
	streamWaiters []streamWaiter

	mcast        multicast.Collaborator
	mcastHandle  multicast.Handle
}

type receivedMessage struct {
	data []byte
	ctx  core.MessageContext
	eom  bool
}

type streamWaiter struct {
	minIncomplete int
	maxLength     int
	resolve       func(data []byte, eom bool)
}

func newConnection(handler core.EventHandler, log *zap.Logger) *Connection {
	if handler == nil {
		handler = core.NoopHandler{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Connection{
		state:      core.Establishing,
		handler:    handler,
		dispatcher: events.NewDispatcher(0),
		log:        log,
		msgCh:      make(chan receivedMessage, 256),
	}
}

// State implements core.Connection.
func (c *Connection) State() core.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LocalEndpoint implements core.Connection.
func (c *Connection) LocalEndpoint() *core.LocalEndpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// RemoteEndpoint implements core.Connection.
func (c *Connection) RemoteEndpoint() *core.RemoteEndpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

// bind installs the winning adapter and transitions the connection to
// Established exactly once, starting the framer and the adapter's read
// loop, then fires ready. Called by Initiate after the racing engine
// commits a winner.
func (c *Connection) bind(ctx context.Context, adapter transport.Adapter, f core.Framer) {
	c.install(ctx, adapter, f)
	c.dispatcher.Submit(func() { c.handler.OnReady(c) })
	startReadLoop(adapter, c)
}

// bindPassive is bind's counterpart for a connection the listener
// spawned (accepted stream client, or a datagram demux entry's first
// packet): it is Established immediately, with no ready event — §4.6
// point 3 and §4.3's demux adapter text both specify connection_received
// as the only event fired for a freshly spawned passive connection.
func (c *Connection) bindPassive(ctx context.Context, adapter transport.Adapter, f core.Framer) {
	c.install(ctx, adapter, f)
	startReadLoop(adapter, c)
}

func (c *Connection) install(ctx context.Context, adapter transport.Adapter, f core.Framer) {
	c.mu.Lock()
	c.adapter = adapter
	c.protocol = adapter.Protocol()
	c.isDatagram = isDatagramProtocol(c.protocol)
	c.framer = f
	if f != nil {
		drv := framer.NewDriver(f, 0)
		drv.Deliver = func(m framer.Message) {
			c.msgCh <- receivedMessage{data: m.Data, ctx: m.Ctx, eom: m.EOM}
		}
		drv.Fail = func(err error) {
			c.dispatcher.Submit(func() { c.handler.OnReceiveError(err) })
		}
		c.framerDrv = drv
	}
	c.state = core.Established
	c.mu.Unlock()

	if f != nil {
		if err := f.Start(ctx); err != nil {
			c.log.Warn("framer start failed", zap.Error(err))
		}
	}
}

// startReadLoop dispatches to the right adapter-specific ReadLoop based
// on its concrete type, since Adapter itself does not expose ReadLoop
// (stream, QUIC and active-side datagram adapters have one; demux peer
// adapters are fed by the listener's shared socket instead).
func startReadLoop(adapter transport.Adapter, sink transport.Sink) {
	type reader interface{ ReadLoop(transport.Sink) }
	if r, ok := adapter.(reader); ok {
		go r.ReadLoop(sink)
	}
}

// TryEstablish implements transport.Sink. Nothing in this module calls
// it: the racing engine's winner is installed through bind (Race cancels
// losers before they can report success), and the listener installs each
// accepted or demultiplexed adapter through bindPassive.
func (c *Connection) TryEstablish(a transport.Adapter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == core.Established {
		return false
	}
	c.adapter = a
	c.state = core.Established
	return true
}

// Deliver implements transport.Sink.
func (c *Connection) Deliver(data []byte, peer net.Addr, eof bool) {
	if c.framerDrv != nil {
		c.framerDrv.Feed(data)
		return
	}

	if c.isDatagram {
		// Every datagram is a complete message: no coalescing, no
		// partial delivery (§4.3).
		c.msgCh <- receivedMessage{data: data, ctx: core.MessageContext{PeerAddr: peer}, eom: true}
		return
	}

	c.streamMu.Lock()
	c.streamBuf = append(c.streamBuf, data...)
	if eof {
		c.streamAtEOF = true
	}
	c.serviceStreamWaiters()
	c.streamMu.Unlock()
}

// Failed implements transport.Sink.
func (c *Connection) Failed(err error) {
	c.dispatcher.Submit(func() { c.handler.OnReceiveError(err) })
}

// Lost implements transport.Sink.
func (c *Connection) Lost(exc error) {
	c.mu.Lock()
	if c.state == core.Closed || c.state == core.Closing {
		// Close already owns the transition and fires closed itself.
		c.mu.Unlock()
		return
	}
	c.state = core.Closed
	c.mu.Unlock()
	if exc == nil {
		c.dispatcher.Submit(func() { c.handler.OnClosed() })
	} else {
		c.dispatcher.Submit(func() { c.handler.OnConnectionError(&tapserrors.ConnectionError{Operation: "read", Err: exc}) })
	}
	c.dispatcher.Stop()
}

// Send implements core.Connection. It returns the assigned message
// reference synchronously; sent/send_error are delivered asynchronously
// via the handler, per §4.5.
func (c *Connection) Send(ctx context.Context, data []byte) (uint64, error) {
	ref := atomic.AddUint64(&c.nextRef, 1)

	c.mu.Lock()
	state := c.state
	adapter := c.adapter
	f := c.framer
	c.mu.Unlock()

	if state != core.Established {
		c.dispatcher.Submit(func() {
			c.handler.OnSendError(ref, &tapserrors.SendError{Ref: ref, Details: "connection is not Established"})
		})
		return ref, nil
	}

	payload := data
	if f != nil {
		encoded, err := f.Encode(ctx, data, core.MessageContext{}, true)
		if err != nil {
			c.dispatcher.Submit(func() {
				c.handler.OnSendError(ref, &tapserrors.SendError{Ref: ref, Err: err, Details: "framer encode failed"})
			})
			return ref, nil
		}
		payload = encoded
	}

	if err := adapter.Write(ctx, payload); err != nil {
		c.dispatcher.Submit(func() {
			c.handler.OnSendError(ref, &tapserrors.SendError{Ref: ref, Err: err, Details: "write failed"})
		})
		return ref, nil
	}

	c.dispatcher.Submit(func() { c.handler.OnSent(ref) })
	return ref, nil
}

// Close implements core.Connection.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state == core.Closed || c.state == core.Closing {
		c.mu.Unlock()
		return nil
	}
	c.state = core.Closing
	adapter := c.adapter
	mc := c.mcast
	mh := c.mcastHandle
	c.mu.Unlock()

	if mc != nil && mh != nil {
		mc.Leave(mh)
	}

	var err error
	if adapter != nil {
		err = adapter.Close()
	}

	c.mu.Lock()
	c.state = core.Closed
	c.mu.Unlock()

	c.dispatcher.Submit(func() { c.handler.OnClosed() })
	c.dispatcher.Stop()
	return err
}
