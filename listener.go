package taps

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taps-go/taps/internal/core"
	tapserrors "github.com/taps-go/taps/internal/errors"
	"github.com/taps-go/taps/internal/events"
	"github.com/taps-go/taps/internal/multicast"
	"github.com/taps-go/taps/internal/protocol"
	"github.com/taps-go/taps/internal/racing"
	"github.com/taps-go/taps/internal/selector"
	"github.com/taps-go/taps/internal/transport"
)

// ListenOptions tunes a Listener beyond what the Preconnection it was
// born from configures.
type ListenOptions struct {
	// DemuxTTL is how long a datagram demux entry survives without
	// traffic before it is reaped. Zero selects the 2 minute default.
	DemuxTTL time.Duration
}

func (o ListenOptions) demuxTTL() time.Duration {
	if o.DemuxTTL <= 0 {
		return 2 * time.Minute
	}
	return o.DemuxTTL
}

type demuxEntry struct {
	conn     *Connection
	lastSeen time.Time
}

// Listener is the passive-open counterpart of the racing engine (C10):
// it binds every viable (protocol, local-address) pair instead of racing
// among them, per §4.6.
type Listener struct {
	handler    core.EventHandler
	dispatcher *events.Dispatcher
	log        *zap.Logger
	opts       ListenOptions

	mu              sync.Mutex
	streamListeners []streamCloser
	demuxSockets    []*transport.DemuxSocket
	demux           map[string]*demuxEntry
	mcastHandles    []multicast.Handle
	mcastCollab     multicast.Collaborator
	stopped         bool
}

type streamCloser interface {
	Close() error
	LocalAddr() net.Addr
}

func newListener(handler core.EventHandler, log *zap.Logger, opts ListenOptions) *Listener {
	if handler == nil {
		handler = core.NoopHandler{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Listener{
		handler:    handler,
		dispatcher: events.NewDispatcher(0),
		log:        log,
		opts:       opts,
		demux:      make(map[string]*demuxEntry),
	}
}

// listen runs §4.6's four steps: select candidates, expand the local
// endpoint, bind every (protocol, local-addr) pair, and start serving.
func (l *Listener) listen(ctx context.Context, local *core.LocalEndpoint, props *TransportProperties, sec *SecurityParameters, f core.Framer, port uint16, mc multicast.Collaborator) error {
	reg := protocol.DefaultRegistry()
	candidates, err := selector.Select(props.toSelectorLevels(), reg)
	if err != nil {
		le := &tapserrors.ListenError{Operation: "select", Err: err, Details: "candidate selection failed"}
		l.dispatcher.Submit(func() { l.handler.OnListenError(le) })
		return le
	}

	localIPs, err := racing.ExpandLocal(ctx, nil, local)
	if err != nil {
		le := &tapserrors.ListenError{Operation: "resolve", Err: err, Details: "local endpoint expansion failed"}
		l.dispatcher.Submit(func() { l.handler.OnListenError(le) })
		return le
	}

	l.mcastCollab = mc

	var tlsConf *tls.Config
	if sec != nil {
		tlsConf, _ = sec.TLSConfig()
	}

	bound := 0
	var lastErr error
	for _, cand := range candidates {
		for _, ip := range localIPs {
			if ip == nil {
				continue
			}
			if multicast.IsMulticast(ip) && local != nil && props.Direction == UnidirectionalReceive {
				if err := l.joinMulticast(local.Interface, ip, port, cand.Protocol, f); err != nil {
					lastErr = err
					continue
				}
				bound++
				continue
			}

			if err := l.bindOne(ctx, cand.Protocol, ip, port, tlsConf, f); err != nil {
				lastErr = err
				continue
			}
			bound++
		}
	}

	if bound == 0 {
		le := &tapserrors.ListenError{Operation: "bind", Err: lastErr, Details: "no local bind succeeded"}
		l.dispatcher.Submit(func() { l.handler.OnListenError(le) })
		return le
	}

	go l.reapLoop()
	return nil
}

func (l *Listener) bindOne(ctx context.Context, proto protocol.Name, ip net.IP, port uint16, tlsConf *tls.Config, f core.Framer) error {
	switch proto {
	case protocol.TCP:
		ln, err := transport.ListenStream(&net.TCPAddr{IP: ip, Port: int(port)}, nil)
		if err != nil {
			return err
		}
		l.mu.Lock()
		l.streamListeners = append(l.streamListeners, ln)
		l.mu.Unlock()
		go l.acceptLoop(ctx, ln, f)
		return nil

	case protocol.TLSOverTCP:
		if tlsConf == nil {
			return fmt.Errorf("tls-over-tcp listen requires SecurityParameters")
		}
		ln, err := transport.ListenStream(&net.TCPAddr{IP: ip, Port: int(port)}, tlsConf)
		if err != nil {
			return err
		}
		l.mu.Lock()
		l.streamListeners = append(l.streamListeners, ln)
		l.mu.Unlock()
		go l.acceptLoop(ctx, ln, f)
		return nil

	case protocol.QUIC:
		ln, err := transport.ListenQUIC(&net.UDPAddr{IP: ip, Port: int(port)}, tlsConf)
		if err != nil {
			return err
		}
		l.mu.Lock()
		l.streamListeners = append(l.streamListeners, ln)
		l.mu.Unlock()
		go l.acceptLoop(ctx, ln, f)
		return nil

	case protocol.UDP, protocol.DTLSOverUDP:
		sock, err := transport.NewDemuxSocket(&net.UDPAddr{IP: ip, Port: int(port)})
		if err != nil {
			return err
		}
		l.mu.Lock()
		l.demuxSockets = append(l.demuxSockets, sock)
		l.mu.Unlock()
		go sock.Serve(func(data []byte, peer net.Addr) { l.routeDatagram(sock, peer, data, f) })
		return nil

	default:
		return fmt.Errorf("listener: protocol %s has no bind strategy", proto)
	}
}

type streamAccepter interface {
	Accept(ctx context.Context) (transport.Adapter, error)
}

func (l *Listener) acceptLoop(ctx context.Context, ln streamAccepter, f core.Framer) {
	for {
		adapter, err := ln.Accept(ctx)
		if err != nil {
			return
		}
		conn := newConnection(l.handler, l.log)
		conn.bindPassive(ctx, adapter, f)
		l.dispatcher.Submit(func() { l.handler.OnConnectionReceived(conn) })
	}
}

func (l *Listener) routeDatagram(sock *transport.DemuxSocket, peer net.Addr, data []byte, f core.Framer) {
	key := peer.String()

	l.mu.Lock()
	entry, known := l.demux[key]
	if !known {
		conn := newConnection(l.handler, l.log)
		adapter := sock.PeerAdapter(peer)
		conn.bindPassive(context.Background(), adapter, f)
		entry = &demuxEntry{conn: conn, lastSeen: time.Now()}
		l.demux[key] = entry
		l.mu.Unlock()
		l.dispatcher.Submit(func() { l.handler.OnConnectionReceived(conn) })
	} else {
		entry.lastSeen = time.Now()
		l.mu.Unlock()
	}

	entry.conn.Deliver(data, peer, false)
}

func (l *Listener) joinMulticast(iface string, group net.IP, port uint16, proto protocol.Name, f core.Framer) error {
	if l.mcastCollab == nil {
		return fmt.Errorf("listener: multicast local address given but no collaborator configured")
	}
	conn := newConnection(l.handler, l.log)
	conn.mu.Lock()
	conn.state = core.Established
	conn.protocol = string(proto)
	conn.mu.Unlock()
	conn.mcast = l.mcastCollab

	handle, err := l.mcastCollab.Join(iface, group, nil, int(port), func(size int, data []byte, srcPort int) {
		conn.Deliver(data, &net.UDPAddr{IP: group, Port: srcPort}, false)
	})
	if err != nil {
		return err
	}
	conn.mcastHandle = handle

	l.mu.Lock()
	l.mcastHandles = append(l.mcastHandles, handle)
	l.mu.Unlock()

	l.dispatcher.Submit(func() { l.handler.OnConnectionReceived(conn) })
	return nil
}

// reapLoop evicts demux entries idle past the configured TTL.
func (l *Listener) reapLoop() {
	ticker := time.NewTicker(l.opts.demuxTTL() / 4)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			return
		}
		cutoff := time.Now().Add(-l.opts.demuxTTL())
		for k, e := range l.demux {
			if e.lastSeen.Before(cutoff) {
				delete(l.demux, k)
			}
		}
		l.mu.Unlock()
	}
}

// Stop closes every bound socket and fires stopped.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	for _, ln := range l.streamListeners {
		ln.Close()
	}
	for _, s := range l.demuxSockets {
		s.Close()
	}
	for _, h := range l.mcastHandles {
		if l.mcastCollab != nil {
			l.mcastCollab.Leave(h)
		}
	}
	l.mu.Unlock()

	l.dispatcher.Submit(func() { l.handler.OnStopped() })
	l.dispatcher.Stop()
}
