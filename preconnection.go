package taps

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/pion/dtls/v2"
	"go.uber.org/zap"

	"github.com/taps-go/taps/internal/core"
	tapserrors "github.com/taps-go/taps/internal/errors"
	"github.com/taps-go/taps/internal/multicast"
	"github.com/taps-go/taps/internal/protocol"
	"github.com/taps-go/taps/internal/racing"
	"github.com/taps-go/taps/internal/selector"
	"github.com/taps-go/taps/internal/transport"
	"github.com/taps-go/taps/mcast"
)

// Preconnection is the immutable-after-build intent bundle (C11): local/
// remote endpoints, transport properties, security parameters and an
// optional framer, plus the event handler every Connection/Listener it
// spawns inherits. Built with NewPreconnection and the With* functional
// options, following the teacher's options-struct pattern
// (responder/options.go).
type Preconnection struct {
	local    *LocalEndpoint
	remote   *RemoteEndpoint
	props    *TransportProperties
	security *SecurityParameters
	framer   core.Framer
	handler  core.EventHandler
	runtime  Runtime
	log      *zap.Logger
	mcast    multicast.Collaborator

	raceOpts   racing.Options
	listenOpts ListenOptions
}

// Option configures a Preconnection at construction time, matching the
// teacher's functional-options style.
type Option func(*Preconnection)

// WithProperties sets the transport properties the candidate selector
// ranks protocols by. NewTransportProperties() is used if omitted.
func WithProperties(p *TransportProperties) Option {
	return func(pc *Preconnection) { pc.props = p }
}

// WithSecurityParameters sets the identity/trust material used when a
// selected candidate requires TLS.
func WithSecurityParameters(s *SecurityParameters) Option {
	return func(pc *Preconnection) { pc.security = s }
}

// WithFramer installs the application-pluggable codec.
func WithFramer(f Framer) Option {
	return func(pc *Preconnection) { pc.framer = f }
}

// WithLogger overrides the zap.Logger every spawned Connection/Listener
// logs through. Defaults to zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(pc *Preconnection) { pc.log = log }
}

// WithRuntime overrides the Runtime used to spawn background work.
// Defaults to GoRuntime{}.
func WithRuntime(r Runtime) Option {
	return func(pc *Preconnection) { pc.runtime = r }
}

// WithMulticastCollaborator installs the Join/Leave implementation used
// for multicast local endpoints. Defaults to taps/mcast.Joiner{}.
func WithMulticastCollaborator(c multicast.Collaborator) Option {
	return func(pc *Preconnection) { pc.mcast = c }
}

// WithRaceOptions overrides the racing engine's timing.
func WithRaceOptions(o racing.Options) Option {
	return func(pc *Preconnection) { pc.raceOpts = o }
}

// WithListenOptions overrides Listener-specific tuning (e.g. demux TTL).
func WithListenOptions(o ListenOptions) Option {
	return func(pc *Preconnection) { pc.listenOpts = o }
}

// NewPreconnection builds a Preconnection with defaulted transport
// properties, applying every opt in order.
func NewPreconnection(opts ...Option) *Preconnection {
	pc := &Preconnection{
		props: NewTransportProperties(),
		log:   zap.NewNop(),
		mcast: mcast.Joiner{},
	}
	for _, opt := range opts {
		opt(pc)
	}
	return pc
}

// SetLocalEndpoint sets the local attachment point used for Initiate's
// candidate source address and Listen's bind address.
func (pc *Preconnection) SetLocalEndpoint(ep *LocalEndpoint) *Preconnection {
	pc.local = ep
	return pc
}

// SetRemoteEndpoint sets the remote attachment point Initiate connects
// to. Required by Initiate.
func (pc *Preconnection) SetRemoteEndpoint(ep *RemoteEndpoint) *Preconnection {
	pc.remote = ep
	return pc
}

// SetHandler installs the event sink every spawned Connection/Listener
// inherits at birth.
func (pc *Preconnection) SetHandler(h core.EventHandler) *Preconnection {
	pc.handler = h
	return pc
}

// SetSecurityParameters sets the identity/trust material used when a
// selected candidate requires TLS.
func (pc *Preconnection) SetSecurityParameters(s *SecurityParameters) *Preconnection {
	pc.security = s
	return pc
}

// SetProperties replaces the transport properties the candidate selector
// ranks protocols by.
func (pc *Preconnection) SetProperties(p *TransportProperties) *Preconnection {
	pc.props = p
	return pc
}

// LocalEndpoint returns the configured local endpoint, or nil.
func (pc *Preconnection) LocalEndpoint() *LocalEndpoint { return pc.local }

// RemoteEndpoint returns the configured remote endpoint, or nil.
func (pc *Preconnection) RemoteEndpoint() *RemoteEndpoint { return pc.remote }

// SecurityParameters returns the configured security parameters, or nil.
func (pc *Preconnection) SecurityParameters() *SecurityParameters { return pc.security }

// Properties returns the configured transport properties.
func (pc *Preconnection) Properties() *TransportProperties { return pc.props }

func (pc *Preconnection) runtimeOrDefault() Runtime {
	if pc.runtime != nil {
		return pc.runtime
	}
	return GoRuntime{}
}

func (pc *Preconnection) port() uint16 {
	if pc.remote != nil && pc.remote.HasPort() {
		return pc.remote.Port
	}
	if pc.local != nil && pc.local.HasPort() {
		return pc.local.Port
	}
	return 0
}

// Initiate spawns the racing engine (C9) and returns a Connection whose
// state is initially Establishing; state becomes Established once a
// candidate wins, or Closed (with initiate_error fired) if every
// candidate fails. Requires RemoteEndpoint.
func (pc *Preconnection) Initiate(ctx context.Context) (*Connection, error) {
	if pc.remote == nil {
		return nil, &tapserrors.ConstructionError{Details: "Initiate requires a RemoteEndpoint"}
	}
	if err := pc.remote.Err(); err != nil {
		return nil, &tapserrors.ConstructionError{Details: err.Error()}
	}
	if pc.local != nil {
		if err := pc.local.Err(); err != nil {
			return nil, &tapserrors.ConstructionError{Details: err.Error()}
		}
	}

	reg := protocol.DefaultRegistry()
	selected, err := selector.Select(pc.props.toSelectorLevels(), reg)
	if err != nil {
		conn := newConnection(pc.handler, pc.log)
		ie := &tapserrors.InitiateError{Operation: "select", Err: err, Details: "candidate selection failed"}
		conn.mu.Lock()
		conn.state = core.Closed
		conn.mu.Unlock()
		conn.dispatcher.Submit(func() { conn.handler.OnInitiateError(ie) })
		conn.dispatcher.Stop()
		return conn, ie
	}

	conn := newConnection(pc.handler, pc.log)
	conn.local = pc.local
	conn.remote = pc.remote

	pc.runtimeOrDefault().Go(func() {
		pc.race(context.Background(), conn, selected)
	})

	return conn, nil
}

func (pc *Preconnection) race(ctx context.Context, conn *Connection, selected []selector.Candidate) {
	remoteIPs, err := racing.ResolveRemote(ctx, nil, pc.remote)
	if err != nil {
		pc.failInitiate(conn, "resolve", err, "remote host resolution failed")
		return
	}

	localIPs, err := racing.ExpandLocal(ctx, nil, pc.local)
	if err != nil {
		pc.failInitiate(conn, "resolve", err, "local endpoint expansion failed")
		return
	}

	candidates := racing.Enumerate(selected, remoteIPs, localIPs, pc.port())
	if len(candidates) == 0 {
		pc.failInitiate(conn, "select", nil, "no candidate addresses available")
		return
	}

	var tlsConf *tls.Config
	var dtlsConf *dtls.Config
	if pc.security != nil {
		tlsConf, _ = pc.security.TLSConfig()
		dtlsConf, _ = pc.security.DTLSConfig()
	}

	winner, err := racing.Race(ctx, candidates, pc.dialerFor(tlsConf, dtlsConf), pc.raceOpts)
	if err != nil {
		pc.failInitiate(conn, "connect", err, "every candidate failed")
		return
	}

	conn.bind(ctx, winner.Adapter, pc.framer)
}

func (pc *Preconnection) failInitiate(conn *Connection, op string, err error, details string) {
	conn.mu.Lock()
	conn.state = core.Closed
	conn.mu.Unlock()
	ie := &tapserrors.InitiateError{Operation: op, Err: err, Details: details}
	conn.dispatcher.Submit(func() { conn.handler.OnInitiateError(ie) })
	conn.dispatcher.Stop()
}

func (pc *Preconnection) dialerFor(tlsConf *tls.Config, dtlsConf *dtls.Config) racing.DialerFor {
	return func(name protocol.Name) (transport.Dialer, error) {
		switch name {
		case protocol.TCP:
			return &transport.StreamDialer{}, nil
		case protocol.TLSOverTCP:
			if tlsConf == nil {
				return nil, fmt.Errorf("tls-over-tcp requires SecurityParameters")
			}
			return &transport.StreamDialer{TLSConfig: tlsConf}, nil
		case protocol.UDP:
			return &transport.DatagramDialer{}, nil
		case protocol.DTLSOverUDP:
			if dtlsConf == nil {
				return nil, fmt.Errorf("dtls-over-udp requires SecurityParameters")
			}
			return &transport.DatagramDialer{DTLSConfig: dtlsConf}, nil
		case protocol.QUIC:
			return &transport.QUICDialer{TLSConfig: tlsConf}, nil
		default:
			return nil, fmt.Errorf("no dialer registered for protocol %s", name)
		}
	}
}

// Listen spawns a Listener (C10) bound to every viable (protocol,
// local-address) pair. Requires LocalEndpoint.
func (pc *Preconnection) Listen(ctx context.Context) (*Listener, error) {
	if pc.local == nil {
		return nil, &tapserrors.ConstructionError{Details: "Listen requires a LocalEndpoint"}
	}
	if err := pc.local.Err(); err != nil {
		return nil, &tapserrors.ConstructionError{Details: err.Error()}
	}
	if pc.props.Direction == UnidirectionalSend {
		for _, ip := range pc.local.IPs {
			if multicast.IsMulticast(ip) {
				return nil, &tapserrors.ConstructionError{Details: "Listen does not support UnidirectionalSend to a multicast local address"}
			}
		}
	}

	mc := pc.mcast
	l := newListener(pc.handler, pc.log, pc.listenOpts)
	if err := l.listen(ctx, pc.local, pc.props, pc.security, pc.framer, pc.port(), mc); err != nil {
		return l, err
	}
	return l, nil
}
