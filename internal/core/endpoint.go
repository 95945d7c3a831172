// Package core holds the value types and narrow interfaces shared between
// the public taps package and the internal machinery (racing, transport,
// framer, multicast) that implements it. Keeping them here — rather than
// in the root package — lets internal/racing, internal/transport and
// friends depend on these shapes without importing the root package that
// in turn depends on them. The root package re-exports the endpoint,
// framer, message-context and direction names via type aliases; the
// others (ConnectionState, Connection, EventHandler, NoopHandler,
// IsNeedMoreData) have no alias in the root package.
package core

import "net"

// Endpoint is the data shared by LocalEndpoint and RemoteEndpoint: an
// optional host name, an ordered set of resolved IP literals, and an
// optional port. See §3 of SPEC_FULL.md.
//
// Builder methods (With*) never return an error — they match the
// fluent chain spec.md §6 describes — so a malformed IP literal is
// recorded on Err and surfaces synchronously when the endpoint is handed
// to Preconnection.Initiate/Listen, matching §7's "construction-time
// errors are raised synchronously to the builder caller".
type Endpoint struct {
	HostName string
	IPs      []net.IP
	Port     uint16
	hasPort  bool
	err      error
}

// withPort records the port to use for this endpoint.
func (e *Endpoint) withPort(port uint16) {
	e.Port = port
	e.hasPort = true
}

// HasPort reports whether a port was ever set on this endpoint.
func (e *Endpoint) HasPort() bool { return e.hasPort }

// Err returns the first malformed-address error recorded by a With*
// builder call, if any.
func (e *Endpoint) Err() error { return e.err }

// withAddress appends an IP literal to the endpoint's address set.
func (e *Endpoint) withAddress(addr string) {
	ip := net.ParseIP(addr)
	if ip == nil {
		if e.err == nil {
			e.err = &invalidAddressError{addr}
		}
		return
	}
	e.IPs = append(e.IPs, ip)
}

type invalidAddressError struct{ addr string }

func (e *invalidAddressError) Error() string { return "invalid IP literal: " + e.addr }

// LocalEndpoint describes a local attachment point: an optional interface,
// an optional bound address, and an optional port. Immutable once handed
// to Preconnection.Initiate/Listen and observed by the racing engine or
// listener, per the §3 ownership invariant.
type LocalEndpoint struct {
	Endpoint
	Interface string
}

// WithInterface restricts this local endpoint to a named network
// interface (e.g. "eth0"). The racing engine and listener enumerate that
// interface's addresses, IPv6 (excluding link-local) before IPv4.
func (l *LocalEndpoint) WithInterface(name string) *LocalEndpoint {
	l.Interface = name
	return l
}

// WithAddress binds this local endpoint to a specific literal IP address.
func (l *LocalEndpoint) WithAddress(addr string) *LocalEndpoint {
	l.withAddress(addr)
	return l
}

// WithHostName sets a host name to resolve for this local endpoint. Rare
// in practice (most local endpoints use WithInterface or WithAddress) but
// permitted by the same Endpoint shape RemoteEndpoint uses.
func (l *LocalEndpoint) WithHostName(name string) *LocalEndpoint {
	l.HostName = name
	return l
}

// WithPort sets the local port to bind or connect from.
func (l *LocalEndpoint) WithPort(port uint16) *LocalEndpoint {
	l.withPort(port)
	return l
}

// RemoteEndpoint describes a remote attachment point: a host name to
// resolve, and/or literal IP addresses, plus a port.
type RemoteEndpoint struct {
	Endpoint
}

// WithHostName sets the host name to resolve for this remote endpoint.
func (r *RemoteEndpoint) WithHostName(name string) *RemoteEndpoint {
	r.HostName = name
	return r
}

// WithAddress appends a literal IP address to try for this remote
// endpoint, bypassing DNS resolution for that address.
func (r *RemoteEndpoint) WithAddress(addr string) *RemoteEndpoint {
	r.withAddress(addr)
	return r
}

// WithPort sets the remote port to connect to.
func (r *RemoteEndpoint) WithPort(port uint16) *RemoteEndpoint {
	r.withPort(port)
	return r
}
