package transport

import "net"

// reusableListenConfig returns a net.ListenConfig whose Control hook sets
// the platform's port-sharing socket option before bind, so more than one
// datagram socket can own the same local (ip, port) pair. The listener in
// §4.6 binds every viable (protocol, local address) pair independently;
// plain udp and dtls-over-udp candidates on the same address need to
// coexist on one port, and so do multiple multicast receivers.
func reusableListenConfig() net.ListenConfig {
	return net.ListenConfig{Control: setReusePort}
}

// ReusableListenConfig is the exported form of reusableListenConfig, for
// packages outside internal/transport (taps/mcast's multicast joiner)
// that need the same port-sharing behavior on their own sockets.
func ReusableListenConfig() net.ListenConfig {
	return reusableListenConfig()
}
