// Package multicast defines the multicast join/leave collaborator
// contract (§6) and the IsMulticast helper the listener uses to decide
// when to call it. It holds no join bookkeeping of its own; the listener
// keeps the handles Join returns. taps/mcast.Joiner is the
// default, Go-native implementation; applications may supply another one
// that satisfies the same Collaborator interface.
package multicast

import "net"

// PacketFunc is the callback a Collaborator invokes for every multicast
// packet it receives on behalf of a join: size, payload, and the source
// port. The listener wires this straight to the Deliver method of the
// Connection it creates for the join.
type PacketFunc func(size int, data []byte, srcPort int)

// Collaborator is the join/leave contract of §6: "initialize(loop,
// add_fd_reader, remove_fd_reader), join(handle, listener, group,
// source, port, packet_cb) -> ctx, leave(ctx)". The loop/fd-reader
// plumbing from the source's asyncio design collapses here: a Go
// Collaborator drives its own read goroutine and simply calls back into
// packet_cb, so no add_fd_reader/remove_fd_reader registration step is
// needed.
type Collaborator interface {
	// Join starts receiving group traffic arriving on iface (or the
	// default interface if iface is empty) at port, invoking cb for
	// every received packet. It returns an opaque handle for Leave.
	Join(iface string, group net.IP, source net.IP, port int, cb PacketFunc) (Handle, error)

	// Leave stops a previously joined group and releases its resources.
	Leave(h Handle) error
}

// Handle is an opaque join context returned by Collaborator.Join.
type Handle interface{}

// IsMulticast reports whether ip is in the multicast range, the
// condition the listener uses to decide whether a local address should
// be bound directly or handed to a Collaborator instead (§4.6 point 3).
func IsMulticast(ip net.IP) bool {
	return ip.IsMulticast()
}
