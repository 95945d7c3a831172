// Package mcast is the default, Go-native implementation of the
// multicast join/leave collaborator contract (§6). It is kept outside
// internal because applications may supply their own collaborator
// instead; this package is one concrete implementation of that contract,
// not the contract itself (internal/multicast.Collaborator).
//
// Grounded on the teacher's own golang.org/x/net/ipv4 dependency
// (internal/transport/udp.go's ipv4.PacketConn usage), generalized from
// mDNS's fixed 224.0.0.251 group to an arbitrary caller-supplied group.
package mcast

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/taps-go/taps/internal/multicast"
	"github.com/taps-go/taps/internal/transport"
)

// Joiner is the default multicast.Collaborator: it opens one UDP socket
// per join, wraps it in the appropriate golang.org/x/net/ipv4 or ipv6
// PacketConn, and joins the requested group on the requested interface
// (or on the system's default multicast interface if iface is empty).
// The source argument is not used; joins are any-source.
type Joiner struct{}

type joinHandle struct {
	conn   *net.UDPConn
	stop   chan struct{}
	wg     sync.WaitGroup
}

// Join implements multicast.Collaborator.
func (Joiner) Join(iface string, group net.IP, source net.IP, port int, cb multicast.PacketFunc) (multicast.Handle, error) {
	// SO_REUSEADDR/SO_REUSEPORT let more than one receiver (e.g. two
	// Connections joining the same group on different interfaces, or a
	// second process) bind this port without EADDRINUSE.
	lc := transport.ReusableListenConfig()
	pc, err := lc.ListenPacket(context.Background(), "udp", (&net.UDPAddr{Port: port}).String())
	if err != nil {
		return nil, fmt.Errorf("mcast: listen: %w", err)
	}
	conn := pc.(*net.UDPConn)

	var ifi *net.Interface
	if iface != "" {
		found, err := net.InterfaceByName(iface)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("mcast: interface %q: %w", iface, err)
		}
		ifi = found
	}

	if group.To4() != nil {
		pconn := ipv4.NewPacketConn(conn)
		if err := pconn.JoinGroup(ifi, &net.UDPAddr{IP: group}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("mcast: join group %s: %w", group, err)
		}
	} else {
		pconn := ipv6.NewPacketConn(conn)
		if err := pconn.JoinGroup(ifi, &net.UDPAddr{IP: group}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("mcast: join group %s: %w", group, err)
		}
	}

	h := &joinHandle{conn: conn, stop: make(chan struct{})}
	h.wg.Add(1)
	go h.readLoop(cb)
	return h, nil
}

func (h *joinHandle) readLoop(cb multicast.PacketFunc) {
	defer h.wg.Done()
	buf := make([]byte, 64*1024)
	for {
		n, addr, err := h.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		srcPort := 0
		if addr != nil {
			srcPort = addr.Port
		}
		if n > 0 && cb != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			cb(n, chunk, srcPort)
		}
	}
}

// Leave implements multicast.Collaborator.
func (Joiner) Leave(handle multicast.Handle) error {
	h, ok := handle.(*joinHandle)
	if !ok {
		return fmt.Errorf("mcast: leave called with a foreign handle")
	}
	err := h.conn.Close()
	h.wg.Wait()
	return err
}
