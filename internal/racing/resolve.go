// Package racing implements the racing engine (C9): cross-product
// candidate enumeration over protocols, resolved remote addresses and
// expanded local addresses, staggered launch, and first-wins commit with
// loser cancellation (§4.2).
//
// Host resolution and local-interface expansion are grounded on the
// teacher's interface-enumeration code (internal/transport/udp.go) and
// the specs/007-interface-specific-addressing/contracts/
// interface_resolver.go contract, generalized from "every mDNS-capable
// interface" to "the interfaces/addresses a candidate's LocalEndpoint
// names".
package racing

import (
	"context"
	"net"
	"sort"

	"github.com/taps-go/taps/internal/core"
)

// ResolveRemote produces the IPv6-then-IPv4 ordered address list for a
// RemoteEndpoint: literal IPs the endpoint was given first (in the order
// added), followed by DNS-resolved addresses for its host name, if any.
func ResolveRemote(ctx context.Context, resolver *net.Resolver, ep *core.RemoteEndpoint) ([]net.IP, error) {
	var ips []net.IP
	ips = append(ips, ep.IPs...)

	if ep.HostName != "" {
		if resolver == nil {
			resolver = net.DefaultResolver
		}
		addrs, err := resolver.LookupIPAddr(ctx, ep.HostName)
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			ips = append(ips, a.IP)
		}
	}

	return partitionV6First(ips), nil
}

// ExpandLocal produces the IPv6-then-IPv4 (excluding link-local IPv6)
// ordered address list for a LocalEndpoint's named interface, or its
// literal address/host name as-is if no interface was named. A nil
// LocalEndpoint (no local constraint) yields a single nil entry meaning
// "let the OS choose".
func ExpandLocal(ctx context.Context, resolver *net.Resolver, ep *core.LocalEndpoint) ([]net.IP, error) {
	if ep == nil {
		return []net.IP{nil}, nil
	}

	if ep.Interface != "" {
		ifi, err := net.InterfaceByName(ep.Interface)
		if err != nil {
			return nil, err
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			return nil, err
		}
		var ips []net.IP
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ipNet.IP.To4() == nil && ipNet.IP.IsLinkLocalUnicast() {
				continue
			}
			ips = append(ips, ipNet.IP)
		}
		return partitionV6First(ips), nil
	}

	if len(ep.IPs) > 0 {
		return partitionV6First(append([]net.IP(nil), ep.IPs...)), nil
	}

	if ep.HostName != "" {
		if resolver == nil {
			resolver = net.DefaultResolver
		}
		addrs, err := resolver.LookupIPAddr(ctx, ep.HostName)
		if err != nil {
			return nil, err
		}
		var ips []net.IP
		for _, a := range addrs {
			ips = append(ips, a.IP)
		}
		return partitionV6First(ips), nil
	}

	return []net.IP{nil}, nil
}

// partitionV6First reorders ips so every IPv6 address (per net.IP.To4()
// == nil) precedes every IPv4 address, preserving relative order within
// each family — the "IPv6 list then IPv4 list, concatenate" rule of
// §4.2 step 1.
func partitionV6First(ips []net.IP) []net.IP {
	out := make([]net.IP, 0, len(ips))
	sort.SliceStable(ips, func(i, j int) bool {
		return ips[i].To4() == nil && ips[j].To4() != nil
	})
	out = append(out, ips...)
	return out
}
