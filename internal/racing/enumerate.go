package racing

import (
	"net"

	"github.com/taps-go/taps/internal/selector"
)

// Enumerate builds the full candidate set as the cross-product of
// protocols × remote addresses × (local addresses | {none}), preserving
// the ordering already established by each input slice — §4.2 step 3.
func Enumerate(protos []selector.Candidate, remoteIPs []net.IP, localIPs []net.IP, port uint16) []Candidate {
	var out []Candidate
	for _, p := range protos {
		for _, rip := range remoteIPs {
			remote := &net.TCPAddr{IP: rip, Port: int(port)}
			for _, lip := range localIPs {
				var local net.Addr
				if lip != nil {
					local = &net.TCPAddr{IP: lip}
				}
				out = append(out, Candidate{Protocol: p.Protocol, Remote: remote, Local: local})
			}
		}
	}
	return out
}
