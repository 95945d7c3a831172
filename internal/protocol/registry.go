// Package protocol holds the static transport-protocol registry (C3):
// the catalog of known protocols and, for each one, a boolean (or
// "optional") capability flag per transport property. The candidate
// selector in internal/selector walks this table; it never mutates it.
//
// This mirrors the shape of the teacher's internal/protocol package
// (referenced from querier/records.go as the source of RecordType): a
// small, static, registry-flavored constant table with no behavior of
// its own beyond lookup and stringification.
package protocol

// Name identifies a transport protocol in the registry.
type Name string

const (
	TCP         Name = "tcp"
	UDP         Name = "udp"
	TLSOverTCP  Name = "tls-over-tcp"
	DTLSOverUDP Name = "dtls-over-udp"
	QUIC        Name = "quic"
)

// Capability is a per-property flag. Optional counts as true for Require
// and Prefer/Avoid scoring, and as false for Prohibit — see §4.1 of
// SPEC_FULL.md.
type Capability int

const (
	No Capability = iota
	Yes
	Optional
)

// SatisfiesRequire reports whether this capability value satisfies a
// Require-level property.
func (c Capability) SatisfiesRequire() bool { return c == Yes || c == Optional }

// ViolatesProhibit reports whether this capability value violates a
// Prohibit-level property.
func (c Capability) ViolatesProhibit() bool { return c == Yes }

// CountsForPreferAvoid reports whether this capability value counts as
// "true" for Prefer/Avoid scoring.
func (c Capability) CountsForPreferAvoid() bool { return c == Yes || c == Optional }

// Property names a transport property key, matching the well-known
// strings from spec.md §3.
type Property string

const (
	Reliability             Property = "reliability"
	PreserveMsgBoundaries    Property = "preserve-msg-boundaries"
	PerMsgReliability        Property = "per-msg-reliability"
	PreserveOrder            Property = "preserve-order"
	ZeroRTTMsg               Property = "zero-rtt-msg"
	Multistreaming           Property = "multistreaming"
	PerMsgChecksumLenSend    Property = "per-msg-checksum-len-send"
	PerMsgChecksumLenRecv    Property = "per-msg-checksum-len-recv"
	CongestionControl        Property = "congestion-control"
	Multipath                Property = "multipath"
	RetransmitNotify         Property = "retransmit-notify"
	SoftErrorNotify          Property = "soft-error-notify"
)

// Descriptor is one row of the protocol registry: a name plus its
// capability record.
type Descriptor struct {
	Name         Name
	Capabilities map[Property]Capability
}

// Capability returns the descriptor's flag for prop, defaulting to No for
// properties the descriptor does not mention.
func (d Descriptor) Capability(prop Property) Capability {
	if c, ok := d.Capabilities[prop]; ok {
		return c
	}
	return No
}

// DefaultRegistry is the minimum catalog from spec.md §3, in registry
// order (ties in candidate scoring retain this order).
func DefaultRegistry() []Descriptor {
	return []Descriptor{
		{
			Name: TCP,
			Capabilities: map[Property]Capability{
				Reliability:          Yes,
				PreserveMsgBoundaries: No,
				PerMsgReliability:     No,
				PreserveOrder:         Yes,
				ZeroRTTMsg:            Optional,
				Multistreaming:        Optional,
				CongestionControl:     Yes,
				Multipath:             Optional,
				RetransmitNotify:      Yes,
				SoftErrorNotify:       Yes,
			},
		},
		{
			Name: UDP,
			Capabilities: map[Property]Capability{
				Reliability:          No,
				PreserveMsgBoundaries: Yes,
				PerMsgReliability:     No,
				PreserveOrder:         No,
				ZeroRTTMsg:            Yes,
				Multistreaming:        No,
				CongestionControl:     No,
				Multipath:             No,
				RetransmitNotify:      No,
				SoftErrorNotify:       Yes,
			},
		},
		{
			Name: TLSOverTCP,
			Capabilities: map[Property]Capability{
				Reliability:          Yes,
				PreserveMsgBoundaries: No,
				PerMsgReliability:     No,
				PreserveOrder:         Yes,
				ZeroRTTMsg:            Optional,
				Multistreaming:        No,
				CongestionControl:     Yes,
				Multipath:             No,
				RetransmitNotify:      No,
				SoftErrorNotify:       Yes,
			},
		},
		{
			Name: DTLSOverUDP,
			Capabilities: map[Property]Capability{
				Reliability:          No,
				PreserveMsgBoundaries: Yes,
				PerMsgReliability:     No,
				PreserveOrder:         No,
				ZeroRTTMsg:            Optional,
				Multistreaming:        No,
				CongestionControl:     No,
				Multipath:             No,
				RetransmitNotify:      No,
				SoftErrorNotify:       Yes,
			},
		},
		{
			Name: QUIC,
			Capabilities: map[Property]Capability{
				Reliability:          Yes,
				PreserveMsgBoundaries: No,
				PerMsgReliability:     No,
				PreserveOrder:         Yes,
				ZeroRTTMsg:            Yes,
				Multistreaming:        Yes,
				CongestionControl:     Yes,
				Multipath:             No,
				RetransmitNotify:      No,
				SoftErrorNotify:       Yes,
			},
		},
	}
}

// IsDatagram reports whether name identifies a datagram-oriented
// protocol (one datagram per message, no stream coalescing).
func IsDatagram(name Name) bool {
	return name == UDP || name == DTLSOverUDP
}

// RequiresTLS reports whether establishing name requires a TLS (or
// DTLS/QUIC-TLS) handshake using the connection's security parameters.
func RequiresTLS(name Name) bool {
	return name == TLSOverTCP || name == DTLSOverUDP || name == QUIC
}
