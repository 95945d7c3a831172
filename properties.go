package taps

import (
	"github.com/taps-go/taps/internal/core"
	"github.com/taps-go/taps/internal/protocol"
	"github.com/taps-go/taps/internal/selector"
)

// PropertyKey names a transport property understood by the candidate
// selector (§3). The well-known keys are exported as constants below;
// an application may also use an arbitrary string, which the selector
// treats as always Ignore since no protocol in the registry declares a
// capability for it.
type PropertyKey = protocol.Property

const (
	Reliability           = protocol.Reliability
	PreserveMsgBoundaries = protocol.PreserveMsgBoundaries
	PerMsgReliability     = protocol.PerMsgReliability
	PreserveOrder         = protocol.PreserveOrder
	ZeroRTTMsg            = protocol.ZeroRTTMsg
	Multistreaming        = protocol.Multistreaming
	PerMsgChecksumLenSend = protocol.PerMsgChecksumLenSend
	PerMsgChecksumLenRecv = protocol.PerMsgChecksumLenRecv
	CongestionControl     = protocol.CongestionControl
	Multipath             = protocol.Multipath
	RetransmitNotify      = protocol.RetransmitNotify
	SoftErrorNotify       = protocol.SoftErrorNotify
)

// PreferenceLevel is the value a TransportProperties entry takes.
type PreferenceLevel int

const (
	Ignore PreferenceLevel = iota
	Require
	Prefer
	Avoid
	Prohibit
)

func (l PreferenceLevel) internal() selector.PreferenceLevel {
	switch l {
	case Require:
		return selector.Require
	case Prefer:
		return selector.Prefer
	case Avoid:
		return selector.Avoid
	case Prohibit:
		return selector.Prohibit
	default:
		return selector.Ignore
	}
}

// Direction is the symbolic value the "direction" property takes.
type Direction = core.Direction

const (
	Bidirectional          = core.Bidirectional
	UnidirectionalSend     = core.UnidirectionalSend
	UnidirectionalReceive  = core.UnidirectionalReceive
)

// defaultLevels holds the documented default preference level for every
// well-known property key, per §3: reliability/preserve-order/
// congestion-control default to Require; preserve-msg-boundaries/
// zero-rtt-msg/multistreaming/multipath default to Prefer; everything
// else defaults to Ignore.
var defaultLevels = map[PropertyKey]PreferenceLevel{
	Reliability:           Require,
	PreserveOrder:         Require,
	CongestionControl:     Require,
	PreserveMsgBoundaries: Prefer,
	ZeroRTTMsg:            Prefer,
	Multistreaming:        Prefer,
	Multipath:             Prefer,
}

// TransportProperties is the application's statement of what it wants
// from a connection: a map of property key to preference level, plus a
// direction. A zero-value TransportProperties behaves like the fully
// defaulted profile once Default has been called for every well-known
// key; NewTransportProperties does that for you.
type TransportProperties struct {
	levels    map[PropertyKey]PreferenceLevel
	Direction Direction
}

// NewTransportProperties returns a TransportProperties pre-populated with
// the documented default level for every well-known property key.
func NewTransportProperties() *TransportProperties {
	p := &TransportProperties{levels: make(map[PropertyKey]PreferenceLevel, len(defaultLevels))}
	for k, v := range defaultLevels {
		p.levels[k] = v
	}
	return p
}

// Add sets key to level, overwriting any prior value.
func (p *TransportProperties) Add(key PropertyKey, level PreferenceLevel) *TransportProperties {
	if p.levels == nil {
		p.levels = make(map[PropertyKey]PreferenceLevel)
	}
	p.levels[key] = level
	return p
}

// Require is shorthand for Add(key, Require).
func (p *TransportProperties) Require(key PropertyKey) *TransportProperties { return p.Add(key, Require) }

// Prefer is shorthand for Add(key, Prefer).
func (p *TransportProperties) Prefer(key PropertyKey) *TransportProperties { return p.Add(key, Prefer) }

// Ignore is shorthand for Add(key, Ignore).
func (p *TransportProperties) Ignore(key PropertyKey) *TransportProperties { return p.Add(key, Ignore) }

// Avoid is shorthand for Add(key, Avoid).
func (p *TransportProperties) Avoid(key PropertyKey) *TransportProperties { return p.Add(key, Avoid) }

// Prohibit is shorthand for Add(key, Prohibit).
func (p *TransportProperties) Prohibit(key PropertyKey) *TransportProperties {
	return p.Add(key, Prohibit)
}

// Default restores key to its documented default level (Ignore for keys
// with no documented default).
func (p *TransportProperties) Default(key PropertyKey) *TransportProperties {
	if lvl, ok := defaultLevels[key]; ok {
		return p.Add(key, lvl)
	}
	return p.Add(key, Ignore)
}

// Level returns the current preference level for key.
func (p *TransportProperties) Level(key PropertyKey) PreferenceLevel {
	if p.levels == nil {
		return Ignore
	}
	return p.levels[key]
}

func (p *TransportProperties) toSelectorLevels() map[protocol.Property]selector.PreferenceLevel {
	out := make(map[protocol.Property]selector.PreferenceLevel, len(p.levels))
	for k, v := range p.levels {
		out[k] = v.internal()
	}
	return out
}
