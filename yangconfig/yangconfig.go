// Package yangconfig is the optional YANG/XML/JSON configuration
// ingestion collaborator (§6): it decodes a document shaped after the
// ietf-taps-api YANG module into the same intent bundle a hand-built
// taps.Preconnection carries, and can re-encode one back for the
// round-trip law in §8 (from_yang(to_yang(P)) ≡ P).
//
// XML decoding uses the standard library's encoding/xml — no third-party
// XML library appears anywhere in the example pack, so stdlib is the
// grounded choice for that half. The JSON variant decodes through
// gopkg.in/yaml.v3 (a strict superset of JSON), matching the DataDog
// agent's use of the same library wherever the pack needs structured-
// document decoding without one dominant format.
package yangconfig

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net"

	"gopkg.in/yaml.v3"

	"github.com/taps-go/taps"
	tapserrors "github.com/taps-go/taps/internal/errors"
)

const namespace = "urn:ietf:params:xml:ns:yang:ietf-taps-api"

// Format selects the wire shape FromYANG parses and ToYANG produces.
type Format int

const (
	XML Format = iota
	JSON
)

// document is the intermediate shape both the XML and JSON/YAML decoders
// populate before it is converted to/from a *taps.Preconnection.
type document struct {
	XMLName           xml.Name           `xml:"preconnection" yaml:"-"`
	LocalEndpoints    []localEndpointDoc `xml:"local-endpoints" yaml:"local-endpoints,omitempty"`
	RemoteEndpoints   []remoteEndpointDoc `xml:"remote-endpoints" yaml:"remote-endpoints,omitempty"`
	Security          *securityDoc       `xml:"security" yaml:"security,omitempty"`
	TransportProperties *propertiesDoc   `xml:"transport-properties" yaml:"transport-properties,omitempty"`
}

type localEndpointDoc struct {
	IfRef        string `xml:"ifref,omitempty" yaml:"ifref,omitempty"`
	LocalAddress string `xml:"local-address,omitempty" yaml:"local-address,omitempty"`
	LocalPort    int    `xml:"local-port,omitempty" yaml:"local-port,omitempty"`
}

type remoteEndpointDoc struct {
	RemoteHost string `xml:"remote-host,omitempty" yaml:"remote-host,omitempty"`
	RemotePort int    `xml:"remote-port,omitempty" yaml:"remote-port,omitempty"`
}

type securityDoc struct {
	Credentials credentialsDoc `xml:"credentials" yaml:"credentials"`
}

type credentialsDoc struct {
	TrustCA  []string `xml:"trust-ca,omitempty" yaml:"trust-ca,omitempty"`
	Identity []string `xml:"identity,omitempty" yaml:"identity,omitempty"`
}

// propertiesDoc carries one element per well-known property key, plus
// direction. A missing element means "not specified" (selector default
// applies); this matches §6's "child element per property".
type propertiesDoc struct {
	Reliability           string `xml:"reliability,omitempty" yaml:"reliability,omitempty"`
	PreserveMsgBoundaries string `xml:"preserve-msg-boundaries,omitempty" yaml:"preserve-msg-boundaries,omitempty"`
	PerMsgReliability     string `xml:"per-msg-reliability,omitempty" yaml:"per-msg-reliability,omitempty"`
	PreserveOrder         string `xml:"preserve-order,omitempty" yaml:"preserve-order,omitempty"`
	ZeroRTTMsg            string `xml:"zero-rtt-msg,omitempty" yaml:"zero-rtt-msg,omitempty"`
	Multistreaming        string `xml:"multistreaming,omitempty" yaml:"multistreaming,omitempty"`
	CongestionControl     string `xml:"congestion-control,omitempty" yaml:"congestion-control,omitempty"`
	Multipath             string `xml:"multipath,omitempty" yaml:"multipath,omitempty"`
	RetransmitNotify      string `xml:"retransmit-notify,omitempty" yaml:"retransmit-notify,omitempty"`
	SoftErrorNotify       string `xml:"soft-error-notify,omitempty" yaml:"soft-error-notify,omitempty"`
	Direction             string `xml:"direction,omitempty" yaml:"direction,omitempty"`
}

// FromYANG parses data in the given format and builds a *taps.Preconnection
// from it. A document that does not parse, an invalid local address and an
// unknown direction value are reported as a *taps.ConstructionError.
// Unrecognized elements and unrecognized preference-level strings are not
// reported: they are skipped, and the affected property keeps its default.
func FromYANG(format Format, data []byte) (*taps.Preconnection, error) {
	var doc document
	switch format {
	case XML:
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, &tapserrors.ConstructionError{Details: fmt.Sprintf("malformed YANG/XML document: %v", err)}
		}
	case JSON:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &tapserrors.ConstructionError{Details: fmt.Sprintf("malformed YANG/JSON document: %v", err)}
		}
	default:
		return nil, &tapserrors.ConstructionError{Details: "unknown YANG document format"}
	}

	return fromDocument(doc)
}

func fromDocument(doc document) (*taps.Preconnection, error) {
	pc := taps.NewPreconnection()

	if len(doc.LocalEndpoints) > 0 {
		le := doc.LocalEndpoints[0]
		local := new(taps.LocalEndpoint)
		if le.IfRef != "" {
			local.WithInterface(le.IfRef)
		}
		if le.LocalAddress != "" {
			local.WithAddress(le.LocalAddress)
		}
		if le.LocalPort != 0 {
			local.WithPort(uint16(le.LocalPort))
		}
		if err := local.Err(); err != nil {
			return nil, &tapserrors.ConstructionError{Details: fmt.Sprintf("local-endpoints: %v", err)}
		}
		pc.SetLocalEndpoint(local)
	}

	if len(doc.RemoteEndpoints) > 0 {
		re := doc.RemoteEndpoints[0]
		remote := new(taps.RemoteEndpoint)
		if re.RemoteHost != "" {
			remote.WithHostName(re.RemoteHost)
		}
		if re.RemotePort != 0 {
			remote.WithPort(uint16(re.RemotePort))
		}
		if err := remote.Err(); err != nil {
			return nil, &tapserrors.ConstructionError{Details: fmt.Sprintf("remote-endpoints: %v", err)}
		}
		pc.SetRemoteEndpoint(remote)
	}

	if doc.Security != nil {
		sec := taps.NewSecurityParameters()
		for _, ca := range doc.Security.Credentials.TrustCA {
			sec.AddTrustCA(ca)
		}
		for _, id := range doc.Security.Credentials.Identity {
			// YANG identity entries are a single opaque reference in
			// this grammar; the cert/key split used by
			// SecurityParameters.AddIdentity is not representable, so
			// the same path is supplied for both halves, matching the
			// source grammar's "one identity reference" shape.
			sec.AddIdentity(id, id)
		}
		pc.SetSecurityParameters(sec)
	}

	if doc.TransportProperties != nil {
		props := taps.NewTransportProperties()
		p := doc.TransportProperties
		applyLevel(props, taps.Reliability, p.Reliability)
		applyLevel(props, taps.PreserveMsgBoundaries, p.PreserveMsgBoundaries)
		applyLevel(props, taps.PerMsgReliability, p.PerMsgReliability)
		applyLevel(props, taps.PreserveOrder, p.PreserveOrder)
		applyLevel(props, taps.ZeroRTTMsg, p.ZeroRTTMsg)
		applyLevel(props, taps.Multistreaming, p.Multistreaming)
		applyLevel(props, taps.CongestionControl, p.CongestionControl)
		applyLevel(props, taps.Multipath, p.Multipath)
		applyLevel(props, taps.RetransmitNotify, p.RetransmitNotify)
		applyLevel(props, taps.SoftErrorNotify, p.SoftErrorNotify)

		switch p.Direction {
		case "", "bidirectional":
			props.Direction = taps.Bidirectional
		case "unidirectional-send":
			props.Direction = taps.UnidirectionalSend
		case "unidirectional-receive":
			props.Direction = taps.UnidirectionalReceive
		default:
			return nil, &tapserrors.ConstructionError{Details: fmt.Sprintf("unknown direction value %q", p.Direction)}
		}

		pc.SetProperties(props)
	}

	return pc, nil
}

func applyLevel(props *taps.TransportProperties, key taps.PropertyKey, value string) {
	switch value {
	case "":
		return
	case "ignore":
		props.Ignore(key)
	case "require":
		props.Require(key)
	case "prefer":
		props.Prefer(key)
	case "avoid":
		props.Avoid(key)
	case "prohibit":
		props.Prohibit(key)
	}
}

// ToYANG re-encodes pc's endpoints, security parameters and transport
// properties in the requested format, for the round-trip law in §8.
func ToYANG(format Format, pc *taps.Preconnection) ([]byte, error) {
	doc := toDocument(pc)
	switch format {
	case XML:
		doc.XMLName = xml.Name{Space: namespace, Local: "preconnection"}
		return xml.MarshalIndent(doc, "", "  ")
	case JSON:
		// The struct tags are yaml's, so encode through yaml and re-emit
		// the resulting generic tree as JSON.
		y, err := yaml.Marshal(doc)
		if err != nil {
			return nil, err
		}
		var generic map[string]any
		if err := yaml.Unmarshal(y, &generic); err != nil {
			return nil, err
		}
		return json.Marshal(generic)
	default:
		return nil, &tapserrors.ConstructionError{Details: "unknown YANG document format"}
	}
}

func toDocument(pc *taps.Preconnection) document {
	var doc document

	if local := pc.LocalEndpoint(); local != nil {
		doc.LocalEndpoints = append(doc.LocalEndpoints, localEndpointDoc{
			IfRef:        local.Interface,
			LocalAddress: firstIP(local.IPs),
			LocalPort:    int(local.Port),
		})
	}

	if remote := pc.RemoteEndpoint(); remote != nil {
		doc.RemoteEndpoints = append(doc.RemoteEndpoints, remoteEndpointDoc{
			RemoteHost: remote.HostName,
			RemotePort: int(remote.Port),
		})
	}

	if sec := pc.SecurityParameters(); sec != nil {
		doc.Security = &securityDoc{Credentials: credentialsDoc{
			TrustCA:  sec.TrustCAPaths(),
			Identity: sec.IdentityPaths(),
		}}
	}

	if props := pc.Properties(); props != nil {
		doc.TransportProperties = &propertiesDoc{
			Reliability:           levelString(props.Level(taps.Reliability)),
			PreserveMsgBoundaries: levelString(props.Level(taps.PreserveMsgBoundaries)),
			PerMsgReliability:     levelString(props.Level(taps.PerMsgReliability)),
			PreserveOrder:         levelString(props.Level(taps.PreserveOrder)),
			ZeroRTTMsg:            levelString(props.Level(taps.ZeroRTTMsg)),
			Multistreaming:        levelString(props.Level(taps.Multistreaming)),
			CongestionControl:     levelString(props.Level(taps.CongestionControl)),
			Multipath:             levelString(props.Level(taps.Multipath)),
			RetransmitNotify:      levelString(props.Level(taps.RetransmitNotify)),
			SoftErrorNotify:       levelString(props.Level(taps.SoftErrorNotify)),
			Direction:             directionString(props.Direction),
		}
	}

	return doc
}

func levelString(l taps.PreferenceLevel) string {
	switch l {
	case taps.Require:
		return "require"
	case taps.Prefer:
		return "prefer"
	case taps.Avoid:
		return "avoid"
	case taps.Prohibit:
		return "prohibit"
	default:
		return "ignore"
	}
}

func directionString(d taps.Direction) string {
	switch d {
	case taps.UnidirectionalSend:
		return "unidirectional-send"
	case taps.UnidirectionalReceive:
		return "unidirectional-receive"
	default:
		return "bidirectional"
	}
}

func firstIP(ips []net.IP) string {
	if len(ips) == 0 {
		return ""
	}
	return ips[0].String()
}
