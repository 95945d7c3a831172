package yangconfig

import (
	"testing"

	"github.com/taps-go/taps"
)

func buildPreconnection() *taps.Preconnection {
	pc := taps.NewPreconnection()
	pc.SetLocalEndpoint(new(taps.LocalEndpoint).WithInterface("eth0").WithPort(5000))
	pc.SetRemoteEndpoint(new(taps.RemoteEndpoint).WithHostName("example.com").WithPort(443))

	sec := taps.NewSecurityParameters()
	sec.AddTrustCA("/etc/ssl/certs/ca.pem")
	pc.SetSecurityParameters(sec)

	props := taps.NewTransportProperties()
	props.Require(taps.Reliability)
	props.Prohibit(taps.Multipath)
	props.Direction = taps.UnidirectionalSend
	pc.SetProperties(props)

	return pc
}

func TestXMLRoundTrip_PreservesEndpointsAndProperties(t *testing.T) {
	original := buildPreconnection()

	encoded, err := ToYANG(XML, original)
	if err != nil {
		t.Fatalf("ToYANG failed: %v", err)
	}

	decoded, err := FromYANG(XML, encoded)
	if err != nil {
		t.Fatalf("FromYANG failed: %v", err)
	}

	if decoded.LocalEndpoint().Interface != "eth0" {
		t.Errorf("Interface = %q, want eth0", decoded.LocalEndpoint().Interface)
	}
	if decoded.LocalEndpoint().Port != 5000 {
		t.Errorf("local Port = %d, want 5000", decoded.LocalEndpoint().Port)
	}
	if decoded.RemoteEndpoint().HostName != "example.com" {
		t.Errorf("HostName = %q, want example.com", decoded.RemoteEndpoint().HostName)
	}
	if decoded.RemoteEndpoint().Port != 443 {
		t.Errorf("remote Port = %d, want 443", decoded.RemoteEndpoint().Port)
	}
	if decoded.Properties().Level(taps.Reliability) != taps.Require {
		t.Errorf("Reliability level = %v, want Require", decoded.Properties().Level(taps.Reliability))
	}
	if decoded.Properties().Level(taps.Multipath) != taps.Prohibit {
		t.Errorf("Multipath level = %v, want Prohibit", decoded.Properties().Level(taps.Multipath))
	}
	if decoded.Properties().Direction != taps.UnidirectionalSend {
		t.Errorf("Direction = %v, want UnidirectionalSend", decoded.Properties().Direction)
	}
	if len(decoded.SecurityParameters().TrustCAPaths()) != 1 || decoded.SecurityParameters().TrustCAPaths()[0] != "/etc/ssl/certs/ca.pem" {
		t.Errorf("TrustCAPaths = %v, want one entry /etc/ssl/certs/ca.pem", decoded.SecurityParameters().TrustCAPaths())
	}
}

func TestJSONRoundTrip_PreservesEndpointsAndProperties(t *testing.T) {
	original := buildPreconnection()

	encoded, err := ToYANG(JSON, original)
	if err != nil {
		t.Fatalf("ToYANG failed: %v", err)
	}

	decoded, err := FromYANG(JSON, encoded)
	if err != nil {
		t.Fatalf("FromYANG failed: %v", err)
	}

	if decoded.RemoteEndpoint().HostName != "example.com" {
		t.Errorf("HostName = %q, want example.com", decoded.RemoteEndpoint().HostName)
	}
	if decoded.Properties().Level(taps.Multipath) != taps.Prohibit {
		t.Errorf("Multipath level = %v, want Prohibit", decoded.Properties().Level(taps.Multipath))
	}
}

func TestFromYANG_UnknownDirectionIsConstructionError(t *testing.T) {
	doc := []byte(`<preconnection><transport-properties><direction>sideways</direction></transport-properties></preconnection>`)
	_, err := FromYANG(XML, doc)
	if err == nil {
		t.Fatal("expected an error for an unrecognized direction value")
	}
}

func TestFromYANG_MalformedXMLIsConstructionError(t *testing.T) {
	_, err := FromYANG(XML, []byte("not xml at all <<<"))
	if err == nil {
		t.Fatal("expected an error for malformed XML")
	}
}
