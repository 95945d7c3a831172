package protocol

import "testing"

func TestCapability_SatisfiesRequire(t *testing.T) {
	cases := []struct {
		c    Capability
		want bool
	}{
		{Yes, true},
		{Optional, true},
		{No, false},
	}
	for _, c := range cases {
		if got := c.c.SatisfiesRequire(); got != c.want {
			t.Errorf("%v.SatisfiesRequire() = %v, want %v", c.c, got, c.want)
		}
	}
}

func TestCapability_ViolatesProhibit(t *testing.T) {
	cases := []struct {
		c    Capability
		want bool
	}{
		{Yes, true},
		{Optional, false},
		{No, false},
	}
	for _, c := range cases {
		if got := c.c.ViolatesProhibit(); got != c.want {
			t.Errorf("%v.ViolatesProhibit() = %v, want %v", c.c, got, c.want)
		}
	}
}

func TestDescriptor_CapabilityDefaultsToNoForUnlistedProperty(t *testing.T) {
	d := Descriptor{Name: TCP, Capabilities: map[Property]Capability{Reliability: Yes}}
	if got := d.Capability(Multipath); got != No {
		t.Errorf("Capability(Multipath) = %v, want No", got)
	}
	if got := d.Capability(Reliability); got != Yes {
		t.Errorf("Capability(Reliability) = %v, want Yes", got)
	}
}

func TestDefaultRegistry_IsInDocumentedOrder(t *testing.T) {
	reg := DefaultRegistry()
	want := []Name{TCP, UDP, TLSOverTCP, DTLSOverUDP, QUIC}
	if len(reg) != len(want) {
		t.Fatalf("len(DefaultRegistry()) = %d, want %d", len(reg), len(want))
	}
	for i, d := range reg {
		if d.Name != want[i] {
			t.Errorf("DefaultRegistry()[%d].Name = %v, want %v", i, d.Name, want[i])
		}
	}
}

func TestIsDatagram(t *testing.T) {
	cases := []struct {
		n    Name
		want bool
	}{
		{TCP, false},
		{UDP, true},
		{TLSOverTCP, false},
		{DTLSOverUDP, true},
		{QUIC, false},
	}
	for _, c := range cases {
		if got := IsDatagram(c.n); got != c.want {
			t.Errorf("IsDatagram(%v) = %v, want %v", c.n, got, c.want)
		}
	}
}

func TestRequiresTLS(t *testing.T) {
	cases := []struct {
		n    Name
		want bool
	}{
		{TCP, false},
		{UDP, false},
		{TLSOverTCP, true},
		{DTLSOverUDP, true},
		{QUIC, true},
	}
	for _, c := range cases {
		if got := RequiresTLS(c.n); got != c.want {
			t.Errorf("RequiresTLS(%v) = %v, want %v", c.n, got, c.want)
		}
	}
}
