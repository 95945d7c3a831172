package racing

import (
	"context"
	"testing"

	"github.com/taps-go/taps/internal/core"
)

func TestResolveRemote_LiteralsAreV6FirstThenV4(t *testing.T) {
	remote := new(core.RemoteEndpoint)
	remote.WithAddress("192.0.2.1")
	remote.WithAddress("2001:db8::1")
	remote.WithAddress("192.0.2.2")

	ips, err := ResolveRemote(context.Background(), nil, remote)
	if err != nil {
		t.Fatalf("ResolveRemote returned error: %v", err)
	}
	if len(ips) != 3 {
		t.Fatalf("got %d addresses, want 3", len(ips))
	}
	if ips[0].To4() != nil {
		t.Errorf("first address %v is IPv4, want the IPv6 literal first", ips[0])
	}
	if ips[1].String() != "192.0.2.1" || ips[2].String() != "192.0.2.2" {
		t.Errorf("IPv4 addresses out of order: got %v, %v", ips[1], ips[2])
	}
}

func TestExpandLocal_NilEndpointMeansLetOSChoose(t *testing.T) {
	ips, err := ExpandLocal(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("ExpandLocal returned error: %v", err)
	}
	if len(ips) != 1 || ips[0] != nil {
		t.Errorf("got %v, want a single nil entry", ips)
	}
}

func TestExpandLocal_LiteralAddressPassesThrough(t *testing.T) {
	local := new(core.LocalEndpoint)
	local.WithAddress("203.0.113.5")

	ips, err := ExpandLocal(context.Background(), nil, local)
	if err != nil {
		t.Fatalf("ExpandLocal returned error: %v", err)
	}
	if len(ips) != 1 || ips[0].String() != "203.0.113.5" {
		t.Errorf("got %v, want [203.0.113.5]", ips)
	}
}
