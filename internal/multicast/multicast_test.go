package multicast

import (
	"net"
	"testing"
)

func TestIsMulticast(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"224.0.0.251", true},  // mDNS IPv4 multicast
		{"ff02::fb", true},     // mDNS IPv6 multicast
		{"192.0.2.1", false},
		{"::1", false},
	}
	for _, c := range cases {
		got := IsMulticast(net.ParseIP(c.ip))
		if got != c.want {
			t.Errorf("IsMulticast(%s) = %v, want %v", c.ip, got, c.want)
		}
	}
}
