package transport

import (
	"net"
	"testing"
)

func TestNewDemuxSocket_TwoSocketsShareOneLocalPort(t *testing.T) {
	first, err := NewDemuxSocket(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("first NewDemuxSocket failed: %v", err)
	}
	defer first.Close()

	port := first.LocalAddr().(*net.UDPAddr).Port

	second, err := NewDemuxSocket(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port})
	if err != nil {
		t.Fatalf("second NewDemuxSocket on the same port failed (SO_REUSEPORT not applied?): %v", err)
	}
	defer second.Close()
}
