package transport

import (
	"context"
	"errors"
	"net"

	"github.com/pion/dtls/v2"
)

// DatagramDialer dials UDP, optionally wrapped in DTLS. It implements
// §4.3's datagram adapter variant for the active side: every Write is one
// datagram, every Deliver call carries exactly one datagram with no
// coalescing or partial delivery.
type DatagramDialer struct {
	// DTLSConfig, if non-nil, causes Dial to perform a DTLS handshake
	// atop the UDP socket before returning.
	DTLSConfig *dtls.Config
}

func (d *DatagramDialer) Dial(ctx context.Context, localAddr, remoteAddr net.Addr) (Adapter, error) {
	udpRemote, ok := remoteAddr.(*net.UDPAddr)
	if !ok {
		resolved, err := net.ResolveUDPAddr("udp", remoteAddr.String())
		if err != nil {
			return nil, err
		}
		udpRemote = resolved
	}
	var udpLocal *net.UDPAddr
	if localAddr != nil {
		if la, ok := localAddr.(*net.UDPAddr); ok {
			udpLocal = la
		}
	}

	conn, err := net.DialUDP("udp", udpLocal, udpRemote)
	if err != nil {
		return nil, err
	}

	if d.DTLSConfig != nil {
		dconn, err := dtls.ClientWithContext(ctx, conn, d.DTLSConfig)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return &DatagramAdapter{conn: dconn, remote: udpRemote, protocol: "dtls-over-udp"}, nil
	}
	return &DatagramAdapter{conn: conn, remote: udpRemote, protocol: "udp"}, nil
}

// datagramConn is the subset of net.Conn that both *net.UDPConn and
// *dtls.Conn satisfy.
type datagramConn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// DatagramAdapter is the active-side datagram transport: one connected
// socket, one peer. Listener-side demultiplexing across many peers is
// DemuxAdapter instead.
type DatagramAdapter struct {
	conn     datagramConn
	remote   net.Addr
	protocol string
}

func (a *DatagramAdapter) Write(ctx context.Context, data []byte) error {
	_, err := a.conn.Write(data)
	return err
}

func (a *DatagramAdapter) Close() error         { return a.conn.Close() }
func (a *DatagramAdapter) LocalAddr() net.Addr  { return a.conn.LocalAddr() }
func (a *DatagramAdapter) RemoteAddr() net.Addr { return a.remote }
func (a *DatagramAdapter) Protocol() string     { return a.protocol }

// ReadLoop delivers one Deliver call per received datagram, with eof
// always false — datagrams have no end-of-stream concept.
func (a *DatagramAdapter) ReadLoop(sink Sink) {
	buf := make([]byte, 64*1024)
	for {
		n, err := a.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			sink.Deliver(chunk, a.remote, false)
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				sink.Lost(nil)
			} else {
				sink.Lost(err)
			}
			return
		}
	}
}
