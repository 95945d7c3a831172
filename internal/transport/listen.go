package transport

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/quic-go/quic-go"
)

// StreamListener accepts TCP or TLS-over-TCP connections, producing one
// StreamAdapter per accepted client (§4.6 point 3's "stream-accept
// handler").
type StreamListener struct {
	ln        net.Listener
	tlsConfig *tls.Config
	protocol  string
}

// ListenStream binds local for stream accepts. If tlsConfig is non-nil,
// every accepted connection is TLS-server-handshaked before being handed
// back.
func ListenStream(local *net.TCPAddr, tlsConfig *tls.Config) (*StreamListener, error) {
	ln, err := net.ListenTCP("tcp", local)
	if err != nil {
		return nil, err
	}
	protocol := "tcp"
	if tlsConfig != nil {
		protocol = "tls-over-tcp"
	}
	return &StreamListener{ln: ln, tlsConfig: tlsConfig, protocol: protocol}, nil
}

func (l *StreamListener) LocalAddr() net.Addr { return l.ln.Addr() }
func (l *StreamListener) Close() error        { return l.ln.Close() }

// Accept blocks for the next client and returns an established
// StreamAdapter for it, or an error once the listener is closed.
func (l *StreamListener) Accept(ctx context.Context) (Adapter, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	if l.tlsConfig != nil {
		tconn := tls.Server(conn, l.tlsConfig)
		if err := tconn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return &StreamAdapter{conn: tconn, protocol: l.protocol}, nil
	}
	return &StreamAdapter{conn: conn, protocol: l.protocol}, nil
}

// QUICListener accepts QUIC connections, opening the peer's first stream
// for each.
type QUICListener struct {
	ln *quic.Listener
}

func ListenQUIC(local *net.UDPAddr, tlsConfig *tls.Config) (*QUICListener, error) {
	conf := tlsConfig
	if conf == nil {
		conf = &tls.Config{}
	}
	if len(conf.NextProtos) == 0 {
		cloned := conf.Clone()
		cloned.NextProtos = []string{"taps"}
		conf = cloned
	}
	ln, err := quic.ListenAddr(local.String(), conf, nil)
	if err != nil {
		return nil, err
	}
	return &QUICListener{ln: ln}, nil
}

func (l *QUICListener) LocalAddr() net.Addr { return l.ln.Addr() }
func (l *QUICListener) Close() error        { return l.ln.Close() }

func (l *QUICListener) Accept(ctx context.Context) (Adapter, error) {
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(0, "stream accept failed")
		return nil, err
	}
	return &QUICAdapter{conn: conn, stream: stream}, nil
}
