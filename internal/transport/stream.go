package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"time"
)

// StreamDialer dials TCP, optionally wrapped in TLS. It implements §4.3's
// stream adapter variant.
type StreamDialer struct {
	// TLSConfig, if non-nil, causes Dial to perform a TLS handshake atop
	// the TCP connection before returning.
	TLSConfig *tls.Config
}

func (d *StreamDialer) Dial(ctx context.Context, localAddr, remoteAddr net.Addr) (Adapter, error) {
	dialer := &net.Dialer{}
	if localAddr != nil {
		dialer.LocalAddr = localAddr
	}
	conn, err := dialer.DialContext(ctx, "tcp", remoteAddr.String())
	if err != nil {
		return nil, err
	}

	if d.TLSConfig != nil {
		tconn := tls.Client(conn, d.TLSConfig)
		if err := tconn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return &StreamAdapter{conn: tconn, protocol: "tls-over-tcp"}, nil
	}
	return &StreamAdapter{conn: conn, protocol: "tcp"}, nil
}

// StreamAdapter wraps a net.Conn (plain TCP or tls.Conn) and drives the
// read loop that feeds a Sink with raw bytes, as §4.3 describes for
// data_received/eof_received/connection_lost.
type StreamAdapter struct {
	conn     net.Conn
	protocol string
}

func (a *StreamAdapter) Write(ctx context.Context, data []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		a.conn.SetWriteDeadline(dl)
		defer a.conn.SetWriteDeadline(time.Time{})
	}
	_, err := a.conn.Write(data)
	return err
}

func (a *StreamAdapter) Close() error         { return a.conn.Close() }
func (a *StreamAdapter) LocalAddr() net.Addr  { return a.conn.LocalAddr() }
func (a *StreamAdapter) RemoteAddr() net.Addr { return a.conn.RemoteAddr() }
func (a *StreamAdapter) Protocol() string     { return a.protocol }

// ReadLoop runs on its own goroutine for the life of the adapter, pushing
// every read into sink. It returns once the connection is closed or a
// permanent read error occurs; per §4.3, eof_received is folded into the
// final Deliver call with eof=true.
func (a *StreamAdapter) ReadLoop(sink Sink) {
	buf := make([]byte, 64*1024)
	for {
		n, err := a.conn.Read(buf)
		if n > 0 || errors.Is(err, io.EOF) {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			sink.Deliver(chunk, a.RemoteAddr(), errors.Is(err, io.EOF))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || isGracefulClose(err) {
				sink.Lost(nil)
			} else {
				sink.Lost(err)
			}
			return
		}
	}
}

func isGracefulClose(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return errors.Is(err, net.ErrClosed)
}
