package transport

import (
	"context"
	"net"
)

var demuxListenConfig = reusableListenConfig()

// DemuxSocket is the listener-side datagram adapter (§4.3's
// datagram-demux variant): one bound socket shared by every peer
// "connection" it has demultiplexed. The listener owns the peer_addr →
// Connection map (§9's redesign note); DemuxSocket only owns the socket
// and hands each arriving datagram, with its source address, to Router.
type DemuxSocket struct {
	conn *net.UDPConn
}

// NewDemuxSocket binds a UDP socket at local for passive datagram
// listening. The socket is bound with SO_REUSEADDR/SO_REUSEPORT so a
// second datagram candidate (e.g. dtls-over-udp alongside plain udp) can
// bind the same local port instead of failing with EADDRINUSE.
func NewDemuxSocket(local *net.UDPAddr) (*DemuxSocket, error) {
	pc, err := demuxListenConfig.ListenPacket(context.Background(), "udp", local.String())
	if err != nil {
		return nil, err
	}
	conn := pc.(*net.UDPConn)
	return &DemuxSocket{conn: conn}, nil
}

func (s *DemuxSocket) LocalAddr() net.Addr { return s.conn.LocalAddr() }
func (s *DemuxSocket) Close() error        { return s.conn.Close() }

// PeerAdapter returns an Adapter that writes to peer over this socket,
// for use by the Connection the listener spawns for that peer.
func (s *DemuxSocket) PeerAdapter(peer net.Addr) Adapter {
	return &demuxPeerAdapter{socket: s, peer: peer}
}

// Router is invoked once per arriving datagram with its payload (valid
// only until the call returns) and source address.
type Router func(data []byte, peer net.Addr)

// Serve reads datagrams until the socket is closed, dispatching each to
// route. It blocks; callers run it on its own goroutine.
func (s *DemuxSocket) Serve(route Router) {
	buf := make([]byte, 64*1024)
	for {
		n, peer, err := s.conn.ReadFromUDP(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			route(chunk, peer)
		}
		if err != nil {
			return
		}
	}
}

type demuxPeerAdapter struct {
	socket *DemuxSocket
	peer   net.Addr
}

func (a *demuxPeerAdapter) Write(ctx context.Context, data []byte) error {
	_, err := a.socket.conn.WriteTo(data, a.peer)
	return err
}

func (a *demuxPeerAdapter) Close() error         { return nil } // socket is shared; listener closes it
func (a *demuxPeerAdapter) LocalAddr() net.Addr  { return a.socket.LocalAddr() }
func (a *demuxPeerAdapter) RemoteAddr() net.Addr { return a.peer }
func (a *demuxPeerAdapter) Protocol() string     { return "udp-demux" }
