package taps

import "github.com/taps-go/taps/internal/core"

// Framer is the application-pluggable codec inserted into the send/
// receive path (§4.4). Decode returns ErrNeedMoreData when buf does not
// yet hold a complete message.
type Framer = core.Framer

// MessageContext carries per-message metadata: the peer address for
// datagram connections, and any fields a framer attaches.
type MessageContext = core.MessageContext

// ErrNeedMoreData is returned by Framer.Decode when buf does not yet
// contain a complete message.
var ErrNeedMoreData = core.ErrNeedMoreData
