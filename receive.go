package taps

import (
	"context"

	"github.com/taps-go/taps/internal/core"
)

// Receive implements core.Connection. It schedules a read task per §4.3:
// when a framer is installed, one pop from the framer's message channel
// is awaited and delivered as a single received/received_partial event;
// otherwise the raw stream buffer is awaited until it holds at least
// minIncomplete bytes (or EOF), and up to maxLength bytes are delivered
// (maxLength == -1 means "all available").
func (c *Connection) Receive(ctx context.Context, minIncomplete, maxLength int) {
	go func() {
		if c.framerDrv != nil || isDatagramProtocol(c.protocol) {
			select {
			case msg := <-c.msgCh:
				c.deliverMessage(msg)
			case <-ctx.Done():
			}
			return
		}

		c.streamMu.Lock()
		done := make(chan struct{})
		c.streamWaiters = append(c.streamWaiters, streamWaiter{
			minIncomplete: minIncomplete,
			maxLength:     maxLength,
			resolve: func(data []byte, eom bool) {
				c.deliverRaw(data, eom)
				close(done)
			},
		})
		c.serviceStreamWaiters()
		c.streamMu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
		}
	}()
}

func isDatagramProtocol(name string) bool {
	return name == "udp" || name == "dtls-over-udp" || name == "udp-demux"
}

func (c *Connection) deliverMessage(m receivedMessage) {
	if m.eom {
		c.dispatcher.Submit(func() { c.handler.OnReceived(m.data, m.ctx) })
		return
	}
	c.dispatcher.Submit(func() { c.handler.OnReceivedPartial(m.data, m.ctx, m.eom) })
}

func (c *Connection) deliverRaw(data []byte, eom bool) {
	ctx := core.MessageContext{}
	if eom {
		c.dispatcher.Submit(func() { c.handler.OnReceived(data, ctx) })
	} else {
		c.dispatcher.Submit(func() { c.handler.OnReceivedPartial(data, ctx, false) })
	}
}

// serviceStreamWaiters attempts to satisfy queued receive requests
// against the current stream buffer, in FIFO order. Must be called with
// streamMu held.
func (c *Connection) serviceStreamWaiters() {
	for len(c.streamWaiters) > 0 {
		w := c.streamWaiters[0]
		if len(c.streamBuf) < w.minIncomplete && !c.streamAtEOF {
			return
		}

		take := len(c.streamBuf)
		if w.maxLength >= 0 && w.maxLength < take {
			take = w.maxLength
		}

		data := make([]byte, take)
		copy(data, c.streamBuf[:take])
		c.streamBuf = c.streamBuf[take:]

		eom := c.streamAtEOF || len(c.streamBuf) == 0

		c.streamWaiters = c.streamWaiters[1:]
		w.resolve(data, eom)
	}
}
