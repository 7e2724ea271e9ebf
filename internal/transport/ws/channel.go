package ws

import (
	"sync"

	"github.com/market-realtime/internal/realtime"
)

// channel is the realtime.Channel side of one socket. Send only enqueues;
// the session's write loop drains the queue onto the wire.
type channel struct {
	id  string
	out <-chan []byte

	mu       sync.RWMutex
	send     chan []byte
	overflow func()
}

func newChannel(id string, buffer int, overflow func()) *channel {
	send := make(chan []byte, buffer)
	return &channel{id: id, out: send, send: send, overflow: overflow}
}

func (c *channel) ID() string { return c.id }

// Send enqueues payload without blocking. A full queue means the client is
// not keeping up; the session is told to shut down and the payload is dropped.
func (c *channel) Send(payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.send == nil {
		return realtime.ErrChannelClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		if c.overflow != nil {
			c.overflow()
		}
		return realtime.ErrChannelFull
	}
}

// close stops accepting payloads. Safe to call more than once.
func (c *channel) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.send != nil {
		close(c.send)
		c.send = nil
	}
}
