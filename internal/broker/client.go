package broker

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/langdev/rendezvous/internal/event"
)

// Conn is an adapter-side connection to a broker Server: Post pushes
// envelopes out, Events yields the fan-out stream from other peers.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader

	mu       sync.Mutex
	writeErr error

	events chan event.Envelope
	errs   chan error
}

// Dial opens a duplex connection to addr and performs the
// ClientType-declaring handshake.
func Dial(ctx context.Context, addr string, clientType event.ClientType) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("broker: dial: %w", err)
	}

	c := &Conn{
		conn:   nc,
		reader: bufio.NewReader(nc),
		events: make(chan event.Envelope, OutboundQueueSize),
		errs:   make(chan error, 1),
	}

	if err := writeHeader(nc, event.Header{ClientType: clientType}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("broker: handshake: %w", err)
	}

	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	defer close(c.events)
	for {
		env, err := readEnvelope(c.reader)
		if err != nil {
			c.errs <- err
			return
		}
		c.events <- env
	}
}

// Events yields envelopes fanned out by the broker from other peers.
func (c *Conn) Events() <-chan event.Envelope {
	return c.events
}

// Errs yields the single terminal read error, if any.
func (c *Conn) Errs() <-chan error {
	return c.errs
}

// Post sends one envelope to the broker for fan-out.
func (c *Conn) Post(env event.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	if err := writeEnvelope(c.conn, env); err != nil {
		c.writeErr = err
		return err
	}
	return nil
}

// Close tears down the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}
