// Package broker implements the fan-out router described in spec.md
// §4.6–§4.7: one live subscriber per ClientType, loop-prevention by
// client type alone, and a bounded per-peer outbound queue.
package broker

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/langdev/rendezvous/internal/event"
)

// OutboundQueueSize is the bound on each peer's outbound envelope
// queue (spec.md §4.6: "16 items is a sensible default").
const OutboundQueueSize = 16

// Peer is one subscriber's outbound stream.
type Peer struct {
	clientType event.ClientType
	out        chan event.Envelope
	closed     chan struct{}
	closeOnce  sync.Once
}

// Events returns the channel of envelopes fanned out to this peer.
// Post stops delivering to a peer once it is superseded or closed; the
// channel itself is never closed.
func (p *Peer) Events() <-chan event.Envelope {
	return p.out
}

// Close detaches the peer. Safe to call multiple times.
func (p *Peer) Close() {
	p.closeOnce.Do(func() { close(p.closed) })
}

func (p *Peer) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// Router owns the peer table and implements Post/Subscribe.
type Router struct {
	log *logrus.Entry

	mu    sync.Mutex
	peers map[event.ClientType]*Peer
}

// NewRouter returns an empty Router.
func NewRouter(log *logrus.Entry) *Router {
	return &Router{log: log, peers: make(map[event.ClientType]*Peer)}
}

// Subscribe registers (or replaces) the outbound stream for
// header.ClientType. A second Subscribe for the same ClientType
// supersedes and closes the prior peer.
func (r *Router) Subscribe(clientType event.ClientType) *Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.peers[clientType]; ok {
		prior.Close()
	}

	p := &Peer{
		clientType: clientType,
		out:        make(chan event.Envelope, OutboundQueueSize),
		closed:     make(chan struct{}),
	}
	r.peers[clientType] = p
	return p
}

// Unsubscribe removes p from the table if it is still the live peer
// for its ClientType (a superseded peer removing itself is a no-op).
func (r *Router) Unsubscribe(p *Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.peers[p.clientType]; ok && cur == p {
		delete(r.peers, p.clientType)
	}
	p.Close()
}

// Post fans env out to every currently-subscribed peer whose
// ClientType differs from env.Header.ClientType. A full per-peer queue
// drops the envelope for that peer only, logged at warn level. A
// disconnected peer is pruned from the table before Post returns.
func (r *Router) Post(env event.Envelope) error {
	r.mu.Lock()
	targets := make([]*Peer, 0, len(r.peers))
	for ct, p := range r.peers {
		if ct == env.Header.ClientType {
			continue
		}
		targets = append(targets, p)
	}
	r.mu.Unlock()

	for _, p := range targets {
		if p.isClosed() {
			r.Unsubscribe(p)
			continue
		}
		select {
		case p.out <- env:
		default:
			r.log.WithField("client_type", p.clientType).Warn("broker: outbound queue full, dropping envelope for peer")
		}
	}
	return nil
}
