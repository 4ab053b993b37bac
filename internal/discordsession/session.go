// Package discordsession implements the Discord gateway session state
// machine: handshake, heartbeat loop, session tracking, and
// resume/reconnect semantics.
package discordsession

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/langdev/rendezvous/internal/event"
	"github.com/langdev/rendezvous/internal/gateway"
	"github.com/langdev/rendezvous/internal/projection"
	"github.com/langdev/rendezvous/internal/restclient"
)

// State is one node of the session state machine described in spec.
type State int

const (
	StateConnecting State = iota
	StateAwaitingHello
	StateIdentified
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingHello:
		return "awaiting_hello"
	case StateIdentified:
		return "identified"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	helloTimeout       = 4 * time.Second
	stoppingGrace      = 5 * time.Second
	maxHeartbeatTries  = 4
	invalidSessionBack = 2 * time.Second
	gatewayVersion     = "6"
)

// errHeartbeatDead triggers a controlled reconnect when the peer stops
// acknowledging heartbeats.
var errHeartbeatDead = fmt.Errorf("discordsession: heartbeat exceeded")
var errReconnectRequested = fmt.Errorf("discordsession: reconnect opcode received")

// errGatewayURL ends Run: without a gateway URL there is nothing to
// reconnect to.
var errGatewayURL = fmt.Errorf("discordsession: gateway url unavailable")

// Session runs one Discord gateway connection's lifetime, including
// automatic reconnection, and reports normalized bridge Events.
type Session struct {
	token    string
	intents  int
	rest     *restclient.Client
	proj     *projection.Projection
	log      *logrus.Entry
	onEvent  func(event.Event)

	mu                sync.RWMutex
	state             State
	sessionID         string
	resumeURL         string
	lastSeq           *int64
	heartbeatTries    int
	heartbeatInterval time.Duration
}

// New builds a Session. onEvent is invoked (from the session's own
// goroutine) for every normalized bridge event the projection produces;
// it must not block for long.
func New(token string, intents int, rest *restclient.Client, proj *projection.Projection, log *logrus.Entry, onEvent func(event.Event)) *Session {
	return &Session{
		token:   token,
		intents: intents,
		rest:    rest,
		proj:    proj,
		log:     log,
		onEvent: onEvent,
		state:   StateConnecting,
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// SessionID returns the resumable session id captured from the most
// recent READY, or "" if none has been observed. The id is kept across
// reconnects so the next connection can RESUME; an InvalidSession
// clears it.
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Run drives the session, returning only when ctx is done or a gateway
// URL cannot be obtained. Every other connection error (dial or read
// failure, heartbeat timeout, Reconnect opcode) ends the connection and
// Run reconnects automatically. An InvalidSession does not end the
// connection: it is answered in place with a fresh IDENTIFY.
func (s *Session) Run(ctx context.Context) error {
	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			s.setState(StateStopped)
			return ctx.Err()
		}
		if errors.Is(err, errGatewayURL) {
			s.setState(StateStopped)
			return err
		}
		if err == nil {
			s.setState(StateStopped)
			return nil
		}
		s.log.WithError(err).Warn("discordsession: connection ended, reconnecting")
		s.setState(StateConnecting)
	}
}

func (s *Session) runOnce(ctx context.Context) error {
	s.mu.RLock()
	resumeURL, sessionID := s.resumeURL, s.sessionID
	s.mu.RUnlock()

	dialURL := resumeURL
	if dialURL == "" {
		gatewayURL, err := s.rest.GatewayURL()
		if err != nil {
			return fmt.Errorf("%w: %w", errGatewayURL, err)
		}
		dialURL = gatewayURL
	}

	conn, _, err := websocket.DefaultDialer.Dial(dialURL+"?v="+gatewayVersion+"&encoding=json", http.Header{})
	if err != nil {
		return fmt.Errorf("discordsession: dial: %w", err)
	}
	defer conn.Close()

	s.setState(StateAwaitingHello)

	helloCtx, cancel := context.WithTimeout(ctx, helloTimeout)
	defer cancel()

	payload, err := s.readOne(helloCtx, conn)
	if err != nil {
		return fmt.Errorf("discordsession: awaiting hello: %w", err)
	}
	if payload.Kind != gateway.PayloadHello {
		return fmt.Errorf("discordsession: expected hello, got opcode %s", payload.Op)
	}

	s.mu.Lock()
	s.heartbeatInterval = payload.HeartbeatInterval
	s.heartbeatTries = 0
	s.mu.Unlock()

	s.setState(StateIdentified)
	if sessionID != "" {
		s.mu.RLock()
		seq := s.lastSeq
		s.mu.RUnlock()
		var last int64
		if seq != nil {
			last = *seq
		}
		frame, err := gateway.EncodeResume(s.token, sessionID, last)
		if err != nil {
			return fmt.Errorf("discordsession: resume: %w", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return fmt.Errorf("discordsession: resume: %w", err)
		}
	} else if err := s.identify(conn); err != nil {
		return fmt.Errorf("discordsession: identify: %w", err)
	}

	return s.runConnected(ctx, conn)
}

func (s *Session) identify(conn *websocket.Conn) error {
	frame, err := gateway.EncodeIdentify(s.token, s.intents)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Session) readOne(ctx context.Context, conn *websocket.Conn) (gateway.Payload, error) {
	type result struct {
		payload gateway.Payload
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		_, body, err := conn.ReadMessage()
		if err != nil {
			ch <- result{err: err}
			return
		}
		p, err := gateway.DecodePayload(body)
		ch <- result{payload: p, err: err}
	}()

	select {
	case <-ctx.Done():
		return gateway.Payload{}, ctx.Err()
	case r := <-ch:
		return r.payload, r.err
	}
}

// runConnected implements the Running steady state: the incoming frame
// stream and the heartbeat timer race concurrently.
func (s *Session) runConnected(ctx context.Context, conn *websocket.Conn) error {
	s.setState(StateRunning)

	s.mu.RLock()
	interval := s.heartbeatInterval
	s.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frames := make(chan []byte, 16)
	readErrs := make(chan error, 1)
	go func() {
		for {
			_, body, err := conn.ReadMessage()
			if err != nil {
				readErrs <- err
				return
			}
			select {
			case frames <- body:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return s.stop(conn, ctx.Err())

		case err := <-readErrs:
			return s.stop(conn, fmt.Errorf("discordsession: read: %w", err))

		case <-ticker.C:
			s.mu.Lock()
			if s.heartbeatTries > maxHeartbeatTries-1 {
				s.mu.Unlock()
				return s.stop(conn, errHeartbeatDead)
			}
			seq := s.lastSeq
			s.heartbeatTries++
			s.mu.Unlock()

			frame, err := gateway.EncodeHeartbeat(seq)
			if err != nil {
				return s.stop(conn, err)
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return s.stop(conn, fmt.Errorf("discordsession: heartbeat: %w", err))
			}

		case body := <-frames:
			payload, err := gateway.DecodePayload(body)
			if err != nil {
				s.log.WithError(err).Warn("discordsession: unparseable frame, skipping")
				continue
			}
			if stop, stopErr := s.handlePayload(conn, payload); stop {
				return s.stop(conn, stopErr)
			}
		}
	}
}

// handlePayload applies one decoded frame to session state and the
// projection. It returns stop=true when the session must transition to
// Stopping.
func (s *Session) handlePayload(conn *websocket.Conn, p gateway.Payload) (stop bool, err error) {
	switch p.Kind {
	case gateway.PayloadHeartbeatAck:
		s.mu.Lock()
		s.heartbeatTries = 0
		s.mu.Unlock()

	case gateway.PayloadReconnect:
		return true, errReconnectRequested

	case gateway.PayloadInvalidSession:
		// Spec.md §4.3: any InvalidSession dispatch requires a full
		// re-IDENTIFY after a short back-off, resumable or not.
		s.mu.Lock()
		s.sessionID = ""
		s.resumeURL = ""
		s.mu.Unlock()
		time.Sleep(invalidSessionBack)
		if err := s.identify(conn); err != nil {
			return true, err
		}

	case gateway.PayloadEvent:
		s.mu.Lock()
		s.lastSeq = &p.Seq
		s.mu.Unlock()
		s.applyDispatch(p.Event)

	case gateway.PayloadOther:
		if p.Op == gateway.OpHeartbeat {
			s.mu.RLock()
			seq := s.lastSeq
			s.mu.RUnlock()
			frame, ferr := gateway.EncodeHeartbeat(seq)
			if ferr != nil {
				return true, ferr
			}
			if werr := conn.WriteMessage(websocket.TextMessage, frame); werr != nil {
				return true, fmt.Errorf("discordsession: requested heartbeat: %w", werr)
			}
		}
	}
	return false, nil
}

func (s *Session) stop(conn *websocket.Conn, cause error) error {
	s.setState(StateStopping)

	done := make(chan struct{})
	go func() {
		conn.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stoppingGrace):
		s.log.Warn("discordsession: stopping grace period elapsed, forcing transport close")
	}

	s.setState(StateStopped)
	return cause
}
