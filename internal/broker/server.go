package broker

import (
	"bufio"
	"context"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// Server accepts duplex TCP connections implementing the framed-IPC
// alternative to the Post/Subscribe RPC pair (spec.md §6): each
// connection opens with a Header-only handshake frame declaring the
// peer's ClientType (mirroring the original nng Pair1 "pipe identity =
// origin" design), after which the connection carries both the peer's
// outbound Posts and the broker's fan-out to that peer.
type Server struct {
	router   *Router
	log      *logrus.Entry
	listener net.Listener
}

// NewServer wraps router with a TCP listener.
func NewServer(router *Router, listener net.Listener, log *logrus.Entry) *Server {
	return &Server{router: router, log: log, listener: listener}
}

// Serve accepts connections until ctx is cancelled or the listener
// errors.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("broker: accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	handshake, err := readHeader(reader)
	if err != nil {
		s.log.WithError(err).Warn("broker: handshake failed")
		return
	}

	clientType := handshake.ClientType
	peer := s.router.Subscribe(clientType)
	defer s.router.Unsubscribe(peer)

	log := s.log.WithField("client_type", clientType)
	log.Info("broker: peer subscribed")

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Fan-out writer: drains this peer's queue onto the wire.
	writeErrs := make(chan error, 1)
	go func() {
		for {
			select {
			case <-connCtx.Done():
				writeErrs <- nil
				return
			case env, ok := <-peer.Events():
				if !ok {
					writeErrs <- nil
					return
				}
				if err := writeEnvelope(conn, env); err != nil {
					writeErrs <- err
					return
				}
			}
		}
	}()

	for {
		env, err := readEnvelope(reader)
		if err != nil {
			cancel()
			<-writeErrs
			if err.Error() != "EOF" {
				log.WithError(err).Debug("broker: connection closed")
			}
			return
		}
		env.Header.ClientType = clientType
		if postErr := s.router.Post(env); postErr != nil {
			log.WithError(postErr).Warn("broker: post failed")
		}
	}
}
