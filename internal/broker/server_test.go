package broker

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langdev/rendezvous/internal/event"
)

func TestDialHandshakeAndFanOut(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	router := newTestRouter()
	server := NewServer(router, listener, router.log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = server.Serve(ctx) }()

	irc, err := Dial(ctx, listener.Addr().String(), event.ClientTypeIRC)
	require.NoError(t, err)
	defer irc.Close()

	discord, err := Dial(ctx, listener.Addr().String(), event.ClientTypeDiscord)
	require.NoError(t, err)
	defer discord.Close()

	env := event.Envelope{
		Header: event.Header{ClientType: event.ClientTypeIRC},
		Event:  event.NewMessageCreated("alice", "#dev", "hi", ""),
	}
	require.NoError(t, irc.Post(env))

	select {
	case got := <-discord.Events():
		assert.Equal(t, env, got)
	case err := <-discord.Errs():
		t.Fatalf("discord conn errored: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("discord peer did not receive fan-out across a real dial+handshake")
	}

	select {
	case <-irc.Events():
		t.Fatal("irc peer should not receive its own origin's post")
	default:
	}
}
