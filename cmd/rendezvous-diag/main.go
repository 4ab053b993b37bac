// Command rendezvous-diag is a diagnostic broker client, recovered
// from the original implementation's rdvpost/rdvsub tools: it
// subscribes as ClientType_UNKNOWN and either prints every envelope it
// observes, or posts one synthetic MessageCreated for manual testing.
//
// Subscribing as Unknown is reserved for this tool, never used by a real
// bridge adapter. The broker skips peers of the poster's own ClientType,
// so it receives every post from IRC and Discord adapters but not its
// own posts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/langdev/rendezvous/internal/broker"
	"github.com/langdev/rendezvous/internal/event"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "[::1]:49252", "broker address")
	mode := flag.String("mode", "sub", "sub | post")
	nickname := flag.String("nickname", "diag", "nickname to post as")
	channel := flag.String("channel", "#dev", "channel to post to")
	content := flag.String("content", "hello from rendezvous-diag", "message content")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := broker.Dial(ctx, *addr, event.ClientTypeUnknown)
	if err != nil {
		return fmt.Errorf("rendezvous-diag: %w", err)
	}
	defer conn.Close()

	switch *mode {
	case "post":
		return postOnce(conn, *nickname, *channel, *content)
	case "sub":
		return subscribe(ctx, conn)
	default:
		return fmt.Errorf("rendezvous-diag: unknown -mode %q", *mode)
	}
}

func postOnce(conn *broker.Conn, nickname, channel, content string) error {
	env := event.Envelope{
		Header: event.Header{ClientType: event.ClientTypeUnknown},
		Event:  event.NewMessageCreated(nickname, channel, content, ""),
	}
	if err := conn.Post(env); err != nil {
		return fmt.Errorf("rendezvous-diag: post: %w", err)
	}
	fmt.Println("posted")
	return nil
}

func subscribe(ctx context.Context, conn *broker.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-conn.Errs():
			return fmt.Errorf("rendezvous-diag: %w", err)
		case env, ok := <-conn.Events():
			if !ok {
				return fmt.Errorf("rendezvous-diag: connection closed")
			}
			name, _ := env.Event.Name()
			fmt.Printf("[%s] %s: %+v\n", env.Header.ClientType, name, env.Event)
		}
	}
}
