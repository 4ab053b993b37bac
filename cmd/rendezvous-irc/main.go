// Command rendezvous-irc runs the IRC side of the bridge (C5): it
// joins the configured channels, translates PRIVMSG in both
// directions, and applies bridge-bot unwrap.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/langdev/rendezvous/internal/broker"
	"github.com/langdev/rendezvous/internal/config"
	"github.com/langdev/rendezvous/internal/event"
	"github.com/langdev/rendezvous/internal/ircadapter"
	"github.com/langdev/rendezvous/internal/obs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "rendezvous.toml", "path to the TOML configuration file")
	logLevel := flag.String("log-level", "info", "logrus level")
	flag.Parse()

	log := obs.NewLogger("irc", *logLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	bots, err := cfg.CompileBots()
	if err != nil {
		return err
	}
	adapterBots := make([]ircadapter.BridgeBot, len(bots))
	for i, b := range bots {
		adapterBots[i] = ircadapter.BridgeBot{Nickname: b.Nickname, Pattern: b.Pattern}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := broker.Dial(ctx, cfg.Broker.Addr, event.ClientTypeIRC)
	if err != nil {
		return fmt.Errorf("rendezvous-irc: %w", err)
	}
	defer conn.Close()

	adapter := ircadapter.New(ircadapter.Config{
		Server:   cfg.IRC.Server,
		Port:     cfg.IRC.Port,
		TLS:      cfg.IRC.TLS,
		Nick:     cfg.IRC.Nick,
		User:     cfg.IRC.User,
		Name:     cfg.IRC.Name,
		Channels: cfg.IRC.Channels,
		Bots:     adapterBots,
	}, log, func(ev event.Event) {
		if err := conn.Post(event.Envelope{Header: event.Header{ClientType: event.ClientTypeIRC}, Event: ev}); err != nil {
			log.WithError(err).Warn("rendezvous-irc: post to broker failed")
		}
	})

	errs := make(chan error, 2)

	go func() {
		errs <- adapter.Run(ctx)
	}()

	go func() {
		errs <- deliverBrokerEvents(ctx, conn, adapter)
	}()

	err = <-errs
	cancel()
	<-errs

	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("rendezvous-irc: shut down")
	return nil
}

func deliverBrokerEvents(ctx context.Context, conn *broker.Conn, adapter *ircadapter.Adapter) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-conn.Errs():
			return fmt.Errorf("rendezvous-irc: broker connection: %w", err)

		case env, ok := <-conn.Events():
			if !ok {
				return fmt.Errorf("rendezvous-irc: broker connection closed")
			}
			_ = adapter.Post(env.Event)
		}
	}
}
