// Command rendezvous-discord runs the Discord side of the bridge: the
// gateway session (C3), the guild/channel projection (C4), and T-out
// delivery of broker events into Discord channels.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/langdev/rendezvous/internal/broker"
	"github.com/langdev/rendezvous/internal/config"
	"github.com/langdev/rendezvous/internal/discordsession"
	"github.com/langdev/rendezvous/internal/event"
	"github.com/langdev/rendezvous/internal/obs"
	"github.com/langdev/rendezvous/internal/projection"
	"github.com/langdev/rendezvous/internal/restclient"
)

// defaultIntents covers guild membership and message content, the only
// gateway data this bridge's projection and forwarding logic consume.
const defaultIntents = 1<<1 | 1<<9 | 1<<15

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

	log := obs.NewLogger("discord", *logLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireDiscordToken(); err != nil {
		return err
	}
	intents := cfg.Discord.Intents
	if intents == 0 {
		intents = defaultIntents
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := broker.Dial(ctx, cfg.Broker.Addr, event.ClientTypeDiscord)
	if err != nil {
		return fmt.Errorf("rendezvous-discord: %w", err)
	}
	defer conn.Close()

	proj := projection.New()
	rest := restclient.New(cfg.Discord.BotToken)

	sess := discordsession.New(cfg.Discord.BotToken, intents, rest, proj, log, func(ev event.Event) {
		if err := conn.Post(event.Envelope{Header: event.Header{ClientType: event.ClientTypeDiscord}, Event: ev}); err != nil {
			log.WithError(err).Warn("rendezvous-discord: post to broker failed")
		}
	})

	errs := make(chan error, 2)

	go func() {
		errs <- sess.Run(ctx)
	}()

	go func() {
		errs <- deliverBrokerEvents(ctx, conn, proj, rest, log)
	}()

	err = <-errs
	cancel()
	<-errs

	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("rendezvous-discord: shut down")
	return nil
}

// deliverBrokerEvents is T-out: translate MessageCreated events
// arriving from other adapters into Discord channel messages.
func deliverBrokerEvents(ctx context.Context, conn *broker.Conn, proj *projection.Projection, rest *restclient.Client, log *logrus.Entry) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-conn.Errs():
			return fmt.Errorf("rendezvous-discord: broker connection: %w", err)

		case env, ok := <-conn.Events():
			if !ok {
				return fmt.Errorf("rendezvous-discord: broker connection closed")
			}
			if env.Event.MessageCreated == nil {
				continue
			}
			m := env.Event.MessageCreated
			name := strings.TrimPrefix(m.Channel, "#")
			channelID, found := proj.ChannelIDByName(name)
			if !found {
				log.WithField("channel", m.Channel).Warn("rendezvous-discord: unknown channel, dropping message")
				continue
			}
			text := fmt.Sprintf("<%s> %s", m.Nickname, m.Content)
			if err := rest.SendMessage(channelID.String(), text); err != nil {
				log.WithError(err).Warn("rendezvous-discord: send message failed")
			}
		}
	}
}
