// Package ircadapter bridges a single IRC channel set to the broker
// event plane using lrstanley/girc as the IRC transport. TLS and the
// wire-level handshake are girc's; this package re-invokes girc's
// Connect after a disconnect, joins the configured channels on welcome,
// translates PRIVMSG in both directions, and tracks liveness.
package ircadapter

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/lrstanley/girc"
	"github.com/sirupsen/logrus"

	"github.com/langdev/rendezvous/internal/event"
)

// BridgeBot maps an IRC nickname known to relay third-party messages to
// the two-capture-group pattern used to recover the true author and
// content from its relayed text.
type BridgeBot struct {
	Nickname string
	Pattern  *regexp.Regexp
}

// Config configures the IRC side of the bridge.
type Config struct {
	Server   string
	Port     int
	TLS      bool
	Nick     string
	User     string
	Name     string
	Channels []string
	Bots     []BridgeBot
}

// Adapter owns the girc client and the channel-join/bridge-bot state
// derived from Config.
type Adapter struct {
	cfg     Config
	client  *girc.Client
	log     *logrus.Entry
	onEvent func(event.Event)

	mu       sync.Mutex
	lastPong time.Time
	channels map[string]struct{}
}

// New builds an Adapter. onEvent is invoked for every MessageCreated
// translated from an inbound PRIVMSG.
func New(cfg Config, log *logrus.Entry, onEvent func(event.Event)) *Adapter {
	a := &Adapter{
		cfg:      cfg,
		log:      log,
		onEvent:  onEvent,
		channels: make(map[string]struct{}),
	}
	for _, ch := range cfg.Channels {
		a.channels[ch] = struct{}{}
	}

	a.client = girc.New(girc.Config{
		Server:    cfg.Server,
		Port:      cfg.Port,
		Nick:      cfg.Nick,
		User:      cfg.User,
		Name:      cfg.Name,
		SSL:       cfg.TLS,
	})

	a.client.Handlers.Add(girc.RPL_WELCOME, a.handleWelcome)
	a.client.Handlers.Add(girc.PRIVMSG, a.handlePrivmsg)
	a.client.Handlers.Add(girc.PONG, a.handlePong)

	return a
}

func (a *Adapter) handleWelcome(c *girc.Client, e girc.Event) {
	a.mu.Lock()
	joins := make([]string, 0, len(a.channels))
	for ch := range a.channels {
		joins = append(joins, ch)
	}
	a.mu.Unlock()

	for _, ch := range joins {
		c.Cmd.Join(ch)
	}
	a.log.WithField("channels", joins).Info("ircadapter: joined channels after welcome")
}

func (a *Adapter) handlePong(c *girc.Client, e girc.Event) {
	a.mu.Lock()
	a.lastPong = time.Now()
	a.mu.Unlock()
}

func (a *Adapter) handlePrivmsg(c *girc.Client, e girc.Event) {
	if len(e.Params) == 0 {
		return
	}
	channel := e.Params[0]
	nickname := e.Source.Name
	content := e.Last()
	origin := ""

	if bot, ok := a.bridgeBotFor(nickname); ok {
		if m := bot.Pattern.FindStringSubmatch(content); len(m) == 3 {
			nickname = m[1]
			content = m[2]
			origin = bot.Nickname
		}
	}

	if a.onEvent != nil {
		a.onEvent(event.NewMessageCreated(nickname, channel, content, origin))
	}
}

func (a *Adapter) bridgeBotFor(nick string) (BridgeBot, bool) {
	for _, b := range a.cfg.Bots {
		if b.Nickname == nick {
			return b, true
		}
	}
	return BridgeBot{}, false
}

// LastPong reports the last time a PONG was observed.
func (a *Adapter) LastPong() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastPong
}

// NoteChannel records a channel the bridge should be joined to (e.g.
// learned from a peer adapter's projection) and joins it immediately
// if already connected.
func (a *Adapter) NoteChannel(channel string) {
	a.mu.Lock()
	_, known := a.channels[channel]
	a.channels[channel] = struct{}{}
	a.mu.Unlock()

	if !known && a.client.IsConnected() {
		a.client.Cmd.Join(channel)
	}
}

// Post translates a MessageCreated bridge event into an outbound
// PRIVMSG.
func (a *Adapter) Post(ev event.Event) error {
	if ev.MessageCreated == nil {
		return nil
	}
	m := ev.MessageCreated
	text := fmt.Sprintf("<%s> %s", m.Nickname, m.Content)
	a.client.Cmd.Message(m.Channel, text)
	return nil
}

// Run connects and blocks until ctx is cancelled. Reconnection on
// transport failure is handled here; the wire-level reconnect/TLS
// handshake itself is girc's responsibility.
func (a *Adapter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			a.client.Close()
			return ctx.Err()
		default:
		}

		err := a.client.Connect()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			a.log.WithError(err).Warn("ircadapter: connection error, retrying")
		} else {
			a.log.Warn("ircadapter: disconnected, retrying")
		}

		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
