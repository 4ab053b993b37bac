package ircadapter

import (
	"regexp"
	"testing"

	"github.com/lrstanley/girc"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langdev/rendezvous/internal/event"
)

func TestHandlePrivmsgTranslatesToMessageCreated(t *testing.T) {
	var got event.Event
	a := New(Config{Channels: []string{"#dev"}}, logrus.NewEntry(logrus.New()), func(e event.Event) { got = e })

	a.handlePrivmsg(nil, girc.Event{
		Source: &girc.Source{Name: "alice"},
		Params: []string{"#dev", "hello there"},
	})

	require.NotNil(t, got.MessageCreated)
	assert.Equal(t, "alice", got.MessageCreated.Nickname)
	assert.Equal(t, "#dev", got.MessageCreated.Channel)
	assert.Equal(t, "hello there", got.MessageCreated.Content)
	assert.Equal(t, "", got.MessageCreated.Origin)
}

func TestHandlePrivmsgUnwrapsBridgeBot(t *testing.T) {
	var got event.Event
	pattern := regexp.MustCompile(`^<(\S+)>\s(.*)$`)
	a := New(Config{
		Bots: []BridgeBot{{Nickname: "relaybot", Pattern: pattern}},
	}, logrus.NewEntry(logrus.New()), func(e event.Event) { got = e })

	a.handlePrivmsg(nil, girc.Event{
		Source: &girc.Source{Name: "relaybot"},
		Params: []string{"#dev", "<realuser> actual message"},
	})

	require.NotNil(t, got.MessageCreated)
	assert.Equal(t, "realuser", got.MessageCreated.Nickname)
	assert.Equal(t, "actual message", got.MessageCreated.Content)
	assert.Equal(t, "relaybot", got.MessageCreated.Origin)
}

func TestHandlePrivmsgBridgeBotNoMatchKeepsOriginal(t *testing.T) {
	var got event.Event
	pattern := regexp.MustCompile(`^<(\S+)>\s(.*)$`)
	a := New(Config{
		Bots: []BridgeBot{{Nickname: "relaybot", Pattern: pattern}},
	}, logrus.NewEntry(logrus.New()), func(e event.Event) { got = e })

	a.handlePrivmsg(nil, girc.Event{
		Source: &girc.Source{Name: "relaybot"},
		Params: []string{"#dev", "not in the expected shape"},
	})

	require.NotNil(t, got.MessageCreated)
	assert.Equal(t, "relaybot", got.MessageCreated.Nickname)
	assert.Equal(t, "", got.MessageCreated.Origin)
}

func TestNoteChannelAddsWithoutConnection(t *testing.T) {
	a := New(Config{}, logrus.NewEntry(logrus.New()), nil)
	a.NoteChannel("#new")
	_, ok := a.channels["#new"]
	assert.True(t, ok)
}
