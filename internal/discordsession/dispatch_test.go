package discordsession

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langdev/rendezvous/internal/event"
	"github.com/langdev/rendezvous/internal/gateway"
	"github.com/langdev/rendezvous/internal/projection"
)

func newTestSession(onEvent func(event.Event)) *Session {
	proj := projection.New()
	log := logrus.NewEntry(logrus.New())
	return New("token", 0, nil, proj, log, onEvent)
}

func TestApplyDispatchReadySetsCurrentUser(t *testing.T) {
	s := newTestSession(nil)
	s.applyDispatch(gateway.Event{
		Name:  gateway.EventReady,
		Ready: &gateway.Ready{SessionID: "sess-1", User: gateway.User{ID: 99}},
	})
	assert.Equal(t, "sess-1", s.SessionID())
	assert.Equal(t, gateway.Snowflake(99), s.proj.CurrentUserID())
}

func TestApplyDispatchMessageCreateEmitsEvent(t *testing.T) {
	var got []event.Event
	s := newTestSession(func(e event.Event) { got = append(got, e) })

	s.applyDispatch(gateway.Event{
		Name: gateway.EventGuildCreate,
		GuildCreate: &gateway.GuildCreate{
			ID:       1,
			Channels: []gateway.Channel{{ID: 10, Type: gateway.ChannelGuildText, Name: "general"}},
		},
	})
	s.applyDispatch(gateway.Event{
		Name: gateway.EventMessageCreate,
		MessageCreate: &gateway.MessageCreate{
			ChannelID: 10,
			Author:    gateway.User{ID: 5, Username: "alice"},
			Content:   "hello",
		},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].MessageCreated.Nickname)
	assert.Equal(t, "#general", got[0].MessageCreated.Channel)
	assert.Equal(t, "hello", got[0].MessageCreated.Content)
}

func TestApplyDispatchMessageCreateSuppressesSelf(t *testing.T) {
	var got []event.Event
	s := newTestSession(func(e event.Event) { got = append(got, e) })
	s.proj.SetCurrentUser(5)

	s.applyDispatch(gateway.Event{
		Name: gateway.EventGuildCreate,
		GuildCreate: &gateway.GuildCreate{
			ID:       1,
			Channels: []gateway.Channel{{ID: 10, Type: gateway.ChannelGuildText, Name: "general"}},
		},
	})
	s.applyDispatch(gateway.Event{
		Name: gateway.EventMessageCreate,
		MessageCreate: &gateway.MessageCreate{
			ChannelID: 10,
			Author:    gateway.User{ID: 5, Username: "bridge"},
			Content:   "echo",
		},
	})

	assert.Empty(t, got)
}

func TestApplyDispatchMessageCreateUnknownChannelDropped(t *testing.T) {
	var got []event.Event
	s := newTestSession(func(e event.Event) { got = append(got, e) })

	s.applyDispatch(gateway.Event{
		Name: gateway.EventMessageCreate,
		MessageCreate: &gateway.MessageCreate{
			ChannelID: 999,
			Author:    gateway.User{ID: 5, Username: "alice"},
			Content:   "hello",
		},
	})

	assert.Empty(t, got)
}

func TestApplyDispatchGuildMemberUpdateEmitsUserRenamed(t *testing.T) {
	var got []event.Event
	s := newTestSession(func(e event.Event) { got = append(got, e) })

	s.applyDispatch(gateway.Event{
		Name: gateway.EventGuildMemberAdd,
		GuildMemberAdd: &gateway.GuildMemberAdd{
			GuildID: 1,
			Member:  gateway.GuildMember{User: &gateway.User{ID: 5, Username: "alice"}},
		},
	})

	newNick := "al"
	s.applyDispatch(gateway.Event{
		Name: gateway.EventGuildMemberUpdate,
		GuildMemberUpdate: &gateway.GuildMemberUpdate{
			GuildID: 1,
			User:    gateway.User{ID: 5, Username: "alice"},
			Nick:    &newNick,
		},
	})

	require.Len(t, got, 1)
	name, err := got[0].Name()
	require.NoError(t, err)
	assert.Equal(t, event.NameUserRenamed, name)
	assert.Equal(t, "alice", got[0].UserRenamed.Old)
	assert.Equal(t, "al", got[0].UserRenamed.New)
}
