package discordsession

import (
	"github.com/langdev/rendezvous/internal/event"
	"github.com/langdev/rendezvous/internal/gateway"
)

// applyDispatch mutates the projection per spec.md §4.4 and forwards
// the resulting bridge event, if any, to the configured sink.
func (s *Session) applyDispatch(ev gateway.Event) {
	switch ev.Name {
	case gateway.EventReady:
		if ev.Ready == nil {
			return
		}
		s.mu.Lock()
		s.sessionID = ev.Ready.SessionID
		s.resumeURL = ev.Ready.ResumeURL
		s.mu.Unlock()
		s.proj.SetCurrentUser(ev.Ready.User.ID)

	case gateway.EventGuildCreate:
		if ev.GuildCreate != nil {
			s.proj.ApplyGuildCreate(ev.GuildCreate)
		}

	case gateway.EventGuildMemberAdd:
		if ev.GuildMemberAdd != nil {
			s.proj.ApplyGuildMemberAdd(ev.GuildMemberAdd)
		}

	case gateway.EventGuildMemberRemove:
		if ev.GuildMemberRemove != nil {
			s.proj.ApplyGuildMemberRemove(ev.GuildMemberRemove)
		}

	case gateway.EventGuildMemberUpdate:
		if ev.GuildMemberUpdate == nil {
			return
		}
		oldName, newName, changed := s.proj.ApplyGuildMemberUpdate(ev.GuildMemberUpdate)
		if changed && s.onEvent != nil {
			s.onEvent(event.NewUserRenamed(oldName, newName))
		}

	case gateway.EventMessageCreate:
		if ev.MessageCreate != nil {
			s.applyMessageCreate(ev.MessageCreate)
		}

	case gateway.EventWebhooksUpdate:
		// Parsed and discarded: no projection effect (spec.md §9).
	}
}

func (s *Session) applyMessageCreate(m *gateway.MessageCreate) {
	if m.Author.ID == s.proj.CurrentUserID() {
		return
	}

	var guildID gateway.Snowflake
	if m.GuildID != nil {
		guildID = *m.GuildID
	}

	nickname := s.proj.AuthorName(guildID, m.Author.ID, m.Author.Username)

	channel, ok := s.proj.ChannelName(m.ChannelID)
	if !ok {
		return
	}

	if s.onEvent != nil {
		s.onEvent(event.NewMessageCreated(nickname, "#"+channel, m.Content, ""))
	}
}
