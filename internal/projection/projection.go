// Package projection maintains the in-memory guild/channel index a
// Discord session fills from gateway dispatches, and the display-name
// resolution rules the bridge uses when forwarding MESSAGE_CREATE.
package projection

import (
	"sync"

	"github.com/langdev/rendezvous/internal/gateway"
)

// Member is the projected view of a guild member: the username plus the
// per-guild nickname override, if any. The user id is the map key.
type Member struct {
	Username string
	Nick     string // empty when no per-guild nickname override is set
}

// Name returns the nickname if set, otherwise the username.
func (m Member) Name() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.Username
}

type guildMembers map[gateway.Snowflake]Member

// Projection is the read-mostly index. It is not reset on reconnect: a
// repeated GUILD_CREATE merges into the existing entries. It is safe
// for concurrent use: the owning session
// task performs writes; outbound-side lookups (e.g. resolving a channel
// name to post into) happen under the same lock.
type Projection struct {
	mu sync.RWMutex

	currentUserID gateway.Snowflake

	// members maps guild_id -> user_id -> Member.
	members map[gateway.Snowflake]guildMembers

	// channels is ordered by first insertion so that name lookups are
	// stable across reconnects: the earliest-registered channel with a
	// given name always wins ties.
	channels []channelEntry
}

type channelEntry struct {
	id   gateway.Snowflake
	name string
}

// New returns an empty Projection.
func New() *Projection {
	return &Projection{members: make(map[gateway.Snowflake]guildMembers)}
}

// SetCurrentUser records the bridge's own Discord user id, used to
// suppress loop-back on MESSAGE_CREATE.
func (p *Projection) SetCurrentUser(id gateway.Snowflake) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentUserID = id
}

// CurrentUserID returns the bridge's own Discord user id.
func (p *Projection) CurrentUserID() gateway.Snowflake {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentUserID
}

// ApplyGuildCreate seeds the member and channel index for one guild.
// Existing channel entries of the same name are never overwritten.
func (p *Projection) ApplyGuildCreate(g *gateway.GuildCreate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mm := p.members[g.ID]
	if mm == nil {
		mm = make(guildMembers)
		p.members[g.ID] = mm
	}
	for _, member := range g.Members {
		if member.User == nil {
			continue
		}
		mm[member.User.ID] = toMember(member)
	}

	for _, ch := range g.Channels {
		if ch.Type != gateway.ChannelGuildText {
			continue
		}
		p.insertChannel(ch.ID, ch.Name)
	}
}

func (p *Projection) insertChannel(id gateway.Snowflake, name string) {
	for _, c := range p.channels {
		if c.name == name {
			return
		}
	}
	p.channels = append(p.channels, channelEntry{id: id, name: name})
}

// ApplyGuildMemberAdd records a newly joined member.
func (p *Projection) ApplyGuildMemberAdd(e *gateway.GuildMemberAdd) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e.Member.User == nil {
		return
	}
	mm := p.members[e.GuildID]
	if mm == nil {
		mm = make(guildMembers)
		p.members[e.GuildID] = mm
	}
	mm[e.Member.User.ID] = toMember(e.Member)
}

// ApplyGuildMemberRemove deletes a member entry, if present.
func (p *Projection) ApplyGuildMemberRemove(e *gateway.GuildMemberRemove) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mm := p.members[e.GuildID]
	if mm == nil {
		return
	}
	delete(mm, e.User.ID)
}

// ApplyGuildMemberUpdate updates the stored name for a member already
// tracked via ApplyGuildCreate/ApplyGuildMemberAdd, and reports whether
// the effective display name changed (old, new, true) so the caller can
// emit a UserRenamed event. An update for a member this projection
// hasn't seen yet is a no-op (mirrors the original's get_mut-only
// update: see DESIGN.md) rather than inserting a partial entry ahead of
// the GUILD_CREATE/GUILD_MEMBER_ADD that would normally seed it.
func (p *Projection) ApplyGuildMemberUpdate(e *gateway.GuildMemberUpdate) (oldName, newName string, changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mm := p.members[e.GuildID]
	if mm == nil {
		return "", "", false
	}

	existing, existed := mm[e.User.ID]
	if !existed {
		return "", "", false
	}
	previousName := existing.Name()

	resolvedName := e.User.Username
	if e.Nick != nil && *e.Nick != "" {
		resolvedName = *e.Nick
	}

	mm[e.User.ID] = memberFromResolved(e.User.Username, e.Nick)

	if previousName == resolvedName {
		return "", "", false
	}
	return previousName, resolvedName, true
}

func memberFromResolved(username string, nick *string) Member {
	m := Member{Username: username}
	if nick != nil {
		m.Nick = *nick
	}
	return m
}

func toMember(gm gateway.GuildMember) Member {
	m := Member{}
	if gm.User != nil {
		m.Username = gm.User.Username
	}
	if gm.Nick != nil {
		m.Nick = *gm.Nick
	}
	return m
}

// AuthorName resolves the display name for (guildID, userID), falling
// back to fallbackUsername when no projected member entry exists.
func (p *Projection) AuthorName(guildID, userID gateway.Snowflake, fallbackUsername string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	mm := p.members[guildID]
	if mm == nil {
		return fallbackUsername
	}
	member, ok := mm[userID]
	if !ok {
		return fallbackUsername
	}
	name := member.Name()
	if name == "" {
		return fallbackUsername
	}
	return name
}

// ChannelName resolves a channel id to its projected name, ok=false if
// unknown.
func (p *Projection) ChannelName(id gateway.Snowflake) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, c := range p.channels {
		if c.id == id {
			return c.name, true
		}
	}
	return "", false
}

// ChannelIDByName resolves a channel name (without a leading "#") to
// its Discord id, ok=false if unknown. Comparison is exact byte
// equality per spec.md §4.4.
func (p *Projection) ChannelIDByName(name string) (gateway.Snowflake, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, c := range p.channels {
		if c.name == name {
			return c.id, true
		}
	}
	return 0, false
}

// ChannelNames returns every projected text channel name, in
// first-insertion order.
func (p *Projection) ChannelNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.channels))
	for i, c := range p.channels {
		names[i] = c.name
	}
	return names
}
