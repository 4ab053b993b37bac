package gateway

import json "github.com/goccy/go-json"

// EventName is the SCREAMING_SNAKE_CASE dispatch type string carried in
// the envelope's `t` field.
type EventName string

const (
	EventReady             EventName = "READY"
	EventGuildCreate       EventName = "GUILD_CREATE"
	EventGuildMemberAdd    EventName = "GUILD_MEMBER_ADD"
	EventGuildMemberRemove EventName = "GUILD_MEMBER_REMOVE"
	EventGuildMemberUpdate EventName = "GUILD_MEMBER_UPDATE"
	EventMessageCreate     EventName = "MESSAGE_CREATE"
	EventWebhooksUpdate    EventName = "WEBHOOKS_UPDATE"
)

// Event is the sum type over the gateway dispatch type string. Dispatch
// types outside this set decode to a zero Event (Name holds the raw
// string) rather than failing the connection — handlers simply ignore it.
type Event struct {
	Name EventName

	Ready             *Ready
	GuildCreate       *GuildCreate
	GuildMemberAdd    *GuildMemberAdd
	GuildMemberRemove *GuildMemberRemove
	GuildMemberUpdate *GuildMemberUpdate
	MessageCreate     *MessageCreate
	WebhooksUpdate    *WebhooksUpdate
}

type UnavailableGuild struct {
	ID Snowflake `json:"id"`
}

type Ready struct {
	SessionID string             `json:"session_id"`
	ResumeURL string             `json:"resume_gateway_url"`
	Guilds    []UnavailableGuild `json:"guilds"`
	User      User               `json:"user"`
}

type User struct {
	ID            Snowflake `json:"id"`
	Username      string    `json:"username"`
	Discriminator string    `json:"discriminator"`
}

// GuildMember is a guild_create/guild_member_add member payload: an
// optional user plus the member-specific nickname override.
type GuildMember struct {
	User *User   `json:"user"`
	Nick *string `json:"nick"`
}

type Channel struct {
	ID       Snowflake   `json:"id"`
	Type     ChannelType `json:"type"`
	Name     string      `json:"name"`
	ParentID *Snowflake  `json:"parent_id"`
}

type ChannelType int

const (
	ChannelGuildText     ChannelType = 0
	ChannelDM            ChannelType = 1
	ChannelGuildVoice    ChannelType = 2
	ChannelGroupDM       ChannelType = 3
	ChannelGuildCategory ChannelType = 4
	ChannelGuildNews     ChannelType = 5
	ChannelGuildStore    ChannelType = 6
)

type GuildCreate struct {
	ID       Snowflake     `json:"id"`
	Name     string        `json:"name"`
	Members  []GuildMember `json:"members"`
	Channels []Channel     `json:"channels"`
}

type GuildMemberAdd struct {
	GuildID Snowflake `json:"guild_id"`
	Member  GuildMember
}

// UnmarshalJSON flattens guild_id together with the member payload
// carried in the same JSON object (mirrors the original's
// `#[serde(flatten)]` on the member fields).
func (g *GuildMemberAdd) UnmarshalJSON(data []byte) error {
	var wire struct {
		GuildID Snowflake `json:"guild_id"`
		User    *User     `json:"user"`
		Nick    *string   `json:"nick"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	g.GuildID = wire.GuildID
	g.Member = GuildMember{User: wire.User, Nick: wire.Nick}
	return nil
}

type GuildMemberRemove struct {
	GuildID Snowflake `json:"guild_id"`
	User    User      `json:"user"`
}

type GuildMemberUpdate struct {
	GuildID Snowflake   `json:"guild_id"`
	Roles   []Snowflake `json:"roles"`
	User    User        `json:"user"`
	Nick    *string     `json:"nick"`
}

type MessageCreate struct {
	ID        Snowflake  `json:"id"`
	ChannelID Snowflake  `json:"channel_id"`
	GuildID   *Snowflake `json:"guild_id"`
	Author    User       `json:"author"`
	Member    *Member    `json:"member"`
	Content   string     `json:"content"`
	Type      int        `json:"type"`
}

type Member struct {
	Nick *string `json:"nick"`
}

// WebhooksUpdate is parsed and discarded; it has no projection effect
// (spec.md §9).
type WebhooksUpdate struct {
	GuildID   Snowflake `json:"guild_id"`
	ChannelID Snowflake `json:"channel_id"`
}
