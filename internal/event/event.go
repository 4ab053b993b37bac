// Package event defines the normalized chat event vocabulary that flows
// between adapters and the broker, and its two wire encodings.
package event

import "fmt"

// ClientType tags the network an event (or a subscriber) originates from.
// The broker uses it, and only it, to decide who an envelope is fanned out to.
type ClientType int

const (
	ClientTypeUnknown ClientType = iota
	ClientTypeIRC
	ClientTypeDiscord
)

func (t ClientType) String() string {
	switch t {
	case ClientTypeIRC:
		return "irc"
	case ClientTypeDiscord:
		return "discord"
	default:
		return "unknown"
	}
}

// Header is the required prefix of every envelope posted to or streamed
// from the broker. A zero Header (ClientTypeUnknown) is valid on the wire
// but is reserved for diagnostic subscribers: it is never used by a
// bridging adapter. An Unknown poster is fanned out to every subscriber
// of another ClientType; like any other type, it is not echoed back to
// the Unknown subscriber.
type Header struct {
	ClientType ClientType
}

// Name identifies the SCREAMING_SNAKE_CASE wire tag of an Event variant.
type Name string

const (
	NameMessageCreated Name = "MESSAGE_CREATED"
	NameUserRenamed    Name = "USER_RENAMED"
)

// Event is the sum type every adapter translates its native protocol into.
// Exactly one of MessageCreated or UserRenamed is non-nil.
type Event struct {
	MessageCreated *MessageCreated
	UserRenamed    *UserRenamed
}

// MessageCreated carries a chat message translated from its native network.
type MessageCreated struct {
	Nickname string `cbor:"nickname"`
	Channel  string `cbor:"channel"`
	Content  string `cbor:"content"`
	// Origin attributes the message to a bridge bot's real author when a
	// third-party bridge bot on the source network republished it (see
	// the IRC adapter's bridge-bot unwrap). Always present on the wire,
	// empty when there is no secondary attribution.
	Origin string `cbor:"origin"`
}

// UserRenamed carries a guild member's display-name change.
type UserRenamed struct {
	Old string `cbor:"old"`
	New string `cbor:"new"`
}

// Name returns the wire tag for e's populated variant.
func (e Event) Name() (Name, error) {
	switch {
	case e.MessageCreated != nil:
		return NameMessageCreated, nil
	case e.UserRenamed != nil:
		return NameUserRenamed, nil
	default:
		return "", fmt.Errorf("event: no variant set")
	}
}

// NewMessageCreated is a convenience constructor for the common case.
func NewMessageCreated(nickname, channel, content, origin string) Event {
	return Event{MessageCreated: &MessageCreated{
		Nickname: nickname,
		Channel:  channel,
		Content:  content,
		Origin:   origin,
	}}
}

// NewUserRenamed is a convenience constructor for the common case.
func NewUserRenamed(old, new string) Event {
	return Event{UserRenamed: &UserRenamed{Old: old, New: new}}
}

// Envelope is the unit posted over the broker wire: a required Header
// plus an Event body. A missing header is a protocol error at decode time.
type Envelope struct {
	Header Header
	Event  Event
}
