package gateway

import (
	"bytes"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// PayloadKind discriminates the Payload sum type.
type PayloadKind int

const (
	PayloadEvent PayloadKind = iota
	PayloadReconnect
	PayloadHello
	PayloadHeartbeatAck
	PayloadInvalidSession
	// PayloadOther covers recognized opcodes with no dedicated variant; Op
	// tells them apart. The session answers an inbound Heartbeat (Discord's
	// request for an immediate beat) and ignores the rest.
	PayloadOther
)

// Payload is the decoded form of one gateway frame.
type Payload struct {
	Kind PayloadKind

	// Populated when Kind == PayloadEvent.
	Seq   int64
	Event Event

	// Populated when Kind == PayloadHello.
	HeartbeatInterval time.Duration

	// Populated when Kind == PayloadInvalidSession.
	Resumable bool

	Op OpCode
}

// DecodePayload decodes a single gateway JSON frame. Per spec.md §4.2 the
// object's `op`, `d`, `t`, `s` fields may arrive in any order; `op` must
// occur exactly once, `t` at most once, and `d` is deferred until `(op,
// t)` are known so the right target type can be chosen.
func DecodePayload(raw []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return Payload{}, fmt.Errorf("gateway: decode payload: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Payload{}, fmt.Errorf("gateway: decode payload: expected object")
	}

	var (
		opSeen, tSeen, dSeen bool
		op                   int
		t                    *string
		s                    *int64
		d                    json.RawMessage
	)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Payload{}, fmt.Errorf("gateway: decode payload: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return Payload{}, fmt.Errorf("gateway: decode payload: non-string key")
		}

		switch key {
		case "op":
			if opSeen {
				return Payload{}, fmt.Errorf("gateway: decode payload: duplicate %q field", "op")
			}
			opSeen = true
			if err := dec.Decode(&op); err != nil {
				return Payload{}, fmt.Errorf("gateway: decode payload: op: %w", err)
			}
		case "t":
			if tSeen {
				return Payload{}, fmt.Errorf("gateway: decode payload: duplicate %q field", "t")
			}
			tSeen = true
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return Payload{}, fmt.Errorf("gateway: decode payload: t: %w", err)
			}
			if string(raw) != "null" {
				var str string
				if err := json.Unmarshal(raw, &str); err != nil {
					return Payload{}, fmt.Errorf("gateway: decode payload: t: %w", err)
				}
				t = &str
			}
		case "s":
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return Payload{}, fmt.Errorf("gateway: decode payload: s: %w", err)
			}
			if string(raw) != "null" {
				var n int64
				if err := json.Unmarshal(raw, &n); err != nil {
					return Payload{}, fmt.Errorf("gateway: decode payload: s: %w", err)
				}
				s = &n
			}
		case "d":
			if dSeen {
				return Payload{}, fmt.Errorf("gateway: decode payload: duplicate %q field", "d")
			}
			dSeen = true
			if err := dec.Decode(&d); err != nil {
				return Payload{}, fmt.Errorf("gateway: decode payload: d: %w", err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return Payload{}, fmt.Errorf("gateway: decode payload: %s: %w", key, err)
			}
		}
	}

	if !opSeen {
		return Payload{}, fmt.Errorf("gateway: decode payload: missing %q field", "op")
	}

	opCode := OpCode(op)
	if !opCode.known() {
		return Payload{}, fmt.Errorf("gateway: decode payload: unknown opcode %d", op)
	}

	return buildPayload(opCode, t, s, d)
}

func buildPayload(op OpCode, t *string, s *int64, d json.RawMessage) (Payload, error) {
	switch op {
	case OpDispatch:
		if t == nil || s == nil {
			return Payload{}, fmt.Errorf("gateway: decode payload: dispatch requires t and s")
		}
		ev, err := decodeEvent(EventName(*t), d)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: PayloadEvent, Op: op, Seq: *s, Event: ev}, nil

	case OpReconnect:
		return Payload{Kind: PayloadReconnect, Op: op}, nil

	case OpHeartbeatAck:
		return Payload{Kind: PayloadHeartbeatAck, Op: op}, nil

	case OpHello:
		var hello struct {
			HeartbeatInterval uint64 `json:"heartbeat_interval"`
		}
		if len(d) == 0 {
			return Payload{}, fmt.Errorf("gateway: decode payload: hello requires d")
		}
		if err := json.Unmarshal(d, &hello); err != nil {
			return Payload{}, fmt.Errorf("gateway: decode payload: hello: %w", err)
		}
		return Payload{
			Kind:              PayloadHello,
			Op:                op,
			HeartbeatInterval: time.Duration(hello.HeartbeatInterval) * time.Millisecond,
		}, nil

	case OpInvalidSession:
		var resumable bool
		if len(d) > 0 {
			if err := json.Unmarshal(d, &resumable); err != nil {
				return Payload{}, fmt.Errorf("gateway: decode payload: invalid session: %w", err)
			}
		}
		return Payload{Kind: PayloadInvalidSession, Op: op, Resumable: resumable}, nil

	default:
		return Payload{Kind: PayloadOther, Op: op}, nil
	}
}

func decodeEvent(name EventName, d json.RawMessage) (Event, error) {
	ev := Event{Name: name}
	if len(d) == 0 {
		// Some dispatches (e.g. RESUMED) carry no meaningful body we track.
		return ev, nil
	}

	switch name {
	case EventReady:
		var v Ready
		if err := json.Unmarshal(d, &v); err != nil {
			return Event{}, fmt.Errorf("gateway: decode event %s: %w", name, err)
		}
		ev.Ready = &v
	case EventGuildCreate:
		var v GuildCreate
		if err := json.Unmarshal(d, &v); err != nil {
			return Event{}, fmt.Errorf("gateway: decode event %s: %w", name, err)
		}
		ev.GuildCreate = &v
	case EventGuildMemberAdd:
		var v GuildMemberAdd
		if err := json.Unmarshal(d, &v); err != nil {
			return Event{}, fmt.Errorf("gateway: decode event %s: %w", name, err)
		}
		ev.GuildMemberAdd = &v
	case EventGuildMemberRemove:
		var v GuildMemberRemove
		if err := json.Unmarshal(d, &v); err != nil {
			return Event{}, fmt.Errorf("gateway: decode event %s: %w", name, err)
		}
		ev.GuildMemberRemove = &v
	case EventGuildMemberUpdate:
		var v GuildMemberUpdate
		if err := json.Unmarshal(d, &v); err != nil {
			return Event{}, fmt.Errorf("gateway: decode event %s: %w", name, err)
		}
		ev.GuildMemberUpdate = &v
	case EventMessageCreate:
		var v MessageCreate
		if err := json.Unmarshal(d, &v); err != nil {
			return Event{}, fmt.Errorf("gateway: decode event %s: %w", name, err)
		}
		ev.MessageCreate = &v
	case EventWebhooksUpdate:
		var v WebhooksUpdate
		if err := json.Unmarshal(d, &v); err != nil {
			return Event{}, fmt.Errorf("gateway: decode event %s: %w", name, err)
		}
		ev.WebhooksUpdate = &v
	default:
		// Unknown dispatch types are no-ops; spec.md §3 permits ignoring them.
	}
	return ev, nil
}
