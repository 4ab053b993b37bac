package event

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// framePrefix is the literal that every framed-IPC wire frame begins with.
const framePrefix = "event."

var canonicalEncMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("event: building canonical cbor mode: %v", err))
	}
	return mode
}()

// EncodeFrame renders e as `event.<NAME>\n<cbor-body>`, the framed IPC
// encoding of §4.1. The body is the CBOR serialization of e's populated
// variant struct alone; the client-type header is not part of this
// encoding (it travels out of band, once per connection — see
// internal/broker).
func EncodeFrame(e Event) ([]byte, error) {
	name, err := e.Name()
	if err != nil {
		return nil, fmt.Errorf("event: encode frame: %w", err)
	}

	var body []byte
	switch name {
	case NameMessageCreated:
		body, err = canonicalEncMode.Marshal(e.MessageCreated)
	case NameUserRenamed:
		body, err = canonicalEncMode.Marshal(e.UserRenamed)
	default:
		return nil, fmt.Errorf("event: encode frame: unknown variant %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("event: encode frame body: %w", err)
	}

	out := make([]byte, 0, len(framePrefix)+len(name)+1+len(body))
	out = append(out, framePrefix...)
	out = append(out, name...)
	out = append(out, '\n')
	out = append(out, body...)
	return out, nil
}

// DecodeFrame parses a framed IPC wire frame produced by EncodeFrame.
// Absence of the `\n` separator, an unrecognized `event.` prefix, or an
// unrecognized variant name are all errors.
func DecodeFrame(frame []byte) (Event, error) {
	idx := bytes.IndexByte(frame, '\n')
	if idx < 0 {
		return Event{}, fmt.Errorf("event: decode frame: missing newline separator")
	}

	tag := frame[:idx]
	body := frame[idx+1:]

	if !bytes.HasPrefix(tag, []byte(framePrefix)) {
		return Event{}, fmt.Errorf("event: decode frame: missing %q prefix", framePrefix)
	}
	name := Name(tag[len(framePrefix):])

	switch name {
	case NameMessageCreated:
		var m MessageCreated
		if err := cbor.Unmarshal(body, &m); err != nil {
			return Event{}, fmt.Errorf("event: decode frame body: %w", err)
		}
		return Event{MessageCreated: &m}, nil
	case NameUserRenamed:
		var r UserRenamed
		if err := cbor.Unmarshal(body, &r); err != nil {
			return Event{}, fmt.Errorf("event: decode frame body: %w", err)
		}
		return Event{UserRenamed: &r}, nil
	default:
		return Event{}, fmt.Errorf("event: decode frame: unknown variant tag %q", name)
	}
}

// rpcWire is the CBOR-serialized stand-in for the protobuf Event message
// of §6 (`message Event { Header header = 1; oneof body {...} }`). It is
// used on the broker's own connection protocol, where every Post must
// carry an explicit header. ClientType is a pointer so that an absent
// header decodes to nil rather than silently to ClientTypeUnknown.
type rpcWire struct {
	ClientType     *ClientType     `cbor:"client_type"`
	MessageCreated *MessageCreated `cbor:"message_created,omitempty"`
	UserRenamed    *UserRenamed    `cbor:"user_renamed,omitempty"`
}

// EncodeRPCEnvelope renders env as the RPC encoding of §4.1/§6: a single
// structured message carrying both the required Header and the Event
// oneof body. We stand this in with canonical CBOR rather than generated
// protobuf code (see DESIGN.md); the wire shape (required header,
// mutually exclusive body) is what matters for the invariants in §8.
func EncodeRPCEnvelope(env Envelope) ([]byte, error) {
	ct := env.Header.ClientType
	w := rpcWire{ClientType: &ct}
	switch {
	case env.Event.MessageCreated != nil:
		w.MessageCreated = env.Event.MessageCreated
	case env.Event.UserRenamed != nil:
		w.UserRenamed = env.Event.UserRenamed
	default:
		return nil, fmt.Errorf("event: encode rpc envelope: no variant set")
	}
	data, err := canonicalEncMode.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("event: encode rpc envelope: %w", err)
	}
	return data, nil
}

// ErrMissingHeader is returned by DecodeRPCEnvelope when the wire message
// carries no header at all — the broker's Post equivalent of a protobuf
// InvalidArgument.
var ErrMissingHeader = fmt.Errorf("event: envelope missing header")

// headerWire is the handshake-only frame a broker connection opens with:
// a Header and no Event body. Kept separate from rpcWire so the
// handshake never has to satisfy rpcWire's "exactly one variant set"
// requirement.
type headerWire struct {
	ClientType ClientType `cbor:"client_type"`
}

// EncodeHeader renders h as the handshake frame a broker connection
// opens with, declaring the peer's ClientType once for the lifetime of
// the connection.
func EncodeHeader(h Header) ([]byte, error) {
	data, err := canonicalEncMode.Marshal(headerWire{ClientType: h.ClientType})
	if err != nil {
		return nil, fmt.Errorf("event: encode header: %w", err)
	}
	return data, nil
}

// DecodeHeader parses the handshake frame produced by EncodeHeader.
func DecodeHeader(data []byte) (Header, error) {
	var w headerWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return Header{}, fmt.Errorf("event: decode header: %w", err)
	}
	return Header{ClientType: w.ClientType}, nil
}

// DecodeRPCEnvelope parses the RPC encoding produced by EncodeRPCEnvelope.
func DecodeRPCEnvelope(data []byte) (Envelope, error) {
	var w rpcWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return Envelope{}, fmt.Errorf("event: decode rpc envelope: %w", err)
	}
	if w.ClientType == nil {
		return Envelope{}, ErrMissingHeader
	}

	var ev Event
	switch {
	case w.MessageCreated != nil:
		ev.MessageCreated = w.MessageCreated
	case w.UserRenamed != nil:
		ev.UserRenamed = w.UserRenamed
	default:
		return Envelope{}, fmt.Errorf("event: decode rpc envelope: no variant set")
	}

	return Envelope{Header: Header{ClientType: *w.ClientType}, Event: ev}, nil
}
