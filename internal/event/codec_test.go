package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrameExactBytes(t *testing.T) {
	// Mirrors spec.md S3's byte-exact style, using a MessageCreated
	// variant since spec.md's C1 Event enum only has MessageCreated and
	// UserRenamed (the S3 example's "Ready" belongs to the gateway Event
	// enum of C2, never posted to the broker wire — see DESIGN.md).
	e := NewMessageCreated("alice", "#dev", "hi", "")
	frame, err := EncodeFrame(e)
	require.NoError(t, err)
	// Canonical CBOR sorts map keys length-first, then bytewise.
	assert.Equal(t, "event.MESSAGE_CREATED\n\xa4\x66origin\x60\x67channel\x64#dev\x67content\x62hi\x68nickname\x65alice", string(frame))

	got, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestFrameRoundTrip(t *testing.T) {
	cases := []Event{
		NewMessageCreated("alice", "#dev", "hi", ""),
		NewMessageCreated("relaybot", "#dev", "hello", "realuser"),
		NewUserRenamed("old-nick", "new-nick"),
	}
	for _, e := range cases {
		frame, err := EncodeFrame(e)
		require.NoError(t, err)
		got, err := DecodeFrame(frame)
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
}

func TestDecodeFrameMissingNewline(t *testing.T) {
	_, err := DecodeFrame([]byte("event.MESSAGE_CREATEDnonewline"))
	assert.Error(t, err)
}

func TestDecodeFrameBadPrefix(t *testing.T) {
	_, err := DecodeFrame([]byte("nope.MESSAGE_CREATED\n\xa0"))
	assert.Error(t, err)
}

func TestDecodeFrameUnknownVariant(t *testing.T) {
	_, err := DecodeFrame([]byte("event.NOT_A_THING\n\xa0"))
	assert.Error(t, err)
}

func TestRPCEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		Header: Header{ClientType: ClientTypeIRC},
		Event:  NewMessageCreated("alice", "#dev", "hi", ""),
	}
	data, err := EncodeRPCEnvelope(env)
	require.NoError(t, err)

	got, err := DecodeRPCEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env, got)
}

func TestRPCEnvelopeMissingHeaderIsError(t *testing.T) {
	// A hand-built wire message with no client_type key at all.
	raw, err := canonicalEncMode.Marshal(struct {
		MessageCreated *MessageCreated `cbor:"message_created"`
	}{MessageCreated: &MessageCreated{Nickname: "a", Channel: "#c", Content: "hi"}})
	require.NoError(t, err)

	_, err = DecodeRPCEnvelope(raw)
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestEventNameRequiresVariant(t *testing.T) {
	_, err := Event{}.Name()
	assert.Error(t, err)
}

func TestHeaderRoundTrip(t *testing.T) {
	for _, ct := range []ClientType{ClientTypeUnknown, ClientTypeIRC, ClientTypeDiscord} {
		data, err := EncodeHeader(Header{ClientType: ct})
		require.NoError(t, err)

		got, err := DecodeHeader(data)
		require.NoError(t, err)
		assert.Equal(t, Header{ClientType: ct}, got)
	}
}
