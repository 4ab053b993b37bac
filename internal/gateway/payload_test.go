package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadHello(t *testing.T) {
	p, err := DecodePayload([]byte(`{"op":10,"d":{"heartbeat_interval":41250},"s":null,"t":null}`))
	require.NoError(t, err)
	assert.Equal(t, PayloadHello, p.Kind)
	assert.Equal(t, int64(41250)*1_000_000, p.HeartbeatInterval.Nanoseconds())
}

func TestDecodePayloadFieldOrderIndependent(t *testing.T) {
	a, err := DecodePayload([]byte(`{"op":0,"d":{"id":"1","channel_id":"2","author":{"id":"3","username":"alice","discriminator":"0"},"content":"hi","type":0},"s":5,"t":"MESSAGE_CREATE"}`))
	require.NoError(t, err)
	b, err := DecodePayload([]byte(`{"t":"MESSAGE_CREATE","s":5,"op":0,"d":{"id":"1","channel_id":"2","author":{"id":"3","username":"alice","discriminator":"0"},"content":"hi","type":0}}`))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, PayloadEvent, a.Kind)
	assert.Equal(t, int64(5), a.Seq)
	require.NotNil(t, a.Event.MessageCreate)
	assert.Equal(t, "hi", a.Event.MessageCreate.Content)
}

func TestDecodePayloadDuplicateOpIsError(t *testing.T) {
	_, err := DecodePayload([]byte(`{"op":11,"op":11}`))
	assert.Error(t, err)
}

func TestDecodePayloadDuplicateTIsError(t *testing.T) {
	_, err := DecodePayload([]byte(`{"op":0,"t":"MESSAGE_CREATE","t":"MESSAGE_CREATE","s":1,"d":{}}`))
	assert.Error(t, err)
}

func TestDecodePayloadMissingOpIsError(t *testing.T) {
	_, err := DecodePayload([]byte(`{"d":null}`))
	assert.Error(t, err)
}

func TestDecodePayloadUnknownOpcodeIsError(t *testing.T) {
	_, err := DecodePayload([]byte(`{"op":42}`))
	assert.Error(t, err)
}

func TestDecodePayloadReconnectIgnoresD(t *testing.T) {
	p, err := DecodePayload([]byte(`{"op":7,"d":null}`))
	require.NoError(t, err)
	assert.Equal(t, PayloadReconnect, p.Kind)
}

func TestDecodePayloadInvalidSession(t *testing.T) {
	p, err := DecodePayload([]byte(`{"op":9,"d":true}`))
	require.NoError(t, err)
	assert.Equal(t, PayloadInvalidSession, p.Kind)
	assert.True(t, p.Resumable)
}

func TestDecodePayloadHeartbeatAck(t *testing.T) {
	p, err := DecodePayload([]byte(`{"op":11}`))
	require.NoError(t, err)
	assert.Equal(t, PayloadHeartbeatAck, p.Kind)
}

func TestDecodePayloadUnrecognizedDispatchIsIgnored(t *testing.T) {
	p, err := DecodePayload([]byte(`{"op":0,"t":"SOMETHING_NEW","s":1,"d":{"whatever":1}}`))
	require.NoError(t, err)
	assert.Equal(t, PayloadEvent, p.Kind)
	assert.Equal(t, EventName("SOMETHING_NEW"), p.Event.Name)
	assert.Nil(t, p.Event.MessageCreate)
}

func TestSnowflakeAcceptsStringOrInt(t *testing.T) {
	var s Snowflake
	require.NoError(t, s.UnmarshalJSON([]byte(`"123456789012345678"`)))
	assert.Equal(t, Snowflake(123456789012345678), s)

	var s2 Snowflake
	require.NoError(t, s2.UnmarshalJSON([]byte(`42`)))
	assert.Equal(t, Snowflake(42), s2)

	var s3 Snowflake
	assert.Error(t, s3.UnmarshalJSON([]byte(`true`)))
}

func TestEncodeIdentify(t *testing.T) {
	frame, err := EncodeIdentify("tok", 1<<1|1<<9)
	require.NoError(t, err)
	assert.Contains(t, string(frame), `"token":"tok"`)
	assert.Contains(t, string(frame), `"op":2`)
}

func TestEncodeHeartbeatNilSeq(t *testing.T) {
	frame, err := EncodeHeartbeat(nil)
	require.NoError(t, err)
	assert.Equal(t, `{"op":1,"d":null}`, string(frame))
}
