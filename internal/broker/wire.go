package broker

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/langdev/rendezvous/internal/event"
)

// maxFrameSize bounds a single wire frame to guard against a
// misbehaving peer claiming an unreasonable length prefix.
const maxFrameSize = 1 << 20

// writeFrame writes one length-prefixed frame to w: a big-endian uint32
// byte count followed by body.
func writeFrame(w io.Writer, body []byte) error {
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(body)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("broker: write frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("broker: write frame body: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed frame from r.
func readFrame(r *bufio.Reader) ([]byte, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("broker: frame too large: %d bytes", n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("broker: read frame body: %w", err)
	}
	return body, nil
}

// writeEnvelope writes one length-prefixed, canonical-CBOR-encoded
// envelope to w.
func writeEnvelope(w io.Writer, env event.Envelope) error {
	body, err := event.EncodeRPCEnvelope(env)
	if err != nil {
		return fmt.Errorf("broker: encode envelope: %w", err)
	}
	return writeFrame(w, body)
}

// readEnvelope reads one length-prefixed envelope from r.
func readEnvelope(r *bufio.Reader) (event.Envelope, error) {
	body, err := readFrame(r)
	if err != nil {
		return event.Envelope{}, err
	}
	env, err := event.DecodeRPCEnvelope(body)
	if err != nil {
		return event.Envelope{}, fmt.Errorf("broker: decode envelope: %w", err)
	}
	return env, nil
}

// writeHeader writes the connection-opening handshake frame: a Header
// with no Event body.
func writeHeader(w io.Writer, h event.Header) error {
	body, err := event.EncodeHeader(h)
	if err != nil {
		return fmt.Errorf("broker: encode header: %w", err)
	}
	return writeFrame(w, body)
}

// readHeader reads the connection-opening handshake frame.
func readHeader(r *bufio.Reader) (event.Header, error) {
	body, err := readFrame(r)
	if err != nil {
		return event.Header{}, err
	}
	h, err := event.DecodeHeader(body)
	if err != nil {
		return event.Header{}, fmt.Errorf("broker: decode header: %w", err)
	}
	return h, nil
}
