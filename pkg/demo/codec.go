package demo

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// gzipMagic is the fixed two-byte prefix of every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// tickEnvelope is the dump form of a Tick: the kind discriminator next to
// the raw payload object.
type tickEnvelope struct {
	Time    float64         `json:"time"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// messageEnvelope is the same scheme for sub-messages inside a bundle.
type messageEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalJSON writes the tick as a kind-discriminated envelope.
func (t Tick) MarshalJSON() ([]byte, error) {
	if t.Payload == nil {
		return nil, fmt.Errorf("tick at %f carries no payload", t.Time)
	}

	raw, err := json.Marshal(t.Payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding %s payload: %w", t.Payload.payloadKind(), err)
	}

	return json.Marshal(tickEnvelope{
		Time:    t.Time,
		Kind:    t.Payload.payloadKind(),
		Payload: raw,
	})
}

// UnmarshalJSON reads the envelope form written by MarshalJSON.
func (t *Tick) UnmarshalJSON(data []byte) error {
	var env tickEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("error decoding tick envelope: %w", err)
	}

	payload, err := unmarshalPayload(env.Kind, env.Payload)
	if err != nil {
		return err
	}

	t.Time = env.Time
	t.Payload = payload
	return nil
}

func unmarshalPayload(kind string, raw json.RawMessage) (Payload, error) {
	switch kind {
	case KindClientData:
		var p ClientData
		return p, decodePayload(kind, raw, &p)
	case KindWeaponAnim:
		var p WeaponAnim
		return p, decodePayload(kind, raw, &p)
	case KindSound:
		var p Sound
		return p, decodePayload(kind, raw, &p)
	case KindNetMessage:
		var p NetMessage
		return p, decodePayload(kind, raw, &p)
	default:
		return nil, fmt.Errorf("unknown tick kind %q", kind)
	}
}

func decodePayload(kind string, raw json.RawMessage, into any) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("error decoding %s payload: %w", kind, err)
	}
	return nil
}

// netMessageJSON is the dump form of a bundle, with each sub-message wrapped
// in its own kind envelope.
type netMessageJSON struct {
	SimOrigin  [3]float32        `json:"simOrigin"`
	ViewHeight [3]float32        `json:"viewHeight"`
	Messages   []messageEnvelope `json:"messages"`
}

// MarshalJSON wraps each sub-message in a kind envelope.
func (m NetMessage) MarshalJSON() ([]byte, error) {
	wire := netMessageJSON{SimOrigin: m.SimOrigin, ViewHeight: m.ViewHeight}

	for i, msg := range m.Messages {
		if msg == nil {
			return nil, fmt.Errorf("bundle message %d is nil", i)
		}
		raw, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("error encoding %s message: %w", msg.messageKind(), err)
		}
		wire.Messages = append(wire.Messages, messageEnvelope{Kind: msg.messageKind(), Payload: raw})
	}

	return json.Marshal(wire)
}

// UnmarshalJSON reads the envelope form written by MarshalJSON.
func (m *NetMessage) UnmarshalJSON(data []byte) error {
	var wire netMessageJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("error decoding bundle: %w", err)
	}

	m.SimOrigin = wire.SimOrigin
	m.ViewHeight = wire.ViewHeight
	m.Messages = nil

	for _, env := range wire.Messages {
		msg, err := unmarshalMessage(env.Kind, env.Payload)
		if err != nil {
			return err
		}
		m.Messages = append(m.Messages, msg)
	}

	return nil
}

func unmarshalMessage(kind string, raw json.RawMessage) (Message, error) {
	switch kind {
	case KindUserMessage:
		var msg UserMessage
		return msg, decodePayload(kind, raw, &msg)
	case KindResourceList:
		var msg ResourceList
		return msg, decodePayload(kind, raw, &msg)
	case KindTextMessage:
		var msg TextMessage
		return msg, decodePayload(kind, raw, &msg)
	case KindSoundMessage:
		var msg SoundMessage
		return msg, decodePayload(kind, raw, &msg)
	case KindUserInfo:
		var msg UserInfo
		return msg, decodePayload(kind, raw, &msg)
	case KindPacketEntities:
		var msg PacketEntities
		return msg, decodePayload(kind, raw, &msg)
	default:
		return nil, fmt.Errorf("unknown message kind %q", kind)
	}
}

// Load decodes a demo dump from r. Dumps may be raw JSON or gzip-compressed
// JSON; compression is detected from the stream's first bytes.
func Load(r io.Reader) (*Demo, error) {
	buffered := bufio.NewReader(r)

	head, err := buffered.Peek(len(gzipMagic))
	if err == nil && bytes.Equal(head, gzipMagic) {
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("error opening gzip stream: %w", err)
		}
		defer gz.Close()
		return decode(gz)
	}

	return decode(buffered)
}

// LoadFile reads a demo dump from disk; both plain and .gz dumps work.
func LoadFile(path string) (*Demo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening demo dump: %w", err)
	}
	defer f.Close()

	d, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}
	return d, nil
}

func decode(r io.Reader) (*Demo, error) {
	var d Demo
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("error decoding demo dump: %w", err)
	}
	return &d, nil
}
