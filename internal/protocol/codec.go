package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Delimiter terminates every frame. encoding/json escapes control characters
// inside strings, so it never occurs inside an encoded record.
const Delimiter = '\n'

type envelope struct {
	Type Tag             `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode serializes msg into a single delimited frame.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("encoding: nil message")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", msg.Tag(), err)
	}

	frame, err := json.Marshal(envelope{Type: msg.Tag(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", msg.Tag(), err)
	}

	return append(frame, Delimiter), nil
}

// Decode parses a single frame, with or without its trailing delimiter. On any
// failure the returned message is nil and the error wraps ErrMalformedFrame;
// the caller is expected to drop the frame and keep reading.
func Decode(frame []byte) (Message, error) {
	frame = bytes.TrimRight(frame, "\r\n")

	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	factory, ok := factories[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown tag %q", ErrMalformedFrame, string(env.Type))
	}

	msg := factory()
	if isNull(env.Data) {
		if env.Type != TagHeartbeat {
			return nil, fmt.Errorf("%w: %s without data", ErrMalformedFrame, env.Type)
		}
	} else if err := json.Unmarshal(env.Data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %w", ErrMalformedFrame, env.Type, err)
	}

	// Hand out value types so consumers can switch on them directly.
	msg = reflect.ValueOf(msg).Elem().Interface().(Message)

	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %w", ErrMalformedFrame, env.Type, err)
	}

	return msg, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
