// Package codec implements the compact wire format spoken by fill-level
// sensors: `key:value` pairs joined by a backtick. A key without a value is
// written bare and acts as a flag or a fetch request.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

const (
	PairSeparator     = "`"
	KeyValueSeparator = ":"

	// MaxPayloadLength is bounded by the receive buffer of the sensor firmware.
	MaxPayloadLength = 128
)

var (
	ErrEmptyKey   = errors.New("codec: empty key")
	ErrInvalidKey = errors.New("codec: invalid key")
	ErrNonASCII   = errors.New("codec: payload is not ASCII")
)

// Pair is one decoded segment. An empty Value is serialized as a bare key.
type Pair struct {
	Key   string
	Value string
}

// Message keeps pairs in wire order.
type Message []Pair

// Parse decodes a payload. Only the first colon of a segment separates the
// key from its value, so values may contain colons themselves.
func Parse(payload string) (Message, error) {
	if payload == "" {
		return Message{}, nil
	}
	if !IsASCII(payload) {
		return nil, ErrNonASCII
	}

	segments := strings.Split(payload, PairSeparator)
	msg := make(Message, 0, len(segments))
	for i, segment := range segments {
		key, value, _ := strings.Cut(segment, KeyValueSeparator)
		if key == "" {
			return nil, fmt.Errorf("%w at segment %d", ErrEmptyKey, i)
		}
		if !validKey(key) {
			return nil, fmt.Errorf("%w %q", ErrInvalidKey, key)
		}
		msg = append(msg, Pair{Key: key, Value: value})
	}

	return msg, nil
}

// Serialize is the inverse of Parse.
func Serialize(msg Message) string {
	var b strings.Builder
	for i, p := range msg {
		if i > 0 {
			b.WriteString(PairSeparator)
		}
		b.WriteString(p.Key)
		if p.Value != "" {
			b.WriteString(KeyValueSeparator)
			b.WriteString(p.Value)
		}
	}
	return b.String()
}

// PairLength is the number of characters a pair adds to a payload,
// counting its separator.
func PairLength(key, value string) int {
	if value == "" {
		return len(key) + 1
	}
	return len(key) + len(value) + 2
}

// Length returns the serialized length of the message.
func (m Message) Length() int {
	n := 0
	for _, p := range m {
		n += PairLength(p.Key, p.Value)
	}
	if n > 0 {
		n--
	}
	return n
}

func (m Message) Get(key string) (string, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func (m Message) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m Message) Keys() []string {
	keys := make([]string, len(m))
	for i, p := range m {
		keys[i] = p.Key
	}
	return keys
}

// Set replaces the value of key in place or appends a new pair.
func (m Message) Set(key, value string) Message {
	for i := range m {
		if m[i].Key == key {
			m[i].Value = value
			return m
		}
	}
	return append(m, Pair{Key: key, Value: value})
}

func (m Message) Delete(key string) Message {
	out := m[:0]
	for _, p := range m {
		if p.Key != key {
			out = append(out, p)
		}
	}
	return out
}

// Map flattens the message; later duplicates win.
func (m Message) Map() map[string]string {
	out := make(map[string]string, len(m))
	for _, p := range m {
		out[p.Key] = p.Value
	}
	return out
}

func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

func validKey(key string) bool {
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '/', c == '-', c == '.':
		default:
			return false
		}
	}
	return true
}
