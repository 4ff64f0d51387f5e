package nebula

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

// RawBody wraps the bytes of a request body and exposes text and JSON views of them.
// The JSON view is parsed on first access and cached.
type RawBody struct {
	raw []byte

	once    sync.Once
	parsed  any
	jsonErr error
}

// NewRawBody wraps data. A nil slice is treated as an empty body.
func NewRawBody(data []byte) *RawBody {
	if data == nil {
		data = []byte{}
	}
	return &RawBody{raw: data}
}

// Bytes returns the body exactly as received.
func (b *RawBody) Bytes() []byte {
	if b == nil {
		return []byte{}
	}
	return b.raw
}

// Len returns the number of bytes in the body.
func (b *RawBody) Len() int {
	return len(b.Bytes())
}

// Text decodes the body as UTF-8. Invalid sequences become U+FFFD.
func (b *RawBody) Text() string {
	return decodeUTF8(b.Bytes())
}

// JSON parses the body as JSON. An empty body yields an empty object.
func (b *RawBody) JSON() (any, error) {
	if b == nil {
		return map[string]any{}, nil
	}
	b.once.Do(func() {
		if len(b.raw) == 0 {
			b.parsed = map[string]any{}
			return
		}
		var value any
		if err := json.Unmarshal(b.raw, &value); err != nil {
			b.jsonErr = errors.Wrap(err, "decoding request body")
			return
		}
		b.parsed = value
	})
	return b.parsed, b.jsonErr
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (b *RawBody) Decode(v any) error {
	if b.Len() == 0 {
		return nil
	}
	if err := json.Unmarshal(b.raw, v); err != nil {
		return errors.Wrap(err, "decoding request body")
	}
	return nil
}

// Object parses the body as a JSON object for field-by-field access.
func (b *RawBody) Object() (*JsonObject, error) {
	obj := NewJsonObject()
	if err := obj.Parse(b.Bytes()); err != nil {
		return nil, err
	}
	return obj, nil
}

// decodeUTF8 replaces invalid sequences with U+FFFD. The UTF-8 decoder never fails.
func decodeUTF8(data []byte) string {
	decoded, _ := unicode.UTF8.NewDecoder().Bytes(data)
	return string(decoded)
}
