package nebula

import (
	"bytes"
	"encoding/json"
)

// JsonFieldError describes a field that is missing from a JSON document or holds a value
// of the wrong type. The field path grows as the error propagates out of nested values.
type JsonFieldError struct {
	field     string
	valueType string
	found     bool
}

func NoFieldError(field string) *JsonFieldError {
	return &JsonFieldError{field: field}
}

func InvalidFieldError(field string, valueType string) *JsonFieldError {
	return &JsonFieldError{field: field, valueType: valueType, found: true}
}

// AddPath prefixes the field path with a parent field name.
func (e *JsonFieldError) AddPath(field string) {
	e.field = field + "." + e.field
}

// Field returns the dotted path of the offending field.
func (e *JsonFieldError) Field() string {
	return e.field
}

func (e *JsonFieldError) Error() string {
	if e.found {
		return "Field " + e.field + " is invalid. Expected " + e.valueType
	}
	return "Field " + e.field + " is missing."
}

// decodeField unmarshals raw into v, reporting a type mismatch against field.
func decodeField(raw json.RawMessage, field string, valueType string, v any) error {
	if isNull(raw) {
		return InvalidFieldError(field, valueType)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return InvalidFieldError(field, valueType)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
