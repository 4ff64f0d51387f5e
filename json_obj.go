package nebula

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// JsonObject gives field-by-field access to a JSON object. Field values are kept raw
// and converted only when a getter asks for them, so each getter can report exactly
// which field is missing or has the wrong type.
//
//	obj := nebula.NewJsonObject()
//	err := obj.Parse(body)
//	name, err := obj.GetString("name")
//	age, err := obj.GetInt32("age")
type JsonObject struct {
	data map[string]json.RawMessage
}

func NewJsonObject() *JsonObject {
	return &JsonObject{
		data: map[string]json.RawMessage{},
	}
}

// Parse loads a JSON object. An empty input leaves the object empty.
func (obj *JsonObject) Parse(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.Wrap(err, "expected object")
	}
	obj.data = fields
	return nil
}

// Has reports whether key is present, even with a null value.
func (obj *JsonObject) Has(key string) bool {
	_, ok := obj.data[key]
	return ok
}

// Keys returns the object's field names in no particular order.
func (obj *JsonObject) Keys() []string {
	keys := make([]string, 0, len(obj.data))
	for k := range obj.data {
		keys = append(keys, k)
	}
	return keys
}

func (obj *JsonObject) field(key string) (json.RawMessage, error) {
	raw, ok := obj.data[key]
	if !ok {
		return nil, NoFieldError(key)
	}
	return raw, nil
}

func getObjectValue[T any](obj *JsonObject, key string, valueType string) (*T, error) {
	raw, err := obj.field(key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := decodeField(raw, key, valueType, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (obj *JsonObject) GetString(key string) (*string, error) {
	return getObjectValue[string](obj, key, "string")
}

func (obj *JsonObject) GetInt32(key string) (*int32, error) {
	return getObjectValue[int32](obj, key, "int32")
}

func (obj *JsonObject) GetInt64(key string) (*int64, error) {
	return getObjectValue[int64](obj, key, "int64")
}

func (obj *JsonObject) GetFloat64(key string) (*float64, error) {
	return getObjectValue[float64](obj, key, "float64")
}

func (obj *JsonObject) GetBool(key string) (*bool, error) {
	return getObjectValue[bool](obj, key, "bool")
}

// GetTime parses an RFC 3339 timestamp.
func (obj *JsonObject) GetTime(key string) (*time.Time, error) {
	return getObjectValue[time.Time](obj, key, "time")
}

func (obj *JsonObject) GetUuid(key string) (*uuid.UUID, error) {
	return getObjectValue[uuid.UUID](obj, key, "uuid")
}

func (obj *JsonObject) GetObject(key string) (*JsonObject, error) {
	raw, err := obj.field(key)
	if err != nil {
		return nil, err
	}
	nested := NewJsonObject()
	if isNull(raw) || nested.Parse(raw) != nil {
		return nil, InvalidFieldError(key, "object")
	}
	return nested, nil
}

func (obj *JsonObject) GetArray(key string) (*JsonArray, error) {
	raw, err := obj.field(key)
	if err != nil {
		return nil, err
	}
	arr := NewJsonArray()
	if isNull(raw) || arr.Parse(raw) != nil {
		return nil, InvalidFieldError(key, "array")
	}
	return arr, nil
}

// GetData returns the raw JSON text of a field.
func (obj *JsonObject) GetData(key string) ([]byte, error) {
	raw, err := obj.field(key)
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}
