package nebula

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// JsonArray gives index-by-index access to a JSON array, mirroring JsonObject.
type JsonArray struct {
	data []json.RawMessage
}

func NewJsonArray() *JsonArray {
	return &JsonArray{
		data: []json.RawMessage{},
	}
}

func (arr *JsonArray) Parse(data []byte) error {
	values := []json.RawMessage{}
	if err := json.Unmarshal(data, &values); err != nil {
		return errors.Wrap(err, "expected array")
	}
	arr.data = values
	return nil
}

func (arr *JsonArray) Length() int {
	return len(arr.data)
}

func (arr *JsonArray) index(index int) (json.RawMessage, string, error) {
	name := strconv.Itoa(index)
	if index < 0 || index >= len(arr.data) {
		return nil, name, NoFieldError(name)
	}
	return arr.data[index], name, nil
}

func getArrayValue[T any](arr *JsonArray, index int, valueType string) (*T, error) {
	raw, name, err := arr.index(index)
	if err != nil {
		return nil, err
	}
	var v T
	if err := decodeField(raw, name, valueType, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (arr *JsonArray) GetString(index int) (*string, error) {
	return getArrayValue[string](arr, index, "string")
}

func (arr *JsonArray) GetInt32(index int) (*int32, error) {
	return getArrayValue[int32](arr, index, "int32")
}

func (arr *JsonArray) GetInt64(index int) (*int64, error) {
	return getArrayValue[int64](arr, index, "int64")
}

func (arr *JsonArray) GetFloat64(index int) (*float64, error) {
	return getArrayValue[float64](arr, index, "float64")
}

func (arr *JsonArray) GetBool(index int) (*bool, error) {
	return getArrayValue[bool](arr, index, "bool")
}

func (arr *JsonArray) GetUuid(index int) (*uuid.UUID, error) {
	return getArrayValue[uuid.UUID](arr, index, "uuid")
}

func (arr *JsonArray) GetObject(index int) (*JsonObject, error) {
	raw, name, err := arr.index(index)
	if err != nil {
		return nil, err
	}
	obj := NewJsonObject()
	if isNull(raw) || obj.Parse(raw) != nil {
		return nil, InvalidFieldError(name, "object")
	}
	return obj, nil
}

func (arr *JsonArray) GetArray(index int) (*JsonArray, error) {
	raw, name, err := arr.index(index)
	if err != nil {
		return nil, err
	}
	nested := NewJsonArray()
	if isNull(raw) || nested.Parse(raw) != nil {
		return nil, InvalidFieldError(name, "array")
	}
	return nested, nil
}
