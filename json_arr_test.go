package nebula

import "testing"

func TestJsonArr(t *testing.T) {
	json := []byte(`[1,2,3,4]`)
	obj := NewJsonArray()
	err := obj.Parse(json)
	if err != nil {
		t.Error(err)
	}
	val1, err2 := obj.GetInt64(0)
	if err2 != nil {
		t.Error(err2)
	}
	if *val1 != 1 {
		t.Error("val1 != 1")
	}
	if obj.Length() != 4 {
		t.Errorf("Length() = %d, want 4", obj.Length())
	}
}

func TestJsonArrMixed(t *testing.T) {
	arr := NewJsonArray()
	if err := arr.Parse([]byte(`["a",2.5,false,{"k":1},[1,2],null]`)); err != nil {
		t.Fatal(err)
	}
	if s, err := arr.GetString(0); err != nil || *s != "a" {
		t.Errorf("GetString(0) = %v, %v", s, err)
	}
	if f, err := arr.GetFloat64(1); err != nil || *f != 2.5 {
		t.Errorf("GetFloat64(1) = %v, %v", f, err)
	}
	if b, err := arr.GetBool(2); err != nil || *b {
		t.Errorf("GetBool(2) = %v, %v", b, err)
	}
	obj, err := arr.GetObject(3)
	if err != nil {
		t.Fatal(err)
	}
	if k, err := obj.GetInt32("k"); err != nil || *k != 1 {
		t.Errorf("k = %v, %v", k, err)
	}
	nested, err := arr.GetArray(4)
	if err != nil || nested.Length() != 2 {
		t.Errorf("GetArray(4) = %v, %v", nested, err)
	}
	if _, err := arr.GetObject(5); err == nil {
		t.Error("GetObject(null) expected error")
	}
	if _, err := arr.GetInt32(1); err == nil {
		t.Error("GetInt32(2.5) expected error")
	}
	if _, err := arr.GetString(6); err == nil || err.Error() != "Field 6 is missing." {
		t.Errorf("GetString(6) = %v", err)
	}
	if _, err := arr.GetString(-1); err == nil {
		t.Error("GetString(-1) expected error")
	}
}

func TestJsonArrParseError(t *testing.T) {
	if err := NewJsonArray().Parse([]byte(`{"a":1}`)); err == nil {
		t.Error("expected error for object input")
	}
}
