package jsonrpc

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type idKind uint8

const (
	idNull idKind = iota
	idString
	idNumber
)

// ID is a request correlation identifier: a string, a number or null.
//
// ID is comparable and can be used as a map key. Equality is type sensitive:
// the number 1 and the string "1" are different identifiers. Numbers are
// stored in canonical form, so 1 and 1.0 are the same identifier.
// The zero value is the null identifier.
type ID struct {
	kind idKind
	text string
}

func NullID() ID {
	return ID{}
}

func StringID(s string) ID {
	return ID{kind: idString, text: s}
}

func NumberID(n int64) ID {
	return ID{kind: idNumber, text: strconv.FormatInt(n, 10)}
}

func uintID(n uint64) ID {
	return ID{kind: idNumber, text: strconv.FormatUint(n, 10)}
}

func floatID(f float64) (ID, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ID{}, fmt.Errorf("jsonrpc: id: non-finite number %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return NumberID(int64(f)), nil
	}
	return ID{kind: idNumber, text: strconv.FormatFloat(f, 'g', -1, 64)}, nil
}

func numberTextID(s string) (ID, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NumberID(n), nil
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return uintID(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ID{}, fmt.Errorf("jsonrpc: id: invalid number %q", s)
	}
	return floatID(f)
}

// IDFromValue converts a decoded wire value into an ID. It accepts strings,
// json.Number, Go integer and float kinds, and nil; any other value is an
// invalid identifier.
func IDFromValue(v any) (ID, error) {
	switch x := v.(type) {
	case nil:
		return NullID(), nil
	case string:
		return StringID(x), nil
	case json.Number:
		return numberTextID(string(x))
	case int:
		return NumberID(int64(x)), nil
	case int8:
		return NumberID(int64(x)), nil
	case int16:
		return NumberID(int64(x)), nil
	case int32:
		return NumberID(int64(x)), nil
	case int64:
		return NumberID(x), nil
	case uint:
		return uintID(uint64(x)), nil
	case uint8:
		return uintID(uint64(x)), nil
	case uint16:
		return uintID(uint64(x)), nil
	case uint32:
		return uintID(uint64(x)), nil
	case uint64:
		return uintID(x), nil
	case float32:
		return floatID(float64(x))
	case float64:
		return floatID(x)
	}
	return ID{}, fmt.Errorf("jsonrpc: id: unsupported type %T", v)
}

func (id ID) IsNull() bool   { return id.kind == idNull }
func (id ID) IsString() bool { return id.kind == idString }
func (id ID) IsNumber() bool { return id.kind == idNumber }

// Value returns the native value for encoders: string, int64, uint64,
// float64 or nil.
func (id ID) Value() any {
	switch id.kind {
	case idString:
		return id.text
	case idNumber:
		if n, err := strconv.ParseInt(id.text, 10, 64); err == nil {
			return n
		}
		if n, err := strconv.ParseUint(id.text, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(id.text, 64)
		return f
	}
	return nil
}

// String formats the id for logs: strings are quoted so they can be told
// apart from numbers.
func (id ID) String() string {
	switch id.kind {
	case idString:
		return strconv.Quote(id.text)
	case idNumber:
		return id.text
	}
	return "null"
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idString:
		return json.Marshal(id.text)
	case idNumber:
		return []byte(id.text), nil
	}
	return []byte("null"), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if f, ok := v.(float64); ok {
		// Re-read the literal to avoid float rounding of large integers.
		parsed, err := numberTextID(string(data))
		if err != nil {
			parsed, err = floatID(f)
			if err != nil {
				return err
			}
		}
		*id = parsed
		return nil
	}
	parsed, err := IDFromValue(v)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
