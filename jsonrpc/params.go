package jsonrpc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type paramsKind uint8

const (
	paramsAbsent paramsKind = iota
	paramsPositional
	paramsNamed
)

// Params is the decoded params member of a request: absent, an ordered
// sequence of positional values, or a mapping of named values.
//
// A scalar params value is carried as a positional sequence of one element.
type Params struct {
	kind       paramsKind
	positional []any
	named      map[string]any
}

// Positional builds positional params.
func Positional(args ...any) Params {
	if args == nil {
		args = []any{}
	}
	return Params{kind: paramsPositional, positional: args}
}

// Named builds named params.
func Named(m map[string]any) Params {
	if m == nil {
		m = map[string]any{}
	}
	return Params{kind: paramsNamed, named: m}
}

// ParamsFromValue wraps an already decoded params value. nil is treated as
// absent params.
func ParamsFromValue(v any) Params {
	switch x := v.(type) {
	case nil:
		return Params{}
	case []any:
		return Positional(x...)
	}
	if m, ok := asObject(v); ok {
		return Named(m)
	}
	return Positional(v)
}

func (p Params) IsAbsent() bool {
	return p.kind == paramsAbsent
}

// Positional returns the positional values, or false if the params are not
// positional.
func (p Params) Positional() ([]any, bool) {
	return p.positional, p.kind == paramsPositional
}

// Named returns the named values, or false if the params are not named.
func (p Params) Named() (map[string]any, bool) {
	return p.named, p.kind == paramsNamed
}

// Len is the number of positional or named values.
func (p Params) Len() int {
	switch p.kind {
	case paramsPositional:
		return len(p.positional)
	case paramsNamed:
		return len(p.named)
	}
	return 0
}

// Value returns the wire form: nil, []any or map[string]any.
func (p Params) Value() any {
	switch p.kind {
	case paramsPositional:
		return p.positional
	case paramsNamed:
		return p.named
	}
	return nil
}

// Bind decodes the params into dst, which must be a non-nil pointer.
//
// Named params bind into structs and maps using json tag names. Positional
// params bind into structs by field declaration order, into slices
// element-wise, and a single positional value binds into any other type.
// Absent params leave dst unchanged.
func (p Params) Bind(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("jsonrpc: bind: dst must be a non-nil pointer")
	}
	if p.kind == paramsAbsent {
		return nil
	}

	t := rv.Elem().Type()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Interface:
		return decodeValue(p.Value(), dst)
	case reflect.Struct:
		if p.kind == paramsNamed {
			return decodeValue(p.named, dst)
		}
		names := structParamNames(t)
		if len(p.positional) != len(names) {
			return fmt.Errorf("invalid number of params: got %d, want %d", len(p.positional), len(names))
		}
		m := make(map[string]any, len(names))
		for i, name := range names {
			m[name] = p.positional[i]
		}
		return decodeValue(m, dst)
	case reflect.Slice, reflect.Array:
		if p.kind != paramsPositional {
			return errors.New("positional params required")
		}
		return decodeValue(p.positional, dst)
	case reflect.Map:
		if p.kind != paramsNamed {
			return errors.New("named params required")
		}
		return decodeValue(p.named, dst)
	}

	if p.kind != paramsPositional || len(p.positional) != 1 {
		return fmt.Errorf("expected a single positional param for %s", t)
	}
	return decodeValue(p.positional[0], dst)
}

// structParamNames lists the param names of a struct in declaration order.
// Names come from json tags; untagged exported fields use the field name.
func structParamNames(t reflect.Type) []string {
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Name == "_" || !field.IsExported() {
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag == "" {
			names = append(names, field.Name)
			continue
		}
		name := strings.Split(jsonTag, ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		names = append(names, name)
	}
	return names
}

// decodeValue binds a decoded wire value into dst using json tag names.
func decodeValue(src any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  dst,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapKeysToStringHook,
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(src)
}

// mapKeysToStringHook turns map[any]any (as produced by some binary
// decoders) into map[string]any so it can bind into structs.
func mapKeysToStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	m, ok := data.(map[any]any)
	if !ok {
		return data, nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out, nil
}
