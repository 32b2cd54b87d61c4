package jsonrpc

import (
	"context"
	"reflect"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// RegisterService registers every exported method of receiver that has the
// signature
//
//	func(ctx context.Context, params P) (R, error)
//
// where P is a struct. The method name is namespace + "." + the Go method
// name, or the Go name alone for an empty namespace. A blank field with a
// jsonrpc tag overrides the Go name:
//
//	type GetUserParams struct {
//	    _  struct{} `jsonrpc:"getUser"`
//	    ID string   `json:"id" validate:"required"`
//	}
//
// Params bind as in Typed, including validate tags. Methods with other
// signatures are skipped. It returns the registered names.
func (r *Registry) RegisterService(namespace string, receiver any, opts ...MethodOption) []string {
	val := reflect.ValueOf(receiver)
	typ := val.Type()

	var names []string
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		if !method.IsExported() {
			continue
		}
		h, name, ok := serviceMethod(val.Method(i), method)
		if !ok {
			continue
		}
		if namespace != "" {
			name = namespace + "." + name
		}
		r.Register(name, h, ShapeAny, opts...)
		names = append(names, name)
	}
	return names
}

// serviceMethod builds a handler for a bound method value, or reports false
// when the signature does not fit.
func serviceMethod(fn reflect.Value, method reflect.Method) (HandlerFunc, string, bool) {
	ft := fn.Type()
	if ft.NumIn() != 2 || ft.In(0) != contextType {
		return nil, "", false
	}
	if ft.NumOut() != 2 || ft.Out(1) != errorType {
		return nil, "", false
	}
	paramType := ft.In(1)
	if paramType.Kind() != reflect.Struct {
		return nil, "", false
	}

	name := method.Name
	for i := 0; i < paramType.NumField(); i++ {
		f := paramType.Field(i)
		if f.Name != "_" {
			continue
		}
		if tag := f.Tag.Get("jsonrpc"); tag != "" {
			name = tag
		}
	}

	h := func(ctx context.Context, params Params) (any, error) {
		p := reflect.New(paramType)
		if err := params.Bind(p.Interface()); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		if err := validateStruct(p.Interface()); err != nil {
			return nil, err
		}
		out := fn.Call([]reflect.Value{reflect.ValueOf(ctx), p.Elem()})
		if errv := out[1]; !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
		return out[0].Interface(), nil
	}
	return h, name, true
}
