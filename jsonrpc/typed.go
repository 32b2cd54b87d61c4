package jsonrpc

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FieldError describes one failed validation rule in the data member of an
// invalid params error.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Typed adapts a function taking a typed params value into a HandlerFunc.
//
// Params are bound with Params.Bind. A pointer P is never nil, even for
// absent params. When P is a struct (or pointer to one) its `validate` tags
// are checked after binding. Binding and validation
// failures are reported as CodeInvalidParams.
//
//	reg.RegisterFunc("add", jsonrpc.Typed(func(ctx context.Context, p AddParams) (int, error) {
//	    return p.A + p.B, nil
//	}), jsonrpc.ShapePositional)
func Typed[P, R any](fn func(ctx context.Context, params P) (R, error)) HandlerFunc {
	return func(ctx context.Context, params Params) (any, error) {
		var p P
		if err := params.Bind(&p); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		// Absent params leave a pointer P nil; hand the handler a zero value.
		if pv := reflect.ValueOf(&p).Elem(); pv.Kind() == reflect.Pointer && pv.IsNil() {
			pv.Set(reflect.New(pv.Type().Elem()))
		}
		if err := validateStruct(p); err != nil {
			return nil, err
		}
		return fn(ctx, p)
	}
}

func validateStruct(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	err := validate.Struct(rv.Interface())
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewInvalidParamsError(err.Error())
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return NewInvalidParamsError(fields)
}
