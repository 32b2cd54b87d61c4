package endpoint

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// defaultFieldLimit is the maximum byte length of a decoded value when the
// field has no maxLength tag.
var defaultFieldLimit = 16 * 1024 // 16KB

// Unmarshal populates dst (a non-nil pointer to a struct, or to a pointer to
// a struct) from the request.
//
// Supported struct tags:
//   - `query:"name"`: first value of the URL query parameter
//   - `header:"name"`: first value of the request header
//   - `body:""`: the request body; string and []byte fields receive the raw
//     bytes, other types are decoded as JSON (which requires a JSON
//     Content-Type)
//   - `maxLength:"n"`: byte limit for the value (default 16KB, "" or "0"
//     for no limit). Oversized bodies are 413, other values 400.
//
// A name of "-" ignores the field; an empty name defaults to the lowercased
// field name. Fields without data keep their value. Untagged struct fields
// are decoded recursively.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}

	root := v.Elem()
	if root.Kind() == reflect.Pointer {
		if root.IsNil() {
			root.Set(reflect.New(root.Type().Elem()))
		}
		root = root.Elem()
	}
	if root.Kind() != reflect.Struct {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct (or pointer to struct)"))
	}
	return unmarshalStruct(r, root)
}

type sourceTag struct {
	Source    string
	Name      string
	MaxLength int
}

func unmarshalStruct(r *http.Request, structVal reflect.Value) error {
	t := structVal.Type()
	bodySeen := ""
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := structVal.Field(i)

		limit, err := fieldLengthLimit(sf)
		if err != nil {
			return err
		}
		tag, ok := sourceTagFor(sf, limit)
		if !ok {
			if fv.Kind() == reflect.Struct {
				if err := unmarshalStruct(r, fv); err != nil {
					return err
				}
			}
			continue
		}
		if tag.Name == "-" {
			continue
		}

		switch tag.Source {
		case "body":
			if bodySeen != "" {
				return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: multiple body fields: %s and %s", bodySeen, sf.Name))
			}
			bodySeen = sf.Name
			if err := setBody(r, fv, tag, sf.Name); err != nil {
				return err
			}
		case "query":
			if r.URL == nil {
				continue
			}
			vs, present := r.URL.Query()[tag.Name]
			if !present || len(vs) == 0 {
				continue
			}
			if err := setField(fv, vs[0], tag, sf.Name); err != nil {
				return err
			}
		case "header":
			vs := r.Header[http.CanonicalHeaderKey(tag.Name)]
			if len(vs) == 0 {
				continue
			}
			if err := setField(fv, vs[0], tag, sf.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// sourceTagFor returns the first source tag present on the field, in the
// precedence order body, query, header.
func sourceTagFor(sf reflect.StructField, limit int) (sourceTag, bool) {
	for _, source := range []string{"body", "query", "header"} {
		raw, ok := sf.Tag.Lookup(source)
		if !ok {
			continue
		}
		name := strings.TrimSpace(strings.Split(raw, ",")[0])
		if name == "" {
			name = strings.ToLower(sf.Name)
		}
		return sourceTag{Source: source, Name: name, MaxLength: limit}, true
	}
	return sourceTag{}, false
}

func fieldLengthLimit(sf reflect.StructField) (int, error) {
	val, has := sf.Tag.Lookup("maxLength")
	if !has {
		return defaultFieldLimit, nil
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, Error(http.StatusInternalServerError, "", fmt.Errorf("maxLength: invalid integer %q", val))
	}
	if n < 0 {
		return 0, Error(http.StatusInternalServerError, "", fmt.Errorf("maxLength: must be >= 0"))
	}
	return n, nil
}

func setBody(r *http.Request, fv reflect.Value, tag sourceTag, fieldName string) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	var src io.Reader = r.Body
	if tag.MaxLength > 0 {
		// Read one byte past the limit to detect oversized bodies.
		src = io.LimitReader(r.Body, int64(tag.MaxLength)+1)
	}
	b, err := io.ReadAll(src)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return Error(http.StatusRequestEntityTooLarge, "", fmt.Errorf("endpoint: decode: body exceeds %d bytes", mbe.Limit))
		}
		return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: body: %w", err))
	}
	if tag.MaxLength > 0 && len(b) > tag.MaxLength {
		return Error(http.StatusRequestEntityTooLarge, "", fmt.Errorf("endpoint: decode: body -> %s: exceeds max length %d", fieldName, tag.MaxLength))
	}

	target := fv
	if target.Kind() == reflect.Pointer {
		if target.IsNil() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		target = target.Elem()
	}
	switch {
	case target.Kind() == reflect.String:
		target.SetString(string(b))
		return nil
	case target.Kind() == reflect.Slice && target.Type().Elem().Kind() == reflect.Uint8:
		target.SetBytes(b)
		return nil
	}

	if !requestBodyIsJSON(r) {
		return Error(http.StatusUnsupportedMediaType, "", fmt.Errorf("endpoint: decode: body: unsupported media type %s", requestBodyMediaType(r)))
	}
	if err := json.Unmarshal(b, target.Addr().Interface()); err != nil {
		return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: body -> %s: %w", fieldName, err))
	}
	return nil
}

func requestBodyIsJSON(r *http.Request) bool {
	mt := requestBodyMediaType(r)
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func requestBodyMediaType(r *http.Request) string {
	ct := strings.TrimSpace(r.Header.Get("Content-Type"))
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(ct)
	}
	return strings.ToLower(mt)
}

func setField(fv reflect.Value, raw string, tag sourceTag, fieldName string) error {
	if tag.MaxLength > 0 && len(raw) > tag.MaxLength {
		return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: %s %q -> %s: value exceeds max length %d", tag.Source, tag.Name, fieldName, tag.MaxLength))
	}
	if err := setFieldFromString(fv, raw); err != nil {
		return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: %s %q -> %s: %w", tag.Source, tag.Name, fieldName, err))
	}
	return nil
}

func setFieldFromString(v reflect.Value, s string) error {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return setFieldFromString(v.Elem(), s)
	}
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(s))
		}
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
		return nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
		return nil
	}
	return fmt.Errorf("unsupported kind %s", v.Kind())
}
