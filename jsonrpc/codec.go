package jsonrpc

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts between one wire encoding and decoded values.
//
// Decode produces the generic values the classifier works on: nil, bool,
// strings, numbers, []any and map[string]any. Encode writes any Go value,
// using json struct tags for field names.
type Codec interface {
	ContentType() string
	Decode(data []byte) (any, error)
	Encode(w io.Writer, v any) error
}

// JSONCodec is the JSON encoding. Numbers decode as json.Number so integer
// ids and params keep their exact value.
type JSONCodec struct{}

func (JSONCodec) ContentType() string { return "application/json" }

func (JSONCodec) Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, errors.New("jsonrpc: json: trailing data after top-level value")
	}
	return v, nil
}

func (JSONCodec) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// CBORCodec is the CBOR encoding (RFC 8949).
type CBORCodec struct{}

var cborDecMode = mustCBORDecMode()

func mustCBORDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

func (CBORCodec) ContentType() string { return "application/cbor" }

func (CBORCodec) Decode(data []byte) (any, error) {
	var v any
	if err := cborDecMode.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (CBORCodec) Encode(w io.Writer, v any) error {
	return cbor.NewEncoder(w).Encode(v)
}

// MsgpackCodec is the MessagePack encoding.
type MsgpackCodec struct{}

func (MsgpackCodec) ContentType() string { return "application/msgpack" }

func (MsgpackCodec) Decode(data []byte) (any, error) {
	rd := bytes.NewReader(data)
	dec := msgpack.NewDecoder(rd)
	dec.UseLooseInterfaceDecoding(true)
	v, err := dec.DecodeInterface()
	if err != nil {
		return nil, err
	}
	if rd.Len() != 0 {
		return nil, errors.New("jsonrpc: msgpack: trailing data after top-level value")
	}
	return v, nil
}

func (MsgpackCodec) Encode(w io.Writer, v any) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	return enc.Encode(v)
}

// DefaultCodecs are the encodings an endpoint accepts when none are given.
func DefaultCodecs() []Codec {
	return []Codec{JSONCodec{}, CBORCodec{}, MsgpackCodec{}}
}

var mediaTypeAliases = map[string]string{
	"application/x-msgpack":   "application/msgpack",
	"application/vnd.msgpack": "application/msgpack",
}

// CodecFor picks the codec for a Content-Type header value among codecs.
// Parameters such as charset are ignored, as are +json structured suffixes.
func CodecFor(contentType string, codecs []Codec) (Codec, bool) {
	mt := normalizeMediaType(contentType)
	for _, c := range codecs {
		if c.ContentType() == mt {
			return c, true
		}
	}
	return nil, false
}

func normalizeMediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = contentType
	}
	mt = strings.ToLower(strings.TrimSpace(mt))
	if alias, ok := mediaTypeAliases[mt]; ok {
		return alias
	}
	if strings.HasSuffix(mt, "+json") {
		return "application/json"
	}
	return mt
}
