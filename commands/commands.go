// Package commands implements the rpcserve command line: serve, call and
// batch.
package commands

import (
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mnehpets/rpcserve/jsonrpc"
)

func defaultFlagSet(cmdName string) *flag.FlagSet {
	f := flag.NewFlagSet(cmdName, flag.ContinueOnError)
	f.SetOutput(io.Discard)

	// Set the default Usage to empty
	f.Usage = func() {}

	return f
}

func helpForFlags(fs *flag.FlagSet) string {
	buf := &strings.Builder{}
	buf.WriteString("Options:\n\n")

	w := fs.Output()
	defer fs.SetOutput(w)
	fs.SetOutput(buf)
	fs.PrintDefaults()

	return buf.String()
}

func newLogger(w io.Writer) *log.Logger {
	return log.New(w, "", log.LstdFlags|log.Lshortfile)
}

func codecByName(name string) (jsonrpc.Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return jsonrpc.JSONCodec{}, nil
	case "cbor":
		return jsonrpc.CBORCodec{}, nil
	case "msgpack":
		return jsonrpc.MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q (want json, cbor or msgpack)", name)
}

// parseJSONValue decodes s keeping integers exact, so they survive
// re-encoding with any codec.
func parseJSONValue(s string) (any, error) {
	v, err := jsonrpc.JSONCodec{}.Decode([]byte(s))
	if err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = normalizeNumbers(v[i])
		}
	case map[string]any:
		for k := range v {
			v[k] = normalizeNumbers(v[k])
		}
	}
	return v
}

func formatJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
