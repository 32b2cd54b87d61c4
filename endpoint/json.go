package endpoint

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// JSONRenderer serializes Value as JSON.
//
// Content-Type is always "application/json" and Status defaults to 200.
// Encoding errors are returned, but the status line has already been sent
// by then, so they can only be logged.
type JSONRenderer struct {
	Status int
	Value  any

	// EncoderFactory optionally customizes encoder creation. When nil, an
	// encoder with HTML escaping disabled is used.
	EncoderFactory func(w io.Writer) *json.Encoder
}

func (jr *JSONRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusOr(jr.Status, http.StatusOK))

	var enc *json.Encoder
	if jr.EncoderFactory != nil {
		enc = jr.EncoderFactory(w)
	} else {
		enc = json.NewEncoder(w)
		enc.SetEscapeHTML(false)
	}
	if enc == nil {
		return io.ErrUnexpectedEOF
	}
	return enc.Encode(jr.Value)
}
