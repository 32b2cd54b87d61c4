package jsonrpc

import (
	"net/http"

	"github.com/mnehpets/rpcserve/endpoint"
)

// JSONRPCEndpoint serves a Dispatcher over HTTP.
// Use endpoint.Handler(e.Endpoint, processors...) to create an http.Handler.
type JSONRPCEndpoint struct {
	dispatcher *Dispatcher
	codecs     []Codec
}

// NewEndpoint creates an HTTP endpoint for d. The codecs select the accepted
// request encodings by Content-Type; DefaultCodecs is used when none are
// given. A request without Content-Type is treated as JSON.
func NewEndpoint(d *Dispatcher, codecs ...Codec) *JSONRPCEndpoint {
	if len(codecs) == 0 {
		codecs = DefaultCodecs()
	}
	return &JSONRPCEndpoint{
		dispatcher: d,
		codecs:     codecs,
	}
}

// rpcParams captures the raw request body. Parsing is deferred to the
// endpoint because undecodable input must be answered with a JSON-RPC parse
// error, not an HTTP error.
type rpcParams struct {
	ContentType string `header:"Content-Type"`
	Body        []byte `body:"" maxLength:"16777216"`
}

// Endpoint is the endpoint function that processes JSON-RPC requests.
// Pass to endpoint.Handler() to create an http.Handler.
func (e *JSONRPCEndpoint) Endpoint(w http.ResponseWriter, r *http.Request, params rpcParams) (endpoint.Renderer, error) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return nil, endpoint.Error(http.StatusMethodNotAllowed, "JSON-RPC requires POST method", nil)
	}

	contentType := params.ContentType
	if contentType == "" {
		contentType = JSONCodec{}.ContentType()
	}
	codec, ok := CodecFor(contentType, e.codecs)
	if !ok {
		return nil, endpoint.Error(http.StatusUnsupportedMediaType, "unsupported Content-Type: "+contentType, nil)
	}

	reply := e.dispatcher.HandleBytes(r.Context(), codec, params.Body)
	return &rpcRenderer{codec: codec, reply: reply}, nil
}

// rpcRenderer writes a Reply. Protocol errors are ordinary 200 responses;
// a Reply without responses is 204 No Content.
type rpcRenderer struct {
	codec Codec
	reply Reply
}

func (r *rpcRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	if r.reply.NoContent() {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	w.Header().Set("Content-Type", r.codec.ContentType())
	w.WriteHeader(http.StatusOK)
	return r.codec.Encode(w, r.reply.Wire())
}
