package jsonrpc

import (
	"errors"
	"fmt"
)

// Version is the only accepted value of the jsonrpc member.
const Version = "2.0"

// Request is a classified, valid envelope. A nil ID marks a notification.
type Request struct {
	Method string
	Params Params
	ID     *ID
}

// IsNotification reports whether the envelope carries no id.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response answers exactly one Request. Exactly one of Result and Error is
// meaningful: Error != nil marks a failure.
type Response struct {
	ID     ID
	Result any
	Error  *JSONRPCError
}

func newResult(id ID, result any) *Response {
	return &Response{ID: id, Result: result}
}

func newErrorResponse(id ID, err *JSONRPCError) *Response {
	return &Response{ID: id, Error: err}
}

// Wire shapes. Separate success and error structs keep a nil result on the
// wire as "result": null instead of dropping it.
type successWire struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result"`
	ID      any    `json:"id"`
}

type errorWire struct {
	JSONRPC string        `json:"jsonrpc"`
	Error   *JSONRPCError `json:"error"`
	ID      any           `json:"id"`
}

type requestWire struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      any    `json:"id"`
}

type notificationWire struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// wire returns the value handed to a Codec for encoding.
func (r *Response) wire() any {
	if r.Error != nil {
		return errorWire{JSONRPC: Version, Error: r.Error, ID: r.ID.Value()}
	}
	return successWire{JSONRPC: Version, Result: r.Result, ID: r.ID.Value()}
}

func responsesWire(rs []*Response) []any {
	out := make([]any, len(rs))
	for i, r := range rs {
		out[i] = r.wire()
	}
	return out
}

// responseFromValue parses one decoded response object.
func responseFromValue(v any) (*Response, error) {
	m, ok := asObject(v)
	if !ok {
		return nil, errors.New("jsonrpc: response is not an object")
	}
	if ver, _ := m["jsonrpc"].(string); ver != Version {
		return nil, fmt.Errorf("jsonrpc: response version %v", m["jsonrpc"])
	}
	id, err := IDFromValue(m["id"])
	if err != nil {
		return nil, err
	}
	resp := &Response{ID: id}
	if rawErr, ok := m["error"]; ok && rawErr != nil {
		var rpcErr JSONRPCError
		if err := decodeValue(rawErr, &rpcErr); err != nil {
			return nil, fmt.Errorf("jsonrpc: response error object: %w", err)
		}
		resp.Error = &rpcErr
		return resp, nil
	}
	if _, ok := m["result"]; !ok {
		return nil, errors.New("jsonrpc: response has neither result nor error")
	}
	resp.Result = m["result"]
	return resp, nil
}

// asObject accepts both map shapes produced by the codecs.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}
