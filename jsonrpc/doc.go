// Package jsonrpc implements JSON-RPC 2.0 dispatch with an HTTP endpoint
// integrated with rpcserve's processor chain, and a client that correlates
// responses by id.
//
// It implements JSON-RPC 2.0 (https://www.jsonrpc.org/specification)
// and JSON-RPC over HTTP (https://www.simple-is-better.org/json-rpc/transport_http.html).
//
// # Basic Usage
//
// Register methods, build a Dispatcher and serve it over HTTP:
//
//	reg := jsonrpc.NewRegistry()
//	reg.RegisterFunc("add", jsonrpc.Typed(add), jsonrpc.ShapePositional)
//	d := jsonrpc.NewDispatcher(reg)
//	http.Handle("/rpc", endpoint.Handler(jsonrpc.NewEndpoint(d).Endpoint))
//
// NewDispatcher seals the registry. Registering afterwards panics, so the
// method table can be read by concurrent requests without locking.
//
// # Handlers
//
// A Handler receives Params: absent, positional or named. Typed binds them
// into a Go value and checks `validate` struct tags:
//
//	type AddParams struct {
//	    A float64 `json:"a" validate:"required"`
//	    B float64 `json:"b"`
//	}
//
//	func add(ctx context.Context, p AddParams) (float64, error) {
//	    return p.A + p.B, nil
//	}
//
// Positional params bind into struct fields in declaration order and the
// number of values must match the number of fields. A scalar params value is
// one positional value.
//
// RegisterService registers the methods of a struct, prefixed with a
// namespace. A blank field tagged `jsonrpc:"name"` on the params struct
// overrides the method name.
//
// # Error Handling
//
// Return a *JSONRPCError to choose the code the caller sees:
//
//	return 0, jsonrpc.NewError(-32000, "Division by zero")
//
// Any other error becomes CodeInternalError with the error text as message.
// Panics are recovered and reported as CodeInternalError.
//
// Standard error codes are defined as constants:
//   - CodeParseError (-32700)
//   - CodeInvalidRequest (-32600)
//   - CodeMethodNotFound (-32601)
//   - CodeInvalidParams (-32602)
//   - CodeInternalError (-32603)
//
// # Batches and Notifications
//
// Batch elements run concurrently and their responses are returned in
// completion order; callers correlate by id. Notifications never produce a
// response. A payload of notifications only is answered with HTTP 204.
//
// # Encodings
//
// The endpoint accepts JSON, CBOR and MessagePack, selected by Content-Type.
//
// # Processor Integration
//
// Processors can be passed to endpoint.Handler for cross-cutting concerns:
//
//	http.Handle("/rpc", endpoint.Handler(e.Endpoint, headersProcessor, requestIDProcessor))
//
// Processor errors return HTTP error responses (not JSON-RPC errors).
package jsonrpc
