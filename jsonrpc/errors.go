package jsonrpc

import (
	"errors"
	"fmt"
)

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// Application-defined codes live in [CodeServerErrorStart, CodeServerErrorEnd].
	CodeServerErrorStart = -32099
	CodeServerErrorEnd   = -32000
)

// JSONRPCError is the error object carried by a failed Response.
//
// Handlers return it (possibly wrapped) to choose the code and message the
// caller sees. On the client side it reports that the remote ran the method
// and rejected it.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	if e == nil {
		return "jsonrpc: error: <nil>"
	}
	return e.Message
}

func NewError(code int, message string) *JSONRPCError {
	return &JSONRPCError{Code: code, Message: message}
}

func NewErrorWithData(code int, message string, data interface{}) *JSONRPCError {
	return &JSONRPCError{Code: code, Message: message, Data: data}
}

func NewParseError(data interface{}) *JSONRPCError {
	return NewErrorWithData(CodeParseError, "Parse error", data)
}

func NewInvalidRequestError(data interface{}) *JSONRPCError {
	return NewErrorWithData(CodeInvalidRequest, "Invalid Request", data)
}

func NewMethodNotFoundError(data interface{}) *JSONRPCError {
	return NewErrorWithData(CodeMethodNotFound, "Method not found", data)
}

func NewInvalidParamsError(data interface{}) *JSONRPCError {
	return NewErrorWithData(CodeInvalidParams, "Invalid params", data)
}

func NewInternalError(data interface{}) *JSONRPCError {
	return NewErrorWithData(CodeInternalError, "Internal error", data)
}

// IsApplicationCode reports whether code is in the range reserved for
// implementation-defined server errors.
func IsApplicationCode(code int) bool {
	return code >= CodeServerErrorStart && code <= CodeServerErrorEnd
}

// mapError converts any handler error to a JSON-RPC error.
// JSONRPCError values (also when wrapped) keep their code and message; other
// errors become InternalError carrying the error text.
func mapError(err error) *JSONRPCError {
	var rpcErr *JSONRPCError
	if errors.As(err, &rpcErr) && rpcErr != nil {
		return rpcErr
	}
	msg := err.Error()
	if msg == "" {
		msg = "Internal error"
	}
	return &JSONRPCError{
		Code:    CodeInternalError,
		Message: msg,
	}
}

// ErrTimeout is matched by errors.Is for every *TimeoutError.
var ErrTimeout = errors.New("jsonrpc: call timed out")

// ErrNoResponse reports that an exchange completed without a Response for the
// call's id.
var ErrNoResponse = errors.New("jsonrpc: no response for request id")

// TimeoutError is returned when a call's deadline expires before a matching
// Response arrives. No Response was received, so it carries no error code.
type TimeoutError struct {
	Method string
	ID     ID
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("jsonrpc: call %s (id %s) timed out", e.Method, e.ID)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// TransportError reports that a message could not be exchanged with the
// remote, so the remote never got to run the method.
type TransportError struct {
	// StatusCode is the HTTP status for HTTP transports, 0 otherwise.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("jsonrpc: transport: status %d: %v", e.StatusCode, e.Err)
	}
	return "jsonrpc: transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
