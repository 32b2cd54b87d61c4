package jsonrpc

import "context"

type requestKey struct{}

func withRequest(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

// MethodFromContext returns the method name of the envelope being handled.
func MethodFromContext(ctx context.Context) (string, bool) {
	req, ok := ctx.Value(requestKey{}).(*Request)
	if !ok {
		return "", false
	}
	return req.Method, true
}

// RequestIDFromContext returns the id of the request being handled. It
// returns false for notifications.
func RequestIDFromContext(ctx context.Context) (ID, bool) {
	req, ok := ctx.Value(requestKey{}).(*Request)
	if !ok || req.ID == nil {
		return ID{}, false
	}
	return *req.ID, true
}
