package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mnehpets/rpcserve/endpoint"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID returns the HTTP request id stored by RequestIDProcessor.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// RequestIDProcessor assigns every HTTP request an id, echoes it in the
// response and writes one access log line per request.
//
// An incoming X-Request-Id is reused if it parses as a UUID; otherwise a new
// random UUID is generated.
type RequestIDProcessor struct {
	// Logger receives access log lines. Nil disables access logging.
	Logger *log.Logger
}

func (p *RequestIDProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	id := r.Header.Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)
	r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

	start := time.Now()
	err := next(w, r)
	if p.Logger != nil {
		if err != nil {
			p.Logger.Printf("%s %s %s %s error=%v", id, r.Method, r.URL.Path, time.Since(start), err)
		} else {
			p.Logger.Printf("%s %s %s %s", id, r.Method, r.URL.Path, time.Since(start))
		}
	}
	return err
}

var _ endpoint.Processor = (*RequestIDProcessor)(nil)
