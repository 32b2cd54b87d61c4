package middleware

import (
	"net/http"
	"strconv"

	"github.com/mnehpets/rpcserve/endpoint"
)

// MaxBodySize caps the request body at Limit bytes. A declared
// Content-Length over the limit is rejected with 413 before the body is
// read; bodies that turn out larger fail while being decoded.
type MaxBodySize struct {
	Limit int64
}

func (m MaxBodySize) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if m.Limit <= 0 {
		return next(w, r)
	}
	if r.ContentLength > m.Limit {
		return endpoint.Error(http.StatusRequestEntityTooLarge, "request body exceeds "+strconv.FormatInt(m.Limit, 10)+" bytes", nil)
	}
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, m.Limit)
	}
	return next(w, r)
}

var _ endpoint.Processor = MaxBodySize{}
