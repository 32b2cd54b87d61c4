package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mnehpets/rpcserve/endpoint"
)

func TestRequestIDProcessor(t *testing.T) {
	var logBuf bytes.Buffer
	p := &RequestIDProcessor{Logger: log.New(&logBuf, "", 0)}

	var seen string
	h := endpoint.Handler(func(_ http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
		seen, _ = RequestID(r.Context())
		return &endpoint.NoContentRenderer{}, nil
	}, p)

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc", nil))

		got := rec.Header().Get(RequestIDHeader)
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("response id %q is not a UUID: %v", got, err)
		}
		if seen != got {
			t.Errorf("context id %q, header id %q", seen, got)
		}
		if !strings.Contains(logBuf.String(), got+" POST /rpc") {
			t.Errorf("access log %q does not mention the request", logBuf.String())
		}
	})

	t.Run("propagated", func(t *testing.T) {
		in := uuid.NewString()
		r := httptest.NewRequest(http.MethodPost, "/rpc", nil)
		r.Header.Set(RequestIDHeader, in)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if got := rec.Header().Get(RequestIDHeader); got != in {
			t.Errorf("got id %q, want %q", got, in)
		}
	})

	t.Run("invalid incoming id replaced", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/rpc", nil)
		r.Header.Set(RequestIDHeader, "not a uuid\n")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if got := rec.Header().Get(RequestIDHeader); got == "not a uuid\n" {
			t.Error("invalid id was echoed")
		}
	})
}

func TestRequestID_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := RequestID(r.Context()); ok {
		t.Error("RequestID reported an id for a bare context")
	}
}
