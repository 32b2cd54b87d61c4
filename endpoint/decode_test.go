package endpoint

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var ee *EndpointError
	if !errors.As(err, &ee) {
		t.Fatalf("got %v, want *EndpointError", err)
	}
	return ee.Status
}

func TestUnmarshal_QueryAndHeader(t *testing.T) {
	var p struct {
		Name    string `query:"name"`
		Limit   int    `query:"limit"`
		Verbose *bool  `query:"verbose"`
		Agent   string `header:"User-Agent"`
		Skipped string `query:"-"`
	}
	r := httptest.NewRequest(http.MethodGet, "/?name=ada&limit=3&verbose=true&-=x", nil)
	r.Header.Set("User-Agent", "test")

	if err := Unmarshal(r, &p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "ada" || p.Limit != 3 || p.Verbose == nil || !*p.Verbose || p.Agent != "test" {
		t.Errorf("got %+v", p)
	}
	if p.Skipped != "" {
		t.Errorf("ignored field was set to %q", p.Skipped)
	}
}

func TestUnmarshal_BadValueIs400(t *testing.T) {
	var p struct {
		Limit int `query:"limit"`
	}
	r := httptest.NewRequest(http.MethodGet, "/?limit=many", nil)
	if got := statusOf(t, Unmarshal(r, &p)); got != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", got, http.StatusBadRequest)
	}
}

func TestUnmarshal_RawBody(t *testing.T) {
	var p struct {
		Body []byte `body:""`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("raw bytes"))
	r.Header.Set("Content-Type", "application/cbor")
	if err := Unmarshal(r, &p); err != nil {
		t.Fatal(err)
	}
	if string(p.Body) != "raw bytes" {
		t.Errorf("got body %q", p.Body)
	}
}

func TestUnmarshal_JSONBody(t *testing.T) {
	var p struct {
		Body struct {
			Name string `json:"name"`
		} `body:""`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ada"}`))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	if err := Unmarshal(r, &p); err != nil {
		t.Fatal(err)
	}
	if p.Body.Name != "ada" {
		t.Errorf("got name %q, want %q", p.Body.Name, "ada")
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ada"}`))
	r.Header.Set("Content-Type", "text/plain")
	if got := statusOf(t, Unmarshal(r, &p)); got != http.StatusUnsupportedMediaType {
		t.Errorf("got status %d, want %d", got, http.StatusUnsupportedMediaType)
	}
}

func TestUnmarshal_BodyLimits(t *testing.T) {
	var p struct {
		Body []byte `body:"" maxLength:"4"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("12345"))
	if got := statusOf(t, Unmarshal(r, &p)); got != http.StatusRequestEntityTooLarge {
		t.Errorf("got status %d, want %d", got, http.StatusRequestEntityTooLarge)
	}

	var q struct {
		Body []byte `body:"" maxLength:""`
	}
	rec := httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(make([]byte, 64)))
	r.Body = http.MaxBytesReader(rec, r.Body, 8)
	if got := statusOf(t, Unmarshal(r, &q)); got != http.StatusRequestEntityTooLarge {
		t.Errorf("got status %d, want %d", got, http.StatusRequestEntityTooLarge)
	}
}

func TestUnmarshal_InvalidDestination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	var s string
	if got := statusOf(t, Unmarshal(r, &s)); got != http.StatusInternalServerError {
		t.Errorf("got status %d, want %d", got, http.StatusInternalServerError)
	}

	var two struct {
		A []byte `body:""`
		B []byte `body:""`
	}
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x"))
	if got := statusOf(t, Unmarshal(r, &two)); got != http.StatusInternalServerError {
		t.Errorf("got status %d, want %d", got, http.StatusInternalServerError)
	}
}

func TestUnmarshal_NestedStruct(t *testing.T) {
	type inner struct {
		ID string `header:"X-Request-Id"`
	}
	var p struct {
		Inner inner
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "abc")
	if err := Unmarshal(r, &p); err != nil {
		t.Fatal(err)
	}
	if p.Inner.ID != "abc" {
		t.Errorf("got %q, want %q", p.Inner.ID, "abc")
	}
}
