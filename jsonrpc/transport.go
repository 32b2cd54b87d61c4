package jsonrpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Transport carries one encoded message to the remote and returns the
// encoded reply. A nil reply means the remote answered with no content.
type Transport interface {
	RoundTrip(ctx context.Context, contentType string, body []byte) ([]byte, error)
}

// DefaultMaxResponseBytes caps reply bodies when HTTPTransport has no
// MaxResponseBytes.
const DefaultMaxResponseBytes = 16 << 20

// HTTPTransport posts messages to a JSON-RPC over HTTP endpoint.
type HTTPTransport struct {
	URL    string
	Client *http.Client
	// Header is added to every request.
	Header http.Header
	// MaxResponseBytes limits the reply body. Zero means
	// DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

// NewHTTPTransport creates a transport for url using a pooled client with
// OpenTelemetry instrumentation.
func NewHTTPTransport(url string) *HTTPTransport {
	client := cleanhttp.DefaultPooledClient()
	client.Transport = otelhttp.NewTransport(client.Transport)
	return &HTTPTransport{
		URL:    url,
		Client: client,
	}
}

func (t *HTTPTransport) RoundTrip(ctx context.Context, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	for k, vs := range t.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)

	client := t.Client
	if client == nil {
		client = cleanhttp.DefaultClient()
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	limit := t.MaxResponseBytes
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(data)) > limit {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("response body exceeds %d bytes", limit)}
	}
	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK:
		return data, nil
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return nil, &TransportError{StatusCode: resp.StatusCode, Err: errors.New(msg)}
}
