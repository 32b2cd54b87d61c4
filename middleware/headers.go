// Package middleware provides endpoint.Processors for the JSON-RPC HTTP
// endpoint: response headers and CORS, request ids with access logging, and
// body size limits.
package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/mnehpets/rpcserve/endpoint"
)

// APIHeadersProcessor sets response headers suited to a machine-to-machine
// API and answers CORS preflight requests.
//
// Defaults from NewAPIHeadersProcessor:
//   - Strict-Transport-Security: max-age=31536000; includeSubDomains
//   - Referrer-Policy: no-referrer
//   - X-Content-Type-Options: nosniff
//   - Content-Security-Policy: default-src 'none'; frame-ancestors 'none'
//   - Cache-Control: no-store
//
// CORS is off until configured with WithCORS.
type APIHeadersProcessor struct {
	// HSTSMaxAge is the Strict-Transport-Security max-age in seconds. Zero
	// disables the header.
	HSTSMaxAge int

	ReferrerPolicy        string
	ContentSecurityPolicy string
	CacheControl          string
	NoSniff               bool

	CORS *CORSConfig
}

// CORSConfig configures Cross-Origin Resource Sharing.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API. "*" allows any
	// origin unless AllowCredentials is set.
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is how long in seconds a preflight result may be cached.
	MaxAge int
}

// DefaultCORSConfig allows POST from origins with the headers a JSON-RPC
// client sends, and exposes the request id.
func DefaultCORSConfig(origins ...string) *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         3600,
	}
}

// APIHeadersOption configures an APIHeadersProcessor.
type APIHeadersOption func(*APIHeadersProcessor)

// NewAPIHeadersProcessor creates a processor with the API defaults.
func NewAPIHeadersProcessor(opts ...APIHeadersOption) *APIHeadersProcessor {
	p := &APIHeadersProcessor{
		HSTSMaxAge:            31536000,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		CacheControl:          "no-store",
		NoSniff:               true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithoutHSTS disables Strict-Transport-Security, e.g. for plain HTTP
// development servers.
func WithoutHSTS() APIHeadersOption {
	return func(p *APIHeadersProcessor) {
		p.HSTSMaxAge = 0
	}
}

// WithCORS enables CORS handling.
func WithCORS(config *CORSConfig) APIHeadersOption {
	return func(p *APIHeadersProcessor) {
		p.CORS = config
	}
}

func (p *APIHeadersProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	h := w.Header()
	if p.HSTSMaxAge > 0 {
		h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(p.HSTSMaxAge)+"; includeSubDomains")
	}
	setIf(h, "Referrer-Policy", p.ReferrerPolicy)
	setIf(h, "Content-Security-Policy", p.ContentSecurityPolicy)
	setIf(h, "Cache-Control", p.CacheControl)
	if p.NoSniff {
		h.Set("X-Content-Type-Options", "nosniff")
	}

	if p.CORS != nil && r.Header.Get("Origin") != "" {
		p.CORS.apply(h, r)
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			return endpoint.Error(http.StatusNoContent, "", nil)
		}
	}
	return next(w, r)
}

func (c *CORSConfig) apply(h http.Header, r *http.Request) {
	origin := r.Header.Get("Origin")
	switch {
	case slices.Contains(c.AllowedOrigins, origin):
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	case slices.Contains(c.AllowedOrigins, "*") && !c.AllowCredentials:
		// The wildcard is never combined with credentials.
		h.Set("Access-Control-Allow-Origin", "*")
	default:
		return
	}

	if c.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(c.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(c.ExposedHeaders, ", "))
	}
	if r.Method != http.MethodOptions {
		return
	}
	if len(c.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(c.AllowedMethods, ", "))
	}
	if len(c.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(c.AllowedHeaders, ", "))
	}
	if c.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
	}
}

func setIf(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

var _ endpoint.Processor = (*APIHeadersProcessor)(nil)
