package jsonrpc

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/xeipuuv/gojsonschema"
)

// Shape is the params convention a handler accepts.
type Shape int

const (
	// ShapeAny accepts positional, named and absent params.
	ShapeAny Shape = iota
	// ShapePositional accepts positional or absent params.
	ShapePositional
	// ShapeNamed accepts named or absent params.
	ShapeNamed
)

func (s Shape) String() string {
	switch s {
	case ShapePositional:
		return "positional"
	case ShapeNamed:
		return "named"
	}
	return "any"
}

func (s Shape) accepts(p Params) bool {
	switch s {
	case ShapePositional:
		return p.kind != paramsNamed
	case ShapeNamed:
		return p.kind != paramsPositional
	}
	return true
}

// Handler runs one method. A returned error that is (or wraps) a
// *JSONRPCError keeps its code; any other error is reported as an internal
// error. Handlers may panic; the dispatcher recovers.
type Handler interface {
	ServeRPC(ctx context.Context, params Params) (any, error)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx context.Context, params Params) (any, error)

func (f HandlerFunc) ServeRPC(ctx context.Context, params Params) (any, error) {
	return f(ctx, params)
}

type methodEntry struct {
	name    string
	handler Handler
	shape   Shape
	schema  *gojsonschema.Schema
}

// MethodOption configures a registered method.
type MethodOption func(*methodEntry)

// WithSchema validates params against a JSON Schema before the handler runs.
// Params that fail validation are rejected with CodeInvalidParams. The schema
// is compiled at registration and an invalid schema panics.
func WithSchema(schema string) MethodOption {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic("jsonrpc: invalid params schema: " + err.Error())
	}
	return func(m *methodEntry) {
		m.schema = compiled
	}
}

// Registry maps method names to handlers.
//
// A Registry is populated at startup and sealed when a Dispatcher is built
// from it. Lookups take no lock: the map is never written after sealing.
type Registry struct {
	methods map[string]*methodEntry
	sealed  atomic.Bool
}

// NewRegistry creates an empty method registry.
func NewRegistry() *Registry {
	return &Registry{
		methods: make(map[string]*methodEntry),
	}
}

// Register adds a method. Registering an existing name replaces the earlier
// handler. Register panics once the registry is sealed.
func (r *Registry) Register(name string, h Handler, shape Shape, opts ...MethodOption) {
	if r.sealed.Load() {
		panic("jsonrpc: register after registry sealed: " + name)
	}
	if h == nil {
		panic("jsonrpc: nil handler for method " + name)
	}
	entry := &methodEntry{
		name:    name,
		handler: h,
		shape:   shape,
	}
	for _, opt := range opts {
		opt(entry)
	}
	r.methods[name] = entry
}

// RegisterFunc adds a method implemented by a function.
func (r *Registry) RegisterFunc(name string, fn HandlerFunc, shape Shape, opts ...MethodOption) {
	if fn == nil {
		panic("jsonrpc: nil handler for method " + name)
	}
	r.Register(name, fn, shape, opts...)
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	entry, ok := r.methods[name]
	if !ok {
		return nil, false
	}
	return entry.handler, true
}

func (r *Registry) lookup(name string) (*methodEntry, bool) {
	entry, ok := r.methods[name]
	return entry, ok
}

// Methods lists the registered method names in sorted order.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) seal() {
	r.sealed.Store(true)
}
