package jsonrpc

import (
	"context"
	"fmt"
	"log"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mnehpets/rpcserve/jsonrpc"

// Dispatcher routes classified envelopes to the handlers of a sealed
// Registry and turns their outcomes into Responses.
type Dispatcher struct {
	registry              *Registry
	logger                *log.Logger
	logNotificationErrors bool
	tracer                trace.Tracer
	maxBatchConcurrency   int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger for recovered panics and notification failures.
func WithLogger(l *log.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithNotificationErrorLogging controls whether failures of notifications
// (unknown method, invalid params, handler error) are logged. They are never
// reported to the caller either way. Enabled by default.
func WithNotificationErrorLogging(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.logNotificationErrors = enabled
	}
}

// WithTracer sets the tracer used for per-envelope spans. By default the
// global OpenTelemetry tracer provider is used.
func WithTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithMaxBatchConcurrency bounds how many batch elements run at once.
// n <= 0 means unbounded.
func WithMaxBatchConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxBatchConcurrency = n
	}
}

// NewDispatcher creates a Dispatcher and seals reg: no methods can be
// registered on it afterwards.
func NewDispatcher(reg *Registry, opts ...DispatcherOption) *Dispatcher {
	if reg == nil {
		panic("jsonrpc: nil registry")
	}
	reg.seal()
	d := &Dispatcher{
		registry:              reg,
		logger:                log.Default(),
		logNotificationErrors: true,
		tracer:                otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one valid envelope. It returns nil for notifications, which
// never produce a Response whatever the handler outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	ctx, span := d.tracer.Start(ctx, "jsonrpc "+req.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", req.Method),
			attribute.Bool("rpc.jsonrpc.notification", req.IsNotification()),
		))
	defer span.End()
	ctx = withRequest(ctx, req)

	if req.IsNotification() {
		if _, rpcErr := d.invoke(ctx, req); rpcErr != nil {
			span.SetStatus(codes.Error, rpcErr.Message)
			if d.logNotificationErrors {
				d.logger.Printf("jsonrpc: notification %s failed: %d %s", req.Method, rpcErr.Code, rpcErr.Message)
			}
		}
		return nil
	}

	id := *req.ID
	span.SetAttributes(attribute.String("rpc.jsonrpc.request_id", id.String()))
	result, rpcErr := d.invoke(ctx, req)
	if rpcErr != nil {
		span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", rpcErr.Code))
		span.SetStatus(codes.Error, rpcErr.Message)
		return newErrorResponse(id, rpcErr)
	}
	return newResult(id, result)
}

// invoke looks up and runs the handler for req.
func (d *Dispatcher) invoke(ctx context.Context, req *Request) (any, *JSONRPCError) {
	entry, ok := d.registry.lookup(req.Method)
	if !ok {
		return nil, NewMethodNotFoundError(req.Method)
	}
	if !entry.shape.accepts(req.Params) {
		return nil, NewInvalidParamsError(fmt.Sprintf("%s params required", entry.shape))
	}
	if entry.schema != nil && !req.Params.IsAbsent() {
		if rpcErr := validateSchema(entry.schema, req.Params); rpcErr != nil {
			return nil, rpcErr
		}
	}
	return d.call(ctx, entry, req.Params)
}

// call runs the handler, recovering panics into an internal error.
func (d *Dispatcher) call(ctx context.Context, entry *methodEntry, params Params) (result any, rpcErr *JSONRPCError) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("jsonrpc panic: %s: %v", entry.name, r)
			result = nil
			rpcErr = NewInternalError(nil)
		}
	}()

	result, err := entry.handler.ServeRPC(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func validateSchema(schema *gojsonschema.Schema, params Params) *JSONRPCError {
	res, err := schema.Validate(gojsonschema.NewGoLoader(params.Value()))
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return NewInvalidParamsError(msgs)
}

// Reply is what a transport sends back for one decoded payload.
type Reply struct {
	Single  *Response
	Batch   []*Response
	IsBatch bool
}

// NoContent reports that nothing must be written back: the payload was a
// notification or a batch of notifications only.
func (r Reply) NoContent() bool {
	if r.IsBatch {
		return len(r.Batch) == 0
	}
	return r.Single == nil
}

// Wire returns the value to encode, or nil when NoContent.
func (r Reply) Wire() any {
	if r.NoContent() {
		return nil
	}
	if r.IsBatch {
		return responsesWire(r.Batch)
	}
	return r.Single.wire()
}

// Handle classifies a decoded payload and runs it.
func (d *Dispatcher) Handle(ctx context.Context, v any) Reply {
	c := Classify(v)
	switch c.Kind {
	case MalformedBatch:
		return Reply{Single: newErrorResponse(NullID(), c.Err)}
	case InvalidEnvelope:
		return Reply{Single: newErrorResponse(c.ID, c.Err)}
	case ClassifiedBatch:
		out := d.ExecuteBatch(ctx, c.Elements)
		if out.EmptyBatch != nil {
			return Reply{Single: out.EmptyBatch}
		}
		return Reply{Batch: out.Responses, IsBatch: true}
	}
	return Reply{Single: d.Dispatch(ctx, c.Request)}
}

// HandleBytes decodes body with codec and runs it. Undecodable input is
// answered with a parse error and a null id.
func (d *Dispatcher) HandleBytes(ctx context.Context, codec Codec, body []byte) Reply {
	v, err := codec.Decode(body)
	if err != nil {
		return Reply{Single: newErrorResponse(NullID(), NewParseError(nil))}
	}
	return d.Handle(ctx, v)
}
