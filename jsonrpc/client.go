package jsonrpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Client issues calls over a Transport and correlates responses to calls by
// id. A Client is safe for concurrent use.
type Client struct {
	transport Transport
	codec     Codec
	timeout   time.Duration
	logger    *log.Logger

	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[ID]*pendingCall
}

type callResult struct {
	resp *Response
	err  error
}

// pendingCall is an outstanding request. done receives exactly one result,
// from whoever removes the entry from the pending table.
type pendingCall struct {
	method string
	done   chan callResult
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCodec sets the wire encoding. Default JSONCodec.
func WithCodec(codec Codec) ClientOption {
	return func(c *Client) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithTimeout sets the deadline applied to every call and batch. A call
// whose deadline expires fails with a *TimeoutError and a response arriving
// later is discarded. Zero disables the deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientLogger sets the logger for discarded responses.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client sending over t.
func NewClient(t Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: t,
		codec:     JSONCodec{},
		logger:    log.Default(),
		pending:   make(map[ID]*pendingCall),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pending returns the number of calls waiting for a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Call invokes method and waits for its response. On success the result is
// decoded into result (if non-nil).
//
// Errors: *JSONRPCError when the remote rejected the call, *TransportError
// when the message could not be exchanged, *TimeoutError when the deadline
// expired first.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	id := c.allocID()
	call := c.register(id, method)

	body, err := c.encode(requestWire{JSONRPC: Version, Method: method, Params: wireParams(params), ID: id.Value()})
	if err != nil {
		c.forget(id)
		return err
	}

	expired, stop := c.deadline()
	defer stop()
	// Abandoned exchanges are cancelled once the caller stops waiting.
	exchangeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.exchange(exchangeCtx, body, []ID{id})

	resp, err := c.wait(ctx, id, call, expired)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result == nil {
		return nil
	}
	if err := decodeValue(resp.Result, result); err != nil {
		return fmt.Errorf("jsonrpc: decode result of %s: %w", method, err)
	}
	return nil
}

// Notify sends a notification. Only failures to deliver the message are
// reported; the remote handler's outcome is never visible.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	body, err := c.encode(notificationWire{JSONRPC: Version, Method: method, Params: wireParams(params)})
	if err != nil {
		return err
	}
	_, err = c.transport.RoundTrip(ctx, c.codec.ContentType(), body)
	return asTransportError(err)
}

// BatchCall is one element of a batch. Notify calls get no id and no
// outcome.
type BatchCall struct {
	Method string
	Params any
	Notify bool
}

// Outcome is the result of one non-notification call in a batch.
type Outcome struct {
	Method string
	ID     ID
	Result any
	Err    error
}

// Decode binds the result into dst, or returns the call's error.
func (o Outcome) Decode(dst any) error {
	if o.Err != nil {
		return o.Err
	}
	return decodeValue(o.Result, dst)
}

// BatchResults holds one Outcome per non-notification call, in call order.
type BatchResults []Outcome

// Err combines the errors of all failed calls, or returns nil.
func (b BatchResults) Err() error {
	var merr *multierror.Error
	for _, o := range b {
		if o.Err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s (id %s): %w", o.Method, o.ID, o.Err))
		}
	}
	return merr.ErrorOrNil()
}

// Batch sends calls as a single batch. Responses are matched to calls by
// id, never by position. When the exchange itself fails the transport error
// is returned.
func (c *Client) Batch(ctx context.Context, calls []BatchCall) (BatchResults, error) {
	if len(calls) == 0 {
		return nil, errors.New("jsonrpc: empty batch")
	}

	msgs := make([]any, 0, len(calls))
	var (
		ids     []ID
		methods []string
		waiting []*pendingCall
	)
	for _, bc := range calls {
		if bc.Notify {
			msgs = append(msgs, notificationWire{JSONRPC: Version, Method: bc.Method, Params: wireParams(bc.Params)})
			continue
		}
		id := c.allocID()
		ids = append(ids, id)
		methods = append(methods, bc.Method)
		waiting = append(waiting, c.register(id, bc.Method))
		msgs = append(msgs, requestWire{JSONRPC: Version, Method: bc.Method, Params: wireParams(bc.Params), ID: id.Value()})
	}

	body, err := c.encode(msgs)
	if err != nil {
		for _, id := range ids {
			c.forget(id)
		}
		return nil, err
	}

	if len(ids) == 0 {
		_, err := c.transport.RoundTrip(ctx, c.codec.ContentType(), body)
		return BatchResults{}, asTransportError(err)
	}

	expired, stop := c.deadline()
	defer stop()
	exchangeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.exchange(exchangeCtx, body, ids)

	results := make(BatchResults, len(ids))
	transportFailures := 0
	var transportErr error
	for i, id := range ids {
		resp, err := c.wait(ctx, id, waiting[i], expired)
		out := Outcome{Method: methods[i], ID: id}
		switch {
		case err != nil:
			out.Err = err
			var te *TransportError
			if errors.As(err, &te) {
				transportFailures++
				transportErr = err
			}
		case resp.Error != nil:
			out.Err = resp.Error
		default:
			out.Result = resp.Result
		}
		results[i] = out
	}
	if transportFailures == len(ids) {
		return nil, transportErr
	}
	return results, nil
}

// allocID returns the next id. Ids increase monotonically for the lifetime
// of the client.
func (c *Client) allocID() ID {
	return uintID(c.nextID.Add(1))
}

func (c *Client) register(id ID, method string) *pendingCall {
	call := &pendingCall{method: method, done: make(chan callResult, 1)}
	c.mu.Lock()
	c.pending[id] = call
	c.mu.Unlock()
	return call
}

// forget removes a pending entry. It reports false if the entry was already
// taken by a delivery, in which case a result is on its way.
func (c *Client) forget(id ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

// take removes and returns the pending entry for id.
func (c *Client) take(id ID) (*pendingCall, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	call, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	return call, ok
}

// deadline returns a channel closed when the client timeout expires. It is
// shared by all calls of one batch, so it must be closed rather than sent on.
func (c *Client) deadline() (<-chan struct{}, func()) {
	if c.timeout <= 0 {
		return nil, func() {}
	}
	expired := make(chan struct{})
	t := time.AfterFunc(c.timeout, func() { close(expired) })
	return expired, func() { t.Stop() }
}

func (c *Client) wait(ctx context.Context, id ID, call *pendingCall, expired <-chan struct{}) (*Response, error) {
	var res callResult
	select {
	case res = <-call.done:
	case <-expired:
		if c.forget(id) {
			return nil, &TimeoutError{Method: call.method, ID: id}
		}
		res = <-call.done
	case <-ctx.Done():
		if c.forget(id) {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &TimeoutError{Method: call.method, ID: id}
			}
			return nil, ctx.Err()
		}
		res = <-call.done
	}
	// The exchange may notice an expired context before we do.
	if errors.Is(res.err, context.DeadlineExceeded) {
		return nil, &TimeoutError{Method: call.method, ID: id}
	}
	return res.resp, res.err
}

// exchange performs one round trip and delivers its responses. Ids sent in
// this exchange that got no response are failed.
func (c *Client) exchange(ctx context.Context, body []byte, ids []ID) {
	raw, err := c.transport.RoundTrip(ctx, c.codec.ContentType(), body)
	if err != nil {
		c.failAll(ids, asTransportError(err))
		return
	}

	responses, err := c.decodeResponses(raw)
	if err != nil {
		c.failAll(ids, &TransportError{Err: err})
		return
	}

	var orphan *JSONRPCError
	for _, resp := range responses {
		call, ok := c.take(resp.ID)
		if !ok {
			if resp.ID.IsNull() && resp.Error != nil {
				// The remote rejected the message as a whole.
				orphan = resp.Error
				continue
			}
			c.logger.Printf("jsonrpc: discarding response for unknown id %s", resp.ID)
			continue
		}
		call.done <- callResult{resp: resp}
	}

	var rest error = ErrNoResponse
	if orphan != nil {
		rest = orphan
	}
	c.failAll(ids, rest)
}

func (c *Client) failAll(ids []ID, err error) {
	for _, id := range ids {
		if call, ok := c.take(id); ok {
			call.done <- callResult{err: err}
		}
	}
}

func (c *Client) decodeResponses(raw []byte) ([]*Response, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	values, ok := v.([]any)
	if !ok {
		values = []any{v}
	}
	out := make([]*Response, 0, len(values))
	for _, rv := range values {
		resp, err := responseFromValue(rv)
		if err != nil {
			c.logger.Printf("jsonrpc: discarding malformed response: %v", err)
			continue
		}
		out = append(out, resp)
	}
	return out, nil
}

func (c *Client) encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.codec.Encode(&buf, v); err != nil {
		return nil, fmt.Errorf("jsonrpc: encode request: %w", err)
	}
	return buf.Bytes(), nil
}

// wireParams unwraps Params so codecs see plain values.
func wireParams(params any) any {
	if p, ok := params.(Params); ok {
		return p.Value()
	}
	return params
}

func asTransportError(err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Err: err}
}
