package jsonrpc

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// BatchOutcome is the result of ExecuteBatch. EmptyBatch is set (and
// Responses empty) when the batch had no elements.
type BatchOutcome struct {
	EmptyBatch *Response
	Responses  []*Response
}

// NoContent reports that the batch produced no responses at all.
func (o BatchOutcome) NoContent() bool {
	return o.EmptyBatch == nil && len(o.Responses) == 0
}

// ExecuteBatch dispatches every element concurrently and waits for all of
// them. Invalid elements become their own error responses; notifications
// contribute nothing. Responses are in completion order, not input order.
func (d *Dispatcher) ExecuteBatch(ctx context.Context, batch []Classification) BatchOutcome {
	if len(batch) == 0 {
		return BatchOutcome{
			EmptyBatch: newErrorResponse(NullID(), NewError(CodeInvalidRequest, "Invalid Request: empty batch")),
		}
	}

	ctx, span := d.tracer.Start(ctx, "jsonrpc batch")
	defer span.End()
	span.SetAttributes(attribute.Int("rpc.jsonrpc.batch_size", len(batch)))

	var (
		mu        sync.Mutex
		responses = make([]*Response, 0, len(batch))
	)
	var g errgroup.Group
	if d.maxBatchConcurrency > 0 {
		g.SetLimit(d.maxBatchConcurrency)
	}
	for _, elem := range batch {
		elem := elem
		g.Go(func() error {
			resp := d.dispatchElement(ctx, elem)
			if resp == nil {
				return nil
			}
			mu.Lock()
			responses = append(responses, resp)
			mu.Unlock()
			return nil
		})
	}
	// Elements never fail the group; faults are already responses.
	_ = g.Wait()

	return BatchOutcome{Responses: responses}
}

func (d *Dispatcher) dispatchElement(ctx context.Context, c Classification) *Response {
	if c.Kind == ClassifiedSingle {
		return d.Dispatch(ctx, c.Request)
	}
	err := c.Err
	if err == nil {
		err = NewInvalidRequestError(nil)
	}
	return newErrorResponse(c.ID, err)
}
