// Package demo provides the example method sets served by rpcserve: a
// calculator with a few helpers, and an in-memory user store.
package demo

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/mnehpets/rpcserve/jsonrpc"
)

// Application error codes.
const (
	CodeDivisionByZero = -32000
	CodeUserNotFound   = -32001
	CodeProfileMissing = -32003
)

// Operands are the two numbers of an arithmetic method, given as [a, b] or
// {"a": a, "b": b}.
type Operands struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

type GreetParams struct {
	Name  string `json:"name" validate:"required"`
	Title string `json:"title"`
}

const greetSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"title": {"type": "string"}
	},
	"required": ["name"]
}`

type UserRef struct {
	ID int `json:"id"`
}

// Profile is the fixed record returned by the calculator's getUser.
type Profile struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Event is one logEvent notification.
type Event struct {
	Name   string         `json:"event"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Calculator serves arithmetic, greetings, a profile lookup and an event
// sink.
type Calculator struct {
	logger *log.Logger

	mu     sync.Mutex
	events []Event
}

func NewCalculator(logger *log.Logger) *Calculator {
	if logger == nil {
		logger = log.Default()
	}
	return &Calculator{logger: logger}
}

// Register adds add, subtract, multiply, divide, greet, getUser and
// logEvent to reg.
func (c *Calculator) Register(reg *jsonrpc.Registry) {
	reg.RegisterFunc("add", jsonrpc.Typed(func(_ context.Context, o Operands) (float64, error) {
		return o.A + o.B, nil
	}), jsonrpc.ShapeAny)
	reg.RegisterFunc("subtract", jsonrpc.Typed(func(_ context.Context, o Operands) (float64, error) {
		return o.A - o.B, nil
	}), jsonrpc.ShapeAny)
	reg.RegisterFunc("multiply", jsonrpc.Typed(func(_ context.Context, o Operands) (float64, error) {
		return o.A * o.B, nil
	}), jsonrpc.ShapeAny)
	reg.RegisterFunc("divide", jsonrpc.Typed(divide), jsonrpc.ShapeAny)
	reg.RegisterFunc("greet", jsonrpc.Typed(greet), jsonrpc.ShapeNamed, jsonrpc.WithSchema(greetSchema))
	reg.RegisterFunc("getUser", jsonrpc.Typed(profile), jsonrpc.ShapeAny)
	reg.RegisterFunc("logEvent", c.logEvent, jsonrpc.ShapeNamed)
}

func divide(_ context.Context, o Operands) (float64, error) {
	if o.B == 0 {
		return 0, jsonrpc.NewError(CodeDivisionByZero, "Division by zero")
	}
	return o.A / o.B, nil
}

func greet(_ context.Context, p GreetParams) (string, error) {
	name := strings.TrimSpace(p.Title + " " + p.Name)
	return fmt.Sprintf("Hello, %s!", name), nil
}

func profile(_ context.Context, ref UserRef) (Profile, error) {
	if ref.ID != 123 {
		return Profile{}, jsonrpc.NewErrorWithData(CodeProfileMissing, "User not found", ref.ID)
	}
	return Profile{ID: 123, Username: "alice", Email: "alice@example.com"}, nil
}

// logEvent records {"event": name, ...fields}. It is meant to be sent as a
// notification.
func (c *Calculator) logEvent(ctx context.Context, params jsonrpc.Params) (any, error) {
	named, _ := params.Named()
	name, ok := named["event"].(string)
	if !ok || name == "" {
		return nil, jsonrpc.NewInvalidParamsError("event name required")
	}
	ev := Event{Name: name}
	for k, v := range named {
		if k == "event" {
			continue
		}
		if ev.Fields == nil {
			ev.Fields = make(map[string]any)
		}
		ev.Fields[k] = v
	}

	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()

	if _, isCall := jsonrpc.RequestIDFromContext(ctx); isCall {
		c.logger.Printf("demo: event %s (sent as a call, not a notification)", name)
	} else {
		c.logger.Printf("demo: event %s", name)
	}
	return nil, nil
}

// Events returns the events recorded so far.
func (c *Calculator) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}
