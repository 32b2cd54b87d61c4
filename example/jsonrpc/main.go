package main

import (
	"context"
	"log"
	"net/http"

	"github.com/mnehpets/rpcserve/endpoint"
	"github.com/mnehpets/rpcserve/jsonrpc"
	"github.com/mnehpets/rpcserve/middleware"
)

type MathMethods struct{}

type AddParams struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (m *MathMethods) Add(ctx context.Context, args AddParams) (int, error) {
	return args.A + args.B, nil
}

type SubParams struct {
	_ struct{} `jsonrpc:"sub"`
	A int      `json:"a"`
	B int      `json:"b"`
}

func (m *MathMethods) Sub(ctx context.Context, args SubParams) (int, error) {
	return args.A - args.B, nil
}

func main() {
	reg := jsonrpc.NewRegistry()
	reg.RegisterService("math", &MathMethods{})
	reg.RegisterFunc("ping", func(ctx context.Context, _ jsonrpc.Params) (any, error) {
		return "pong", nil
	}, jsonrpc.ShapeAny)

	e := jsonrpc.NewEndpoint(jsonrpc.NewDispatcher(reg))
	http.Handle("/rpc", endpoint.Handler(e.Endpoint,
		&middleware.RequestIDProcessor{Logger: log.Default()},
		middleware.NewAPIHeadersProcessor(middleware.WithoutHSTS()),
	))

	// curl -d '{"jsonrpc":"2.0","method":"math.Add","params":[1,2],"id":1}' localhost:8080/rpc
	log.Println("Starting server on :8080")
	log.Fatal(http.ListenAndServe(":8080", nil))
}
