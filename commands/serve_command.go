package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/cli"
	"github.com/mnehpets/rpcserve/demo"
	"github.com/mnehpets/rpcserve/endpoint"
	"github.com/mnehpets/rpcserve/jsonrpc"
	"github.com/mnehpets/rpcserve/middleware"
	"github.com/mnehpets/rpcserve/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServeCommand struct {
	Ui      cli.Ui
	Version string
	// EnvFile is read for RPCSERVE_* settings if it exists.
	EnvFile string
	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer
}

func (c *ServeCommand) flags(cfg *Config) *flag.FlagSet {
	fs := defaultFlagSet("serve")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "address to listen on")
	fs.StringVar(&cfg.Path, "path", cfg.Path, "URL path of the JSON-RPC endpoint")
	fs.IntVar(&cfg.MaxBatchConcurrency, "max-batch-concurrency", cfg.MaxBatchConcurrency,
		"number of batch elements dispatched at once, 0 for unbounded")
	fs.BoolVar(&cfg.LogNotificationErrors, "log-notification-errors", cfg.LogNotificationErrors,
		"log failures of notifications, which are never reported to the caller")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "largest accepted request body")
	fs.Func("cors-origins", "comma separated origins allowed to call the endpoint from a browser", func(s string) error {
		cfg.CORSOrigins = splitList(s)
		return nil
	})
	fs.BoolVar(&cfg.Trace, "trace", cfg.Trace, "write OpenTelemetry spans to stderr")

	fs.Usage = func() { c.Ui.Error(c.Help()) }

	return fs
}

func (c *ServeCommand) Run(args []string) int {
	cfg, err := LoadConfig(c.EnvFile)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Invalid configuration: %s", err))
		return 1
	}
	f := c.flags(&cfg)
	if err := f.Parse(args); err != nil {
		c.Ui.Error(fmt.Sprintf("Error parsing command-line flags: %s", err))
		return 1
	}

	logOutput := c.LogOutput
	if logOutput == nil {
		logOutput = os.Stderr
	}
	logger := newLogger(logOutput)

	if cfg.Trace {
		tp, err := tracing.Init(tracing.Config{
			ServiceName:    "rpcserve",
			ServiceVersion: c.Version,
			Writer:         logOutput,
		})
		if err != nil {
			c.Ui.Error(fmt.Sprintf("Failed to set up tracing: %s", err))
			return 1
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Printf("tracing shutdown: %s", err)
			}
		}()
	}

	handler, methods := NewHandler(cfg, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Printf("Starting rpcserve %s on %s%s with %d methods: %s",
		c.Version, cfg.Addr, cfg.Path, len(methods), strings.Join(methods, ", "))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			c.Ui.Error(fmt.Sprintf("Failed to start server: %s", err))
			return 1
		}
	case <-ctx.Done():
		logger.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.Ui.Error(fmt.Sprintf("Failed to shut down cleanly: %s", err))
			return 1
		}
	}
	return 0
}

type healthStatus struct {
	Status  string   `json:"status"`
	Methods []string `json:"methods"`
}

// NewHandler builds the rpcserve HTTP handler: the demo method sets behind
// the JSON-RPC endpoint at cfg.Path, and a health check at /healthz. It
// returns the registered method names.
//
// The calculator registers first, so the user store's getUser replaces the
// calculator's.
func NewHandler(cfg Config, logger *log.Logger) (http.Handler, []string) {
	reg := jsonrpc.NewRegistry()
	demo.NewCalculator(logger).Register(reg)
	demo.NewUserStore().Register(reg)

	d := jsonrpc.NewDispatcher(reg,
		jsonrpc.WithLogger(logger),
		jsonrpc.WithNotificationErrorLogging(cfg.LogNotificationErrors),
		jsonrpc.WithMaxBatchConcurrency(cfg.MaxBatchConcurrency),
	)

	headerOpts := []middleware.APIHeadersOption{middleware.WithoutHSTS()}
	if len(cfg.CORSOrigins) > 0 {
		headerOpts = append(headerOpts, middleware.WithCORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))
	}
	processors := []endpoint.Processor{
		&middleware.RequestIDProcessor{Logger: logger},
		middleware.NewAPIHeadersProcessor(headerOpts...),
		middleware.MaxBodySize{Limit: cfg.MaxBodyBytes},
	}

	methods := reg.Methods()
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, otelhttp.NewHandler(
		endpoint.Handler(jsonrpc.NewEndpoint(d).Endpoint, processors...), "jsonrpc"))
	mux.Handle("/healthz", endpoint.Handler(func(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
		return &endpoint.JSONRenderer{Value: healthStatus{Status: "ok", Methods: methods}}, nil
	}))
	return mux, methods
}

func (c *ServeCommand) Help() string {
	cfg := DefaultConfig()
	helpText := `
Usage: rpcserve serve [options]

` + c.Synopsis() + `

Settings are read from the env file, then RPCSERVE_* environment
variables, then flags.

` + helpForFlags(c.flags(&cfg))
	return strings.TrimSpace(helpText)
}

func (c *ServeCommand) Synopsis() string {
	return "Serves the demo methods over JSON-RPC 2.0"
}
