package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/cli"
	"github.com/mnehpets/rpcserve/jsonrpc"
)

type CallCommand struct {
	Ui      cli.Ui
	EnvFile string
	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer

	// flags
	notify bool
}

func (c *CallCommand) flags(cfg *Config) *flag.FlagSet {
	fs := defaultFlagSet("call")
	clientFlags(fs, cfg)
	fs.BoolVar(&c.notify, "notify", false, "send a notification: no id, no result")
	fs.Usage = func() { c.Ui.Error(c.Help()) }
	return fs
}

func clientFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.URL, "url", cfg.URL, "URL of the JSON-RPC endpoint")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "deadline for each call")
	fs.StringVar(&cfg.Codec, "codec", cfg.Codec, "request encoding: json, cbor or msgpack")
}

func newClient(cfg Config, logOutput io.Writer) (*jsonrpc.Client, error) {
	codec, err := codecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if logOutput == nil {
		logOutput = os.Stderr
	}
	return jsonrpc.NewClient(jsonrpc.NewHTTPTransport(cfg.URL),
		jsonrpc.WithCodec(codec),
		jsonrpc.WithTimeout(cfg.Timeout),
		jsonrpc.WithClientLogger(newLogger(logOutput)),
	), nil
}

func (c *CallCommand) Run(args []string) int {
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
	if f.NArg() < 1 || f.NArg() > 2 {
		c.Ui.Error(c.Help())
		return 1
	}

	method := f.Arg(0)
	var params any
	if f.NArg() == 2 {
		params, err = parseJSONValue(f.Arg(1))
		if err != nil {
			c.Ui.Error(fmt.Sprintf("Invalid params %q: %s", f.Arg(1), err))
			return 1
		}
	}

	client, err := newClient(cfg, c.LogOutput)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	ctx := context.Background()
	if c.notify {
		if err := client.Notify(ctx, method, params); err != nil {
			c.Ui.Error(fmt.Sprintf("Notification failed: %s", err))
			return 1
		}
		return 0
	}

	var result any
	if err := client.Call(ctx, method, params, &result); err != nil {
		c.Ui.Error(describeCallError(err))
		return 1
	}
	c.Ui.Output(formatJSON(result))
	return 0
}

func describeCallError(err error) string {
	var rpcErr *jsonrpc.JSONRPCError
	var te *jsonrpc.TransportError
	switch {
	case errors.As(err, &rpcErr):
		if rpcErr.Data != nil {
			return fmt.Sprintf("Error %d: %s (%s)", rpcErr.Code, rpcErr.Message, formatJSON(rpcErr.Data))
		}
		return fmt.Sprintf("Error %d: %s", rpcErr.Code, rpcErr.Message)
	case errors.Is(err, jsonrpc.ErrTimeout):
		return fmt.Sprintf("Timed out: %s", err)
	case errors.As(err, &te):
		return fmt.Sprintf("Transport failure: %s", err)
	}
	return err.Error()
}

func (c *CallCommand) Help() string {
	cfg := DefaultConfig()
	helpText := `
Usage: rpcserve call [options] method [params]

` + c.Synopsis() + `

params is a JSON array (positional) or object (named). Any other JSON
value is sent as is.

Example:

  rpcserve call add '[5, 3]'
  rpcserve call -notify logEvent '{"event": "login", "user": "alice"}'

` + helpForFlags(c.flags(&cfg))
	return strings.TrimSpace(helpText)
}

func (c *CallCommand) Synopsis() string {
	return "Calls one method and prints its result"
}
