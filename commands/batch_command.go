package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mitchellh/cli"
	"github.com/mnehpets/rpcserve/jsonrpc"
)

type BatchCommand struct {
	Ui      cli.Ui
	EnvFile string
	// Stdin is read when no file is named. Defaults to os.Stdin.
	Stdin io.Reader
	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer
}

// batchEntry is one call of a batch file.
type batchEntry struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Notify bool            `json:"notify"`
}

func (c *BatchCommand) flags(cfg *Config) *flag.FlagSet {
	fs := defaultFlagSet("batch")
	clientFlags(fs, cfg)
	fs.Usage = func() { c.Ui.Error(c.Help()) }
	return fs
}

func (c *BatchCommand) Run(args []string) int {
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
	if f.NArg() > 1 {
		c.Ui.Error(c.Help())
		return 1
	}

	var src io.Reader = c.Stdin
	if f.NArg() == 1 && f.Arg(0) != "-" {
		fl, err := os.Open(f.Arg(0))
		if err != nil {
			c.Ui.Error(fmt.Sprintf("Failed to open batch file: %s", err))
			return 1
		}
		defer fl.Close()
		src = fl
	}
	if src == nil {
		src = os.Stdin
	}

	calls, err := readBatch(src)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Invalid batch: %s", err))
		return 1
	}

	client, err := newClient(cfg, c.LogOutput)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	results, err := client.Batch(context.Background(), calls)
	if err != nil {
		c.Ui.Error(describeCallError(err))
		return 1
	}

	status := 0
	for _, o := range results {
		if o.Err != nil {
			c.Ui.Error(fmt.Sprintf("%s %s: %s", o.ID, o.Method, describeCallError(o.Err)))
			status = 1
			continue
		}
		c.Ui.Output(fmt.Sprintf("%s %s: %s", o.ID, o.Method, formatJSON(o.Result)))
	}
	return status
}

func readBatch(r io.Reader) ([]jsonrpc.BatchCall, error) {
	var entries []batchEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no calls")
	}
	calls := make([]jsonrpc.BatchCall, 0, len(entries))
	for i, e := range entries {
		if e.Method == "" {
			return nil, fmt.Errorf("entry %d: method required", i)
		}
		bc := jsonrpc.BatchCall{Method: e.Method, Notify: e.Notify}
		if len(e.Params) > 0 && string(e.Params) != "null" {
			params, err := parseJSONValue(string(e.Params))
			if err != nil {
				return nil, fmt.Errorf("entry %d: params: %w", i, err)
			}
			bc.Params = params
		}
		calls = append(calls, bc)
	}
	return calls, nil
}

func (c *BatchCommand) Help() string {
	cfg := DefaultConfig()
	helpText := `
Usage: rpcserve batch [options] [file]

` + c.Synopsis() + `

The batch is a JSON array read from file, or from stdin when file is
omitted or "-":

  [
    {"method": "getUser", "params": 1},
    {"method": "listUsers", "params": {"active": true}},
    {"method": "logEvent", "params": {"event": "audit"}, "notify": true}
  ]

One line is printed per call, in call order, as "id method: result".

` + helpForFlags(c.flags(&cfg))
	return strings.TrimSpace(helpText)
}

func (c *BatchCommand) Synopsis() string {
	return "Sends several calls as one batch"
}
