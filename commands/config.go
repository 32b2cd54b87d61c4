package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

const envPrefix = "RPCSERVE_"

// Config holds the settings shared by all commands. Values come from an
// env file, then the process environment, then command flags.
type Config struct {
	Addr                  string
	Path                  string
	MaxBatchConcurrency   int
	LogNotificationErrors bool
	MaxBodyBytes          int64
	CORSOrigins           []string
	Trace                 bool

	URL     string
	Timeout time.Duration
	Codec   string
}

func DefaultConfig() Config {
	return Config{
		Addr:                  ":8080",
		Path:                  "/rpc",
		LogNotificationErrors: true,
		MaxBodyBytes:          1 << 20,
		URL:                   "http://localhost:8080/rpc",
		Timeout:               10 * time.Second,
		Codec:                 "json",
	}
}

// LoadConfig reads envFile, if it exists, and the RPCSERVE_* environment
// variables. The process environment wins over the file.
func LoadConfig(envFile string) (Config, error) {
	var fileVars map[string]string
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
		}
		fileVars = m
	}
	return configFrom(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	})
}

func configFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	var merr *multierror.Error

	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	invalid := func(name string, err error) {
		merr = multierror.Append(merr, fmt.Errorf("%s%s: %w", envPrefix, name, err))
	}

	if v, ok := get("ADDR"); ok {
		cfg.Addr = v
	}
	if v, ok := get("PATH"); ok {
		if !strings.HasPrefix(v, "/") {
			invalid("PATH", errors.New("must start with /"))
		} else {
			cfg.Path = v
		}
	}
	if v, ok := get("MAX_BATCH_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			invalid("MAX_BATCH_CONCURRENCY", err)
		}
		cfg.MaxBatchConcurrency = n
	}
	if v, ok := get("LOG_NOTIFICATION_ERRORS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			invalid("LOG_NOTIFICATION_ERRORS", err)
		} else {
			cfg.LogNotificationErrors = b
		}
	}
	if v, ok := get("MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			invalid("MAX_BODY_BYTES", err)
		} else {
			cfg.MaxBodyBytes = n
		}
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitList(v)
	}
	if v, ok := get("TRACE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			invalid("TRACE", err)
		}
		cfg.Trace = b
	}
	if v, ok := get("URL"); ok {
		cfg.URL = v
	}
	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			invalid("TIMEOUT", err)
		} else {
			cfg.Timeout = d
		}
	}
	if v, ok := get("CODEC"); ok {
		if _, err := codecByName(v); err != nil {
			invalid("CODEC", err)
		} else {
			cfg.Codec = v
		}
	}

	return cfg, merr.ErrorOrNil()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
