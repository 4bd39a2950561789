package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/falclient/httpclient"
)

const (
	outputRaw  = "raw"
	outputYAML = "yaml"
)

// options holds the parsed command line.
type options struct {
	configFile  string
	envFile     string
	method      string
	queries     []string
	data        string
	transport   string
	timeout     time.Duration
	curl        bool
	output      string
	serve       string
	logLevel    string
	showVersion bool

	target string
}

const usage = `Usage:
  falctl [flags] <app-id | url>
  falctl --proxy-serve [host]:port

Calls a fal application and prints the response body, or serves the
request proxy for browser apps.

Flags:
`

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVarP(&o.configFile, "config", "c", "", "config file (default: ./falctl.yml, ./config.yml, ~/.config/falctl/config.yml)")
	fs.StringVar(&o.envFile, "env-file", "", "env file (default: .env.falctl, .env)")
	fs.StringVarP(&o.method, "method", "X", string(httpclient.MethodPost), "HTTP method")
	fs.StringArrayVarP(&o.queries, "query", "q", nil, "query parameter name=value (repeatable)")
	fs.StringVarP(&o.data, "data", "d", "", "request body: JSON text, @file, or - for stdin")
	fs.StringVar(&o.transport, "transport", "", "transport backend: "+strings.Join(httpclient.Transports(), "|"))
	fs.DurationVar(&o.timeout, "timeout", 0, "per-call timeout (default 30s)")
	fs.BoolVar(&o.curl, "curl", false, "print the equivalent curl command instead of sending")
	fs.StringVarP(&o.output, "output", "o", outputRaw, "output format: raw|yaml")
	fs.StringVar(&o.serve, "proxy-serve", "", "serve the request proxy on [host]:port")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug|info|warn|error")
	fs.BoolVar(&o.showVersion, "version", false, "print version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if o.output != outputRaw && o.output != outputYAML {
		return nil, fmt.Errorf("--output must be %s or %s (got %q)", outputRaw, outputYAML, o.output)
	}
	if o.showVersion {
		return o, nil
	}

	rest := fs.Args()
	switch {
	case o.serve != "" && len(rest) > 0:
		return nil, errors.New("--proxy-serve takes no target")
	case o.serve == "" && len(rest) != 1:
		fs.Usage()
		return nil, errors.New("exactly one target (app id or url) is required")
	case len(rest) == 1:
		o.target = rest[0]
	}
	return o, nil
}

// parseQuery turns name=value pairs into an ordered query.
func parseQuery(pairs []string) (httpclient.Query, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	q := make(httpclient.Query, 0, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--query %q: want name=value", p)
		}
		q = append(q, httpclient.QueryParam{Name: name, Value: value})
	}
	return q, nil
}

// readInput resolves --data: "" sends no body, "-" reads stdin, "@path"
// reads a file, anything else is the body itself.
func readInput(data string, stdin io.Reader) ([]byte, error) {
	switch {
	case data == "":
		return nil, nil
	case data == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, fmt.Errorf("read --data file: %w", err)
		}
		return b, nil
	default:
		return []byte(data), nil
	}
}

func splitServeAddr(addr string) (string, int, error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("--proxy-serve %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("--proxy-serve %q: invalid port", addr)
	}
	return host, port, nil
}
