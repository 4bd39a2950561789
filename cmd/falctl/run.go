package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/kbukum/falclient/bootstrap"
	"github.com/kbukum/falclient/httpclient"
	"github.com/kbukum/falclient/observability"
	"github.com/kbukum/falclient/proxy"
	"github.com/kbukum/falclient/server"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		return exitUsage
	}
	if o.showVersion {
		if err := writeVersion(stdout, o.output); err != nil {
			return exitError
		}
		return exitOK
	}

	cfg, err := loadConfig(o)
	if err != nil {
		writeError(stderr, err)
		return exitError
	}

	if o.serve != "" {
		err = serve(ctx, cfg, stderr)
	} else {
		err = call(ctx, cfg, o, stdin, stdout)
	}
	if err != nil {
		writeError(stderr, err)
		return exitError
	}
	return exitOK
}

// call performs one dispatch and prints the body.
func call(ctx context.Context, cfg *Config, o *options, stdin io.Reader, stdout io.Writer) error {
	input, err := readInput(o.data, stdin)
	if err != nil {
		return err
	}
	query, err := parseQuery(o.queries)
	if err != nil {
		return err
	}
	runOpts := httpclient.RunOptions{Method: httpclient.Method(o.method)}

	if o.curl {
		client, err := httpclient.New(cfg.Fal)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close(ctx) }()
		spec, err := client.Build(client.AppURL(o.target), input, query, runOpts)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, spec.Redacted().Curl())
		return err
	}

	app, err := bootstrap.NewApp(cfg, bootstrap.WithSummary(nil))
	if err != nil {
		return err
	}
	fal := httpclient.NewComponent(cfg.Fal)
	if err := app.RegisterComponent(fal); err != nil {
		return err
	}
	if err := setupObservability(ctx, app); err != nil {
		return err
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		client := fal.Client()
		out, err := client.Dispatch(ctx, client.AppURL(o.target), input, query, runOpts)
		if err != nil {
			return err
		}
		return writeBody(stdout, out, o.output)
	})
}

// serve runs the request proxy until interrupted.
func serve(ctx context.Context, cfg *Config, summary io.Writer) error {
	app, _, err := newServeApp(ctx, cfg, bootstrap.WithSummary(summary))
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

// newServeApp wires client, proxy route and HTTP server, in start order.
func newServeApp(ctx context.Context, cfg *Config, opts ...bootstrap.Option) (*bootstrap.App[*Config], *server.Server, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll)

	fal := httpclient.NewComponent(cfg.Fal)
	if err := app.RegisterComponent(fal); err != nil {
		return nil, nil, err
	}
	routes := proxy.NewComponent(fal.Client, srv.GinEngine(), cfg.Proxy, app.Logger.WithComponent("proxy"))
	if err := app.RegisterComponent(routes); err != nil {
		return nil, nil, err
	}
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return nil, nil, err
	}

	app.OnReady(func(context.Context) error {
		for _, r := range srv.GinEngine().Routes() {
			app.Summary.TrackRoute(r.Method, r.Path)
		}
		return nil
	})
	if err := setupObservability(ctx, app); err != nil {
		return nil, nil, err
	}
	return app, srv, nil
}

// setupObservability starts the configured telemetry pipelines and flushes
// them on shutdown.
func setupObservability(ctx context.Context, app *bootstrap.App[*Config]) error {
	obs := app.Cfg.Observability
	if obs.ServiceVersion == "" {
		obs.ServiceVersion = app.Version
	}
	shutdown, err := observability.Setup(ctx, obs)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	app.OnStop(bootstrap.Hook(shutdown))
	return nil
}
