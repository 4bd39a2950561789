package httpclient

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/falclient/logger"
	"github.com/kbukum/falclient/observability"
)

// Client dispatches fal API calls: it builds the request, runs the transport
// exchange as a single cancellable task and validates the response.
type Client struct {
	config      Config
	credentials Credentials
	builder     *Builder
	transport   Transport
	log         *logger.Logger
	metrics     *observability.DispatchMetrics
}

// New creates a new client with the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if c.credentials == nil {
		c.credentials = cfg.Credentials()
	}
	if c.log == nil {
		c.log = logger.Get("httpclient")
	}
	if c.metrics == nil {
		m, err := observability.NewDispatchMetrics(observability.Meter(observability.MeterName))
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}
	if c.transport == nil {
		t, err := NewTransport(cfg)
		if err != nil {
			return nil, err
		}
		c.transport = t
	}
	c.builder = NewBuilder(c.credentials, cfg.RequestProxy, cfg.UserAgent())

	return c, nil
}

// Dispatch sends input to rawURL and returns the body of a 2xx response.
// input is ignored for GET. A nil query adds nothing to the URL.
func (c *Client) Dispatch(ctx context.Context, rawURL string, input []byte, query Query, opts RunOptions) ([]byte, error) {
	res, err := c.Do(ctx, rawURL, input, query, opts)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// Do is Dispatch returning the 2xx status along with the body.
func (c *Client) Do(ctx context.Context, rawURL string, input []byte, query Query, opts RunOptions) (*Result, error) {
	callLog := c.log.WithFields(logger.Fields(
		logger.FieldCallID, uuid.NewString(),
		logger.FieldTransport, c.transport.Name(),
	))

	spec, err := c.builder.Build(rawURL, input, query, opts)
	if err != nil {
		callLog.Warn("request rejected", logger.Fields(logger.FieldURL, rawURL, logger.FieldError, err.Error()))
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanDispatch)
	defer span.End()
	span.SetAttributes(
		attribute.String(observability.AttrMethod, spec.Method),
		attribute.String(observability.AttrURL, spec.TargetURL),
		attribute.Bool(observability.AttrProxied, spec.Proxied()),
	)

	callLog.Debug("dispatching request", logger.Fields(
		logger.FieldMethod, spec.Method,
		logger.FieldURL, spec.TargetURL,
		logger.FieldCurl, spec.Redacted().Curl(),
	))

	start := time.Now()
	c.metrics.RecordStart(ctx)

	res, err := c.execute(ctx, spec)
	duration := time.Since(start)

	status := StatusOf(err)
	if err == nil {
		status = res.StatusCode
	}
	outcome := "ok"
	if code, ok := codeOf(err); ok {
		outcome = code.String()
	} else if err != nil {
		outcome = "unknown"
	}
	c.metrics.RecordEnd(ctx, spec.Method, outcome, duration)
	span.SetAttributes(attribute.Int(observability.AttrStatus, status))

	fields := logger.Fields(
		logger.FieldMethod, spec.Method,
		logger.FieldURL, spec.TargetURL,
		logger.FieldStatus, status,
		logger.FieldDuration, duration.Milliseconds(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		callLog.Warn("request failed", logger.MergeWithError(fields, err))
		return nil, err
	}
	callLog.Debug("request completed", fields)
	return res, nil
}

// Run posts input to a fal application, e.g. "fal-ai/flux/dev". Full URLs
// are used as given.
func (c *Client) Run(ctx context.Context, appID string, input []byte, query Query) ([]byte, error) {
	return c.Dispatch(ctx, c.appURL(appID), input, query, RunOptions{Method: MethodPost})
}

// Build renders the request Dispatch would send without sending it.
func (c *Client) Build(rawURL string, input []byte, query Query, opts RunOptions) (*RequestSpec, error) {
	return c.builder.Build(rawURL, input, query, opts)
}

// AppURL resolves an application id against Config.RunURL.
func (c *Client) AppURL(appID string) string {
	return c.appURL(appID)
}

// execute runs the exchange as one task in a group so that cancellation is
// handled the same way for every backend, then validates the result.
func (c *Client) execute(ctx context.Context, spec *RequestSpec) (*Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	var res *Result
	g.Go(func() error {
		r, err := c.transport.RoundTrip(gctx, spec)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A caller that gave up gets no decoded payload.
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, NewCanceledError(err)
		}
		return nil, NewTimeoutError(err)
	}
	if _, err := ValidateResponse(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) appURL(appID string) string {
	if strings.HasPrefix(appID, "http://") || strings.HasPrefix(appID, "https://") {
		return appID
	}
	return strings.TrimRight(c.config.RunURL, "/") + "/" + strings.TrimLeft(appID, "/")
}

// Transport returns the backend in use.
func (c *Client) Transport() Transport {
	return c.transport
}

// Config returns the client's defaulted configuration.
func (c *Client) Config() Config {
	return c.config
}

// Close releases the transport's connections.
func (c *Client) Close(_ context.Context) error {
	return c.transport.Close()
}
