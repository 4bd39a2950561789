package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

// PooledTransport sends requests over a keep-alive connection pool. The pool
// belongs to the transport and is released by Close.
type PooledTransport struct {
	client      *http.Client
	maxBodySize int64
}

var _ Transport = (*PooledTransport)(nil)

// NewPooledTransport creates a pooled backend with HTTP/2 enabled for TLS
// targets and cfg.Timeout as the per-call limit. Like the direct backend it
// connects to the request URL itself: HTTP(S)_PROXY is ignored and redirects
// are returned to the caller instead of followed.
func NewPooledTransport(cfg Config) (*PooledTransport, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	// Apply TLS configuration
	if cfg.TLS != nil {
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		if tlsCfg != nil {
			transport.TLSClientConfig = tlsCfg
		}
	}

	if _, err := http2.ConfigureTransports(transport); err != nil {
		return nil, fmt.Errorf("httpclient: configure http2: %w", err)
	}

	return &PooledTransport{
		client: &http.Client{
			Transport:     transport,
			Timeout:       cfg.Timeout,
			CheckRedirect: noRedirects,
		},
		maxBodySize: cfg.MaxBodySize,
	}, nil
}

// Name returns "pooled".
func (t *PooledTransport) Name() string { return TransportPooled }

// RoundTrip sends req and reads at most the configured number of body bytes.
func (t *PooledTransport) RoundTrip(ctx context.Context, req *RequestSpec) (*Result, error) {
	httpReq, err := req.httpRequest(ctx)
	if err != nil {
		return nil, NewInvalidURLError(req.URL, err)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == nil && isMalformedResponse(err) {
			return &Result{}, nil
		}
		return nil, classifyTransportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBounded(resp.Body, t.maxBodySize)
	if err != nil {
		return nil, classifyTransportError(ctx, fmt.Errorf("read response body: %w", err))
	}
	return &Result{StatusCode: resp.StatusCode, Body: body}, nil
}

// Close releases idle pooled connections.
func (t *PooledTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (t *PooledTransport) Unwrap() *http.Client {
	return t.client
}

func noRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// isMalformedResponse detects net/http's report of a peer that did not
// answer with HTTP. net/http exposes no typed error for this case.
func isMalformedResponse(err error) bool {
	return strings.Contains(err.Error(), "malformed HTTP")
}
