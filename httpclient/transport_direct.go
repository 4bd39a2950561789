package httpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DirectTransport opens one socket per request, writes the request, parses
// the response and closes the socket. The exchange runs in its own goroutine
// and reports through a completion callback; RoundTrip bridges that callback
// to a one-shot result.
type DirectTransport struct {
	dialer      *net.Dialer
	tlsConfig   *tls.Config
	timeout     time.Duration
	maxBodySize int64

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

var _ Transport = (*DirectTransport)(nil)

var errTransportClosed = errors.New("transport closed")

// NewDirectTransport creates a per-request socket backend.
func NewDirectTransport(cfg Config) (*DirectTransport, error) {
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	return &DirectTransport{
		dialer:      &net.Dialer{Timeout: cfg.Timeout},
		tlsConfig:   tlsCfg,
		timeout:     cfg.Timeout,
		maxBodySize: cfg.MaxBodySize,
		conns:       make(map[net.Conn]struct{}),
	}, nil
}

// Name returns "direct".
func (t *DirectTransport) Name() string { return TransportDirect }

// RoundTrip runs the exchange and waits for its single outcome.
func (t *DirectTransport) RoundTrip(ctx context.Context, req *RequestSpec) (*Result, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	f := newFuture()
	t.exchange(ctx, req, f.resolve)
	return f.wait()
}

// ActiveConns returns the number of sockets currently open.
func (t *DirectTransport) ActiveConns() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// Close aborts every in-flight exchange and rejects new ones.
func (t *DirectTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for conn := range t.conns {
		_ = conn.Close()
	}
	return nil
}

// exchange performs the request asynchronously and invokes done when finished.
func (t *DirectTransport) exchange(ctx context.Context, req *RequestSpec, done func(*Result, error)) {
	go func() {
		res, err := t.roundTrip(ctx, req)
		done(res, err)
	}()
}

func (t *DirectTransport) roundTrip(ctx context.Context, req *RequestSpec) (*Result, error) {
	httpReq, err := req.httpRequest(ctx)
	if err != nil {
		return nil, NewInvalidURLError(req.URL, err)
	}
	// One exchange per socket.
	httpReq.Close = true

	conn, err := t.dial(ctx, httpReq.URL)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	if !t.track(conn) {
		_ = conn.Close()
		return nil, NewConnectionError(errTransportClosed)
	}
	defer t.release(conn)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := httpReq.Write(conn); err != nil {
		return nil, classifyTransportError(ctx, fmt.Errorf("write request: %w", err))
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), httpReq)
	if err != nil {
		if ctx.Err() == nil && isProtocolError(err) {
			return &Result{}, nil
		}
		return nil, classifyTransportError(ctx, fmt.Errorf("read response: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBounded(resp.Body, t.maxBodySize)
	if err != nil {
		return nil, classifyTransportError(ctx, fmt.Errorf("read response body: %w", err))
	}
	return &Result{StatusCode: resp.StatusCode, Body: body}, nil
}

func (t *DirectTransport) dial(ctx context.Context, u *url.URL) (net.Conn, error) {
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	conn, err := t.dialer.DialContext(ctx, "tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" {
		return conn, nil
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if t.tlsConfig != nil {
		cfg = t.tlsConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = u.Hostname()
	}
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (t *DirectTransport) track(conn net.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.conns[conn] = struct{}{}
	return true
}

func (t *DirectTransport) release(conn net.Conn) {
	_ = conn.Close()
	t.mu.Lock()
	delete(t.conns, conn)
	t.mu.Unlock()
}

// isProtocolError reports a response that arrived but could not be parsed,
// as opposed to a socket failure or a premature close.
func isProtocolError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return false
	}
	var ne net.Error
	return !errors.As(err, &ne)
}

type outcome struct {
	res *Result
	err error
}

// future resolves exactly once; later resolutions are dropped.
type future struct {
	once sync.Once
	ch   chan outcome
}

func newFuture() *future {
	return &future{ch: make(chan outcome, 1)}
}

func (f *future) resolve(res *Result, err error) {
	f.once.Do(func() {
		f.ch <- outcome{res: res, err: err}
	})
}

func (f *future) wait() (*Result, error) {
	o := <-f.ch
	return o.res, o.err
}
