package httpclient

import (
	"bytes"
	"context"
	"encoding/pem"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func testConfig(transport string) Config {
	cfg := Config{Transport: transport, Timeout: 5 * time.Second, MaxBodySize: 1 << 10}
	cfg.ApplyDefaults()
	return cfg
}

func newTestTransport(t *testing.T, name string) Transport {
	t.Helper()
	tr, err := NewTransport(testConfig(name))
	if err != nil {
		t.Fatalf("NewTransport(%q): %v", name, err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func buildSpec(t *testing.T, method, rawURL string, body []byte) *RequestSpec {
	t.Helper()
	spec, err := NewBuilder(KeyCredentials("id:secret"), "", "ua").Build(rawURL, body, nil, RunOptions{Method: Method(method)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return spec
}

// rawServer answers every connection with reply and closes it.
func rawServer(t *testing.T, reply string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer func() { _ = c.Close() }()
				_ = c.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
				_, _ = c.Read(make([]byte, 4096))
				_, _ = io.WriteString(c, reply)
			}(conn)
		}
	}()
	return "http://" + ln.Addr().String()
}

var transportNames = []string{TransportPooled, TransportDirect}

func TestTransport_RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0x00, 0x7f, 0xff, '\n'}, 200)
	var mu sync.Mutex
	var seen []*http.Request
	var seenBodies [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, r)
		seenBodies = append(seenBodies, b)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	for _, name := range transportNames {
		t.Run(name, func(t *testing.T) {
			tr := newTestTransport(t, name)
			if tr.Name() != name {
				t.Errorf("Name() = %q", tr.Name())
			}
			res, err := tr.RoundTrip(context.Background(), buildSpec(t, "POST", srv.URL+"/fal-ai/app?x=1", []byte(`{"a":1}`)))
			if err != nil {
				t.Fatalf("RoundTrip: %v", err)
			}
			if res.StatusCode != http.StatusCreated {
				t.Errorf("StatusCode = %d", res.StatusCode)
			}
			if !bytes.Equal(res.Body, payload) {
				t.Errorf("body differs: got %d bytes, want %d", len(res.Body), len(payload))
			}

			mu.Lock()
			r, b := seen[len(seen)-1], seenBodies[len(seenBodies)-1]
			mu.Unlock()
			if r.Method != "POST" || r.URL.RequestURI() != "/fal-ai/app?x=1" {
				t.Errorf("server saw %s %s", r.Method, r.URL.RequestURI())
			}
			if r.Header.Get("Authorization") != "Key id:secret" {
				t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
			}
			if string(b) != `{"a":1}` {
				t.Errorf("server body = %q", b)
			}
		})
	}
}

func TestTransport_TLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"secure":true}`)
	}))
	defer srv.Close()
	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})

	for _, name := range transportNames {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(name)
			cfg.TLS = &TLSConfig{CAPEM: string(caPEM)}
			tr, err := NewTransport(cfg)
			if err != nil {
				t.Fatalf("NewTransport: %v", err)
			}
			defer func() { _ = tr.Close() }()

			res, err := tr.RoundTrip(context.Background(), buildSpec(t, "GET", srv.URL, nil))
			if err != nil {
				t.Fatalf("RoundTrip: %v", err)
			}
			if string(res.Body) != `{"secure":true}` {
				t.Errorf("body = %q", res.Body)
			}
		})
	}
}

func TestTransport_TLSUntrusted(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	for _, name := range transportNames {
		t.Run(name, func(t *testing.T) {
			tr := newTestTransport(t, name)
			_, err := tr.RoundTrip(context.Background(), buildSpec(t, "GET", srv.URL, nil))
			if !IsConnection(err) {
				t.Fatalf("expected connection error for an untrusted certificate, got %v", err)
			}
		})
	}
}

func TestTransport_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), 1<<10+1))
	}))
	defer srv.Close()
	exact := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), 1<<10))
	}))
	defer exact.Close()

	for _, name := range transportNames {
		t.Run(name, func(t *testing.T) {
			tr := newTestTransport(t, name)
			_, err := tr.RoundTrip(context.Background(), buildSpec(t, "GET", srv.URL, nil))
			if !IsQueueTimeout(err) {
				t.Fatalf("expected queue timeout, got %v", err)
			}

			res, err := tr.RoundTrip(context.Background(), buildSpec(t, "GET", exact.URL, nil))
			if err != nil {
				t.Fatalf("body at the limit: %v", err)
			}
			if len(res.Body) != 1<<10 {
				t.Errorf("len = %d", len(res.Body))
			}
		})
	}
}

func TestTransport_MalformedResponse(t *testing.T) {
	addr := rawServer(t, "this is not http\r\n\r\n")

	for _, name := range transportNames {
		t.Run(name, func(t *testing.T) {
			tr := newTestTransport(t, name)
			res, err := tr.RoundTrip(context.Background(), buildSpec(t, "GET", addr+"/x", nil))
			if err != nil {
				t.Fatalf("RoundTrip: %v", err)
			}
			if res.StatusCode != 0 {
				t.Fatalf("StatusCode = %d, want 0", res.StatusCode)
			}
			if _, err := ValidateResponse(res); !IsInvalidResultFormat(err) {
				t.Errorf("ValidateResponse = %v, want invalid result format", err)
			}
		})
	}
}

func TestTransport_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := "http://" + ln.Addr().String()
	_ = ln.Close()

	for _, name := range transportNames {
		t.Run(name, func(t *testing.T) {
			tr := newTestTransport(t, name)
			_, err := tr.RoundTrip(context.Background(), buildSpec(t, "GET", addr, nil))
			if !IsConnection(err) {
				t.Fatalf("expected connection error, got %v", err)
			}
		})
	}
}

func TestTransport_Cancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	for _, name := range transportNames {
		t.Run(name, func(t *testing.T) {
			tr := newTestTransport(t, name)
			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(50*time.Millisecond, cancel)

			start := time.Now()
			_, err := tr.RoundTrip(ctx, buildSpec(t, "GET", srv.URL, nil))
			if !IsCanceled(err) {
				t.Fatalf("expected canceled, got %v", err)
			}
			if time.Since(start) > 2*time.Second {
				t.Errorf("cancellation took %s", time.Since(start))
			}
		})
	}
}

func TestTransport_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	for _, name := range transportNames {
		t.Run(name, func(t *testing.T) {
			tr := newTestTransport(t, name)
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			_, err := tr.RoundTrip(ctx, buildSpec(t, "GET", srv.URL, nil))
			if !IsTimeout(err) {
				t.Fatalf("expected timeout, got %v", err)
			}
			if IsQueueTimeout(err) {
				t.Errorf("a time overrun must not be reported as queue timeout: %v", err)
			}
		})
	}
}

func TestTransport_RedirectNotFollowed(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		_, _ = io.WriteString(w, r.Method+" ok")
	}))
	defer srv.Close()

	for _, name := range transportNames {
		t.Run(name, func(t *testing.T) {
			mu.Lock()
			paths = nil
			mu.Unlock()

			tr := newTestTransport(t, name)
			res, err := tr.RoundTrip(context.Background(), buildSpec(t, "POST", srv.URL+"/old", []byte(`{}`)))
			if err != nil {
				t.Fatalf("RoundTrip: %v", err)
			}
			if res.StatusCode != http.StatusFound {
				t.Errorf("StatusCode = %d, want %d", res.StatusCode, http.StatusFound)
			}

			_, err = ValidateResponse(res)
			if !IsHTTPError(err) || StatusOf(err) != http.StatusFound {
				t.Errorf("ValidateResponse = %v, want http error 302", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if len(paths) != 1 || paths[0] != "POST /old" {
				t.Errorf("server saw %v, want only [POST /old]", paths)
			}
		})
	}
}

func TestPooledTransport_IgnoresEnvironmentProxy(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http://127.0.0.1:1")
	t.Setenv("HTTPS_PROXY", "http://127.0.0.1:1")

	tr, err := NewPooledTransport(testConfig(TransportPooled))
	if err != nil {
		t.Fatalf("NewPooledTransport: %v", err)
	}
	defer func() { _ = tr.Close() }()

	ht, ok := tr.Unwrap().Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport type %T", tr.Unwrap().Transport)
	}
	if ht.Proxy != nil {
		t.Error("pooled transport should connect directly, not through HTTP(S)_PROXY")
	}
	if tr.Unwrap().CheckRedirect == nil {
		t.Error("pooled transport should not follow redirects")
	}
}

func TestPooledTransport_CancelClosesConnection(t *testing.T) {
	var mu sync.Mutex
	states := make(map[net.Conn]http.ConnState)
	closed := make(chan struct{}, 1)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	srv.Config.ConnState = func(c net.Conn, s http.ConnState) {
		mu.Lock()
		states[c] = s
		mu.Unlock()
		if s == http.StateClosed {
			select {
			case closed <- struct{}{}:
			default:
			}
		}
	}
	srv.Start()
	defer srv.Close()

	tr, err := NewPooledTransport(testConfig(TransportPooled))
	if err != nil {
		t.Fatalf("NewPooledTransport: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	if _, err := tr.RoundTrip(ctx, buildSpec(t, "POST", srv.URL, []byte(`{}`))); !IsCanceled(err) {
		t.Fatalf("expected canceled, got %v", err)
	}

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("canceled connection was not closed")
	}
	_ = tr.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 1 {
		t.Fatalf("server saw %d connections, want 1", len(states))
	}
	for _, s := range states {
		if s != http.StateClosed {
			t.Errorf("connection state = %s, want closed", s)
		}
	}
}

func TestDirectTransport_ReleasesSockets(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	tr, err := NewDirectTransport(testConfig(TransportDirect))
	if err != nil {
		t.Fatalf("NewDirectTransport: %v", err)
	}
	defer func() { _ = tr.Close() }()

	spec := buildSpec(t, "GET", srv.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := tr.RoundTrip(ctx, spec)
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for tr.ActiveConns() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if tr.ActiveConns() != 1 {
		t.Fatalf("ActiveConns = %d while in flight, want 1", tr.ActiveConns())
	}

	cancel()
	if err := <-done; !IsCanceled(err) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if n := tr.ActiveConns(); n != 0 {
		t.Errorf("ActiveConns = %d after cancel, want 0", n)
	}
}

func TestDirectTransport_Closed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	tr, err := NewDirectTransport(testConfig(TransportDirect))
	if err != nil {
		t.Fatalf("NewDirectTransport: %v", err)
	}
	_ = tr.Close()
	if _, err := tr.RoundTrip(context.Background(), buildSpec(t, "GET", srv.URL, nil)); !IsConnection(err) {
		t.Fatalf("expected connection error after Close, got %v", err)
	}
}

func TestFuture_ResolvesOnce(t *testing.T) {
	f := newFuture()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			f.resolve(&Result{StatusCode: 200 + n}, nil)
		}(i)
	}
	wg.Wait()

	res, err := f.wait()
	if err != nil || res == nil {
		t.Fatalf("wait() = %v, %v", res, err)
	}
	if len(f.ch) != 0 {
		t.Error("later resolutions must be dropped")
	}
}

func TestTransportRegistry(t *testing.T) {
	names := Transports()
	if len(names) < 2 || names[0] != TransportDirect || names[1] != TransportPooled {
		t.Errorf("Transports() = %v", names)
	}

	if _, err := NewTransport(Config{Transport: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown transport")
	}

	stub := &stubTransport{name: "stub-registry"}
	RegisterTransport(stub.name, func(Config) (Transport, error) { return stub, nil })
	got, err := NewTransport(Config{Transport: stub.name})
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	if got != stub {
		t.Error("registered factory not used")
	}
}

func TestReadBounded(t *testing.T) {
	body, err := readBounded(bytes.NewReader([]byte("abcd")), 4)
	if err != nil || string(body) != "abcd" {
		t.Fatalf("readBounded at limit = %q, %v", body, err)
	}
	if _, err := readBounded(bytes.NewReader([]byte("abcde")), 4); !IsQueueTimeout(err) {
		t.Fatalf("expected queue timeout, got %v", err)
	}
}

// stubTransport returns a canned result and records the last request.
type stubTransport struct {
	name   string
	res    *Result
	err    error
	delay  time.Duration
	mu     sync.Mutex
	last   *RequestSpec
	closed bool
}

func (s *stubTransport) Name() string { return s.name }

func (s *stubTransport) RoundTrip(ctx context.Context, req *RequestSpec) (*Result, error) {
	s.mu.Lock()
	s.last = req
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, classifyTransportError(ctx, ctx.Err())
		}
	}
	return s.res, s.err
}

func (s *stubTransport) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *stubTransport) lastRequest() *RequestSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
