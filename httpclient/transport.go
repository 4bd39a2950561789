package httpclient

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Built-in transport names.
const (
	TransportPooled = "pooled"
	TransportDirect = "direct"
)

// Transport sends a built request and returns the raw status and body.
// Implementations must honor ctx cancellation by aborting the exchange, and
// must never return a truncated body.
type Transport interface {
	// Name returns the backend name.
	Name() string
	// RoundTrip performs exactly one network exchange.
	RoundTrip(ctx context.Context, req *RequestSpec) (*Result, error)
	// Close releases pooled connections and aborts in-flight exchanges.
	Close() error
}

// TransportFactory creates a transport from a defaulted, validated config.
type TransportFactory func(cfg Config) (Transport, error)

var transports = struct {
	mu        sync.RWMutex
	factories map[string]TransportFactory
}{factories: make(map[string]TransportFactory)}

// RegisterTransport makes a backend available under name. Registering an
// existing name replaces it.
func RegisterTransport(name string, factory TransportFactory) {
	transports.mu.Lock()
	defer transports.mu.Unlock()
	transports.factories[name] = factory
}

// Transports returns the registered backend names in sorted order.
func Transports() []string {
	transports.mu.RLock()
	defer transports.mu.RUnlock()
	names := make([]string, 0, len(transports.factories))
	for name := range transports.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewTransport builds the backend named by cfg.Transport.
func NewTransport(cfg Config) (Transport, error) {
	transports.mu.RLock()
	factory, ok := transports.factories[cfg.Transport]
	transports.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("httpclient: unknown transport %q (registered: %v)", cfg.Transport, Transports())
	}
	return factory(cfg)
}

func init() {
	RegisterTransport(TransportPooled, func(cfg Config) (Transport, error) {
		return NewPooledTransport(cfg)
	})
	RegisterTransport(TransportDirect, func(cfg Config) (Transport, error) {
		return NewDirectTransport(cfg)
	})
}

// readBounded reads at most limit bytes. A body with more bytes fails with
// ErrCodeQueueTimeout instead of being truncated.
func readBounded(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, NewQueueTimeoutError(limit)
	}
	return body, nil
}
