package httpclient

import (
	"github.com/kbukum/falclient/logger"
	"github.com/kbukum/falclient/observability"
)

// Option configures a Client.
type Option func(*Client)

// WithCredentials overrides the credentials resolved from Config.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.credentials = creds }
}

// WithTransport supplies a ready-made backend instead of Config.Transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics sets the dispatch metric instruments.
func WithMetrics(m *observability.DispatchMetrics) Option {
	return func(c *Client) { c.metrics = m }
}
