package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/falclient/security"
	"github.com/kbukum/falclient/validation"
	"github.com/kbukum/falclient/version"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxBodySize = 1 << 20
	defaultRunURL      = "https://fal.run"
	defaultProduct     = "fal-go-client"
)

// TLSConfig configures TLS for both transports. See security.TLSConfig.
type TLSConfig = security.TLSConfig

// Config configures the dispatch client.
type Config struct {
	// Name identifies the client in logs and health reports.
	Name string `yaml:"name" mapstructure:"name"`

	// Key is the API key ("key_id:key_secret"). Takes precedence over KeyID/KeySecret.
	Key string `yaml:"key" mapstructure:"key"`
	// KeyID and KeySecret are the two halves of the API key.
	KeyID     string `yaml:"key_id" mapstructure:"key_id"`
	KeySecret string `yaml:"key_secret" mapstructure:"key_secret"`

	// RequestProxy, when set, receives every request; the real target travels
	// in the x-fal-target-url header. It is parsed per call.
	RequestProxy string `yaml:"request_proxy" mapstructure:"request_proxy"`

	// RunURL is the base URL used by Client.Run. Defaults to https://fal.run.
	RunURL string `yaml:"run_url" mapstructure:"run_url" validate:"required,url"`

	// Transport names the registered backend: "pooled" (default) or "direct".
	Transport string `yaml:"transport" mapstructure:"transport" validate:"required"`

	// Timeout bounds a single call. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// MaxBodySize bounds the response body in bytes. Defaults to 1 MiB.
	MaxBodySize int64 `yaml:"max_body_size" mapstructure:"max_body_size" validate:"gt=0"`

	// Product is the user-agent product name. Defaults to fal-go-client.
	Product string `yaml:"product" mapstructure:"product"`

	// TLS configures TLS for both transports.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = defaultMaxBodySize
	}
	if c.Transport == "" {
		c.Transport = TransportPooled
	}
	if c.RunURL == "" {
		c.RunURL = defaultRunURL
	}
	if c.Product == "" {
		c.Product = defaultProduct
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Credentials resolves the configured key: Key first, then KeyID/KeySecret.
func (c *Config) Credentials() Credentials {
	if c.Key != "" {
		return KeyCredentials(c.Key)
	}
	return KeyPairCredentials{ID: c.KeyID, Secret: c.KeySecret}
}

// UserAgent renders "<product>/<version> - <platform>".
func (c *Config) UserAgent() string {
	product := c.Product
	if product == "" {
		product = defaultProduct
	}
	return version.UserAgent(product)
}
