package main

import (
	"fmt"

	"github.com/kbukum/falclient/config"
	"github.com/kbukum/falclient/httpclient"
	"github.com/kbukum/falclient/proxy"
	"github.com/kbukum/falclient/server"
)

const (
	serviceName = "falctl"
	envPrefix   = "FALCTL"

	// envRequestProxy is read in addition to FALCTL_FAL_REQUEST_PROXY.
	envRequestProxy = "FAL_REQUEST_PROXY"
)

// Config is falctl's configuration. The fal block configures the API client
// for both one-shot calls and the proxy's upstream.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Fal    httpclient.Config `yaml:"fal" mapstructure:"fal"`
	Server server.Config     `yaml:"server" mapstructure:"server"`
	Proxy  proxy.Config      `yaml:"proxy" mapstructure:"proxy"`
}

// ApplyDefaults fills unset fields of every block.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Fal.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Proxy.ApplyDefaults()
}

// Validate checks every block.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Fal.Validate(); err != nil {
		return fmt.Errorf("fal: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Proxy.Validate(); err != nil {
		return err
	}
	return nil
}

// loaderOptions binds the conventional FAL_* variables next to the derived
// FALCTL_* names.
func loaderOptions(o *options) []config.LoaderOption {
	opts := []config.LoaderOption{
		config.WithEnvPrefix(envPrefix),
		config.WithEnvAlias("fal.key", httpclient.EnvKey),
		config.WithEnvAlias("fal.key_id", httpclient.EnvKeyID),
		config.WithEnvAlias("fal.key_secret", httpclient.EnvKeySecret),
		config.WithEnvAlias("fal.request_proxy", envRequestProxy),
	}
	if o.configFile != "" {
		opts = append(opts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		opts = append(opts, config.WithEnvFile(o.envFile))
	}
	return opts
}

// loadConfig reads files and environment, then applies flag overrides.
// One-shot calls log at warn unless configured otherwise.
func loadConfig(o *options) (*Config, error) {
	cfg := &Config{ServiceConfig: config.ServiceConfig{Name: serviceName}}
	if o.serve == "" {
		cfg.Logging.Level = "warn"
	}
	if err := config.LoadConfig(serviceName, cfg, loaderOptions(o)...); err != nil {
		return nil, err
	}

	if o.transport != "" {
		cfg.Fal.Transport = o.transport
	}
	if o.timeout > 0 {
		cfg.Fal.Timeout = o.timeout
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.serve != "" {
		host, port, err := splitServeAddr(o.serve)
		if err != nil {
			return nil, err
		}
		if host != "" {
			cfg.Server.Host = host
		}
		cfg.Server.Port = port
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
