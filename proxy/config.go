package proxy

import (
	"fmt"
	"strings"
)

// DefaultRoute is where the handler is mounted unless configured otherwise.
const DefaultRoute = "/api/fal/proxy"

// DefaultAllowedHosts are the API domains a proxy forwards to. Each entry
// also admits its subdomains.
var DefaultAllowedHosts = []string{"fal.ai", "fal.run"}

// Config configures the proxy handler.
type Config struct {
	Route        string   `yaml:"route" mapstructure:"route"`
	AllowedHosts []string `yaml:"allowed_hosts" mapstructure:"allowed_hosts"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Route == "" {
		c.Route = DefaultRoute
	}
	if len(c.AllowedHosts) == 0 {
		c.AllowedHosts = append([]string(nil), DefaultAllowedHosts...)
	}
}

// Validate checks the route and allow-list.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Route, "/") {
		return fmt.Errorf("proxy.route must start with '/' (got: %q)", c.Route)
	}
	for _, h := range c.AllowedHosts {
		if strings.TrimSpace(h) == "" || strings.ContainsAny(h, "/:") {
			return fmt.Errorf("proxy.allowed_hosts: %q is not a host name", h)
		}
	}
	return nil
}

// allows reports whether host is an allowed host or a subdomain of one.
func (c *Config) allows(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}
	for _, allowed := range c.AllowedHosts {
		allowed = strings.TrimSuffix(strings.ToLower(allowed), ".")
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
