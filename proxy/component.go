package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/falclient/component"
	"github.com/kbukum/falclient/httpclient"
	"github.com/kbukum/falclient/logger"
)

const componentName = "proxy"

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// Component mounts the proxy route once the upstream client is available.
// Register it after the client component and before the HTTP server.
type Component struct {
	client func() *httpclient.Client
	routes gin.IRoutes
	config Config
	log    *logger.Logger

	mu      sync.Mutex
	handler *Handler
	started atomic.Bool
}

// NewComponent creates the proxy component. client is resolved on Start.
func NewComponent(client func() *httpclient.Client, routes gin.IRoutes, cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{client: client, routes: routes, config: cfg, log: log}
}

// Name returns "proxy".
func (c *Component) Name() string { return componentName }

// Start builds the handler and registers its route. Routes cannot be removed
// from a gin engine, so a restart reuses the first registration.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handler == nil {
		cl := c.client()
		if cl == nil {
			return errors.New("proxy: upstream client not started")
		}
		h, err := NewHandler(cl, c.config, c.log)
		if err != nil {
			return err
		}
		h.Register(c.routes)
		c.handler = h
	}
	c.started.Store(true)
	return nil
}

// Stop marks the component stopped; the server stops serving the route.
func (c *Component) Stop(_ context.Context) error {
	c.started.Store(false)
	return nil
}

// Health reports healthy while started.
func (c *Component) Health(_ context.Context) component.Health {
	if c.started.Load() {
		return component.Health{Name: componentName, Status: component.StatusHealthy}
	}
	return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "route not mounted"}
}

// Describe returns the route and the allowed hosts.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Request Proxy",
		Type:    "proxy",
		Details: fmt.Sprintf("%s -> %s", c.config.Route, strings.Join(c.config.AllowedHosts, ",")),
	}
}
