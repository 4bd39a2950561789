package proxy

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/falclient/httpclient"
	"github.com/kbukum/falclient/logger"
	"github.com/kbukum/falclient/observability"
	"github.com/kbukum/falclient/server/middleware"
	"github.com/kbukum/falclient/validation"
)

// StatusClientClosedRequest is answered when the caller went away first.
const StatusClientClosedRequest = 499

// Handler forwards browser requests to the API using the server's own
// credentials. The destination comes from the x-fal-target-url header.
type Handler struct {
	client *httpclient.Client
	config Config
	log    *logger.Logger
}

// NewHandler creates a proxy handler around client. The client must talk to
// the API directly; a client that is itself configured with a request proxy
// is rejected.
func NewHandler(client *httpclient.Client, cfg Config, log *logger.Logger) (*Handler, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client.Config().RequestProxy != "" {
		return nil, fmt.Errorf("proxy: upstream client must not use a request proxy (got %q)", client.Config().RequestProxy)
	}
	if log == nil {
		log = logger.Get("proxy")
	}
	return &Handler{client: client, config: cfg, log: log}, nil
}

// Register mounts the handler on every method of the configured route.
func (h *Handler) Register(r gin.IRoutes) {
	r.Any(h.config.Route, h.Handle)
}

// Route returns the mount path.
func (h *Handler) Route() string {
	return h.config.Route
}

// Handle validates the target and relays the upstream outcome.
func (h *Handler) Handle(c *gin.Context) {
	ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
	ctx, span := observability.StartSpan(ctx, observability.SpanProxy, trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	target := c.GetHeader(httpclient.HeaderTargetURL)
	if target == "" {
		h.reject(c, http.StatusBadRequest, "missing "+httpclient.HeaderTargetURL+" header")
		return
	}
	u, err := parseTarget(target)
	if err != nil {
		h.reject(c, http.StatusBadRequest, err.Error())
		return
	}
	c.Set(middleware.ContextKeyTargetURL, target)
	span.SetAttributes(attribute.String(observability.AttrURL, target))

	if !h.config.allows(u.Hostname()) {
		h.reject(c, http.StatusPreconditionFailed, fmt.Sprintf("target host %q is not allowed", u.Hostname()))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.reject(c, http.StatusBadRequest, "read request body: "+err.Error())
		return
	}

	// The caller's Authorization header is never forwarded: Do builds a fresh
	// request carrying only the server's credentials.
	res, err := h.client.Do(ctx, target, body, nil, httpclient.RunOptions{Method: httpclient.Method(c.Request.Method)})
	if err != nil {
		observability.SetSpanError(ctx, err)
		h.relayError(c, err)
		return
	}
	span.SetAttributes(attribute.Int(observability.AttrStatus, res.StatusCode))
	c.Data(res.StatusCode, contentType(res.Body), res.Body)
}

func (h *Handler) relayError(c *gin.Context, err error) {
	var e *httpclient.Error
	if !errors.As(err, &e) {
		h.reject(c, http.StatusBadGateway, err.Error())
		return
	}

	switch e.Code {
	case httpclient.ErrCodeHTTP:
		c.Data(e.StatusCode, contentType(e.Body), e.Body)
	case httpclient.ErrCodeInvalidURL:
		h.reject(c, http.StatusBadRequest, e.Message)
	case httpclient.ErrCodeTimeout:
		h.reject(c, http.StatusGatewayTimeout, e.Message)
	case httpclient.ErrCodeCanceled:
		c.AbortWithStatus(StatusClientClosedRequest)
	default:
		h.reject(c, http.StatusBadGateway, e.Message)
	}
}

func (h *Handler) reject(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// parseTarget accepts absolute http and https URLs only.
func parseTarget(raw string) (*url.URL, error) {
	if err := validation.Var(raw, "url"); err != nil {
		return nil, fmt.Errorf("invalid %s %q", httpclient.HeaderTargetURL, raw)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid %s %q", httpclient.HeaderTargetURL, raw)
	}
	return u, nil
}

// contentType guesses the relayed body's type; the API answers JSON.
func contentType(body []byte) string {
	if httpclient.DecodePayload(body).Kind != httpclient.PayloadUndecodable {
		return "application/json"
	}
	return "application/octet-stream"
}
