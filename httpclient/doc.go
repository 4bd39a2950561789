// Package httpclient dispatches calls to the fal inference API.
//
// A call goes through three stages: the Builder turns a URL, an input body,
// query parameters and run options into a RequestSpec; a Transport performs
// the exchange; ValidateResponse turns the outcome into either the raw 2xx
// body or a typed *Error.
//
// Two transports are registered out of the box:
//
//   - pooled: keep-alive connection pool with HTTP/2 for TLS targets
//   - direct: one socket per call, closed when the call ends
//
// Others can be added with RegisterTransport.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    Key: os.Getenv("FAL_KEY"),
//	})
//
//	out, err := client.Run(ctx, "fal-ai/flux/dev", []byte(`{"prompt":"a cat"}`), nil)
//
// # Through a Proxy
//
// When Config.RequestProxy is set the request is sent to the proxy and the
// real destination travels in the x-fal-target-url header.
//
//	client, err := httpclient.New(httpclient.Config{
//	    RequestProxy: "https://my.app/api/fal/proxy",
//	})
//
// # Errors
//
//	_, err := client.Run(ctx, app, input, nil)
//	if httpclient.IsHTTPError(err) {
//	    log.Printf("status %d", httpclient.StatusOf(err))
//	}
package httpclient
