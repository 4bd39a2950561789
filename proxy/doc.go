// Package proxy implements the server side of request-proxy mode.
//
// A browser app points its client at this route instead of the API. Each
// request names its real destination in x-fal-target-url; the handler checks
// the destination against an allow-list, drops the caller's Authorization
// header, and forwards the call with the server's own key.
//
//	h, err := proxy.NewHandler(client, proxy.Config{}, nil)
//	h.Register(engine)
package proxy
