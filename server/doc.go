// Package server runs the HTTP server that exposes the fal proxy route,
// using Gin behind an h2c handler so clients may speak HTTP/1.1 or
// cleartext HTTP/2.
//
// Middleware (server/middleware): Recovery, RequestID, CORS, BodySizeLimit,
// RequestLogger. Endpoints (server/endpoint): /health, /version.
package server
