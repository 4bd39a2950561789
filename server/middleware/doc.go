// Package middleware holds the gin middleware stack of the proxy server.
package middleware
