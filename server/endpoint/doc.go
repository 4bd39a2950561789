// Package endpoint provides the /health and /version handlers.
package endpoint
