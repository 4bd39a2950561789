// Package component defines the lifecycle contract shared by the API client
// and the proxy server, and a registry that starts them in order and stops
// them in reverse.
package component
