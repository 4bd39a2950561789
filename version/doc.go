// Package version carries build information and renders the client's
// User-Agent string.
//
//	go build -ldflags "-X github.com/kbukum/falclient/version.Version=1.0.0"
package version
