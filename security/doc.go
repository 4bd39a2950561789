// Package security builds client TLS configuration from config values.
//
//	cfg := security.TLSConfig{
//	    CAFile:     "/etc/ssl/corp-ca.pem",
//	    MinVersion: "1.3",
//	}
//
//	tlsConfig, err := cfg.Build()
package security
