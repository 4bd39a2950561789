// Package logger provides structured logging on top of zerolog.
//
// Loggers are component-scoped and carry structured fields; the field keys
// used across the client (call_id, method, url, status, transport,
// duration_ms) are declared in fields.go.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("httpclient")
//	log.Info("request completed", logger.Fields(logger.FieldStatus, 200))
package logger
