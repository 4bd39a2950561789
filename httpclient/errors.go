package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorCode classifies dispatch errors.
type ErrorCode int

const (
	// ErrCodeInvalidURL indicates the target or proxy URL could not be parsed.
	ErrCodeInvalidURL ErrorCode = iota
	// ErrCodeInvalidResultFormat indicates the peer answered with something that
	// is not an HTTP response, so no status code is available.
	ErrCodeInvalidResultFormat
	// ErrCodeHTTP indicates the server answered with a non-2xx status.
	ErrCodeHTTP
	// ErrCodeQueueTimeout indicates the response exceeded the body size bound.
	ErrCodeQueueTimeout
	// ErrCodeConnection indicates a connection failure (refused, DNS, reset).
	ErrCodeConnection
	// ErrCodeTimeout indicates the per-call timeout or the caller deadline expired.
	ErrCodeTimeout
	// ErrCodeCanceled indicates the caller canceled the call.
	ErrCodeCanceled
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInvalidURL:
		return "invalid_url"
	case ErrCodeInvalidResultFormat:
		return "invalid_result_format"
	case ErrCodeHTTP:
		return "http"
	case ErrCodeQueueTimeout:
		return "queue_timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is a structured dispatch error. Errors are terminal: the client never
// retries on its own.
type Error struct {
	// Code classifies the error.
	Code ErrorCode
	// StatusCode is the HTTP status code (0 when no status was obtained).
	StatusCode int
	// Message describes the error. For HTTP errors it is the server-supplied
	// detail when one could be decoded, otherwise the status reason phrase.
	Message string
	// URL is the offending URL string (ErrCodeInvalidURL only).
	URL string
	// Payload is the best-effort decoding of the error body (ErrCodeHTTP only).
	Payload *Payload
	// Body is the raw response body (ErrCodeHTTP only).
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInvalidURLError creates an invalid-url error carrying the original string.
func NewInvalidURLError(rawURL string, err error) *Error {
	msg := fmt.Sprintf("invalid url %q", rawURL)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{
		Code:    ErrCodeInvalidURL,
		Message: msg,
		URL:     rawURL,
		Err:     err,
	}
}

// NewInvalidResultFormatError creates an error for a response without a status.
func NewInvalidResultFormatError() *Error {
	return &Error{
		Code:    ErrCodeInvalidResultFormat,
		Message: "response is not a well-formed HTTP response",
	}
}

// NewHTTPError creates an error for a non-2xx response.
func NewHTTPError(statusCode int, message string, payload *Payload, body []byte) *Error {
	return &Error{
		Code:       ErrCodeHTTP,
		StatusCode: statusCode,
		Message:    message,
		Payload:    payload,
		Body:       body,
	}
}

// NewQueueTimeoutError creates an error for a response larger than limit bytes.
func NewQueueTimeoutError(limit int64) *Error {
	return &Error{
		Code:    ErrCodeQueueTimeout,
		Message: fmt.Sprintf("response body exceeded %d bytes", limit),
	}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{
		Code:    ErrCodeConnection,
		Message: err.Error(),
		Err:     err,
	}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{
		Code:    ErrCodeTimeout,
		Message: err.Error(),
		Err:     err,
	}
}

// NewCanceledError creates a cancellation error.
func NewCanceledError(err error) *Error {
	return &Error{
		Code:    ErrCodeCanceled,
		Message: err.Error(),
		Err:     err,
	}
}

// classifyTransportError maps a network-level failure to a typed error,
// preferring the caller's context state over the raw error.
func classifyTransportError(ctx context.Context, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.Canceled):
		return NewCanceledError(err)
	case ctxErr != nil:
		return NewTimeoutError(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

func codeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := codeOf(err)
	return ok && c == code
}

// IsInvalidURL checks if an error is an invalid-url error.
func IsInvalidURL(err error) bool { return hasCode(err, ErrCodeInvalidURL) }

// IsInvalidResultFormat checks if an error is an invalid-result-format error.
func IsInvalidResultFormat(err error) bool { return hasCode(err, ErrCodeInvalidResultFormat) }

// IsHTTPError checks if an error is a non-2xx HTTP error.
func IsHTTPError(err error) bool { return hasCode(err, ErrCodeHTTP) }

// IsQueueTimeout checks if an error is a body-size overrun.
func IsQueueTimeout(err error) bool { return hasCode(err, ErrCodeQueueTimeout) }

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool { return hasCode(err, ErrCodeConnection) }

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsCanceled checks if an error is a cancellation error.
func IsCanceled(err error) bool { return hasCode(err, ErrCodeCanceled) }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
