package httpclient

import (
	"fmt"
	"net/http"
)

// Result is the raw outcome of a transport exchange. Only the status code
// and body cross the transport boundary.
type Result struct {
	// StatusCode is the HTTP status code, 0 when the peer's answer could not
	// be parsed as HTTP.
	StatusCode int
	// Body is the complete response body.
	Body []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Result) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ValidateResponse returns the body unchanged for 2xx results and a typed
// error otherwise. Error bodies are decoded best-effort; a decode failure
// never replaces the HTTP error.
func ValidateResponse(res *Result) ([]byte, error) {
	if res == nil || res.StatusCode == 0 {
		return nil, NewInvalidResultFormatError()
	}
	if res.IsSuccess() {
		return res.Body, nil
	}
	payload := DecodePayload(res.Body)
	return nil, NewHTTPError(res.StatusCode, errorMessage(res.StatusCode, payload), payload, res.Body)
}

// errorMessage prefers the server's "detail" text, then a scalar body, then
// the reason phrase.
func errorMessage(statusCode int, payload *Payload) string {
	if detail, ok := payload.Field("detail"); ok {
		return detail
	}
	if s, ok := payload.Scalar(); ok {
		return s
	}
	return ReasonPhrase(statusCode)
}

// ReasonPhrase returns the standard reason phrase for a status code, with a
// class-level fallback for unregistered codes.
func ReasonPhrase(statusCode int) string {
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	switch {
	case statusCode >= 400 && statusCode < 500:
		return "Client Error"
	case statusCode >= 500 && statusCode < 600:
		return "Server Error"
	default:
		return fmt.Sprintf("HTTP %d", statusCode)
	}
}
