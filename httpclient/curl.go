package httpclient

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Curl renders the request as an equivalent curl command line. Text bodies
// are single-quoted; binary bodies are piped through xxd from a hex dump.
// Headers appear in sorted order.
func (r *RequestSpec) Curl() string {
	parts := []string{
		"curl -f",
		"-X " + r.Method,
		"--url " + shellQuote(r.URL),
	}

	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range r.Header[name] {
			parts = append(parts, "-H "+shellQuote(name+": "+value))
		}
	}

	if len(r.Body) > 0 {
		if utf8.Valid(r.Body) {
			parts = append(parts, "--data "+shellQuote(string(r.Body)))
		} else {
			parts = append(parts, fmt.Sprintf(`--data "$(echo '%X' | xxd -p -r)"`, r.Body))
		}
	}
	return strings.Join(parts, " ")
}

// shellQuote wraps s in single quotes, escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
