package httpclient

import (
	"errors"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/idna"
)

// HeaderTargetURL carries the original destination when a request proxy is
// configured. The header name is the literal string; the value is the URL.
const HeaderTargetURL = "x-fal-target-url"

const (
	headerAccept      = "Accept"
	headerContentType = "Content-Type"
	headerUserAgent   = "User-Agent"
	contentTypeJSON   = "application/json"
)

var (
	errMissingScheme = errors.New("missing scheme")
	errMissingHost   = errors.New("missing host")
)

// Builder turns a logical call into a RequestSpec. It holds only read-only
// client state and is safe for concurrent use.
type Builder struct {
	credentials  Credentials
	requestProxy string
	userAgent    string
}

// NewBuilder creates a request builder. requestProxy may be empty.
func NewBuilder(credentials Credentials, requestProxy, userAgent string) *Builder {
	return &Builder{
		credentials:  credentials,
		requestProxy: requestProxy,
		userAgent:    userAgent,
	}
}

// Build assembles the request for rawURL. Query parameters are applied to
// the target before proxy substitution, so the proxy receives the complete
// target in HeaderTargetURL. GET requests never carry a body.
func (b *Builder) Build(rawURL string, input []byte, query Query, opts RunOptions) (*RequestSpec, error) {
	target, err := parseURL(rawURL)
	if err != nil {
		return nil, NewInvalidURLError(rawURL, err)
	}
	if len(query) > 0 {
		encoded := query.Encode()
		if target.RawQuery != "" {
			target.RawQuery += "&" + encoded
		} else {
			target.RawQuery = encoded
		}
	}
	targetURL := target.String()

	connectURL := targetURL
	if b.requestProxy != "" {
		proxyURL, err := parseURL(b.requestProxy)
		if err != nil {
			return nil, NewInvalidURLError(b.requestProxy, err)
		}
		connectURL = proxyURL.String()
	}

	method := opts.method()
	header := make(http.Header, 6)
	header.Set(headerAccept, contentTypeJSON)
	header.Set(headerContentType, contentTypeJSON)
	header.Set(headerUserAgent, b.userAgent)
	if creds := credentialString(b.credentials); creds != "" {
		header.Set(headerAuthorization, authScheme+creds)
	}
	if b.requestProxy != "" {
		header.Set(HeaderTargetURL, targetURL)
	}

	spec := &RequestSpec{
		URL:       connectURL,
		TargetURL: targetURL,
		Method:    method,
		Header:    header,
	}
	if input != nil && method != http.MethodGet {
		spec.Body = input
	}
	return spec, nil
}

// parseURL accepts absolute URLs only and converts internationalized host
// names to their ASCII form.
func parseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		return nil, errMissingScheme
	}
	host := u.Hostname()
	if host == "" {
		return nil, errMissingHost
	}
	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return nil, err
		}
		if port := u.Port(); port != "" {
			u.Host = net.JoinHostPort(ascii, port)
		} else {
			u.Host = ascii
		}
	}
	return u, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
