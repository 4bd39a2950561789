package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Method is an HTTP method accepted by RunOptions.
type Method string

// Supported methods.
const (
	MethodGet     Method = http.MethodGet
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodHead    Method = http.MethodHead
	MethodOptions Method = http.MethodOptions
)

// RunOptions are the per-call options. The zero value runs a POST.
type RunOptions struct {
	Method Method
}

func (o RunOptions) method() string {
	if o.Method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(string(o.Method))
}

// QueryParam is a single query parameter. Value is rendered with fmt.Sprint.
type QueryParam struct {
	Name  string
	Value any
}

// Query is an ordered list of query parameters; encoding keeps its order.
type Query []QueryParam

// QueryFromMap converts a map into a Query sorted by name.
func QueryFromMap(m map[string]any) Query {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	q := make(Query, 0, len(names))
	for _, name := range names {
		q = append(q, QueryParam{Name: name, Value: m[name]})
	}
	return q
}

// Encode renders the parameters as name=value pairs joined by '&'. Spaces
// are written as %20.
func (q Query) Encode() string {
	var sb strings.Builder
	for i, p := range q {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(queryEscape(p.Name))
		sb.WriteByte('=')
		sb.WriteString(queryEscape(fmt.Sprint(p.Value)))
	}
	return sb.String()
}

// queryEscape is url.QueryEscape with %20 for spaces. A literal '+' is
// already escaped as %2B, so every remaining '+' stands for a space.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// RequestSpec is a fully built request. It is not mutated once dispatched.
type RequestSpec struct {
	// URL is where the connection goes: the proxy when one is configured,
	// otherwise the target.
	URL string
	// TargetURL is the fully qualified destination, query included.
	TargetURL string
	// Method is the upper-case HTTP method.
	Method string
	// Header holds one value per canonical header name.
	Header http.Header
	// Body is nil for GET requests and when no input was supplied.
	Body []byte
}

// Proxied reports whether the request goes through a request proxy.
func (r *RequestSpec) Proxied() bool {
	return r.Header.Get(HeaderTargetURL) != ""
}

// Redacted returns a copy safe for logging: the credential secret is masked.
func (r *RequestSpec) Redacted() *RequestSpec {
	cp := *r
	cp.Header = r.Header.Clone()
	if auth := cp.Header.Get(headerAuthorization); auth != "" {
		cp.Header.Set(headerAuthorization, maskAuthorization(auth))
	}
	return &cp
}

// httpRequest converts the spec into a *http.Request bound to ctx.
func (r *RequestSpec) httpRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	return req, nil
}
