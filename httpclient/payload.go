package httpclient

import "github.com/tidwall/gjson"

// PayloadKind tags a decoded error body.
type PayloadKind int

const (
	// PayloadUndecodable marks a body that is not valid JSON.
	PayloadUndecodable PayloadKind = iota
	// PayloadObject marks a JSON object.
	PayloadObject
	// PayloadArray marks a JSON array.
	PayloadArray
	// PayloadScalar marks a JSON string, number, boolean or null.
	PayloadScalar
)

// String returns the kind name.
func (k PayloadKind) String() string {
	switch k {
	case PayloadObject:
		return "object"
	case PayloadArray:
		return "array"
	case PayloadScalar:
		return "scalar"
	default:
		return "undecodable"
	}
}

// Payload is the lazily decoded body of an error response.
type Payload struct {
	Kind  PayloadKind
	Raw   []byte
	value gjson.Result
}

// DecodePayload inspects body without ever failing: anything that is not
// valid JSON comes back as PayloadUndecodable.
func DecodePayload(body []byte) *Payload {
	p := &Payload{Kind: PayloadUndecodable, Raw: body}
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return p
	}
	p.value = gjson.ParseBytes(body)
	switch {
	case p.value.IsObject():
		p.Kind = PayloadObject
	case p.value.IsArray():
		p.Kind = PayloadArray
	default:
		p.Kind = PayloadScalar
	}
	return p
}

// Field returns the string value of a top-level object field. Non-string
// values report false.
func (p *Payload) Field(name string) (string, bool) {
	if p == nil || p.Kind != PayloadObject {
		return "", false
	}
	v := p.value.Get(gjson.Escape(name))
	if v.Type != gjson.String || v.Str == "" {
		return "", false
	}
	return v.Str, true
}

// Scalar returns the string form of a scalar payload. Null reports false.
func (p *Payload) Scalar() (string, bool) {
	if p == nil || p.Kind != PayloadScalar {
		return "", false
	}
	switch p.value.Type {
	case gjson.String:
		return p.value.Str, p.value.Str != ""
	case gjson.Number, gjson.True, gjson.False:
		return p.value.Raw, true
	default:
		return "", false
	}
}

// Value returns the payload as plain Go values (map[string]any, []any,
// string, float64, bool or nil). Undecodable payloads return nil.
func (p *Payload) Value() any {
	if p == nil || p.Kind == PayloadUndecodable {
		return nil
	}
	return p.value.Value()
}
