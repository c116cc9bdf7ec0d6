package wire

import (
	"encoding/json"
	"strconv"
)

// DecodeRequest parses a raw JSON document into a Request. The JSON decoder
// itself is treated as an external collaborator (§1 Out of scope): any
// library producing an object tree would do; this module uses the standard
// library's encoding/json, which is sufficient and requires no additional
// third-party surface.
func DecodeRequest(doc string) (*Request, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return nil, err
	}

	req := &Request{Raw: raw}

	if t, ok := raw["type"]; ok {
		if f, ok := t.(float64); ok {
			req.Type = Opcode(f)
		}
	}
	if s, ok := raw["session"]; ok {
		if str, ok := s.(string); ok {
			req.Session = str
		}
	}
	return req, nil
}

// HasType reports whether the decoded document actually carried a "type"
// field, distinguishing "type omitted" from "type: 0".
func (r *Request) HasType() bool {
	_, ok := r.Raw["type"]
	return ok
}

// HasSession reports whether the decoded document carried a "session" field.
func (r *Request) HasSession() bool {
	_, ok := r.Raw["session"]
	return ok
}

// String extracts a string field from the request, with ok=false if absent
// or of the wrong type.
func (r *Request) String(field string) (string, bool) {
	v, present := r.Raw[field]
	if !present {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// StringOr extracts a string field, or returns def if absent.
func (r *Request) StringOr(field, def string) string {
	if s, ok := r.String(field); ok {
		return s
	}
	return def
}

// Int extracts a numeric field as an int, with ok=false if absent or of the
// wrong type.
func (r *Request) Int(field string) (int, bool) {
	v, present := r.Raw[field]
	if !present {
		return 0, false
	}
	f, ok := v.(float64)
	return int(f), ok
}

// Uint64 extracts a numeric field as a uint64, with ok=false if absent or
// of the wrong type. Accepts either a JSON number or a numeric string, since
// NETCONF session ids are large enough that front ends sometimes send them
// as strings to avoid float64 precision loss.
func (r *Request) Uint64(field string) (uint64, bool) {
	v, present := r.Raw[field]
	if !present {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return uint64(t), true
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// StringSlice extracts a string-array field.
func (r *Request) StringSlice(field string) ([]string, bool) {
	v, present := r.Raw[field]
	if !present {
		return nil, false
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Encode renders a Reply as a JSON document string.
func Encode(r *Reply) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
