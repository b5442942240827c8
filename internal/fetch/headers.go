package fetch

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Field is one header entry.
type Field struct {
	Name  string
	Value string
}

// Headers is an ordered header collection. Names are stored lower-cased.
type Headers struct {
	fields []Field
}

// NewHeaders returns an empty collection.
func NewHeaders() *Headers {
	return &Headers{}
}

// Append adds a header after validating name and value.
func (h *Headers) Append(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("%w: invalid header name %q", ErrInvalidHeaders, name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("%w: invalid value for header %q", ErrInvalidHeaders, name)
	}
	h.fields = append(h.fields, Field{Name: strings.ToLower(name), Value: value})
	return nil
}

// Get returns the first value for name, case-insensitively.
func (h *Headers) Get(name string) string {
	name = strings.ToLower(name)
	for _, f := range h.fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Len returns the number of entries.
func (h *Headers) Len() int { return len(h.fields) }

// All returns the entries in insertion order.
func (h *Headers) All() []Field {
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}

// HeadersFromValue builds Headers from a script or Go value.
//
// Accepted: nil, *Headers, http.Header, map[string]string, map[string]any,
// [][2]string and []any of [name, value] pairs. Maps are read in key order.
func HeadersFromValue(v any) (*Headers, error) {
	h := NewHeaders()
	switch val := v.(type) {
	case nil:
		return h, nil
	case *Headers:
		if val == nil {
			return h, nil
		}
		h.fields = val.All()
		return h, nil
	case http.Header:
		for _, k := range sortedKeys(val) {
			for _, s := range val[k] {
				if err := h.Append(k, s); err != nil {
					return nil, err
				}
			}
		}
	case map[string]string:
		for _, k := range sortedKeys(val) {
			if err := h.Append(k, val[k]); err != nil {
				return nil, err
			}
		}
	case map[string]any:
		for _, k := range sortedKeys(val) {
			if err := h.appendValue(k, val[k]); err != nil {
				return nil, err
			}
		}
	case [][2]string:
		for _, p := range val {
			if err := h.Append(p[0], p[1]); err != nil {
				return nil, err
			}
		}
	case []any:
		for i, entry := range val {
			name, value, err := headerPair(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidHeaders, i, err)
			}
			if err := h.Append(name, value); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: unsupported headers value %T", ErrInvalidHeaders, v)
	}
	return h, nil
}

// appendValue adds name with a scalar value, or one entry per element of a list.
func (h *Headers) appendValue(name string, v any) error {
	if list, ok := v.([]any); ok {
		for _, item := range list {
			s, err := headerScalar(item)
			if err != nil {
				return fmt.Errorf("%w: header %q: %v", ErrInvalidHeaders, name, err)
			}
			if err := h.Append(name, s); err != nil {
				return err
			}
		}
		return nil
	}
	s, err := headerScalar(v)
	if err != nil {
		return fmt.Errorf("%w: header %q: %v", ErrInvalidHeaders, name, err)
	}
	return h.Append(name, s)
}

func headerPair(entry any) (string, string, error) {
	switch p := entry.(type) {
	case [2]string:
		return p[0], p[1], nil
	case []string:
		if len(p) != 2 {
			return "", "", fmt.Errorf("expected a [name, value] pair, got %d elements", len(p))
		}
		return p[0], p[1], nil
	case []any:
		if len(p) != 2 {
			return "", "", fmt.Errorf("expected a [name, value] pair, got %d elements", len(p))
		}
		name, ok := p[0].(string)
		if !ok {
			return "", "", fmt.Errorf("header name must be a string, got %T", p[0])
		}
		value, err := headerScalar(p[1])
		if err != nil {
			return "", "", err
		}
		return name, value, nil
	default:
		return "", "", fmt.Errorf("expected a [name, value] pair, got %T", entry)
	}
}

func headerScalar(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return "", fmt.Errorf("unsupported header value %T", v)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
