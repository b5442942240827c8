package fetch

import (
	"errors"
	"net/http"
	"testing"
)

func fieldsOf(t *testing.T, v any) []Field {
	t.Helper()
	h, err := HeadersFromValue(v)
	if err != nil {
		t.Fatalf("HeadersFromValue(%#v) error = %v", v, err)
	}
	return h.All()
}

func TestHeadersFromValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  []Field
	}{
		{"nil", nil, []Field{}},
		{
			"map any sorted",
			map[string]any{"X-B": "2", "X-A": 1.0, "X-C": true},
			[]Field{{"x-a", "1"}, {"x-b", "2"}, {"x-c", "true"}},
		},
		{
			"map any list value",
			map[string]any{"Accept": []any{"text/html", "application/json"}},
			[]Field{{"accept", "text/html"}, {"accept", "application/json"}},
		},
		{
			"map string",
			map[string]string{"Authorization": "Bearer t"},
			[]Field{{"authorization", "Bearer t"}},
		},
		{
			"pairs keep order",
			[]any{[]any{"X-Z", "1"}, []any{"X-A", "2"}, []any{"X-Z", "3"}},
			[]Field{{"x-z", "1"}, {"x-a", "2"}, {"x-z", "3"}},
		},
		{
			"typed pairs",
			[][2]string{{"X-One", "1"}},
			[]Field{{"x-one", "1"}},
		},
		{
			"http.Header",
			http.Header{"X-Multi": {"a", "b"}},
			[]Field{{"x-multi", "a"}, {"x-multi", "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldsOf(t, tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("field %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestHeadersFromValue_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"number", 5.0},
		{"string", "x-a: 1"},
		{"bad name", map[string]any{"bad name": "v"}},
		{"bad value", map[string]string{"X-A": "line\nbreak"}},
		{"nested object", map[string]any{"X-A": map[string]any{}}},
		{"short pair", []any{[]any{"X-A"}}},
		{"non-string name", []any{[]any{1.0, "v"}}},
		{"not a pair", []any{"X-A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HeadersFromValue(tt.input)
			if !errors.Is(err, ErrInvalidHeaders) {
				t.Errorf("HeadersFromValue(%#v) error = %v, want ErrInvalidHeaders", tt.input, err)
			}
		})
	}
}

func TestHeaders_Get(t *testing.T) {
	h := NewHeaders()
	if err := h.Append("Content-Type", "text/plain"); err != nil {
		t.Fatal(err)
	}
	if got := h.Get("content-type"); got != "text/plain" {
		t.Errorf("Get() = %q", got)
	}
	if got := h.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q", got)
	}
}

func TestBodyFromValue(t *testing.T) {
	readAll := func(b Body) string {
		if b.Reader() == nil {
			return ""
		}
		buf := make([]byte, 64)
		n, _ := b.Reader().Read(buf)
		return string(buf[:n])
	}

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"bytes", []byte("raw"), "raw"},
		{"byte array", []any{104.0, 105.0}, "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := BodyFromValue(tt.input)
			if err != nil {
				t.Fatalf("BodyFromValue() error = %v", err)
			}
			if got := readAll(b); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}

	for _, bad := range []any{3.0, true, map[string]any{}, []any{256.0}, []any{1.5}, []any{"a"}} {
		if _, err := BodyFromValue(bad); !errors.Is(err, ErrInvalidBody) {
			t.Errorf("BodyFromValue(%#v) error = %v, want ErrInvalidBody", bad, err)
		}
	}
}
