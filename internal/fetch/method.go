package fetch

import (
	"fmt"
	"net/http"
)

// ParseMethod matches m case-sensitively against the supported methods.
func ParseMethod(m string) (string, error) {
	switch m {
	case http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodConnect,
		http.MethodHead,
		http.MethodPatch,
		http.MethodDelete:
		return m, nil
	case "":
		return "", fmt.Errorf("%w: {empty}", ErrInvalidMethod)
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidMethod, m)
	}
}

// methodFromValue converts the "method" option. nil means GET.
func methodFromValue(v any) (string, error) {
	switch m := v.(type) {
	case nil:
		return http.MethodGet, nil
	case string:
		return ParseMethod(m)
	default:
		return "", fmt.Errorf("%w: expected a string, got %T", ErrInvalidMethod, v)
	}
}
