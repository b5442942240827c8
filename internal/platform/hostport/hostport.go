// Package hostport provides scheme-aware host and port normalization for
// comparing request targets. It is the single source of truth for
// default-port equivalence.
package hostport

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// DefaultPort returns the well-known port for scheme, or "" when the scheme
// has none. Default ports: 80 for http and ws, 443 for https and wss.
func DefaultPort(scheme string) string {
	switch strings.ToLower(scheme) {
	case "http", "ws":
		return "80"
	case "https", "wss":
		return "443"
	default:
		return ""
	}
}

// EffectivePort returns the explicit port of u or its scheme default.
func EffectivePort(u *url.URL) string {
	if port := u.Port(); port != "" {
		return port
	}
	return DefaultPort(u.Scheme)
}

// NormalizeHost lowercases host and converts internationalised names to
// their ASCII form. IP literals pass through unchanged.
func NormalizeHost(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || strings.Contains(host, ":") || isDottedIPv4(host) {
		return host, nil
	}
	return idna.Lookup.ToASCII(host)
}

// NormalizeGlob applies NormalizeHost label by label to a host wildcard
// pattern. ASCII labels are only lowercased so glob syntax survives;
// internationalised labels must be literal.
func NormalizeGlob(pattern string) (string, error) {
	labels := strings.Split(strings.ToLower(strings.TrimSpace(pattern)), ".")
	for i, label := range labels {
		if isASCII(label) {
			continue
		}
		if strings.ContainsAny(label, "*?[]{}") {
			return "", fmt.Errorf("hostport: wildcard label %q must be ASCII", label)
		}
		ascii, err := idna.Lookup.ToASCII(label)
		if err != nil {
			return "", fmt.Errorf("hostport: label %q: %w", label, err)
		}
		labels[i] = ascii
	}
	return strings.Join(labels, "."), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isDottedIPv4(host string) bool {
	for _, r := range host {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
