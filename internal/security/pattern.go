package security

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/MahdiBaghbani/fetchgate-go/internal/platform/hostport"
)

// Pattern is one entry of an allow or deny list.
//
// Accepted forms are "scheme://host[:port][/path]" and "host[:port]".
// The host may use glob wildcards ("*.example.com"). A pattern with a scheme
// matches only that scheme and, without a port, the scheme's default port; a
// pattern with neither matches any scheme and port. A path other than "/"
// must prefix the request path.
type Pattern struct {
	raw    string
	scheme string
	host   string
	glob   bool
	port   string
	path   string
}

// ParsePattern parses a single list entry.
func ParsePattern(s string) (Pattern, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Pattern{}, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if strings.ContainsFunc(raw, isListDelimiter) {
		return Pattern{}, fmt.Errorf("%w: %q contains a list delimiter", ErrInvalidPattern, raw)
	}

	target := raw
	if !strings.Contains(raw, "://") {
		target = "//" + raw
	}
	u, err := url.Parse(target)
	if err != nil {
		return Pattern{}, err
	}
	if u.Host == "" || u.Hostname() == "" {
		return Pattern{}, fmt.Errorf("%w: %q has no host", ErrInvalidPattern, raw)
	}
	if u.User != nil {
		return Pattern{}, fmt.Errorf("%w: %q must not carry credentials", ErrInvalidPattern, raw)
	}

	p := Pattern{
		raw:    raw,
		scheme: strings.ToLower(u.Scheme),
		port:   u.Port(),
		path:   u.EscapedPath(),
	}

	host := strings.ToLower(u.Hostname())
	if strings.ContainsAny(host, "*?[{") {
		if !doublestar.ValidatePattern(host) {
			return Pattern{}, fmt.Errorf("%w: %q has a malformed host wildcard", ErrInvalidPattern, raw)
		}
		ascii, err := hostport.NormalizeGlob(host)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, raw, err)
		}
		p.glob = true
		p.host = ascii
	} else {
		ascii, err := hostport.NormalizeHost(host)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, raw, err)
		}
		p.host = ascii
	}

	if p.port == "" && p.scheme != "" {
		p.port = hostport.DefaultPort(p.scheme)
	}
	return p, nil
}

// String returns the pattern as written.
func (p Pattern) String() string { return p.raw }

// Match reports whether u is covered by the pattern.
func (p Pattern) Match(u *url.URL) bool {
	host, err := hostport.NormalizeHost(u.Hostname())
	if err != nil {
		host = strings.ToLower(u.Hostname())
	}

	if p.glob {
		ok, err := doublestar.Match(p.host, host)
		if err != nil || !ok {
			return false
		}
	} else if host != p.host {
		return false
	}

	if p.scheme != "" && !strings.EqualFold(u.Scheme, p.scheme) {
		return false
	}

	if p.port != "" && hostport.EffectivePort(u) != p.port {
		return false
	}

	if p.path != "" && p.path != "/" {
		reqPath := u.EscapedPath()
		if reqPath == "" {
			reqPath = "/"
		}
		if !strings.HasPrefix(reqPath, p.path) {
			return false
		}
	}
	return true
}
