// Package security implements the outbound network access policy:
// allow and deny lists of URI patterns checked before any connection is made.
package security

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrURLDenied      = errors.New("URL denied")
	ErrURLNotAllowed  = errors.New("URL not allowed")
	ErrInvalidPattern = errors.New("invalid URI pattern")
)

// Source is one policy configuration source, e.g. an environment variable.
type Source struct {
	// Name identifies the source in error messages.
	Name string
	// Value is the raw delimited pattern list.
	Value string
	// Entries, when non-nil, holds one pattern per element and replaces
	// Value. Elements are never split.
	Entries []string
	// Set is false when the source is absent; an absent list places no constraint.
	Set bool
}

// ConfigError reports a policy source that failed to parse.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%q contains an invalid URI: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// List is a parsed pattern list. The zero value is an absent list.
type List struct {
	source   string
	present  bool
	patterns []Pattern
	err      error
}

// ParseList parses src once. Patterns are separated by whitespace or commas.
func ParseList(src Source) List {
	if !src.Set {
		return List{source: src.Name}
	}
	l := List{source: src.Name, present: true}
	fields := src.Entries
	if fields == nil {
		fields = strings.FieldsFunc(src.Value, isListDelimiter)
	}
	for _, f := range fields {
		p, err := ParsePattern(f)
		if err != nil {
			l.patterns = nil
			l.err = &ConfigError{Source: src.Name, Err: err}
			return l
		}
		l.patterns = append(l.patterns, p)
	}
	return l
}

func isListDelimiter(r rune) bool {
	return unicode.IsSpace(r) || r == ','
}

// Present reports whether the list was configured.
func (l List) Present() bool { return l.present }

// Len returns the number of parsed patterns.
func (l List) Len() int { return len(l.patterns) }

// Err returns the captured parse failure, if any.
func (l List) Err() error { return l.err }

func (l List) matches(u *url.URL) bool {
	for _, p := range l.patterns {
		if p.Match(u) {
			return true
		}
	}
	return false
}

// Policy is the immutable allow/deny gate. Build it once with NewPolicy and
// share it; it is safe for concurrent use.
type Policy struct {
	allow List
	deny  List
	err   error
}

// NewPolicy parses both sources. A parse failure is kept and returned by Err
// and by every EnsureURLAccess call.
func NewPolicy(allow, deny Source) *Policy {
	p := &Policy{
		allow: ParseList(allow),
		deny:  ParseList(deny),
	}

	var errs []error
	for _, l := range []List{p.allow, p.deny} {
		if l.err != nil {
			errs = append(errs, l.err)
		}
	}
	switch len(errs) {
	case 0:
	case 1:
		p.err = errs[0]
	default:
		merr := multierror.Append(nil, errs...)
		merr.ErrorFormat = func(es []error) string {
			parts := make([]string, len(es))
			for i, e := range es {
				parts[i] = e.Error()
			}
			return strings.Join(parts, "; ")
		}
		p.err = merr
	}
	return p
}

// Err returns the configuration error captured at construction.
func (p *Policy) Err() error {
	return p.err
}

// Allow returns the parsed allow list.
func (p *Policy) Allow() List { return p.allow }

// Deny returns the parsed deny list.
func (p *Policy) Deny() List { return p.deny }

// EnsureURLAccess decides whether u may be contacted.
// A deny match wins over an allow match. With neither list present every URL
// is permitted.
func (p *Policy) EnsureURLAccess(u *url.URL) error {
	if p.err != nil {
		return p.err
	}
	if p.deny.present && p.deny.matches(u) {
		return fmt.Errorf("%w: %s", ErrURLDenied, u.Redacted())
	}
	if p.allow.present && !p.allow.matches(u) {
		return fmt.Errorf("%w: %s", ErrURLNotAllowed, u.Redacted())
	}
	return nil
}

// IsAccessError returns true if err is a deny or not-allowed rejection.
func IsAccessError(err error) bool {
	return errors.Is(err, ErrURLDenied) || errors.Is(err, ErrURLNotAllowed)
}

// IsConfigError returns true if err stems from a malformed policy source.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
