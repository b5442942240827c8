package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind int

const (
	// KindConfig: the access policy configuration is malformed.
	KindConfig Kind = iota + 1
	// KindArgument: missing or unparseable url, invalid method.
	KindArgument
	// KindAccess: the access policy rejected the url.
	KindAccess
	// KindConversion: headers or body could not be converted.
	KindConversion
	// KindTransport: the exchange itself failed.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindArgument:
		return "argument"
	case KindAccess:
		return "access"
	case KindConversion:
		return "conversion"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

var (
	ErrMissingURL     = errors.New("missing required url")
	ErrInvalidURL     = errors.New("invalid url")
	ErrInvalidMethod  = errors.New("invalid HTTP method")
	ErrInvalidHeaders = errors.New("invalid headers")
	ErrInvalidBody    = errors.New("invalid body")
)

// Error is the typed failure returned by Fetch.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of a fetch error, or 0 if err is not one.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// IsConfigError returns true if err is a policy configuration failure.
func IsConfigError(err error) bool { return KindOf(err) == KindConfig }

// IsArgumentError returns true if err was caused by the call arguments.
func IsArgumentError(err error) bool { return KindOf(err) == KindArgument }

// IsAccessError returns true if the access policy rejected the request.
func IsAccessError(err error) bool { return KindOf(err) == KindAccess }

// IsConversionError returns true if headers or body failed to convert.
func IsConversionError(err error) bool { return KindOf(err) == KindConversion }

// IsTransportError returns true if the network exchange failed.
func IsTransportError(err error) bool { return KindOf(err) == KindTransport }
