// Package fetch implements the policy-gated fetch primitive exposed to scripts.
//
// A call moves through Resolved (arguments merged into Options), Authorized
// (url parsed and accepted by the access policy), InFlight (one exchange on
// the shared client) and ends Completed with a Response or Failed with an
// *Error whose Kind tells the caller which stage rejected it.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/MahdiBaghbani/fetchgate-go/internal/platform/http/client"
	"github.com/MahdiBaghbani/fetchgate-go/internal/platform/logutil"
	"github.com/MahdiBaghbani/fetchgate-go/internal/platform/version"
	"github.com/MahdiBaghbani/fetchgate-go/internal/security"
)

// Fetcher dispatches fetch calls over one shared client.
// It is safe for concurrent use.
type Fetcher struct {
	client    client.Doer
	policy    *security.Policy
	userAgent string
	logger    *slog.Logger
	now       func() time.Time
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithUserAgent replaces the default "fetchgate <version>" User-Agent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithClock replaces time.Now for request timing.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// New creates a Fetcher. It fails when the policy carries a configuration
// error, so a malformed allow or deny list stops startup instead of every
// request. A nil policy permits every url.
func New(doer client.Doer, policy *security.Policy, logger *slog.Logger, opts ...Option) (*Fetcher, error) {
	if doer == nil {
		return nil, fmt.Errorf("fetch: nil client")
	}
	if policy == nil {
		policy = security.NewPolicy(security.Source{}, security.Source{})
	}
	if err := policy.Err(); err != nil {
		return nil, newError(KindConfig, err)
	}

	f := &Fetcher{
		client:    doer,
		policy:    policy,
		userAgent: version.UserAgent(),
		logger:    logutil.NoopIfNil(logger),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch performs exactly one request/response exchange. No retry, no
// redirect following and no timeout are applied here.
//
// Failures are checked in this order, each before any network I/O except
// the last: missing url, invalid url, invalid method, access policy,
// headers conversion, body conversion, transport.
func (f *Fetcher) Fetch(ctx context.Context, res Resource, init Object) (*Response, error) {
	start := f.now()
	log := f.logger.With("request_id", uuid.NewString())

	opts, err := Resolve(res, init)
	if err != nil {
		return nil, err
	}
	if len(opts.Unused) > 0 {
		log.Debug("ignoring unknown fetch options", "keys", opts.Unused)
	}

	rawURL, ok := opts.URL()
	if !ok {
		return nil, newError(KindArgument, ErrMissingURL)
	}
	u, err := parseRequestURL(rawURL)
	if err != nil {
		return nil, newError(KindArgument, err)
	}

	method, err := opts.Method()
	if err != nil {
		return nil, newError(KindArgument, err)
	}

	if err := f.policy.EnsureURLAccess(u); err != nil {
		kind := KindAccess
		if security.IsConfigError(err) {
			kind = KindConfig
		}
		log.Warn("fetch blocked by access policy", "method", method, "url", u.Redacted(), "error", err)
		return nil, newError(kind, err)
	}

	headers, err := opts.Headers()
	if err != nil {
		return nil, newError(KindConversion, err)
	}
	body, err := opts.Body()
	if err != nil {
		return nil, newError(KindConversion, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body.Reader())
	if err != nil {
		return nil, newError(KindArgument, fmt.Errorf("%w: %v", ErrInvalidURL, err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")
	applyHeaders(req, headers)

	log.Debug("fetch dispatched", "method", method, "url", u.Redacted())

	raw, err := f.client.Do(req)
	if err != nil {
		log.Debug("fetch failed", "method", method, "url", u.Redacted(), "error", err)
		return nil, newError(KindTransport, err)
	}

	resp := newResponse(raw, method, rawURL, start, f.now())
	log.Debug("fetch completed",
		"method", method,
		"url", u.Redacted(),
		"status", raw.StatusCode,
		"elapsed_ms", resp.Elapsed().Milliseconds())
	return resp, nil
}

// parseRequestURL requires an absolute url with a host.
func parseRequestURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute url", ErrInvalidURL, raw)
	}
	return u, nil
}

// applyHeaders copies resolved headers onto req after the fixed ones. The
// first occurrence of a name replaces any fixed value; later ones append.
func applyHeaders(req *http.Request, h *Headers) {
	seen := make(map[string]bool, h.Len())
	for _, field := range h.All() {
		key := http.CanonicalHeaderKey(field.Name)
		if key == "Host" {
			req.Host = field.Value
			continue
		}
		if !seen[key] {
			req.Header.Del(key)
			seen[key] = true
		}
		req.Header.Add(key, field.Value)
	}
}
