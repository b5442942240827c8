// Package client builds the shared outbound HTTP client used by fetch.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/MahdiBaghbani/fetchgate-go/internal/platform/logutil"
)

var (
	ErrSSRFBlocked      = errors.New("request blocked by SSRF protection")
	ErrHostUnresolvable = errors.New("host could not be resolved")
)

// MaxIdleConnsPerHost is the per-host idle pool size.
const MaxIdleConnsPerHost = 64

// SSRF modes.
const (
	SSRFOff    = "off"
	SSRFStrict = "strict"
)

// Resolver abstracts DNS resolution for testing.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Options tunes the shared client.
type Options struct {
	// SSRFMode is "off" (default) or "strict". Strict refuses to dial
	// loopback, private, link-local, unspecified and multicast addresses.
	SSRFMode string

	// Resolver is used by the strict SSRF check; nil uses net.DefaultResolver.
	Resolver Resolver
}

// NewShared builds the single long-lived client every fetch call reuses.
//
// The transport speaks HTTP/1.1 only, negotiates TLS when the URL scheme is
// https, trusts only roots, presents no client certificate and never closes
// pooled connections for being idle. Redirects are returned to the caller,
// proxy environment variables are ignored and no timeout is applied.
func NewShared(roots *x509.CertPool, opts Options, logger *slog.Logger) *http.Client {
	logger = logutil.NoopIfNil(logger)

	guard := &dialGuard{resolver: opts.Resolver}
	strict := opts.SSRFMode == SSRFStrict
	dialer := &net.Dialer{}

	transport := &http.Transport{
		Proxy: nil,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if strict {
				if err := guard.check(ctx, addr); err != nil {
					logger.Warn("outbound dial blocked", "addr", addr, "error", err)
					return nil, err
				}
			}
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig: &tls.Config{
			RootCAs:    roots,
			MinVersion: tls.VersionTLS12,
			NextProtos: []string{"http/1.1"},
		},
		// A non-nil empty map keeps the transport from upgrading to HTTP/2.
		TLSNextProto:      map[string]func(string, *tls.Conn) http.RoundTripper{},
		ForceAttemptHTTP2:   false,
		IdleConnTimeout:     0,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
	}

	logger.Debug("shared outbound client created", "ssrf_mode", ssrfModeOrOff(opts.SSRFMode))

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func ssrfModeOrOff(mode string) string {
	if mode == "" {
		return SSRFOff
	}
	return mode
}

type dialGuard struct {
	resolver Resolver
}

func (g *dialGuard) getResolver() Resolver {
	if g.resolver != nil {
		return g.resolver
	}
	return net.DefaultResolver
}

// check validates the host:port the transport is about to dial.
func (g *dialGuard) check(ctx context.Context, addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}

	lowerHost := strings.ToLower(host)
	if lowerHost == "localhost" || lowerHost == "localhost.localdomain" {
		return fmt.Errorf("%w: localhost is blocked", ErrSSRFBlocked)
	}

	if ip := net.ParseIP(host); ip != nil {
		if !isPublicIP(ip) {
			return fmt.Errorf("%w: IP %s is blocked", ErrSSRFBlocked, ip)
		}
		return nil
	}

	ipAddrs, err := g.getResolver().LookupIPAddr(ctx, host)
	if err != nil {
		// fail closed
		return fmt.Errorf("%w: %s: %v", ErrHostUnresolvable, host, err)
	}
	for _, ipAddr := range ipAddrs {
		if !isPublicIP(ipAddr.IP) {
			return fmt.Errorf("%w: %s resolves to blocked IP %s", ErrSSRFBlocked, host, ipAddr.IP)
		}
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() ||
		ip.IsMulticast())
}

// IsSSRFError returns true if the error is an SSRF blocking error.
func IsSSRFError(err error) bool {
	return errors.Is(err, ErrSSRFBlocked) || errors.Is(err, ErrHostUnresolvable)
}
