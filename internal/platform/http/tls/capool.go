// Package tls builds the trust store used by the outbound fetch client.
package tls

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/x509roots/fallback/bundle"
)

// ErrEmptyTrustStore is returned when the embedded bundle yields no anchors.
var ErrEmptyTrustStore = errors.New("embedded trust store is empty")

// embeddedRoots is swapped in tests.
var embeddedRoots = bundle.Roots

// BuildTrustStore builds the root CA pool from the NSS trust anchors compiled
// into the binary. The operating system store is never consulted.
// caFile and caDir optionally add PEM certificates on top of the bundle.
func BuildTrustStore(caFile, caDir string) (*x509.CertPool, error) {
	pool, err := embeddedPool()
	if err != nil {
		return nil, err
	}

	if caFile != "" {
		data, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("tls_root_ca_file: read failed: %w", err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("tls_root_ca_file: no valid PEM certificates found")
		}
	}

	if caDir != "" {
		if err := appendDir(pool, caDir); err != nil {
			return nil, err
		}
	}

	return pool, nil
}

// embeddedPool loads every bundled anchor. Anchors carrying constraints that
// X.509 cannot express (distrust-after dates) keep them in the pool.
func embeddedPool() (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	n := 0
	for root := range embeddedRoots() {
		cert, err := x509.ParseCertificate(root.Certificate)
		if err != nil {
			return nil, fmt.Errorf("parse embedded trust anchor %d: %w", n, err)
		}
		if root.Constraint != nil {
			pool.AddCertWithConstraint(cert, root.Constraint)
		} else {
			pool.AddCert(cert)
		}
		n++
	}
	if n == 0 {
		return nil, ErrEmptyTrustStore
	}
	return pool, nil
}

// appendDir adds every *.pem / *.crt regular file in dir to pool.
func appendDir(pool *x509.CertPool, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("tls_root_ca_dir: read failed: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || e.Type()&os.ModeSymlink != 0 {
			continue
		}
		base := strings.ToLower(e.Name())
		if !strings.HasSuffix(base, ".pem") && !strings.HasSuffix(base, ".crt") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		fi, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("tls_root_ca_dir: stat %q failed: %w", path, err)
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("tls_root_ca_dir: read %q failed: %w", path, err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return fmt.Errorf("tls_root_ca_dir: %q: no valid PEM certificates found", path)
		}
	}
	return nil
}
