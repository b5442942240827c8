package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"iter"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/x509roots/fallback/bundle"
)

func mustCreateCAPEM(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func mustBaseline(t *testing.T) *x509.CertPool {
	t.Helper()
	pool, err := BuildTrustStore("", "")
	if err != nil {
		t.Fatalf("BuildTrustStore() error = %v", err)
	}
	return pool
}

func TestBuildTrustStore_EmbeddedOnly(t *testing.T) {
	pool := mustBaseline(t)
	if pool.Equal(x509.NewCertPool()) {
		t.Fatal("expected embedded anchors in pool")
	}
}

func TestBuildTrustStore_EmbeddedLoadFailure(t *testing.T) {
	orig := embeddedRoots
	t.Cleanup(func() { embeddedRoots = orig })

	embeddedRoots = func() iter.Seq[bundle.Root] {
		return func(yield func(bundle.Root) bool) {
			yield(bundle.Root{Certificate: []byte("not DER")})
		}
	}
	if _, err := BuildTrustStore("", ""); err == nil {
		t.Fatal("expected error when an embedded anchor fails to parse")
	}

	embeddedRoots = func() iter.Seq[bundle.Root] {
		return func(yield func(bundle.Root) bool) {}
	}
	if _, err := BuildTrustStore("", ""); !errors.Is(err, ErrEmptyTrustStore) {
		t.Fatalf("expected ErrEmptyTrustStore, got %v", err)
	}
}

func TestBuildTrustStore_FileAddsAnchor(t *testing.T) {
	tmp := t.TempDir()
	caFile := filepath.Join(tmp, "ca.pem")
	if err := os.WriteFile(caFile, mustCreateCAPEM(t), 0644); err != nil {
		t.Fatal(err)
	}

	pool, err := BuildTrustStore(caFile, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.Equal(mustBaseline(t)) {
		t.Error("expected extra CA file to change the pool")
	}
}

func TestBuildTrustStore_DirAddsAnchor(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "ca.crt"), mustCreateCAPEM(t), 0644); err != nil {
		t.Fatal(err)
	}

	pool, err := BuildTrustStore("", tmp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.Equal(mustBaseline(t)) {
		t.Error("expected extra CA dir to change the pool")
	}
}

func TestBuildTrustStore_InvalidFile(t *testing.T) {
	if _, err := BuildTrustStore("/nonexistent/path/ca.pem", ""); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestBuildTrustStore_InvalidPEM(t *testing.T) {
	tmp := t.TempDir()
	caFile := filepath.Join(tmp, "bad.pem")
	if err := os.WriteFile(caFile, []byte("not valid PEM"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := BuildTrustStore(caFile, ""); err == nil {
		t.Fatal("expected error for file with no valid PEM certificates")
	}
}

func TestBuildTrustStore_DirWithNonPEMFiles(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "readme.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatal(err)
	}
	pool, err := BuildTrustStore("", tmp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pool.Equal(mustBaseline(t)) {
		t.Error("non-PEM files must be ignored")
	}
}
