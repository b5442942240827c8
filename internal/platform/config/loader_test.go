package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MahdiBaghbani/fetchgate-go/internal/security"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func strPtr(s string) *string { return &s }

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoaderOptions{LookupEnv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Net.Allow.Set || cfg.Net.Deny.Set {
		t.Error("expected allow and deny lists to be absent by default")
	}
	if cfg.Net.SSRFMode != "off" {
		t.Errorf("expected ssrf mode off, got %s", cfg.Net.SSRFMode)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level info, got %s", cfg.Logging.Level)
	}
}

func TestLoad_Environment(t *testing.T) {
	cfg, err := Load(LoaderOptions{LookupEnv: envMap(map[string]string{
		EnvNetAllow: "https://a.example https://b.example",
		EnvNetDeny:  "",
		EnvLogLevel: "debug",
	})})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Net.Allow.Set || cfg.Net.Allow.Value != "https://a.example https://b.example" {
		t.Errorf("unexpected allow setting: %+v", cfg.Net.Allow)
	}
	if cfg.Net.Allow.Source != EnvNetAllow {
		t.Errorf("expected source %s, got %s", EnvNetAllow, cfg.Net.Allow.Source)
	}
	if !cfg.Net.Deny.Set {
		t.Error("an empty but set variable must still count as present")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug, got %s", cfg.Logging.Level)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
[net]
allow = ["https://api.example", "https://*.cdn.example"]
ssrf_mode = "strict"

[tls]
root_ca_file = "/etc/fetchgate/ca.pem"

[logging]
level = "warn"
`)

	cfg, err := Load(LoaderOptions{ConfigPath: path, LookupEnv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := strings.Join(cfg.Net.Allow.Entries, "|"); got != "https://api.example|https://*.cdn.example" {
		t.Errorf("unexpected allow entries %q", got)
	}
	if !strings.HasPrefix(cfg.Net.Allow.Source, "net.allow") {
		t.Errorf("expected file source name, got %q", cfg.Net.Allow.Source)
	}
	if cfg.Net.Deny.Set {
		t.Error("deny must stay absent")
	}
	if cfg.Net.SSRFMode != "strict" {
		t.Errorf("expected strict, got %s", cfg.Net.SSRFMode)
	}
	if cfg.TLS.RootCAFile != "/etc/fetchgate/ca.pem" {
		t.Errorf("unexpected root_ca_file %q", cfg.TLS.RootCAFile)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected warn, got %s", cfg.Logging.Level)
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
[net]
deny = ["https://file.example"]
`)

	// env beats file
	cfg, err := Load(LoaderOptions{
		ConfigPath: path,
		LookupEnv:  envMap(map[string]string{EnvNetDeny: "https://env.example"}),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Net.Deny.Value != "https://env.example" || cfg.Net.Deny.Source != EnvNetDeny {
		t.Errorf("expected env to override file, got %+v", cfg.Net.Deny)
	}

	// flag beats env
	cfg, err = Load(LoaderOptions{
		ConfigPath:    path,
		LookupEnv:     envMap(map[string]string{EnvNetDeny: "https://env.example"}),
		FlagOverrides: FlagOverrides{NetDeny: strPtr("https://flag.example")},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Net.Deny.Value != "https://flag.example" || cfg.Net.Deny.Source != "-net-deny" {
		t.Errorf("expected flag to override env, got %+v", cfg.Net.Deny)
	}
}

func TestLoad_FlagPresence(t *testing.T) {
	env := envMap(map[string]string{EnvNetAllow: "https://env.example", EnvLogLevel: "debug"})

	// absent flags leave env values alone
	cfg, err := Load(LoaderOptions{LookupEnv: env})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Net.Allow.Value != "https://env.example" || cfg.Net.Allow.Source != EnvNetAllow {
		t.Errorf("absent flag must not override, got %+v", cfg.Net.Allow)
	}

	// an empty list flag is an empty list; an empty level flag is ignored
	cfg, err = Load(LoaderOptions{
		LookupEnv:     env,
		FlagOverrides: FlagOverrides{NetAllow: strPtr(""), LoggingLevel: strPtr("")},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Net.Allow.Set || cfg.Net.Allow.Value != "" || cfg.Net.Allow.Source != "-net-allow" {
		t.Errorf("empty -net-allow must yield an empty present list, got %+v", cfg.Net.Allow)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("empty level flag must not override, got %s", cfg.Logging.Level)
	}

	p := security.NewPolicy(policySource(cfg.Net.Allow), security.Source{})
	if err := p.EnsureURLAccess(&url.URL{Scheme: "https", Host: "env.example"}); !errors.Is(err, security.ErrURLNotAllowed) {
		t.Errorf("empty allow list must reject everything, got %v", err)
	}
}

func TestLoad_FileEntriesKeepBoundaries(t *testing.T) {
	path := writeConfig(t, `
[net]
allow = ["api.example.com/v1 evil.test"]
`)
	cfg, err := Load(LoaderOptions{ConfigPath: path, LookupEnv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Net.Allow.Entries) != 1 {
		t.Fatalf("expected one entry, got %q", cfg.Net.Allow.Entries)
	}

	p := security.NewPolicy(policySource(cfg.Net.Allow), security.Source{})
	err = p.Err()
	if err == nil {
		t.Fatal("an entry holding two patterns must fail the policy")
	}
	want := fmt.Sprintf("%q contains an invalid URI", "net.allow ("+path+")")
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error %q must contain %q", err, want)
	}
	if err := p.EnsureURLAccess(&url.URL{Scheme: "https", Host: "evil.test", Path: "/"}); err == nil {
		t.Error("evil.test must not be reachable")
	}
}

func policySource(l ListSetting) security.Source {
	return security.Source{Name: l.Source, Value: l.Value, Entries: l.Entries, Set: l.Set}
}

func TestLoad_InvalidEnums(t *testing.T) {
	tests := []struct {
		name  string
		flags FlagOverrides
		want  string
	}{
		{"ssrf mode", FlagOverrides{SSRFMode: strPtr("paranoid")}, "net.ssrf_mode"},
		{"log level", FlagOverrides{LoggingLevel: strPtr("loud")}, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(LoaderOptions{LookupEnv: envMap(nil), FlagOverrides: tt.flags})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %s", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(LoaderOptions{ConfigPath: "/nonexistent/config.toml", LookupEnv: envMap(nil)})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "[net\nallow = ")
	_, err := Load(LoaderOptions{ConfigPath: path, LookupEnv: envMap(nil)})
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestRedacted_CountsFileEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Net.Deny = ListSetting{Entries: []string{"a.example", "b.example"}, Set: true, Source: "net.deny (x.toml)"}
	if out := cfg.Redacted(); !strings.Contains(out, "2 entries from net.deny (x.toml)") {
		t.Errorf("expected entry count in output: %s", out)
	}
}

func TestRedacted_HidesPatterns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Net.Allow = ListSetting{Value: "https://x.example/?token=secret", Set: true, Source: EnvNetAllow}

	out := cfg.Redacted()
	if strings.Contains(out, "secret") {
		t.Errorf("redacted output leaks pattern contents: %s", out)
	}
	if !strings.Contains(out, "1 entries from FETCHGATE_NET_ALLOW") {
		t.Errorf("expected entry count in output: %s", out)
	}
}
