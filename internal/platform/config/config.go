// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
)

// Environment variables read by Load.
const (
	EnvNetAllow = "FETCHGATE_NET_ALLOW"
	EnvNetDeny  = "FETCHGATE_NET_DENY"
	EnvLogLevel = "FETCHGATE_LOG_LEVEL"
)

// Config holds the runtime configuration.
type Config struct {
	// Net holds the outbound access policy.
	Net NetConfig `toml:"net"`

	// TLS holds trust store settings for outbound connections.
	TLS TLSConfig `toml:"tls"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging"`
}

// NetConfig holds the outbound network policy.
type NetConfig struct {
	// Allow lists URI patterns that may be contacted. Absent means no constraint.
	Allow ListSetting

	// Deny lists URI patterns that must never be contacted. Deny wins over Allow.
	Deny ListSetting

	// SSRFMode controls the dial-time private address guard: strict or off.
	// Default: off.
	SSRFMode string `toml:"ssrf_mode"`
}

// ListSetting is a delimited URI pattern list together with where it came from.
type ListSetting struct {
	// Value is the raw list, whitespace or comma separated.
	Value string

	// Entries holds one pattern per element when the source is already a
	// list (a TOML array). It replaces Value and is never split.
	Entries []string

	// Set is false when no source provided the list.
	Set bool

	// Source names the origin, e.g. "FETCHGATE_NET_ALLOW" or "-net-allow".
	Source string
}

// TLSConfig holds trust store settings.
type TLSConfig struct {
	// RootCAFile is an optional PEM bundle added to the embedded trust anchors.
	RootCAFile string `toml:"root_ca_file"`

	// RootCADir is an optional directory of *.pem / *.crt files added to the
	// embedded trust anchors.
	RootCADir string `toml:"root_ca_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info.
	Level string `toml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Net: NetConfig{
			Allow:    ListSetting{Source: EnvNetAllow},
			Deny:     ListSetting{Source: EnvNetDeny},
			SSRFMode: "off",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Redacted returns a string representation of the config. Pattern lists are
// reduced to their entry count since they may embed credentials in queries.
func (c *Config) Redacted() string {
	var sb strings.Builder
	sb.WriteString("Config{\n")
	sb.WriteString("  Net: {\n")
	sb.WriteString(fmt.Sprintf("    Allow: %s,\n", c.Net.Allow.describe()))
	sb.WriteString(fmt.Sprintf("    Deny: %s,\n", c.Net.Deny.describe()))
	sb.WriteString(fmt.Sprintf("    SSRFMode: %q,\n", c.Net.SSRFMode))
	sb.WriteString("  },\n")
	sb.WriteString("  TLS: {\n")
	sb.WriteString(fmt.Sprintf("    RootCAFile: %q,\n", c.TLS.RootCAFile))
	sb.WriteString(fmt.Sprintf("    RootCADir: %q,\n", c.TLS.RootCADir))
	sb.WriteString("  },\n")
	sb.WriteString("  Logging: {\n")
	sb.WriteString(fmt.Sprintf("    Level: %q,\n", c.Logging.Level))
	sb.WriteString("  },\n")
	sb.WriteString("}")
	return sb.String()
}

func (l ListSetting) describe() string {
	if !l.Set {
		return "unset"
	}
	n := len(l.Entries)
	if l.Entries == nil {
		n = len(strings.FieldsFunc(l.Value, isListSep))
	}
	return fmt.Sprintf("%d entries from %s", n, l.Source)
}

func isListSep(r rune) bool {
	return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
