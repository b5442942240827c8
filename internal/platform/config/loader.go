package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/MahdiBaghbani/fetchgate-go/internal/platform/logutil"
)

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but file is missing or invalid, loading fails.
	ConfigPath string

	// FlagOverrides are CLI flag values that override every other source.
	FlagOverrides FlagOverrides

	// LookupEnv reads the environment; nil uses os.LookupEnv.
	LookupEnv func(key string) (string, bool)

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values. Nil means "not given". For the list
// flags an empty value is an empty list; for the others it is ignored.
type FlagOverrides struct {
	NetAllow     *string
	NetDeny      *string
	SSRFMode     *string
	RootCAFile   *string
	RootCADir    *string
	LoggingLevel *string
}

// fileConfig mirrors Config but with pointer fields to detect presence.
type fileConfig struct {
	Net     *netFileConfig `toml:"net"`
	TLS     *TLSConfig     `toml:"tls"`
	Logging *LoggingConfig `toml:"logging"`
}

type netFileConfig struct {
	Allow    *[]string `toml:"allow"`
	Deny     *[]string `toml:"deny"`
	SSRFMode string    `toml:"ssrf_mode"`
}

// Load loads configuration with the following precedence:
//  1. Built-in defaults
//  2. TOML config file values
//  3. Environment (FETCHGATE_NET_ALLOW, FETCHGATE_NET_DENY, FETCHGATE_LOG_LEVEL)
//  4. CLI flags
//  5. Validate enum fields
//
// A config path that is missing, unreadable or invalid TOML fails the load.
// Unknown TOML keys produce a warning only. Pattern lists are not parsed
// here; the access policy parses them and reports errors per source.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := DefaultConfig()

	if opts.ConfigPath != "" {
		var fc fileConfig
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}
		overlayFileConfig(cfg, &fc, opts.ConfigPath)
	}

	overlayEnv(cfg, lookup)
	overlayFlags(cfg, opts.FlagOverrides)

	if err := validateEnums(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayFileConfig applies TOML file values onto cfg.
func overlayFileConfig(cfg *Config, fc *fileConfig, path string) {
	if fc.Net != nil {
		if fc.Net.Allow != nil {
			cfg.Net.Allow = ListSetting{
				Entries: append([]string{}, *fc.Net.Allow...),
				Set:     true,
				Source:  fmt.Sprintf("net.allow (%s)", path),
			}
		}
		if fc.Net.Deny != nil {
			cfg.Net.Deny = ListSetting{
				Entries: append([]string{}, *fc.Net.Deny...),
				Set:     true,
				Source:  fmt.Sprintf("net.deny (%s)", path),
			}
		}
		if fc.Net.SSRFMode != "" {
			cfg.Net.SSRFMode = fc.Net.SSRFMode
		}
	}

	if fc.TLS != nil {
		if fc.TLS.RootCAFile != "" {
			cfg.TLS.RootCAFile = fc.TLS.RootCAFile
		}
		if fc.TLS.RootCADir != "" {
			cfg.TLS.RootCADir = fc.TLS.RootCADir
		}
	}

	if fc.Logging != nil && fc.Logging.Level != "" {
		cfg.Logging.Level = fc.Logging.Level
	}
}

// overlayEnv applies environment values. A variable that is set but empty
// still counts as present: an empty allow list permits nothing.
func overlayEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvNetAllow); ok {
		cfg.Net.Allow = ListSetting{Value: v, Set: true, Source: EnvNetAllow}
	}
	if v, ok := lookup(EnvNetDeny); ok {
		cfg.Net.Deny = ListSetting{Value: v, Set: true, Source: EnvNetDeny}
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Logging.Level = v
	}
}

// overlayFlags applies CLI flag values onto cfg. A non-nil list flag counts
// as given even when empty, matching a set-but-empty environment variable.
func overlayFlags(cfg *Config, f FlagOverrides) {
	if f.NetAllow != nil {
		cfg.Net.Allow = ListSetting{Value: *f.NetAllow, Set: true, Source: "-net-allow"}
	}
	if f.NetDeny != nil {
		cfg.Net.Deny = ListSetting{Value: *f.NetDeny, Set: true, Source: "-net-deny"}
	}
	if f.SSRFMode != nil && *f.SSRFMode != "" {
		cfg.Net.SSRFMode = *f.SSRFMode
	}
	if f.RootCAFile != nil && *f.RootCAFile != "" {
		cfg.TLS.RootCAFile = *f.RootCAFile
	}
	if f.RootCADir != nil && *f.RootCADir != "" {
		cfg.TLS.RootCADir = *f.RootCADir
	}
	if f.LoggingLevel != nil && *f.LoggingLevel != "" {
		cfg.Logging.Level = *f.LoggingLevel
	}
}

// validateEnums validates enum-like config fields and returns an error for invalid values.
func validateEnums(cfg *Config) error {
	switch cfg.Net.SSRFMode {
	case "strict", "off":
		// valid
	default:
		return fmt.Errorf("invalid net.ssrf_mode %q: must be one of strict, off", cfg.Net.SSRFMode)
	}

	if !logutil.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("invalid logging.level %q: must be one of trace, debug, info, warn, error", cfg.Logging.Level)
	}
	return nil
}
