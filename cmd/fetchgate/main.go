// Package main is the entrypoint for the fetchgate script runner.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MahdiBaghbani/fetchgate-go/internal/fetch"
	"github.com/MahdiBaghbani/fetchgate-go/internal/platform/config"
	"github.com/MahdiBaghbani/fetchgate-go/internal/platform/http/client"
	"github.com/MahdiBaghbani/fetchgate-go/internal/platform/http/tls"
	"github.com/MahdiBaghbani/fetchgate-go/internal/platform/logutil"
	"github.com/MahdiBaghbani/fetchgate-go/internal/platform/version"
	"github.com/MahdiBaghbani/fetchgate-go/internal/scripting/luahost"
	"github.com/MahdiBaghbani/fetchgate-go/internal/security"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	netAllow := flag.String("net-allow", "", "Allowed URI patterns, comma or space separated; an empty value allows nothing (overrides config and env)")
	netDeny := flag.String("net-deny", "", "Denied URI patterns, comma or space separated (overrides config and env)")
	ssrfMode := flag.String("ssrf-mode", "", "SSRF protection mode: strict or off (overrides config)")
	rootCAFile := flag.String("root-ca-file", "", "Extra PEM trust anchors file (overrides config)")
	rootCADir := flag.String("root-ca-dir", "", "Directory of extra PEM trust anchors (overrides config)")
	loggingLevel := flag.String("logging-level", "", "Log level: trace, debug, info, warn, error (overrides config)")
	inline := flag.String("e", "", "Run the given Lua chunk instead of a script file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] script.lua\n       %s [flags] -e 'chunk'\n", version.Name, version.Name)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.UserAgent())
		return
	}

	if *inline == "" && flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Only flags present on the command line override; -net-allow "" is an
	// empty allow list.
	given := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { given[f.Name] = true })
	ifGiven := func(name string, v *string) *string {
		if given[name] {
			return v
		}
		return nil
	}

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		FlagOverrides: config.FlagOverrides{
			NetAllow:     ifGiven("net-allow", netAllow),
			NetDeny:      ifGiven("net-deny", netDeny),
			SSRFMode:     ifGiven("ssrf-mode", ssrfMode),
			RootCAFile:   ifGiven("root-ca-file", rootCAFile),
			RootCADir:    ifGiven("root-ca-dir", rootCADir),
			LoggingLevel: ifGiven("logging-level", loggingLevel),
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Scripts own stdout through print, so logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logutil.ParseLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	logger.Debug("effective configuration", "config", cfg.Redacted())

	roots, err := tls.BuildTrustStore(cfg.TLS.RootCAFile, cfg.TLS.RootCADir)
	if err != nil {
		logger.Error("failed to build trust store", "error", err)
		os.Exit(1)
	}

	httpClient := client.NewShared(roots, client.Options{SSRFMode: cfg.Net.SSRFMode}, logger)

	policy := security.NewPolicy(policySource(cfg.Net.Allow), policySource(cfg.Net.Deny))
	fetcher, err := fetch.New(httpClient, policy, logger)
	if err != nil {
		logger.Error("invalid network access policy", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *inline != "" {
		err = luahost.Run(ctx, fetcher, "(command line)", *inline)
	} else {
		err = luahost.RunFile(ctx, fetcher, flag.Arg(0))
	}
	if err != nil {
		logger.Error("script failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func policySource(l config.ListSetting) security.Source {
	return security.Source{Name: l.Source, Value: l.Value, Entries: l.Entries, Set: l.Set}
}
