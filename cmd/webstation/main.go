package main

import (
	"context"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/webstation/webstation"
	"github.com/webstation/webstation/core/config"
	"github.com/webstation/webstation/core/ping"
	"github.com/webstation/webstation/pkg/logging"
)

func main() {
	// Logging flags are needed before the subcommand parses its own.
	logging.InitLogger(
		globalFlag(os.Args[1:], "log-level", "info"),
		globalFlag(os.Args[1:], "log-format", "console"),
		nil,
	)

	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		runCmd := newFlagSet("run")
		configFile := runCmd.String("config", "", "Path to a YAML or TOML config file.")
		parse(runCmd, args)
		runDevice(*configFile)

	case "config":
		configCmd := newFlagSet("config")
		configFile := configCmd.String("config", "", "Path to a YAML or TOML config file.")
		parse(configCmd, args)
		printConfig(*configFile)

	case "ping":
		pingCmd := newFlagSet("ping")
		count := pingCmd.Int("count", 5, "Number of echo requests")
		interval := pingCmd.Duration("interval", time.Second, "Interval between requests")
		parse(pingCmd, args)
		if pingCmd.NArg() != 1 {
			logging.GetLogger().Error("usage: webstation ping [-count n] [-interval d] <ipv4>")
			os.Exit(1)
		}
		runPing(pingCmd.Arg(0), *count, *interval)

	default:
		logging.GetLogger().Error("expected 'run', 'config' or 'ping' subcommands", "command", cmd)
		os.Exit(1)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ExitOnError)
	// Add logging flags to help text, but they are handled globally.
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "console", "Log format (console, json)")
	return f
}

func parse(f *flag.FlagSet, args []string) {
	if err := f.Parse(args); err != nil {
		logging.GetLogger().Error("Failed to parse flags", "command", f.Name(), "error", err)
		os.Exit(1)
	}
}

func runDevice(configFile string) {
	logger := logging.GetLogger()

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	dev, err := webstation.NewDevice(cfg, logger)
	if err != nil {
		logger.Error("Failed to create device", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dev.Start(ctx); err != nil {
		logger.Error("Device failed to start", "error", err)
		_ = dev.Stop()
		os.Exit(1)
	}
	status, _ := dev.Status()
	logger.Info("Device started. Press Ctrl+C to exit.", "status", status)

	<-ctx.Done()

	logger.Info("Received shutdown signal, stopping device...")
	if err := dev.Stop(); err != nil {
		logger.Error("Error stopping device", "error", err)
	}
	logger.Info("Device stopped.")
}

func printConfig(configFile string) {
	cfg, err := config.Load(configFile)
	if err != nil {
		logging.GetLogger().Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.WiFi.Password != "" {
		cfg.WiFi.Password = "********"
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		logging.GetLogger().Error("Failed to encode configuration", "error", err)
		os.Exit(1)
	}
	_ = enc.Close()
}

func runPing(target string, count int, interval time.Duration) {
	logger := logging.GetLogger()
	addr, err := netip.ParseAddr(target)
	if err != nil {
		logger.Error("Invalid address", "address", target, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := ping.DefaultConfig()
	cfg.Count = count
	cfg.Interval = interval
	summary, err := ping.New(cfg, nil, logger).Ping(ctx, addr)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	fmt.Fprintln(w, "TARGET\tSENT\tRECEIVED\tLOSS\tELAPSED")
	fmt.Fprintf(w, "%s\t%d\t%d\t%.0f%%\t%s\n", addr, summary.Transmitted, summary.Received, summary.Loss()*100, summary.Elapsed.Round(time.Millisecond))
	w.Flush()

	if err != nil {
		logger.Error("Ping failed", "error", err)
		os.Exit(1)
	}
}

// globalFlag finds -name value or -name=value anywhere in args.
func globalFlag(args []string, name, def string) string {
	for i, a := range args {
		a = strings.TrimPrefix(strings.TrimPrefix(a, "-"), "-")
		if v, ok := strings.CutPrefix(a, name+"="); ok {
			return v
		}
		if a == name && i+1 < len(args) {
			return args[i+1]
		}
	}
	return def
}
