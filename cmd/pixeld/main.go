package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/pixeld/internal/config"
	"github.com/jmylchreest/pixeld/internal/logging"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	fs := newFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	// Flags are bound to their own viper so only values given on the
	// command line override the file.
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	bindFlags(v, fs)

	cfg, err := config.Load(config.DaemonConfigFilename, v.GetString("config"))
	if err != nil {
		logging.SetupErrorLogger().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	applyFlags(cfg, v, fs)

	logger := logging.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	logging.SetAsDefaultLogger(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err, "path", cfg.Path())
		os.Exit(1)
	}

	logger.Info("Starting pixeld",
		"version", version,
		"commit", commit,
		"buildDate", buildDate,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("pixeld exited with error", "error", err)
		os.Exit(1)
	}
}

// newFlagSet declares the daemon flags.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("pixeld", pflag.ContinueOnError)
	fs.String("config", "", "Path to config file")
	fs.String("log-level", config.LogLevelInfo, "Log level (debug, info, warn, error)")
	fs.String("log-format", config.LogFormatText, "Log format (text, json, journal)")
	fs.String("socket", "", "Path to the control socket")
	fs.String("listen", "", "HTTP API listen address, empty to disable")
	fs.String("backend", "", "Transmit backend (gpio, simulate, null)")
	fs.Int("tick-rate", 0, "Effect tick rate in Hz")
	fs.String("nats-url", "", "NATS server URL, empty to disable the bridge")
	fs.Bool("mdns", true, "Advertise the HTTP API over mDNS")
	return fs
}

// flagKeys maps flags to configuration keys.
var flagKeys = map[string]string{
	"config":     "config",
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"socket":     "server.unix_socket",
	"listen":     "api.listen_address",
	"backend":    "transmit.backend",
	"tick-rate":  "engine.tick_rate",
	"nats-url":   "nats.url",
	"mdns":       "mdns.enabled",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	for flag, key := range flagKeys {
		_ = v.BindPFlag(key, fs.Lookup(flag))
	}
}

// applyFlags copies flags the user set over the loaded configuration.
func applyFlags(cfg *config.Config, v *viper.Viper, fs *pflag.FlagSet) {
	changed := func(flag string) bool { return fs.Changed(flag) }

	if changed("log-level") {
		cfg.Logging.Level = v.GetString("logging.level")
	}
	if changed("log-format") {
		cfg.Logging.Format = v.GetString("logging.format")
	}
	if changed("socket") {
		cfg.Server.UnixSocket = v.GetString("server.unix_socket")
	}
	if changed("listen") {
		cfg.API.ListenAddress = v.GetString("api.listen_address")
	}
	if changed("backend") {
		cfg.Transmit.Backend = v.GetString("transmit.backend")
	}
	if changed("tick-rate") {
		cfg.Engine.TickRate = v.GetInt("engine.tick_rate")
	}
	if changed("nats-url") {
		cfg.NATS.URL = v.GetString("nats.url")
	}
	if changed("mdns") {
		cfg.MDNS.Enabled = v.GetBool("mdns.enabled")
	}
}
