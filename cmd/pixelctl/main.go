package main

import (
	"os"

	"github.com/jmylchreest/pixeld/cmd/pixelctl/commands"
	"github.com/jmylchreest/pixeld/internal/config"
	"github.com/jmylchreest/pixeld/internal/logging"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load(config.ClientConfigFilename, os.Getenv("PIXELCTL_CONFIG"))
	if err != nil {
		logging.SetupErrorLogger().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	logging.SetAsDefaultLogger(logger)

	rootCmd := commands.NewRootCommand(logger, version, commit, buildDate, cfg.Server.UnixSocket)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
