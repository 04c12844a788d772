package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pixeld/internal/logging"
	"github.com/jmylchreest/pixeld/pkg/client"
)

// NewRootCommand creates the root command. socket is the default control
// socket, used unless --socket or --url is given.
func NewRootCommand(logger *slog.Logger, version, commit, buildDate, socket string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pixelctl",
		Short:         "Control LED areas driven by pixeld",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
				if !logging.IsValidLogLevel(lvl) {
					return fmt.Errorf("invalid log level %q", lvl)
				}
				logging.SetLevel(lvl)
			}
			if _, err := clientFrom(cmd); err == nil {
				return nil
			}
			c := newClient(cmd, logger, socket)
			cmd.SetContext(context.WithValue(cmd.Context(), ClientContextKey, c))
			return nil
		},
	}

	cmd.PersistentFlags().String("socket", "", "Path to pixeld socket")
	cmd.PersistentFlags().String("url", "", "Base URL of the pixeld HTTP API, used instead of the socket")
	cmd.PersistentFlags().String("api-key", "", "API key for the HTTP API")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newVersionCommand(version, commit, buildDate))
	cmd.AddCommand(NewAreaCommand(logger))
	cmd.AddCommand(NewEffectCommand())
	cmd.AddCommand(NewStripCommand())
	cmd.AddCommand(NewDumpCommand())
	cmd.AddCommand(NewLogLevelCommand())

	if logger != nil {
		cmd.SetContext(context.WithValue(context.Background(), loggerContextKey{}, logger))
	}

	return cmd
}

// newClient picks the HTTP client when --url is set and the socket client otherwise.
func newClient(cmd *cobra.Command, logger *slog.Logger, socket string) client.ClientInterface {
	if logger == nil {
		logger = slog.Default()
	}
	flags := cmd.Flags()
	if url, _ := flags.GetString("url"); url != "" {
		apiKey, _ := flags.GetString("api-key")
		logger.Debug("Using HTTP API", "url", url)
		return client.NewHTTP(logger, url, apiKey)
	}
	if s, _ := flags.GetString("socket"); s != "" {
		socket = s
	}
	return client.New(logger, socket)
}

// newVersionCommand creates the version command
func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Client:\n")
			fmt.Printf("  Version:    %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)

			c, err := clientFrom(cmd)
			if err != nil {
				return
			}
			v, err := c.GetVersion()
			if err != nil {
				getLoggerFromCmd(cmd).Debug("Daemon version query failed", "error", err)
				fmt.Printf("\nDaemon: not reachable\n")
				return
			}
			fmt.Printf("\nDaemon:\n")
			fmt.Printf("  Version:    %s\n", v.Version)
			fmt.Printf("  Commit:     %s\n", v.Commit)
			fmt.Printf("  Build Date: %s\n", v.BuildDate)
		},
	}
}
