package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogLevelCommand creates the log-level command
func NewLogLevelCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "log-level [debug|info|warn|error]",
		Short:     "Show or change the daemon's log level",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"debug", "info", "warn", "error"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFrom(cmd)
			if err != nil {
				return err
			}
			var level string
			if len(args) == 0 {
				level, err = c.GetLogLevel()
			} else {
				level, err = c.SetLogLevel(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to access log level: %w", err)
			}
			fmt.Println(level)
			return nil
		},
	}
}
