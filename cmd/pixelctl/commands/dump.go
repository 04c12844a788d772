package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// dumper is implemented by clients that can fetch the diagnostic dump.
type dumper interface {
	Dump() (string, error)
}

// NewDumpCommand creates the dump command
func NewDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the daemon's strip and area mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFrom(cmd)
			if err != nil {
				return err
			}
			d, ok := c.(dumper)
			if !ok {
				return fmt.Errorf("dump needs the control socket; drop --url")
			}
			out, err := d.Dump()
			if err != nil {
				return fmt.Errorf("failed to dump: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}
