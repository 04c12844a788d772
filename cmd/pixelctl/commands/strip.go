package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// NewStripCommand creates the strip command
func NewStripCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strip",
		Short: "Inspect the physical strip layout",
	}
	cmd.AddCommand(newStripListCommand())
	return cmd
}

func newStripListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List strips in wiring order",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFrom(cmd)
			if err != nil {
				return err
			}
			layout, err := c.ListStrips()
			if err != nil {
				return fmt.Errorf("failed to get strips: %w", err)
			}

			if parseable {
				for _, s := range layout.Strips {
					fmt.Println(StripParseable(s))
				}
				return nil
			}
			pterm.DefaultTable.WithHasHeader().WithData(StripsTableData(layout)).Render()
			pterm.Info.Printf("%d pixels total\n", layout.Pixels)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}
