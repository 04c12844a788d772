package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/pixeld/pkg/client"
)

// NewEffectCommand creates the effect command
func NewEffectCommand() *cobra.Command {
	var eff client.Effect
	cmd := &cobra.Command{
		Use:   "effect <area> <rainbow|wave|cylon|none>",
		Short: "Run a continuous effect on an area",
		Example: `  pixelctl effect main rainbow --rate 5 --width 60
  pixelctl effect main wave --shape sine --duration 30
  pixelctl effect main none`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFrom(cmd)
			if err != nil {
				return err
			}
			eff.Name = args[1]
			state, err := c.SetEffect(args[0], eff)
			if err != nil {
				return fmt.Errorf("failed to set effect: %w", err)
			}
			pterm.Success.Printf("Area %s: %s\n", args[0], StateSummary(state))
			return nil
		},
	}
	cmd.Flags().Float64Var(&eff.Rate, "rate", 0, "Seconds per cycle (rainbow, cylon) or cycles per second (wave)")
	cmd.Flags().Float64Var(&eff.Width, "width", 0, "Pixels per cycle (rainbow, wave) or band width (cylon)")
	cmd.Flags().Float64Var(&eff.Duration, "duration", 0, "Seconds to run for, 0 to run until replaced")
	cmd.Flags().StringVar(&eff.Shape, "shape", "", "Wave shape (triangle or sine)")
	return cmd
}
