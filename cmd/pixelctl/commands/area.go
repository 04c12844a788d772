package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/pixeld/pkg/client"
)

// subscriber is implemented by clients that can stream events.
type subscriber interface {
	Subscribe(ctx context.Context, areas []string, fn func(client.Event)) error
}

// colorSetter is implemented by clients that accept named colors.
type colorSetter interface {
	SetColor(ref, name string, on bool) (client.State, error)
}

// NewAreaCommand creates the area command
func NewAreaCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "area",
		Short: "Manage LED areas",
	}

	cmd.AddCommand(
		newAreaListCommand(),
		newAreaGetCommand(),
		newAreaSetCommand(logger),
		newAreaColorCommand(),
		newAreaWatchCommand(),
	)

	return cmd
}

// selectArea returns args[0] or prompts for an area.
func selectArea(c client.ClientInterface, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	areas, err := c.ListAreas()
	if err != nil {
		return "", fmt.Errorf("failed to get areas: %w", err)
	}
	if len(areas) == 0 {
		return "", fmt.Errorf("no areas defined")
	}

	options := make([]string, len(areas))
	for i, a := range areas {
		options[i] = fmt.Sprintf("%d (%s)", a.ID, a.Name)
	}
	selected, err := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		Show("Select an area")
	if err != nil {
		return "", fmt.Errorf("failed to select area: %w", err)
	}
	return strings.Split(selected, " (")[0], nil
}

// newAreaListCommand creates the area list command
func newAreaListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List defined areas",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFrom(cmd)
			if err != nil {
				return err
			}
			areas, err := c.ListAreas()
			if err != nil {
				return fmt.Errorf("failed to get areas: %w", err)
			}

			if len(areas) == 0 {
				if !parseable {
					pterm.Info.Println("No areas defined")
				}
				return nil
			}

			for _, area := range areas {
				if parseable {
					fmt.Println(AreaParseable(area))
					continue
				}
				pterm.DefaultTable.WithData(AreaTableData(area)).Render()
				pterm.Println()
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// areaProperties maps property names accepted by area get to their values.
func areaProperties(a client.Area) map[string]string {
	return map[string]string{
		"id":         strconv.Itoa(a.ID),
		"name":       a.Name,
		"length":     strconv.Itoa(a.Length),
		"state":      a.State.State,
		"brightness": strconv.Itoa(a.State.Brightness),
		"hue":        strconv.FormatFloat(a.State.Color.H, 'g', -1, 64),
		"saturation": strconv.FormatFloat(a.State.Color.S, 'g', -1, 64),
		"effect":     a.State.Effect,
	}
}

// newAreaGetCommand creates the area get command
func newAreaGetCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "get [area] [property]",
		Short: "Get an area's state",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFrom(cmd)
			if err != nil {
				return err
			}
			ref, err := selectArea(c, args)
			if err != nil {
				return err
			}
			area, err := c.GetArea(ref)
			if err != nil {
				return fmt.Errorf("failed to get area: %w", err)
			}

			if len(args) > 1 {
				property := strings.ToLower(args[1])
				value, ok := areaProperties(area)[property]
				if !ok {
					return fmt.Errorf("invalid property: %s", property)
				}
				if parseable {
					fmt.Printf("%s=%s\n", property, value)
				} else {
					fmt.Println(value)
				}
				return nil
			}

			if parseable {
				fmt.Println(AreaParseable(area))
				return nil
			}
			pterm.DefaultTable.WithData(AreaTableData(area)).Render()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// hexToHSV converts a #rrggbb colour to hue in degrees and saturation and
// value in percent.
func hexToHSV(hex string) (h, s, v float64, err error) {
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	h, s, v = c.Hsv()
	return h, s * 100, v * 100, nil
}

// buildCommand turns the set flags into a partial command. Only flags the
// user changed are sent.
func buildCommand(cmd *cobra.Command) (client.Command, error) {
	var out client.Command
	flags := cmd.Flags()

	if flags.Changed("state") {
		state, _ := flags.GetString("state")
		switch strings.ToUpper(state) {
		case "ON", "OFF":
			s := strings.ToUpper(state)
			out.State = &s
		default:
			return out, fmt.Errorf("invalid state %q: must be on or off", state)
		}
	}

	if flags.Changed("hex") {
		hex, _ := flags.GetString("hex")
		h, s, v, err := hexToHSV(hex)
		if err != nil {
			return out, err
		}
		out.Color = &client.CommandColor{H: &h, S: &s}
		if !flags.Changed("brightness") {
			out.Brightness = &v
		}
	}

	if flags.Changed("hue") || flags.Changed("saturation") {
		if out.Color == nil {
			out.Color = &client.CommandColor{}
		}
		if flags.Changed("hue") {
			h, _ := flags.GetFloat64("hue")
			out.Color.H = &h
		}
		if flags.Changed("saturation") {
			s, _ := flags.GetFloat64("saturation")
			out.Color.S = &s
		}
	}

	if flags.Changed("brightness") {
		b, _ := flags.GetFloat64("brightness")
		out.Brightness = &b
	}
	if flags.Changed("transition") {
		t, _ := flags.GetFloat64("transition")
		out.Transition = &t
	}

	if out == (client.Command{}) {
		return out, fmt.Errorf("nothing to set: use --state, --hue, --saturation, --brightness, --hex or --transition")
	}
	return out, nil
}

// newAreaSetCommand creates the area set command
func newAreaSetCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set [area]",
		Short: "Change an area's state, colour or brightness",
		Example: `  pixelctl area set main --state on --hex "#ff8800"
  pixelctl area set 1 --brightness 20 --transition 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFrom(cmd)
			if err != nil {
				return err
			}
			command, err := buildCommand(cmd)
			if err != nil {
				return err
			}
			ref, err := selectArea(c, args)
			if err != nil {
				return err
			}

			if logger != nil {
				logger.Debug("Setting area", "area", ref)
			}
			state, err := c.SetArea(ref, command)
			if err != nil {
				return fmt.Errorf("failed to set area: %w", err)
			}

			pterm.Success.Printf("Area %s: %s\n", ref, StateSummary(state))
			return nil
		},
	}
	cmd.Flags().String("state", "", "Power state (on or off)")
	cmd.Flags().Float64("hue", 0, "Hue in degrees (0-360)")
	cmd.Flags().Float64("saturation", 0, "Saturation percent (0-100)")
	cmd.Flags().Float64("brightness", 0, "Brightness percent (0-100)")
	cmd.Flags().Float64("transition", 0, "Fade duration in seconds")
	cmd.Flags().String("hex", "", "Colour as #rrggbb; sets hue, saturation and, unless given, brightness")
	return cmd
}

// newAreaColorCommand creates the area color command
func newAreaColorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "color <area> <name>",
		Short:   "Set an area to a named colour at full brightness",
		Example: "  pixelctl area color status red\n  pixelctl area color main warmwhite --off",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFrom(cmd)
			if err != nil {
				return err
			}
			cs, ok := c.(colorSetter)
			if !ok {
				return fmt.Errorf("named colours need the control socket; drop --url")
			}
			off, _ := cmd.Flags().GetBool("off")
			state, err := cs.SetColor(args[0], args[1], !off)
			if err != nil {
				return fmt.Errorf("failed to set colour: %w", err)
			}
			pterm.Success.Printf("Area %s: %s\n", args[0], StateSummary(state))
			return nil
		},
	}
	cmd.Flags().Bool("off", false, "Store the colour but leave the area off")
	return cmd
}

// newAreaWatchCommand creates the area watch command
func newAreaWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [area...]",
		Short: "Stream state changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFrom(cmd)
			if err != nil {
				return err
			}
			sub, ok := c.(subscriber)
			if !ok {
				return fmt.Errorf("watch needs the control socket; drop --url")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return sub.Subscribe(ctx, args, func(e client.Event) {
				fmt.Printf("%s %s %s\n", e.Area, e.Type, string(e.Data))
			})
		},
	}
}
