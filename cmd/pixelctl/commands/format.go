package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/jmylchreest/pixeld/pkg/client"
)

// AreaTableData returns the table data for an area, with bold ID and value
func AreaTableData(area client.Area) pterm.TableData {
	return pterm.TableData{
		[]string{pterm.Bold.Sprint("ID"), pterm.Bold.Sprint(area.ID)},
		[]string{"Name", area.Name},
		[]string{"Pixels", fmt.Sprintf("%d", area.Length)},
		[]string{"State", area.State.State},
		[]string{"Brightness", fmt.Sprintf("%d%%", area.State.Brightness)},
		[]string{"Hue", fmt.Sprintf("%.0f", area.State.Color.H)},
		[]string{"Saturation", fmt.Sprintf("%.0f%%", area.State.Color.S)},
		[]string{"Effect", area.State.Effect},
	}
}

// AreaParseable returns the parseable key=value string for an area
func AreaParseable(area client.Area) string {
	return fmt.Sprintf(
		"id=%d name=%q length=%d state=%q brightness=%d hue=%g saturation=%g effect=%q",
		area.ID,
		area.Name,
		area.Length,
		area.State.State,
		area.State.Brightness,
		area.State.Color.H,
		area.State.Color.S,
		area.State.Effect,
	)
}

// StripsTableData returns a single table of strips with a header row
func StripsTableData(layout client.Layout) pterm.TableData {
	data := pterm.TableData{{"Pin", "Offset", "Length", "Reversed"}}
	for _, s := range layout.Strips {
		data = append(data, []string{
			fmt.Sprintf("%d", s.Pin),
			fmt.Sprintf("%d", s.Offset),
			fmt.Sprintf("%d", s.Length),
			fmt.Sprintf("%v", s.Reversed),
		})
	}
	return data
}

// StripParseable returns the parseable string for a strip
func StripParseable(s client.Strip) string {
	return fmt.Sprintf("pin=%d offset=%d length=%d reversed=%v", s.Pin, s.Offset, s.Length, s.Reversed)
}

// StateSummary describes a reported state on one line
func StateSummary(s client.State) string {
	parts := []string{s.State, fmt.Sprintf("brightness %d%%", s.Brightness)}
	if s.Effect != "" && s.Effect != "none" {
		parts = append(parts, "effect "+s.Effect)
	}
	return strings.Join(parts, ", ")
}
