package engine

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/jmylchreest/pixeld/internal/errors"
	"github.com/jmylchreest/pixeld/pkg/color"
)

// Command is a partial update of an area's target state. Nil fields leave
// the current value alone.
type Command struct {
	State      *string       `json:"state,omitempty" doc:"ON or OFF"`
	Color      *ColorCommand `json:"color,omitempty"`
	Brightness *float64      `json:"brightness,omitempty" doc:"Brightness percent, 0-100"`
	Transition *float64      `json:"transition,omitempty" doc:"Fade duration in seconds, 0 for immediate"`
}

// ColorCommand carries hue in degrees and saturation in percent.
type ColorCommand struct {
	H *float64 `json:"h,omitempty" doc:"Hue in degrees, 0-360"`
	S *float64 `json:"s,omitempty" doc:"Saturation percent, 0-100"`
}

// EffectRequest binds a named continuous effect to an area.
type EffectRequest struct {
	Name     string  `json:"name" doc:"Effect name: rainbow, wave, cylon or none"`
	Area     string  `json:"area,omitempty" doc:"Area name or numeric id"`
	Rate     float64 `json:"rate,omitempty" doc:"Seconds per cycle (rainbow, cylon) or cycles per second (wave)"`
	Width    float64 `json:"width,omitempty" doc:"Pixels per cycle (rainbow, wave) or band width (cylon)"`
	Duration float64 `json:"duration,omitempty" doc:"Seconds to run for, 0 to run until replaced"`
	Shape    string  `json:"shape,omitempty" doc:"Wave shape: triangle or sine"`
}

// Notification is the state reported for an area.
type Notification struct {
	State      string            `json:"state" doc:"ON or OFF"`
	Brightness int               `json:"brightness" doc:"Brightness percent, 0-100"`
	ColorMode  string            `json:"color_mode" doc:"Always hs"`
	Effect     string            `json:"effect" doc:"Running effect name or none"`
	Color      NotificationColor `json:"color"`
}

// NotificationColor is hue in degrees and saturation in percent.
type NotificationColor struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
}

const (
	StateOn  = "ON"
	StateOff = "OFF"
)

// DecodeCommand parses a JSON command. Fields that are missing or have the
// wrong type are skipped rather than failing the whole command; only a
// payload that is not a JSON object is an error.
func DecodeCommand(data []byte) (Command, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Command{}, errors.InvalidInputf("command is not a JSON object: %v", err)
	}

	var cmd Command
	if v, ok := raw["state"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			cmd.State = &s
		}
	}
	cmd.Brightness = decodeNumber(raw["brightness"])
	cmd.Transition = decodeNumber(raw["transition"])

	if v, ok := raw["color"]; ok {
		var c map[string]json.RawMessage
		if json.Unmarshal(v, &c) == nil {
			cc := ColorCommand{H: decodeNumber(c["h"]), S: decodeNumber(c["s"])}
			if cc.H != nil || cc.S != nil {
				cmd.Color = &cc
			}
		}
	}
	return cmd, nil
}

func decodeNumber(v json.RawMessage) *float64 {
	if v == nil {
		return nil
	}
	var f float64
	if json.Unmarshal(v, &f) != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// empty reports whether the command carries no recognised field. A state
// other than ON or OFF counts as absent.
func (cmd Command) empty() bool {
	if cmd.State != nil {
		if _, ok := parseState(*cmd.State); ok {
			return false
		}
	}
	return cmd.Color == nil && cmd.Brightness == nil && cmd.Transition == nil
}

func parseState(s string) (on, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case StateOn:
		return true, true
	case StateOff:
		return false, true
	}
	return false, false
}

// target applies the present fields of cmd on top of the current state.
// An area that never had a color starts from white.
func (cmd Command) target(base color.Color, on bool) (color.Color, bool) {
	if !base.Valid() {
		base = color.White
	}
	if cmd.State != nil {
		if v, ok := parseState(*cmd.State); ok {
			on = v
		}
	}
	if cmd.Color != nil {
		if cmd.Color.H != nil {
			base.Hue = math.Mod(*cmd.Color.H, 360)
			if base.Hue < 0 {
				base.Hue += 360
			}
		}
		if cmd.Color.S != nil {
			base.Sat = percent(*cmd.Color.S)
		}
	}
	if cmd.Brightness != nil {
		base.Val = percent(*cmd.Brightness)
	}
	return base, on
}

func percent(v float64) float64 {
	return math.Min(math.Max(v, 0), 100) / 100
}

func (a *area) notification() Notification {
	n := Notification{State: StateOff, ColorMode: "hs", Effect: "none"}
	if a.on {
		n.State = StateOn
	}
	if a.effect.Active() && a.effect.Continuous() {
		n.Effect = a.effect.Name()
	}
	if a.base.Valid() {
		n.Brightness = int(math.Round(a.base.Val * 100))
		n.Color = NotificationColor{
			H: math.Round(a.base.Hue*10) / 10,
			S: math.Round(a.base.Sat*1000) / 10,
		}
	}
	return n
}
