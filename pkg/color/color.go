// Package color converts hue/saturation/value colors into RGBW pixel words
// for SK6812-style LEDs.
package color

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Color is an HSV color. Hue is in degrees, saturation and value in [0,1].
// A negative value marks a color that has not been set yet (see None).
type Color struct {
	Hue float64 `json:"hue"`
	Sat float64 `json:"sat"`
	Val float64 `json:"val"`
}

// HSV builds a Color.
func HSV(hue, sat, val float64) Color {
	return Color{Hue: hue, Sat: sat, Val: val}
}

// Named colors.
var (
	None    = Color{Hue: 0, Sat: 0, Val: -1}
	Black   = Color{Hue: 0, Sat: 0, Val: 0}
	White   = Color{Hue: 0, Sat: 0, Val: 1}
	Red     = Color{Hue: 0, Sat: 1, Val: 1}
	Yellow  = Color{Hue: 60, Sat: 1, Val: 1}
	Green   = Color{Hue: 120, Sat: 1, Val: 1}
	Cyan    = Color{Hue: 180, Sat: 1, Val: 1}
	Blue    = Color{Hue: 240, Sat: 1, Val: 1}
	Purple  = Color{Hue: 270, Sat: 1, Val: 1}
	Magenta = Color{Hue: 300, Sat: 1, Val: 1}
)

var named = map[string]Color{
	"none":    None,
	"black":   Black,
	"white":   White,
	"red":     Red,
	"yellow":  Yellow,
	"green":   Green,
	"cyan":    Cyan,
	"blue":    Blue,
	"purple":  Purple,
	"magenta": Magenta,
}

// Named looks up a color by name, case-insensitively.
func Named(name string) (Color, bool) {
	c, ok := named[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Names returns the known color names in sorted order.
func Names() []string {
	names := make([]string, 0, len(named))
	for n := range named {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Valid reports whether the color has been set.
func (c Color) Valid() bool {
	return c.Val >= 0
}

// WithVal returns a copy of c with its value replaced.
func (c Color) WithVal(val float64) Color {
	c.Val = val
	return c
}

// Mix linearly interpolates every component from a to b. Mix(a, b, 0) is a
// and Mix(a, b, 1) is b exactly.
func Mix(a, b Color, t float64) Color {
	return Color{
		Hue: a.Hue*(1-t) + b.Hue*t,
		Sat: a.Sat*(1-t) + b.Sat*t,
		Val: a.Val*(1-t) + b.Val*t,
	}
}

func (c Color) String() string {
	if !c.Valid() {
		return "none"
	}
	return fmt.Sprintf("hsv(%.1f, %.3f, %.3f)", c.Hue, c.Sat, c.Val)
}

// normalized wraps hue into [0,360) and clamps saturation and value into [0,1].
func (c Color) normalized() (hue, sat, val float64) {
	hue = math.Mod(c.Hue, 360)
	if hue < 0 {
		hue += 360
	}
	if math.IsNaN(hue) {
		hue = 0
	}
	return hue, clamp01(c.Sat), clamp01(c.Val)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
