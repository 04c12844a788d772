// Package effect implements the per-area animations driven by the engine's
// tick. An Effect is a plain value: the engine holds at most one per area and
// replaces it by assignment.
package effect

import (
	"math"
	"strings"
	"time"

	"github.com/jmylchreest/pixeld/internal/errors"
	"github.com/jmylchreest/pixeld/pkg/color"
)

// Kind selects the animation an Effect runs.
type Kind int

const (
	KindNone Kind = iota
	KindTransition
	KindRainbow
	KindWave
	KindCylon
)

var kindNames = map[Kind]string{
	KindNone:       "none",
	KindTransition: "transition",
	KindRainbow:    "rainbow",
	KindWave:       "wave",
	KindCylon:      "cylon",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// ParseKind resolves an effect name from a command. "off" is accepted as an
// alias for none. Transitions are only created by state changes.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "off":
		return KindNone, nil
	case "rainbow":
		return KindRainbow, nil
	case "wave":
		return KindWave, nil
	case "cylon":
		return KindCylon, nil
	default:
		return KindNone, errors.InvalidInputf("unknown effect %q", name)
	}
}

// Names lists the effects that can be requested by name.
func Names() []string {
	return []string{"none", "rainbow", "wave", "cylon"}
}

// WaveShape is the brightness profile of a Wave.
type WaveShape int

const (
	Triangle WaveShape = iota
	Sine
)

// ParseShape resolves a wave shape name; empty means Triangle.
func ParseShape(name string) (WaveShape, error) {
	switch strings.ToLower(name) {
	case "", "triangle":
		return Triangle, nil
	case "sine", "sin", "cos":
		return Sine, nil
	default:
		return Triangle, errors.InvalidInputf("unknown wave shape %q", name)
	}
}

func (s WaveShape) String() string {
	if s == Sine {
		return "sine"
	}
	return "triangle"
}

// Phase is the lifecycle of a bound effect. It only moves forward.
type Phase int

const (
	Bound Phase = iota
	Running
	Complete
)

func (p Phase) String() string {
	switch p {
	case Bound:
		return "bound"
	case Running:
		return "running"
	default:
		return "complete"
	}
}

// Canvas receives pixel writes by physical index.
type Canvas interface {
	SetPixel(physical int, p color.Pixel)
}

// Frame is the per-tick context handed to Update.
type Frame struct {
	Tick      uint64
	Interval  time.Duration
	Converter color.Converter
	Canvas    Canvas
}

// Effect is a tagged union over the animation kinds. Only the fields
// relevant to Kind are used.
type Effect struct {
	Kind Kind
	// StartTick is the engine tick the effect was bound at.
	StartTick uint64
	// Duration is measured in ticks. A transition of zero ticks applies its
	// target immediately. A continuous effect with zero duration runs until
	// replaced.
	Duration uint64

	// Transition endpoints.
	From color.Color
	To   color.Color

	// Continuous effect parameters. Rate is seconds per cycle for Rainbow
	// and Cylon and cycles per second for Wave. Width is pixels per cycle.
	Rate  float64
	Width float64
	Base  color.Color
	Shape WaveShape

	// Indices is the area's physical index map captured at bind time.
	Indices []int

	phase Phase
}

// Ticks converts seconds to a whole number of ticks, rounding up so a
// non-zero duration never collapses to an immediate change.
func Ticks(seconds float64, interval time.Duration) uint64 {
	if seconds <= 0 || interval <= 0 || math.IsNaN(seconds) {
		return 0
	}
	q := seconds / interval.Seconds()
	// Tick intervals are rounded to the nanosecond; don't let that push an
	// exact multiple up a tick.
	n := math.Ceil(q)
	if r := math.Round(q); math.Abs(q-r) < 1e-3 {
		n = r
	}
	return max(uint64(n), 1)
}

// NewTransition fades from one color to another over the given number of
// ticks.
func NewTransition(from, to color.Color, duration uint64) Effect {
	return Effect{Kind: KindTransition, From: from, To: to, Duration: duration}
}

// NewRainbow sweeps the full hue circle across width pixels, rotating once
// every rate seconds.
func NewRainbow(rate, width float64, duration uint64) Effect {
	return Effect{Kind: KindRainbow, Rate: rate, Width: width, Duration: duration}
}

// NewWave runs a brightness wave with a period of width pixels over base,
// moving rate periods per second.
func NewWave(base color.Color, rate, width float64, shape WaveShape, duration uint64) Effect {
	return Effect{Kind: KindWave, Base: base, Rate: rate, Width: width, Shape: shape, Duration: duration}
}

// NewCylon sweeps a band width pixels wide back and forth over base, one
// full round trip every rate seconds.
func NewCylon(base color.Color, rate, width float64, duration uint64) Effect {
	return Effect{Kind: KindCylon, Base: base, Rate: rate, Width: width, Duration: duration}
}

// Bind attaches the effect to an area's index map at the given tick. The
// map is copied so later redefinition of the area does not affect it.
func (e Effect) Bind(indices []int, tick uint64) Effect {
	e.Indices = append([]int(nil), indices...)
	e.StartTick = tick
	e.phase = Bound
	return e
}

// Active reports whether the effect occupies its area's slot.
func (e *Effect) Active() bool {
	return e.Kind != KindNone && e.phase != Complete
}

// Phase returns where the effect is in its lifecycle.
func (e *Effect) Phase() Phase {
	return e.phase
}

// Name is the effect name reported in state notifications.
func (e *Effect) Name() string {
	return e.Kind.String()
}

// Continuous reports whether the kind runs until a duration or replacement
// ends it.
func (e *Effect) Continuous() bool {
	return e.Kind == KindRainbow || e.Kind == KindWave || e.Kind == KindCylon
}

// Update renders the effect for f.Tick and reports whether it has
// completed. A completed effect writes nothing further.
func (e *Effect) Update(f Frame) bool {
	if e.Kind == KindNone || e.phase == Complete {
		return true
	}
	e.phase = Running

	var elapsed uint64
	if f.Tick > e.StartTick {
		elapsed = f.Tick - e.StartTick
	}

	var done bool
	switch e.Kind {
	case KindTransition:
		done = e.transition(f, elapsed)
	case KindRainbow, KindWave, KindCylon:
		if e.Rate == 0 || e.Width <= 0 || math.IsNaN(e.Rate) || math.IsNaN(e.Width) {
			done = true
			break
		}
		seconds := float64(elapsed) * f.Interval.Seconds()
		switch e.Kind {
		case KindRainbow:
			e.rainbow(f, seconds)
		case KindWave:
			e.wave(f, seconds)
		case KindCylon:
			e.cylon(f, seconds)
		}
		done = e.Duration > 0 && elapsed > e.Duration
	default:
		done = true
	}

	if done {
		e.phase = Complete
	}
	return done
}

func (e *Effect) fill(f Frame, p color.Pixel) {
	for _, idx := range e.Indices {
		f.Canvas.SetPixel(idx, p)
	}
}

func (e *Effect) transition(f Frame, elapsed uint64) bool {
	if e.Duration == 0 || elapsed >= e.Duration {
		e.fill(f, f.Converter.ToPixel(e.To))
		return true
	}
	progress := float64(elapsed) / float64(e.Duration)
	e.fill(f, f.Converter.ToPixel(color.Mix(e.From, e.To, progress)))
	return false
}

func (e *Effect) rainbow(f Frame, seconds float64) {
	start := wrapDegrees(seconds * 360 / e.Rate)
	step := 360 / e.Width
	for i, idx := range e.Indices {
		hue := wrapDegrees(start + float64(i)*step)
		f.Canvas.SetPixel(idx, f.Converter.ToPixel(color.HSV(hue, 1, 1)))
	}
}

func (e *Effect) wave(f Frame, seconds float64) {
	offset := frac(seconds * e.Rate)
	step := 1 / e.Width
	for i, idx := range e.Indices {
		mult := e.Shape.level(offset + float64(i)*step)
		f.Canvas.SetPixel(idx, f.Converter.ToPixel(e.Base.WithVal(e.Base.Val*mult)))
	}
}

// level is the wave height in [0,1] at the given phase, which is measured
// in periods. Both shapes are 0 at whole periods and 1 at half periods.
func (s WaveShape) level(phase float64) float64 {
	if s == Sine {
		return (math.Cos(phase*2*math.Pi+math.Pi) + 1) / 2
	}
	return math.Abs(frac(phase+0.5)*2 - 1)
}

func (e *Effect) cylon(f Frame, seconds float64) {
	length := float64(len(e.Indices))
	halfWidth := e.Width / 2
	// The band center travels 2*length per round trip.
	travel := math.Mod(seconds*2*length/math.Abs(e.Rate), 2*length)
	cur := travel
	if travel > length {
		cur = 2*length - travel
	}

	for i, idx := range e.Indices {
		dist := math.Abs(float64(i) + 0.5 - cur)
		if dist >= halfWidth {
			f.Canvas.SetPixel(idx, color.Off)
			continue
		}
		mult := (halfWidth - dist) / halfWidth
		f.Canvas.SetPixel(idx, f.Converter.ToPixel(e.Base.WithVal(e.Base.Val*mult)))
	}
}

func wrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func frac(x float64) float64 {
	return x - math.Floor(x)
}
