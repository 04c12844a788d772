// Package engine is the controller core: it owns the areas laid over the
// pixel buffer, applies commands to them and runs the fixed-rate tick that
// advances effects and shows frames.
//
// All entry points serialize on one mutex, so adapters running on their own
// goroutines observe the single-context ordering of the tick loop: a command
// applied before a tick is visible to that tick.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jmylchreest/pixeld/internal/errors"
	"github.com/jmylchreest/pixeld/internal/events"
	"github.com/jmylchreest/pixeld/internal/metrics"
	"github.com/jmylchreest/pixeld/pkg/color"
	"github.com/jmylchreest/pixeld/pkg/effect"
	"github.com/jmylchreest/pixeld/pkg/pixel"
)

const (
	// MaxAreas bounds the area table.
	MaxAreas = 10
	// DefaultTickRate is the tick frequency in Hz.
	DefaultTickRate = 30
)

type area struct {
	defined bool
	id      int
	name    string
	indices []int
	base    color.Color
	on      bool
	// dirty marks a state change not yet announced.
	dirty  bool
	effect effect.Effect
}

// AreaInfo describes an area for listings.
type AreaInfo struct {
	ID     int          `json:"id"`
	Name   string       `json:"name"`
	Length int          `json:"length"`
	State  Notification `json:"state"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithConverter selects the color conversion strategy.
func WithConverter(c color.Converter) Option {
	return func(e *Engine) { e.conv = c }
}

// WithTickRate sets the tick frequency in Hz.
func WithTickRate(hz int) Option {
	return func(e *Engine) {
		if hz > 0 {
			e.interval = time.Second / time.Duration(hz)
		}
	}
}

// Engine is the controller context handed to every adapter.
type Engine struct {
	logger   *slog.Logger
	conv     color.Converter
	interval time.Duration

	mu      sync.Mutex
	buffer  *pixel.Buffer
	tx      pixel.Transmitter
	tick    uint64
	shows   uint64
	areas   [MaxAreas]area
	names   map[string]int
	pending []events.Event

	eventBus *events.Bus
}

// New creates an engine over a configured buffer.
func New(buffer *pixel.Buffer, tx pixel.Transmitter, opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.Default(),
		conv:     color.Fast,
		interval: time.Second / DefaultTickRate,
		buffer:   buffer,
		tx:       tx,
		names:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetEventBus sets the event bus for publishing area and effect events.
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventBus = bus
}

// emit queues an event; queued events go out once the lock is released.
// Must be called with e.mu held.
func (e *Engine) emit(t events.EventType, a *area, data any) {
	if e.eventBus == nil {
		return
	}
	e.pending = append(e.pending, events.NewEvent(t, a.name, data))
}

// unlock releases the engine and publishes queued events.
func (e *Engine) unlock() {
	pending := e.pending
	e.pending = nil
	bus := e.eventBus
	e.mu.Unlock()

	if bus == nil {
		return
	}
	for _, ev := range pending {
		bus.Publish(ev)
	}
}

// Interval returns the tick interval.
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// Converter returns the color strategy in use.
func (e *Engine) Converter() color.Converter {
	return e.conv
}

// DefineArea resolves the sections into the area's index map. Redefining an
// area replaces its map and name; its color, on state and any bound effect
// are kept.
func (e *Engine) DefineArea(id int, name string, sections []pixel.Section) error {
	if id < 0 || id >= MaxAreas {
		return errors.InvalidInputf("area id %d out of range [0,%d)", id, MaxAreas)
	}
	if name == "" {
		name = "area_" + strconv.Itoa(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if other, ok := e.names[name]; ok && other != id {
		return errors.InvalidInputf("area name %q already used by area %d", name, other)
	}

	indices, err := e.buffer.MapSections(sections)
	if err != nil {
		// Degrade to an empty map so commands on the area stay harmless.
		indices = nil
		e.logger.Error("Failed to map area, leaving it empty", "area", id, "name", name, "error", err)
	}

	a := &e.areas[id]
	if a.defined {
		delete(e.names, a.name)
	} else {
		*a = area{defined: true, id: id, base: color.None}
	}
	a.name = name
	a.indices = indices
	e.names[name] = id

	e.logger.Debug("Defined area", "area", id, "name", name, "pixels", len(indices))
	return err
}

// DefineAreaRange defines an area over a single run of logical indices.
func (e *Engine) DefineAreaRange(id int, name string, offset, length int) error {
	return e.DefineArea(id, name, []pixel.Section{{Offset: offset, Length: length}})
}

// Resolve turns an area name or numeric id into an id.
func (e *Engine) Resolve(ref string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.names[ref]; ok {
		return id, nil
	}
	if id, err := strconv.Atoi(ref); err == nil && id >= 0 && id < MaxAreas && e.areas[id].defined {
		return id, nil
	}
	return 0, errors.NotFoundf("area %q", ref)
}

// lookup returns the defined area or a not found error.
// Must be called with e.mu held.
func (e *Engine) lookup(id int) (*area, error) {
	if id < 0 || id >= MaxAreas || !e.areas[id].defined {
		return nil, errors.NotFoundf("area %d", id)
	}
	return &e.areas[id], nil
}

// Apply updates an area's target state from a command and binds a
// Transition that shows the change on the following ticks. Fields absent
// from the command keep their current value.
func (e *Engine) Apply(id int, cmd Command) (Notification, error) {
	e.mu.Lock()
	defer e.unlock()

	a, err := e.lookup(id)
	if err != nil {
		return Notification{}, err
	}

	if cmd.empty() {
		e.logger.Debug("Command has no recognised fields, ignoring", "area", a.name)
		return a.notification(), nil
	}

	var duration uint64
	if cmd.Transition != nil {
		duration = effect.Ticks(*cmd.Transition, e.interval)
	}
	base, on := cmd.target(a.base, a.on)
	e.setTarget(a, base, on, duration)

	n := a.notification()
	e.logger.Debug("Applied command", "area", a.name, "state", n.State, "brightness", n.Brightness,
		"hue", n.Color.H, "sat", n.Color.S, "transition_ticks", duration)
	return n, nil
}

// SetAreaColor sets an area's color and on state, changing immediately on
// the next tick.
func (e *Engine) SetAreaColor(id int, c color.Color, on bool) error {
	e.mu.Lock()
	defer e.unlock()

	a, err := e.lookup(id)
	if err != nil {
		return err
	}
	if !c.Valid() {
		return errors.InvalidInputf("area %d: color is not set", id)
	}
	e.setTarget(a, c, on, 0)
	return nil
}

// setTarget records the new state and binds the transition from what is
// currently visible to it. Must be called with e.mu held.
func (e *Engine) setTarget(a *area, base color.Color, on bool, duration uint64) {
	from := base.WithVal(0)
	if a.on && a.base.Valid() {
		from = a.base
	}
	to := base
	if !on {
		to = from.WithVal(0)
	}

	a.base = base
	a.on = on
	a.dirty = true
	e.bind(a, effect.NewTransition(from, to, duration))
}

// bind replaces whatever effect the area holds. Must be called with e.mu
// held.
func (e *Engine) bind(a *area, fx effect.Effect) {
	if a.effect.Active() && a.effect.Continuous() {
		e.logger.Debug("Replacing effect", "area", a.name, "effect", a.effect.Name())
	}
	a.effect = fx.Bind(a.indices, e.tick)
	if fx.Continuous() {
		e.emit(events.EffectStarted, a, map[string]any{"effect": fx.Name(), "rate": fx.Rate, "width": fx.Width})
	}
}

// StartEffect binds a named continuous effect, turning the area on. The
// name "none" stops a running effect and restores the area's static color.
func (e *Engine) StartEffect(id int, req EffectRequest) (Notification, error) {
	kind, err := effect.ParseKind(req.Name)
	if err != nil {
		return Notification{}, err
	}
	shape, err := effect.ParseShape(req.Shape)
	if err != nil {
		return Notification{}, err
	}

	e.mu.Lock()
	defer e.unlock()

	a, err := e.lookup(id)
	if err != nil {
		return Notification{}, err
	}

	base := a.base
	if !base.Valid() {
		base = color.White
	}

	if kind == effect.KindNone {
		visible := base
		if !a.on {
			visible = base.WithVal(0)
		}
		a.base = base
		a.dirty = true
		e.bind(a, effect.NewTransition(visible, visible, 0))
		return a.notification(), nil
	}

	duration := effect.Ticks(req.Duration, e.interval)
	var fx effect.Effect
	switch kind {
	case effect.KindRainbow:
		fx = effect.NewRainbow(req.Rate, req.Width, duration)
	case effect.KindWave:
		fx = effect.NewWave(base, req.Rate, req.Width, shape, duration)
	case effect.KindCylon:
		fx = effect.NewCylon(base, req.Rate, req.Width, duration)
	default:
		return Notification{}, errors.Internalf("effect %s cannot be started by name", kind)
	}

	a.base = base
	a.on = true
	a.dirty = true
	e.bind(a, fx)

	e.logger.Info("Started effect", "area", a.name, "effect", fx.Name(), "rate", req.Rate,
		"width", req.Width, "duration_ticks", duration)
	return a.notification(), nil
}

// Tick advances every bound effect by one tick and shows the buffer once if
// any area was drawn. It reports whether a frame was shown.
func (e *Engine) Tick() bool {
	start := time.Now()
	e.mu.Lock()
	defer e.unlock()

	frame := effect.Frame{Tick: e.tick, Interval: e.interval, Converter: e.conv, Canvas: e.buffer}
	updated := false
	active := 0
	for i := range e.areas {
		a := &e.areas[i]
		if !a.defined || !a.effect.Active() {
			continue
		}
		updated = true
		name := a.effect.Name()
		continuous := a.effect.Continuous()
		if a.effect.Update(frame) {
			a.effect = effect.Effect{}
			if continuous {
				a.dirty = true
				e.emit(events.EffectCompleted, a, map[string]any{"effect": name})
			}
			continue
		}
		active++
	}
	e.tick++

	shown := false
	if updated {
		// Show errors are logged per strip by the buffer.
		_ = e.buffer.Show(e.tx)
		e.shows++
		shown = true
		metrics.IncFramesShown()
	}

	for i := range e.areas {
		a := &e.areas[i]
		if a.dirty {
			a.dirty = false
			e.emit(events.AreaStateChanged, a, a.notification())
		}
	}

	metrics.SetActiveEffects(active)
	metrics.ObserveTick(time.Since(start))
	return shown
}

// Run ticks at the configured rate until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("Engine running", "tick_interval", e.interval, "color_strategy", e.conv.Name())
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine stopped", "ticks", e.Ticks())
			return nil
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Ticks returns the number of ticks processed.
func (e *Engine) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Shows returns the number of frames shown.
func (e *Engine) Shows() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shows
}

// State returns the notification for an area.
func (e *Engine) State(id int) (Notification, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.lookup(id)
	if err != nil {
		return Notification{}, err
	}
	return a.notification(), nil
}

// Area returns the listing entry for one area.
func (e *Engine) Area(id int) (AreaInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.lookup(id)
	if err != nil {
		return AreaInfo{}, err
	}
	return a.info(), nil
}

// Areas lists every defined area in id order.
func (e *Engine) Areas() []AreaInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]AreaInfo, 0, MaxAreas)
	for i := range e.areas {
		if e.areas[i].defined {
			out = append(out, e.areas[i].info())
		}
	}
	return out
}

func (a *area) info() AreaInfo {
	return AreaInfo{ID: a.id, Name: a.name, Length: len(a.indices), State: a.notification()}
}

// Indices returns a copy of an area's physical index map.
func (e *Engine) Indices(id int) ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	return append([]int(nil), a.indices...), nil
}

// Strips returns the strip layout.
func (e *Engine) Strips() []pixel.Strip {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer.Strips()
}

// Pixel returns the current value of a physical pixel.
func (e *Engine) Pixel(physical int) color.Pixel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer.Pixel(physical)
}

// Dump writes the strip and area layout.
func (e *Engine) Dump(w io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.buffer.Dump(w)
	for i := range e.areas {
		a := &e.areas[i]
		if !a.defined {
			continue
		}
		n := a.notification()
		fx := n.Effect
		if a.effect.Active() {
			fx = fmt.Sprintf("%s (%s)", a.effect.Name(), a.effect.Phase())
		}
		fmt.Fprintf(w, "area %d %q: %d pixels, %s, %s, effect %s\n",
			a.id, a.name, len(a.indices), n.State, a.base, fx)
	}
}
