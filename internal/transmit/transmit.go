// Package transmit serializes strip frames onto the single-wire SK6812 RGBW
// protocol. Bit timing is expressed in CPU cycles and handed to a
// hardware-specific BitEmitter inside a guarded critical section.
package transmit

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/jmylchreest/pixeld/internal/errors"
	"github.com/jmylchreest/pixeld/internal/metrics"
	"github.com/jmylchreest/pixeld/pkg/color"
	"github.com/jmylchreest/pixeld/pkg/pixel"
)

const (
	// DefaultCPUHz is the clock the cycle counts are derived from.
	DefaultCPUHz = 80_000_000
	// DefaultResetGap is the minimum idle time between SK6812RGBW frames.
	DefaultResetGap = 80 * time.Microsecond
)

// Config holds the wire timing parameters.
type Config struct {
	CPUHz    uint64
	ResetGap time.Duration
	// PauseGC stops the garbage collector for the duration of each frame.
	PauseGC bool
}

// DefaultConfig returns the SK6812RGBW timing at 80MHz.
func DefaultConfig() Config {
	return Config{CPUHz: DefaultCPUHz, ResetGap: DefaultResetGap}
}

// Timing is the per-bit pulse layout in CPU cycles.
type Timing struct {
	T0H    uint32 // high time of a 0 bit, 0.3µs
	T1H    uint32 // high time of a 1 bit, 0.6µs
	Period uint32 // full bit, 1.25µs
}

// Timing derives the cycle counts from the CPU clock.
func (c Config) Timing() Timing {
	return Timing{
		T0H:    uint32(c.CPUHz / 3_333_333),
		T1H:    uint32(c.CPUHz / 1_666_666),
		Period: uint32(c.CPUHz / 800_000),
	}
}

// Bit returns the high and low cycle counts for one bit.
func (t Timing) Bit(one bool) (high, low uint32) {
	if one {
		return t.T1H, t.Period - t.T1H
	}
	return t.T0H, t.Period - t.T0H
}

// BitEmitter drives one output pin. EmitBit holds the line high for high
// cycles, then low for low cycles.
type BitEmitter interface {
	EmitBit(high, low uint32)
}

// Flusher is implemented by emitters that need to know a frame has ended.
type Flusher interface {
	Flush() error
}

// Backend hands out emitters for output pins.
type Backend interface {
	Emitter(pin int) (BitEmitter, error)
	Close() error
}

// Clock is the time source for reset gap enforcement.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Transmitter.
type Option func(*Transmitter)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(t *Transmitter) { t.clock = c }
}

// WithLogger sets the transmitter's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transmitter) { t.logger = logger }
}

// Transmitter sends strip frames through a Backend.
type Transmitter struct {
	cfg     Config
	timing  Timing
	backend Backend
	clock   Clock
	logger  *slog.Logger
	guard   *Guard

	mu       sync.Mutex
	emitters map[int]BitEmitter
}

var _ pixel.Transmitter = (*Transmitter)(nil)

// New creates a Transmitter. Zero config fields take their defaults.
func New(cfg Config, backend Backend, opts ...Option) *Transmitter {
	if cfg.CPUHz == 0 {
		cfg.CPUHz = DefaultCPUHz
	}
	if cfg.ResetGap <= 0 {
		cfg.ResetGap = DefaultResetGap
	}
	t := &Transmitter{
		cfg:      cfg,
		timing:   cfg.Timing(),
		backend:  backend,
		clock:    systemClock{},
		logger:   slog.Default(),
		guard:    NewGuard(cfg.PauseGC),
		emitters: make(map[int]BitEmitter),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Timing returns the pulse layout in use.
func (t *Transmitter) Timing() Timing {
	return t.timing
}

func (t *Transmitter) emitter(pin int) (BitEmitter, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.emitters[pin]; ok {
		return e, nil
	}
	e, err := t.backend.Emitter(pin)
	if err != nil {
		return nil, errors.WrapErrorf(err, "open pin %d", pin)
	}
	t.emitters[pin] = e
	return e, nil
}

// Transmit sends one strip's frame. It first waits, yielding, until the
// strip's reset gap has elapsed since its last frame, then emits every bit
// of every pixel most significant bit first in G, R, B, W order without
// interruption. The strip's LastShown is only updated on success.
func (t *Transmitter) Transmit(strip *pixel.Strip, pixels []color.Pixel) error {
	e, err := t.emitter(strip.Pin)
	if err != nil {
		return err
	}

	t.waitReset(strip)

	t.guard.Do(func() {
		for _, p := range pixels {
			for _, b := range p.Bytes() {
				for mask := byte(0x80); mask != 0; mask >>= 1 {
					e.EmitBit(t.timing.Bit(b&mask != 0))
				}
			}
		}
	})

	if f, ok := e.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return errors.HardwareUnavailablef("flush pin %d: %v", strip.Pin, err)
		}
	}

	strip.LastShown = t.clock.Now()
	metrics.IncTransmitFrames(strip.Pin)
	return nil
}

// Clear sends an all-off frame to the strip.
func (t *Transmitter) Clear(strip *pixel.Strip) error {
	return t.Transmit(strip, make([]color.Pixel, strip.Length))
}

// waitReset spins until the reset gap has passed. It never sleeps: the gap
// is far shorter than the scheduler's sleep granularity.
func (t *Transmitter) waitReset(strip *pixel.Strip) {
	if strip.LastShown.IsZero() {
		return
	}
	start := t.clock.Now()
	now := start
	// A clock that moved backwards restarts the gap from now.
	if now.Before(strip.LastShown) {
		strip.LastShown = now
	}
	for now.Sub(strip.LastShown) < t.cfg.ResetGap {
		runtime.Gosched()
		now = t.clock.Now()
	}
	metrics.ObserveResetWait(now.Sub(start))
}

// Close releases the backend.
func (t *Transmitter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emitters = make(map[int]BitEmitter)
	return t.backend.Close()
}
