// Package pixel owns the physical pixel buffer of one or more LED strips and
// maps the unified logical index space onto it.
//
// A Buffer is not safe for concurrent use; callers serialize access.
package pixel

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmylchreest/pixeld/internal/errors"
	"github.com/jmylchreest/pixeld/pkg/color"
)

// MaxPixels bounds the total buffer size across all strips.
const MaxPixels = 65535

// Strip is one physically wired run of LEDs on a single output pin.
type Strip struct {
	Pin      int  `json:"pin"`
	Offset   int  `json:"offset"`
	Length   int  `json:"length"`
	Reversed bool `json:"reversed"`
	// LastShown is when the strip's last frame finished transmitting.
	LastShown time.Time `json:"last_shown"`
}

// First returns the first logical index covered by the strip.
func (s Strip) First() int { return s.Offset }

// Last returns the last logical index covered by the strip.
func (s Strip) Last() int { return s.Offset + s.Length - 1 }

// Contains reports whether the logical index falls within the strip.
func (s Strip) Contains(i int) bool {
	return i >= s.Offset && i < s.Offset+s.Length
}

// Section is a run of logical indices.
type Section struct {
	Offset int `json:"offset" mapstructure:"offset" yaml:"offset"`
	Length int `json:"length" mapstructure:"length" yaml:"length"`
}

// Transmitter pushes one strip's span of the buffer out to the LEDs.
type Transmitter interface {
	Transmit(strip *Strip, pixels []color.Pixel) error
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithLogger sets the logger used for mapping warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Buffer) { b.logger = logger }
}

// WithStrictMapping makes logical indices outside every strip an error
// instead of resolving them to physical index 0.
func WithStrictMapping(strict bool) Option {
	return func(b *Buffer) { b.strict = strict }
}

// Buffer is the physical pixel storage for all configured strips.
type Buffer struct {
	logger *slog.Logger
	strict bool
	strips []Strip
	pixels []color.Pixel
}

// NewBuffer creates an empty buffer. Call Configure to allocate it.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Configure lays the strips out in declaration order, assigning each a
// contiguous logical offset, and allocates a zeroed buffer of their total
// length. Strip offsets in the input are ignored.
//
// Invalid or oversized layouts leave the buffer at zero length so every
// other operation becomes a no-op.
func (b *Buffer) Configure(strips []Strip) error {
	pixels := b.pixels
	b.strips = nil
	b.pixels = nil

	total := 0
	laid := make([]Strip, len(strips))
	for i, s := range strips {
		if s.Length < 0 {
			return errors.InvalidInputf("strip %d on pin %d has negative length %d", i, s.Pin, s.Length)
		}
		s.Offset = total
		s.LastShown = time.Time{}
		laid[i] = s
		total += s.Length
		if total > MaxPixels {
			b.logger.Error("Pixel buffer too large, leaving it empty", "pixels", total, "max", MaxPixels)
			return errors.InvalidInputf("%d pixels exceeds the maximum of %d", total, MaxPixels)
		}
	}

	b.strips = laid
	if cap(pixels) >= total {
		// Reconfiguring reuses storage; stale frames must not leak through.
		b.pixels = pixels[:total]
		b.Fill(color.Off)
	} else {
		b.pixels = make([]color.Pixel, total)
	}
	b.logger.Debug("Configured pixel buffer", "strips", len(laid), "pixels", total)
	return nil
}

// Len returns the number of pixels in the buffer.
func (b *Buffer) Len() int {
	return len(b.pixels)
}

// Strict reports whether unmapped logical indices are rejected.
func (b *Buffer) Strict() bool {
	return b.strict
}

// Strips returns a copy of the strip layout.
func (b *Buffer) Strips() []Strip {
	out := make([]Strip, len(b.strips))
	copy(out, b.strips)
	return out
}

// LogicalToPhysical resolves a logical index to a buffer index. A reversed
// strip exposes its pixels last to first. ok is false when no strip covers
// the index, in which case the physical index is 0.
func (b *Buffer) LogicalToPhysical(logical int) (physical int, ok bool) {
	for _, s := range b.strips {
		if !s.Contains(logical) {
			continue
		}
		if s.Reversed {
			return s.Last() - (logical - s.First()), true
		}
		return logical, true
	}
	return 0, false
}

// MapSections resolves every logical index of every section, in order, into
// one physical index map.
//
// An index outside every strip resolves to physical 0 and is logged, unless
// the buffer is strict, in which case it is an error.
func (b *Buffer) MapSections(sections []Section) ([]int, error) {
	size := 0
	for _, sec := range sections {
		if sec.Offset < 0 || sec.Length < 0 {
			return nil, errors.InvalidInputf("invalid section offset %d length %d", sec.Offset, sec.Length)
		}
		size += sec.Length
	}
	if size > MaxPixels {
		return nil, errors.InvalidInputf("area of %d pixels exceeds the maximum of %d", size, MaxPixels)
	}

	indices := make([]int, 0, size)
	unmapped := 0
	for _, sec := range sections {
		for i := sec.Offset; i < sec.Offset+sec.Length; i++ {
			phys, ok := b.LogicalToPhysical(i)
			if !ok {
				if b.strict {
					return nil, errors.InvalidInputf("logical index %d is not covered by any strip", i)
				}
				unmapped++
			}
			indices = append(indices, phys)
		}
	}

	if unmapped > 0 {
		b.logger.Warn("Area covers indices outside every strip, mapping them to pixel 0",
			"unmapped", unmapped, "buffer_len", b.Len())
	}
	return indices, nil
}

// SetPixel writes a pixel by physical index. Out of range writes are ignored.
func (b *Buffer) SetPixel(physical int, p color.Pixel) {
	if physical < 0 || physical >= len(b.pixels) {
		return
	}
	b.pixels[physical] = p
}

// Pixel reads a pixel by physical index, returning Off when out of range.
func (b *Buffer) Pixel(physical int) color.Pixel {
	if physical < 0 || physical >= len(b.pixels) {
		return color.Off
	}
	return b.pixels[physical]
}

// Fill writes p to every pixel of the buffer.
func (b *Buffer) Fill(p color.Pixel) {
	for i := range b.pixels {
		b.pixels[i] = p
	}
}

// Span returns the strip's slice of the physical buffer.
func (b *Buffer) Span(strip int) []color.Pixel {
	if strip < 0 || strip >= len(b.strips) {
		return nil
	}
	s := b.strips[strip]
	return b.pixels[s.Offset : s.Offset+s.Length]
}

// Show transmits every strip in declaration order. A failing strip does not
// stop the others; the first error is returned.
func (b *Buffer) Show(tx Transmitter) error {
	var first error
	for i := range b.strips {
		s := &b.strips[i]
		if s.Length == 0 {
			continue
		}
		if err := tx.Transmit(s, b.Span(i)); err != nil {
			b.logger.Error("Failed to transmit strip", "pin", s.Pin, "error", err)
			if first == nil {
				first = errors.WrapErrorf(err, "strip on pin %d", s.Pin)
			}
		}
	}
	return first
}

// Dump writes a human readable description of the strip layout.
func (b *Buffer) Dump(w io.Writer) {
	fmt.Fprintf(w, "pixels: %d strict: %t\n", b.Len(), b.strict)
	for i, s := range b.strips {
		dir := "forward"
		if s.Reversed {
			dir = "reversed"
		}
		fmt.Fprintf(w, "strip %d: pin %d logical %d-%d (%d pixels, %s)\n",
			i, s.Pin, s.First(), s.Last(), s.Length, dir)
	}
}
