package color

import (
	"math"
	"strings"

	"github.com/jmylchreest/pixeld/internal/errors"
)

const (
	// Gamma is the brightness transfer exponent.
	Gamma = 2.2
	// SatExponent flattens the saturation response so pastel colors keep
	// some hue.
	SatExponent = 1.0 / 3.0

	// TableSamples is the number of entries in each lookup table of the
	// Fast strategy, covering [0,1] in steps of 0.005.
	TableSamples = 201
)

// Strategy names accepted by NewConverter.
const (
	StrategyReference = "reference"
	StrategyFast      = "fast"
)

// Converter turns a Color into a Pixel.
type Converter interface {
	ToPixel(c Color) Pixel
	Name() string
}

// NewConverter returns the strategy with the given name. An empty name
// selects the fast strategy.
func NewConverter(name string) (Converter, error) {
	switch strings.ToLower(name) {
	case StrategyFast, "":
		return Fast, nil
	case StrategyReference:
		return Reference, nil
	default:
		return nil, errors.InvalidInputf("unknown color strategy %q", name)
	}
}

// Channel weights follow three triangular 120° lobes so the summed channel
// intensity stays constant across the hue circle.
func weights(hue float64) (r, g, b float64) {
	h1 := hue / 120
	h2 := math.Mod(h1+1, 3)
	if h2 <= 2 {
		r = 1 - math.Abs(math.Mod(h2, 2)-1)
	}
	if h1 <= 2 {
		g = 1 - math.Abs(math.Mod(h1, 2)-1)
	}
	if h1 >= 1 {
		b = 1 - math.Abs(math.Mod(h1-1, 2)-1)
	}
	return r, g, b
}

func toByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	v = math.Round(v)
	if v > 255 {
		return 255
	}
	return uint8(v)
}

type referenceConverter struct{}

// Reference computes the transfer functions with math.Pow.
var Reference Converter = referenceConverter{}

func (referenceConverter) Name() string { return StrategyReference }

func (referenceConverter) ToPixel(c Color) Pixel {
	hue, sat, val := c.normalized()
	lG := math.Pow(val, Gamma)
	adjSat := math.Pow(sat, SatExponent)
	cMult := lG * adjSat * 255
	r, g, b := weights(hue)

	return pack(
		toByte(r*cMult),
		toByte(g*cMult),
		toByte(b*cMult),
		toByte(lG*(1-adjSat)*255),
	)
}
