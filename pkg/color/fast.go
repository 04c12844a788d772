package color

import "math"

// Fixed-point values carry 30 fractional bits in an int64, which leaves room
// for the product of two of them.
const (
	fracBits = 30
	one      = int64(1) << fracBits
	half     = one >> 1
)

var (
	gammaTable [TableSamples]int64
	cbrtTable  [TableSamples]int64
)

func init() {
	for i := range TableSamples {
		x := float64(i) / float64(TableSamples-1)
		gammaTable[i] = toFixed(math.Pow(x, Gamma))
		cbrtTable[i] = toFixed(math.Pow(x, SatExponent))
	}
}

type fastConverter struct{}

// Fast approximates Reference with two lookup tables and fixed-point
// arithmetic. Every channel stays within 2/255 of Reference.
var Fast Converter = fastConverter{}

func (fastConverter) Name() string { return StrategyFast }

func (fastConverter) ToPixel(c Color) Pixel {
	hue, sat, val := c.normalized()
	lG := lookup(&gammaTable, toFixed(val))
	adjSat := cbrtFixed(toFixed(sat))
	cMult := lG * adjSat >> fracBits
	r, g, b := weightsFixed(toFixed(hue / 120))

	return pack(
		fixedByte(r*cMult>>fracBits),
		fixedByte(g*cMult>>fracBits),
		fixedByte(b*cMult>>fracBits),
		fixedByte(lG*(one-adjSat)>>fracBits),
	)
}

func toFixed(v float64) int64 {
	return int64(v*float64(one) + 0.5)
}

// lookup linearly interpolates tbl at x, where x is in [0,1].
func lookup(tbl *[TableSamples]int64, x int64) int64 {
	if x <= 0 {
		return tbl[0]
	}
	pos := x * (TableSamples - 1)
	idx := pos >> fracBits
	if idx >= TableSamples-1 {
		return tbl[TableSamples-1]
	}
	frac := pos & (one - 1)
	return tbl[idx] + (tbl[idx+1]-tbl[idx])*frac>>fracBits
}

// cbrtFixed evaluates the saturation curve. The cube root is too steep near
// zero for a uniform table, so small inputs are scaled up by 8 (halving the
// result each time) until they land in [1/8, 1].
func cbrtFixed(x int64) int64 {
	if x <= 0 {
		return 0
	}
	shift := 0
	for x < one>>3 {
		x <<= 3
		shift++
	}
	return lookup(&cbrtTable, x) >> shift
}

// weightsFixed mirrors weights with h1 = hue/120 already in fixed point.
func weightsFixed(h1 int64) (r, g, b int64) {
	h2 := (h1 + one) % (3 * one)
	if h2 <= 2*one {
		r = one - absFixed(h2%(2*one)-one)
	}
	if h1 <= 2*one {
		g = one - absFixed(h1%(2*one)-one)
	}
	if h1 >= one {
		b = one - absFixed((h1-one)%(2*one)-one)
	}
	return r, g, b
}

func absFixed(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// fixedByte scales a fixed-point fraction to 0..255, rounding to nearest.
func fixedByte(v int64) uint8 {
	if v <= 0 {
		return 0
	}
	v = (v*255 + half) >> fracBits
	if v > 255 {
		return 255
	}
	return uint8(v)
}
