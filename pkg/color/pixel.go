package color

import "fmt"

// Pixel is one RGBW LED value packed into a word in wire order: green in the
// low byte, then red, blue and white.
type Pixel uint32

// Off is the all-zero pixel.
const Off Pixel = 0

func pack(r, g, b, w uint8) Pixel {
	return Pixel(uint32(g) | uint32(r)<<8 | uint32(b)<<16 | uint32(w)<<24)
}

func (p Pixel) G() uint8 { return uint8(p) }
func (p Pixel) R() uint8 { return uint8(p >> 8) }
func (p Pixel) B() uint8 { return uint8(p >> 16) }
func (p Pixel) W() uint8 { return uint8(p >> 24) }

// Bytes returns the pixel in transmission order (G, R, B, W).
func (p Pixel) Bytes() [4]byte {
	return [4]byte{p.G(), p.R(), p.B(), p.W()}
}

func (p Pixel) String() string {
	return fmt.Sprintf("rgbw(%d, %d, %d, %d)", p.R(), p.G(), p.B(), p.W())
}
