package transmit

import (
	"sync"

	"github.com/jmylchreest/pixeld/internal/errors"
)

// Pulse is one emitted bit as seen on the wire.
type Pulse struct {
	High uint32
	Low  uint32
}

// Recorder is a Backend that keeps every emitted frame in memory. It backs
// the "simulate" transmit backend and tests.
type Recorder struct {
	mu     sync.Mutex
	pins   map[int]*recordingEmitter
	keep   int
	closed bool
	// FailPins makes Emitter fail for the listed pins.
	FailPins map[int]bool
}

// NewRecorder returns an empty Recorder that retains the last keep frames
// per pin, or all of them when keep is 0.
func NewRecorder(keep int) *Recorder {
	return &Recorder{pins: make(map[int]*recordingEmitter), keep: keep}
}

// Emitter implements Backend.
func (r *Recorder) Emitter(pin int) (BitEmitter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.HardwareUnavailablef("recorder closed")
	}
	if r.FailPins[pin] {
		return nil, errors.HardwareUnavailablef("pin %d unavailable", pin)
	}
	e, ok := r.pins[pin]
	if !ok {
		e = &recordingEmitter{rec: r}
		r.pins[pin] = e
	}
	return e, nil
}

// Close implements Backend.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Frames returns the completed frames sent on pin, as raw pulses.
func (r *Recorder) Frames(pin int) [][]Pulse {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.pins[pin]
	if !ok {
		return nil
	}
	out := make([][]Pulse, len(e.frames))
	copy(out, e.frames)
	return out
}

// Decode turns a frame of pulses back into bytes using the given timing.
// A pulse whose high time is nearer T1H than T0H is a 1 bit.
func Decode(t Timing, frame []Pulse) []byte {
	out := make([]byte, 0, len(frame)/8)
	var cur byte
	for i, p := range frame {
		cur <<= 1
		if 2*p.High > t.T0H+t.T1H {
			cur |= 1
		}
		if i%8 == 7 {
			out = append(out, cur)
			cur = 0
		}
	}
	return out
}

type recordingEmitter struct {
	rec     *Recorder
	pending []Pulse
	frames  [][]Pulse
}

// EmitBit runs inside the critical section, so it only appends.
func (e *recordingEmitter) EmitBit(high, low uint32) {
	e.pending = append(e.pending, Pulse{High: high, Low: low})
}

func (e *recordingEmitter) Flush() error {
	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	e.frames = append(e.frames, e.pending)
	if k := e.rec.keep; k > 0 && len(e.frames) > k {
		e.frames = append([][]Pulse(nil), e.frames[len(e.frames)-k:]...)
	}
	e.pending = nil
	return nil
}

// Null is a Backend that discards every bit.
type Null struct{}

type nullEmitter struct{}

func (nullEmitter) EmitBit(uint32, uint32) {}

// Emitter implements Backend.
func (Null) Emitter(int) (BitEmitter, error) { return nullEmitter{}, nil }

// Close implements Backend.
func (Null) Close() error { return nil }
