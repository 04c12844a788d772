//go:build linux

package transmit

import (
	"log/slog"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"

	"github.com/jmylchreest/pixeld/internal/errors"
)

// Register word offsets within the BCM283x GPIO block.
const (
	gpioFsel   = 0  // function select, 10 pins per word
	gpioSet    = 7  // output set, 32 pins per word
	gpioClr    = 10 // output clear, 32 pins per word
	gpioMaxPin = 53
	gpioMapLen = 4096
)

// GPIO bit-bangs pins through the memory-mapped GPIO registers exposed by
// /dev/gpiomem.
type GPIO struct {
	logger *slog.Logger
	mem    mmap.MMap
	regs   []uint32
	cpuHz  uint64
}

// OpenGPIO maps the GPIO register block and locks the process in memory so
// page faults can't stall a frame.
func OpenGPIO(device string, cpuHz uint64, logger *slog.Logger) (*GPIO, error) {
	f, err := os.OpenFile(device, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, errors.HardwareUnavailablef("open %s: %v", device, err)
	}
	defer f.Close()

	mem, err := mmap.MapRegion(f, gpioMapLen, mmap.RDWR, 0, 0)
	if err != nil {
		return nil, errors.HardwareUnavailablef("map %s: %v", device, err)
	}

	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		logger.Warn("Failed to lock memory, frames may glitch under memory pressure", "error", err)
	}

	logger.Info("Mapped GPIO registers", "device", device, "cpu_hz", cpuHz)
	return &GPIO{
		logger: logger,
		mem:    mem,
		regs:   unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), len(mem)/4),
		cpuHz:  cpuHz,
	}, nil
}

// Emitter configures pin as an output and returns its emitter.
func (g *GPIO) Emitter(pin int) (BitEmitter, error) {
	if pin < 0 || pin > gpioMaxPin {
		return nil, errors.InvalidInputf("gpio pin %d out of range", pin)
	}

	reg := &g.regs[gpioFsel+pin/10]
	shift := uint((pin % 10) * 3)
	v := atomic.LoadUint32(reg)
	v &^= 0x7 << shift
	v |= 0x1 << shift
	atomic.StoreUint32(reg, v)

	bank := pin / 32
	e := &gpioEmitter{
		set:   &g.regs[gpioSet+bank],
		clr:   &g.regs[gpioClr+bank],
		mask:  uint32(1) << uint(pin%32),
		cpuHz: g.cpuHz,
	}
	atomic.StoreUint32(e.clr, e.mask)
	return e, nil
}

// Close unmaps the registers.
func (g *GPIO) Close() error {
	if err := unix.Munlockall(); err != nil {
		g.logger.Debug("Failed to unlock memory", "error", err)
	}
	return g.mem.Unmap()
}

type gpioEmitter struct {
	set   *uint32
	clr   *uint32
	mask  uint32
	cpuHz uint64
}

func (e *gpioEmitter) EmitBit(high, low uint32) {
	start := time.Now()
	atomic.StoreUint32(e.set, e.mask)
	spinUntil(start, e.cycles(high))
	atomic.StoreUint32(e.clr, e.mask)
	spinUntil(start, e.cycles(high+low))
}

func (e *gpioEmitter) cycles(n uint32) time.Duration {
	return time.Duration(uint64(n) * uint64(time.Second) / e.cpuHz)
}

func spinUntil(start time.Time, d time.Duration) {
	for time.Since(start) < d {
	}
}
