//go:build !linux

package transmit

import (
	"log/slog"

	"github.com/jmylchreest/pixeld/internal/errors"
)

// GPIO is only available on Linux.
type GPIO struct{}

// OpenGPIO always fails off Linux.
func OpenGPIO(device string, _ uint64, _ *slog.Logger) (*GPIO, error) {
	return nil, errors.HardwareUnavailablef("gpio backend %s requires linux", device)
}

func (*GPIO) Emitter(int) (BitEmitter, error) {
	return nil, errors.HardwareUnavailablef("gpio backend requires linux")
}

func (*GPIO) Close() error { return nil }
