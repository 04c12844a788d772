package transmit

import (
	"log/slog"
	"strings"

	"github.com/jmylchreest/pixeld/internal/errors"
)

// Backend names accepted by OpenBackend.
const (
	BackendGPIO     = "gpio"
	BackendSimulate = "simulate"
	BackendNull     = "null"

	DefaultGPIODevice = "/dev/gpiomem"

	// simulateKeep bounds the frames the simulate backend retains per pin.
	simulateKeep = 4
)

// OpenBackend opens the named backend. device is only used by gpio.
func OpenBackend(name, device string, cfg Config, logger *slog.Logger) (Backend, error) {
	switch strings.ToLower(name) {
	case BackendGPIO:
		if device == "" {
			device = DefaultGPIODevice
		}
		hz := cfg.CPUHz
		if hz == 0 {
			hz = DefaultCPUHz
		}
		g, err := OpenGPIO(device, hz, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	case BackendSimulate, "":
		return NewRecorder(simulateKeep), nil
	case BackendNull:
		return Null{}, nil
	default:
		return nil, errors.InvalidInputf("unknown transmit backend %q", name)
	}
}
