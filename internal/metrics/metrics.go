// Package metrics provides Prometheus metrics for the effect engine and the
// LED transmitter.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pixeld"

var (
	engineTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "ticks_total",
		Help:      "Total engine ticks processed",
	})

	engineTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "tick_duration_seconds",
		Help:      "Time spent processing one engine tick, including transmission",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.033, 0.05, 0.1},
	})

	engineFramesShown = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "frames_shown_total",
		Help:      "Total frames pushed to the strips",
	})

	engineActiveEffects = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "active_effects",
		Help:      "Number of areas with a running effect",
	})

	transmitFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transmit",
		Name:      "frames_total",
		Help:      "Total frames transmitted per output pin",
	}, []string{"pin"})

	transmitResetWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "transmit",
		Name:      "reset_wait_seconds",
		Help:      "Time spent waiting for a strip's reset gap before transmitting",
		Buckets:   []float64{0, 0.00001, 0.00002, 0.00004, 0.00008, 0.00016, 0.001},
	})
)

// ObserveTick records one processed tick and how long it took.
func ObserveTick(d time.Duration) {
	engineTicks.Inc()
	engineTickDuration.Observe(d.Seconds())
}

// IncFramesShown counts one buffer show.
func IncFramesShown() {
	engineFramesShown.Inc()
}

// SetActiveEffects sets the number of areas with a running effect.
func SetActiveEffects(n int) {
	engineActiveEffects.Set(float64(n))
}

// IncTransmitFrames counts one frame sent on the given pin.
func IncTransmitFrames(pin int) {
	transmitFrames.WithLabelValues(strconv.Itoa(pin)).Inc()
}

// ObserveResetWait records how long a transmission waited for the reset gap.
func ObserveResetWait(d time.Duration) {
	transmitResetWait.Observe(d.Seconds())
}
