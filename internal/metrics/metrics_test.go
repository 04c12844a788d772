package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEngineMetrics(t *testing.T) {
	before := testutil.ToFloat64(engineTicks)
	ObserveTick(2 * time.Millisecond)
	ObserveTick(3 * time.Millisecond)
	if got := testutil.ToFloat64(engineTicks) - before; got != 2 {
		t.Errorf("engineTicks advanced by %v, want 2", got)
	}

	shown := testutil.ToFloat64(engineFramesShown)
	IncFramesShown()
	if got := testutil.ToFloat64(engineFramesShown) - shown; got != 1 {
		t.Errorf("engineFramesShown advanced by %v, want 1", got)
	}

	SetActiveEffects(3)
	if got := testutil.ToFloat64(engineActiveEffects); got != 3 {
		t.Errorf("engineActiveEffects = %v, want 3", got)
	}
}

func TestTransmitMetrics(t *testing.T) {
	before := testutil.ToFloat64(transmitFrames.WithLabelValues("18"))
	IncTransmitFrames(18)
	if got := testutil.ToFloat64(transmitFrames.WithLabelValues("18")) - before; got != 1 {
		t.Errorf("transmitFrames{pin=18} advanced by %v, want 1", got)
	}

	ObserveResetWait(40 * time.Microsecond)
	if n := testutil.CollectAndCount(transmitResetWait); n != 1 {
		t.Errorf("transmitResetWait collected %d series, want 1", n)
	}
}
