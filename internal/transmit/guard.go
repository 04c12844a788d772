package transmit

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"
)

// Guard is the critical section wrapped around one strip's frame. User space
// can't mask interrupts, so the guard pins the goroutine to its OS thread
// and can hold off the garbage collector until the frame is out.
type Guard struct {
	pauseGC bool
	active  atomic.Bool
}

// NewGuard returns a Guard, optionally pausing GC while held.
func NewGuard(pauseGC bool) *Guard {
	return &Guard{pauseGC: pauseGC}
}

// Do runs fn inside the critical section. Exit happens on every path,
// including a panic in fn. Entering a guard that is already held is a
// programming error and panics.
func (g *Guard) Do(fn func()) {
	if !g.active.CompareAndSwap(false, true) {
		panic("transmit: critical section entered twice")
	}

	runtime.LockOSThread()
	gcPercent := 0
	if g.pauseGC {
		gcPercent = debug.SetGCPercent(-1)
	}
	defer func() {
		if g.pauseGC {
			debug.SetGCPercent(gcPercent)
		}
		runtime.UnlockOSThread()
		g.active.Store(false)
	}()

	fn()
}

// Held reports whether a frame is being emitted.
func (g *Guard) Held() bool {
	return g.active.Load()
}
