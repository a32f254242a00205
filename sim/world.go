// Package sim owns the per-scene simulation instance and its step scheduler.
package sim

import (
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/config"
	"github.com/milk9111/simrig/logging"
	"github.com/milk9111/simrig/native"
	"go.uber.org/zap"
)

// World owns the Chipmunk space for one scene. The space is created on first
// use and returned unchanged until Teardown. World is not safe for concurrent
// use; every call happens on the thread driving the host loop.
type World struct {
	cfg config.Simulation
	log *zap.Logger

	space     *cp.Space
	scheduler *Scheduler
	handles   map[native.Handle]struct{}
	listeners []func()

	tearingDown bool
	closed      bool

	accumulated time.Duration
	ticks       uint64
	created     int
}

// NewWorld creates a world context. No engine objects are allocated yet.
func NewWorld(cfg config.Simulation, log *zap.Logger) *World {
	return &World{
		cfg:       cfg,
		log:       logging.OrNop(log).Named("world"),
		scheduler: NewScheduler(),
		handles:   make(map[native.Handle]struct{}),
	}
}

func (w *World) Config() config.Simulation {
	return w.cfg
}

// GetOrCreate returns the simulation space, creating it on first call. It
// returns nil once teardown has begun.
func (w *World) GetOrCreate() *cp.Space {
	if w == nil || w.closed || w.tearingDown {
		return nil
	}
	if w.space != nil {
		return w.space
	}

	space := cp.NewSpace()
	space.Iterations = w.cfg.Iterations
	space.SetGravity(cp.Vector{X: w.cfg.GravityX, Y: w.cfg.GravityY})
	space.SetDamping(w.cfg.Damping)
	if w.cfg.SleepThreshold > 0 {
		space.SleepTimeThreshold = w.cfg.SleepThreshold
	}
	w.space = space
	w.created++
	w.log.Debug("simulation created",
		zap.Float64("gravity_x", w.cfg.GravityX),
		zap.Float64("gravity_y", w.cfg.GravityY),
		zap.Uint("iterations", w.cfg.Iterations))
	return space
}

// Space returns the current space without creating one.
func (w *World) Space() *cp.Space {
	if w == nil || w.closed {
		return nil
	}
	return w.space
}

func (w *World) Scheduler() *Scheduler {
	if w == nil {
		return nil
	}
	return w.scheduler
}

// Add registers a constructed handle with the space. Adding twice is a no-op.
func (w *World) Add(h native.Handle) bool {
	if w == nil || h == nil || h.Released() {
		return false
	}
	if _, ok := w.handles[h]; ok {
		return false
	}
	space := w.GetOrCreate()
	if space == nil {
		return false
	}
	h.Attach(space)
	w.handles[h] = struct{}{}
	return true
}

// Remove unregisters a handle. It works during teardown so entities can
// detach while the space is being released.
func (w *World) Remove(h native.Handle) bool {
	if w == nil || h == nil {
		return false
	}
	if _, ok := w.handles[h]; !ok {
		return false
	}
	delete(w.handles, h)
	if w.space != nil {
		h.Detach(w.space)
	}
	return true
}

// Contains reports whether h is registered.
func (w *World) Contains(h native.Handle) bool {
	if w == nil || h == nil {
		return false
	}
	_, ok := w.handles[h]
	return ok
}

// Handles reports the number of registered handles.
func (w *World) Handles() int {
	if w == nil {
		return 0
	}
	return len(w.handles)
}

// Tick runs one fixed step: PreStep, PreTransformSync, engine step,
// PostTransformSync, PostStep.
func (w *World) Tick(dt float64) {
	if w == nil || w.closed || w.tearingDown {
		return
	}
	space := w.GetOrCreate()

	w.scheduler.Run(PreStep, dt)
	w.scheduler.Run(PreTransformSync, dt)
	space.Step(dt)
	w.scheduler.Run(PostTransformSync, dt)
	w.scheduler.Run(PostStep, dt)
	w.ticks++
}

// Update accumulates host time and runs as many fixed ticks as fit, at most
// MaxSubSteps. Time beyond that is dropped.
func (w *World) Update(elapsed time.Duration) int {
	if w == nil || w.closed || elapsed <= 0 {
		return 0
	}
	interval := w.cfg.Interval()
	if interval <= 0 {
		return 0
	}
	w.accumulated += elapsed

	n := 0
	for w.accumulated >= interval && n < w.cfg.MaxSubSteps {
		w.Tick(w.cfg.TimeStep)
		w.accumulated -= interval
		n++
	}
	if w.accumulated >= interval {
		w.log.Debug("dropping simulation time",
			zap.Duration("behind", w.accumulated),
			zap.Int("max_sub_steps", w.cfg.MaxSubSteps))
		w.accumulated %= interval
	}
	return n
}

// Ticks reports how many fixed steps have run.
func (w *World) Ticks() uint64 {
	if w == nil {
		return 0
	}
	return w.ticks
}

// OnTeardown registers fn to run at the start of Teardown, while the space
// still exists but can no longer be created or grown.
func (w *World) OnTeardown(fn func()) {
	if w == nil || fn == nil || w.closed {
		return
	}
	w.listeners = append(w.listeners, fn)
}

// TearingDown reports whether Teardown is in progress.
func (w *World) TearingDown() bool {
	return w != nil && w.tearingDown
}

// Closed reports whether Teardown has completed.
func (w *World) Closed() bool {
	return w != nil && w.closed
}

// Teardown runs the listeners, detaches whatever is still registered and
// releases the space. Calling it again is a no-op.
func (w *World) Teardown() {
	if w == nil || w.closed || w.tearingDown {
		return
	}
	w.tearingDown = true

	listeners := w.listeners
	w.listeners = nil
	for _, fn := range listeners {
		fn()
	}

	if n := len(w.handles); n > 0 {
		w.log.Debug("detaching handles left at teardown", zap.Int("count", n))
	}
	for h := range w.handles {
		if w.space != nil {
			h.Detach(w.space)
		}
		delete(w.handles, h)
	}
	w.scheduler.Clear()
	w.space = nil
	w.closed = true
	w.tearingDown = false
	w.log.Debug("simulation released", zap.Uint64("ticks", w.ticks))
}
