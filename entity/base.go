// Package entity implements the lifecycle shared by every authored entity and
// the concrete bodies, shapes, materials, constraints and wires built on it.
//
// Entities never assume their dependencies are ready. Whatever an entity needs
// it asks for with EnsureInitialized, which resolves the dependency graph
// synchronously and at most once per entity.
package entity

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/milk9111/simrig/logging"
	"github.com/milk9111/simrig/native"
	"github.com/milk9111/simrig/sim"
	"go.uber.org/zap"
)

// Initializer builds the native resource of an entity. It returns the handle
// it built, or nil for entities that own nothing native.
type Initializer interface {
	Initialize() (native.Handle, error)
}

// Destroyer is implemented by entities with extra cleanup on Destroy. It must
// not assume dependencies still exist.
type Destroyer interface {
	OnDestroy()
}

// Committer is implemented by entities whose side effects on other entities
// must only happen once their handle is registered with the world.
type Committer interface {
	OnInitialized()
}

// Entity is the lifecycle contract every authored entity exposes.
type Entity interface {
	ID() uuid.UUID
	Name() string
	Kind() string
	State() State
	Awake()
	Start()
	EnsureInitialized() bool
	Destroy()
	LastError() error
}

// Base carries the lifecycle state. Concrete entities embed *Base and pass
// themselves as the Initializer.
type Base struct {
	id    uuid.UUID
	kind  string
	name  string
	state State

	world  *sim.World
	log    *zap.Logger
	self   Initializer
	handle native.Handle

	lastErr   error
	initCalls int
}

func NewBase(world *sim.World, log *zap.Logger, kind, name string, self Initializer) *Base {
	id := uuid.Must(uuid.NewV7())
	return &Base{
		id:    id,
		kind:  kind,
		name:  name,
		world: world,
		self:  self,
		log: logging.OrNop(log).Named(kind).With(
			zap.String("entity", name),
			zap.String("id", id.String())),
	}
}

func (b *Base) ID() uuid.UUID { return b.id }
func (b *Base) Name() string { return b.name }
func (b *Base) Kind() string { return b.kind }
func (b *Base) State() State { return b.state }
func (b *Base) World() *sim.World { return b.world }
func (b *Base) Log() *zap.Logger { return b.log }
func (b *Base) LastError() error { return b.lastErr }
func (b *Base) IsInitialized() bool { return b.state == Initialized }

// Handle returns the native handle; it is nil unless Initialized.
func (b *Base) Handle() native.Handle {
	return b.handle
}

// InitializeCalls reports how many times the Initialize hook has run.
func (b *Base) InitializeCalls() int {
	return b.initCalls
}

func (b *Base) String() string {
	return fmt.Sprintf("%s %q", b.kind, b.name)
}

// Awake is the host activation. It makes the entity eligible for
// initialization.
func (b *Base) Awake() {
	if b.state == Constructed {
		b.state = Awake
	}
}

// Start is the host start callback.
func (b *Base) Start() {
	b.EnsureInitialized()
}

// EnsureInitialized initializes the entity if it has not been yet and reports
// whether it is Initialized afterwards. Asking an entity that is currently
// initializing panics with *ReentrancyError.
func (b *Base) EnsureInitialized() bool {
	switch b.state {
	case Initialized:
		return true
	case Initializing:
		panic(&ReentrancyError{Chain: []string{b.String()}})
	case Constructed, Destroyed:
		return false
	}

	b.state = Initializing
	b.initCalls++
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if b.state == Initializing {
			b.state = Awake
		}
		b.world.Scheduler().RemoveOwner(b)
		if re, ok := r.(*ReentrancyError); ok {
			re.Chain = append(re.Chain, b.String())
		}
		panic(r)
	}()

	handle, err := b.invoke()

	if b.state == Destroyed {
		// destroyed from inside its own initialize
		if handle != nil {
			handle.Release()
		}
		return false
	}
	if err == nil && handle != nil {
		err = native.Try(func() error {
			if !b.world.Add(handle) {
				return ErrWorldUnavailable
			}
			return nil
		})
	}
	if err != nil {
		b.fail(handle, err)
		return false
	}

	b.handle = handle
	b.state = Initialized
	b.lastErr = nil
	if c, ok := b.self.(Committer); ok {
		c.OnInitialized()
	}
	b.log.Debug("initialized")
	return true
}

func (b *Base) invoke() (h native.Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(native.Fatal); ok {
				panic(r)
			}
			h, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return b.self.Initialize()
}

func (b *Base) fail(handle native.Handle, err error) {
	if handle != nil {
		b.world.Remove(handle)
		handle.Release()
	}
	b.world.Scheduler().RemoveOwner(b)
	b.state = Awake
	b.lastErr = &InitError{Kind: b.kind, Entity: b.name, ID: b.id, Err: err}
	b.log.Warn("initialize failed", zap.Error(err))
}

// Schedule registers fn in phase on behalf of this entity. Destroy and failed
// initializations drop it automatically.
func (b *Base) Schedule(phase sim.Phase, fn sim.Callback) sim.CallbackID {
	return b.world.Scheduler().Add(phase, b, fn)
}

// Unschedule drops one registration made through Schedule.
func (b *Base) Unschedule(id sim.CallbackID) bool {
	return b.world.Scheduler().Remove(id)
}

// Destroy releases the native handle and callbacks and retires the entity.
// Dependencies are never touched.
func (b *Base) Destroy() {
	if b.state == Destroyed {
		return
	}
	if d, ok := b.self.(Destroyer); ok {
		d.OnDestroy()
	}
	b.world.Scheduler().RemoveOwner(b)
	if b.handle != nil {
		b.world.Remove(b.handle)
		b.handle.Release()
		b.handle = nil
	}
	b.state = Destroyed
	b.log.Debug("destroyed")
}

// Require makes sure dep exists and is initialized. role names the dependency
// in the resulting configuration error.
func Require[T Entity](dep T, role string) error {
	if isNil(dep) {
		return fmt.Errorf("%w: %s", ErrMissingDependency, role)
	}
	if !dep.EnsureInitialized() {
		return fmt.Errorf("%w: %s %q", ErrDependencyFailed, role, dep.Name())
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return rv.IsNil()
	}
	return false
}
