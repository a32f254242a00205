// Package scene loads scene files and hosts their entities: it awakes them,
// starts them in a configurable order, steps the world and tears it down.
package scene

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/milk9111/simrig/config"
	"github.com/milk9111/simrig/entity"
	"github.com/milk9111/simrig/logging"
	"github.com/milk9111/simrig/script"
	"github.com/milk9111/simrig/sim"
	"go.uber.org/zap"
)

var ErrNoScriptSource = errors.New("no script source for parsed scene")

// Scene is the host of one built scene.
type Scene struct {
	name  string
	cfg   *config.Config
	log   *zap.Logger
	world *sim.World
	spec  *Spec

	entities    []entity.Entity
	materials   map[string]*entity.Material
	bodies      map[string]*entity.RigidBody
	wires       map[string]*entity.Wire
	controllers map[string]*script.Controller
	notes       map[entity.Entity][]string

	constructed bool
	started     bool
}

func newScene(world *sim.World, spec *Spec, cfg *config.Config, log *zap.Logger) *Scene {
	if cfg == nil {
		cfg = config.Defaults()
	}
	s := &Scene{
		name:        spec.Name,
		cfg:         cfg,
		log:         logging.OrNop(log).Named("scene").With(zap.String("scene", spec.Name)),
		world:       world,
		spec:        spec,
		materials:   make(map[string]*entity.Material),
		bodies:      make(map[string]*entity.RigidBody),
		wires:       make(map[string]*entity.Wire),
		controllers: make(map[string]*script.Controller),
		notes:       make(map[entity.Entity][]string),
	}
	world.OnTeardown(s.destroyAll)
	return s
}

func (s *Scene) Name() string { return s.name }
func (s *Scene) World() *sim.World { return s.world }

// Entities returns every entity in declaration order.
func (s *Scene) Entities() []entity.Entity {
	return append([]entity.Entity(nil), s.entities...)
}

func (s *Scene) Body(name string) (*entity.RigidBody, bool) {
	rb, ok := s.bodies[name]
	return rb, ok
}

func (s *Scene) Wire(name string) (*entity.Wire, bool) {
	w, ok := s.wires[name]
	return w, ok
}

// Wires returns the scene's wires in declaration order.
func (s *Scene) Wires() []*entity.Wire {
	var out []*entity.Wire
	for _, e := range s.entities {
		if w, ok := e.(*entity.Wire); ok {
			out = append(out, w)
		}
	}
	return out
}

func (s *Scene) Controller(name string) (*script.Controller, bool) {
	c, ok := s.controllers[name]
	return c, ok
}

// Construct activates every entity. Nothing initializes yet.
func (s *Scene) Construct() {
	if s.constructed {
		return
	}
	for _, e := range s.entities {
		e.Awake()
	}
	s.constructed = true
}

// Order returns the entities in host traversal order.
func (s *Scene) Order() []entity.Entity {
	order := s.Entities()
	switch s.cfg.Host.Traversal {
	case config.TraversalReverse:
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	case config.TraversalShuffled:
		rng := rand.New(rand.NewSource(s.cfg.Host.Seed))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

// Start gives every entity its start callback in traversal order. A
// dependency cycle panics with *entity.ReentrancyError.
func (s *Scene) Start() {
	s.Construct()
	if s.started {
		return
	}
	s.started = true
	for _, e := range s.Order() {
		e.Start()
	}
	failed := 0
	for _, e := range s.entities {
		if e.State() != entity.Initialized {
			failed++
		}
	}
	s.log.Info("scene started",
		zap.String("traversal", s.cfg.Host.Traversal),
		zap.Int("entities", len(s.entities)),
		zap.Int("failed", failed))
}

// Run steps the world n fixed ticks.
func (s *Scene) Run(n int) {
	dt := s.cfg.Simulation.TimeStep
	for i := 0; i < n; i++ {
		s.world.Tick(dt)
	}
}

// Update forwards host time to the world accumulator.
func (s *Scene) Update(elapsed time.Duration) int {
	return s.world.Update(elapsed)
}

// Teardown releases the world; every entity is destroyed on the way out.
func (s *Scene) Teardown() {
	s.world.Teardown()
}

func (s *Scene) destroyAll() {
	for i := len(s.entities) - 1; i >= 0; i-- {
		s.entities[i].Destroy()
	}
	s.log.Debug("scene destroyed", zap.Int("entities", len(s.entities)))
}

func (s *Scene) add(e entity.Entity) {
	s.entities = append(s.entities, e)
}

func (s *Scene) note(e entity.Entity, msg string) {
	s.notes[e] = append(s.notes[e], msg)
}

// lookupBody resolves a body reference. Unknown names get a body that never
// wakes up, so the referencing entity fails when it asks for it.
func (s *Scene) lookupBody(from entity.Entity, role, name string) *entity.RigidBody {
	if rb, ok := s.bodies[name]; ok {
		return rb
	}
	s.note(from, fmt.Sprintf("unknown %s %q", role, name))
	return entity.NewRigidBody(s.world, s.log, name)
}

func (s *Scene) lookupTarget(controller string) script.Lookup {
	return func(name string) (*entity.RigidBody, bool) {
		rb, ok := s.bodies[name]
		if !ok {
			s.log.Debug("unknown controller target", zap.String("controller", controller), zap.String("target", name))
		}
		return rb, ok
	}
}

func (s *Scene) readScript(path string) ([]byte, error) {
	if s.spec.read == nil {
		return nil, ErrNoScriptSource
	}
	return s.spec.read(path)
}
