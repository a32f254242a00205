// Package script drives rigid bodies from tengo scripts run every step.
package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/entity"
	"github.com/milk9111/simrig/native"
	"github.com/milk9111/simrig/sim"
	"go.uber.org/zap"
)

var ErrScript = errors.New("script error")

// Modules are the stdlib modules a controller script may import.
var Modules = []string{"math", "text", "fmt", "rand", "times", "enum"}

// Lookup resolves a body by scene name.
type Lookup func(name string) (*entity.RigidBody, bool)

// Controller is a manager entity that runs a script before every step. The
// script sees dt, tick, a persistent state map and functions over its
// target bodies.
type Controller struct {
	*entity.Base

	source  string
	origin  string
	targets []string
	lookup  Lookup

	bodies   map[string]*entity.RigidBody
	compiled *tengo.Compiled
	state    *tengo.Map
	callback sim.CallbackID
	runs     int
	err      error
}

func NewController(w *sim.World, log *zap.Logger, name string, lookup Lookup) *Controller {
	c := &Controller{lookup: lookup, origin: "<inline>"}
	c.Base = entity.NewBase(w, log, "controller", name, c)
	return c
}

// SetSource sets the script text. origin names it in diagnostics.
func (c *Controller) SetSource(source, origin string) {
	c.source = source
	if origin != "" {
		c.origin = origin
	}
}

// SetTargets names the bodies the script may read and drive.
func (c *Controller) SetTargets(names ...string) {
	c.targets = append([]string(nil), names...)
}

func (c *Controller) Targets() []string { return append([]string(nil), c.targets...) }

// Runs reports how many steps the script has completed.
func (c *Controller) Runs() int { return c.runs }

// Err is the runtime error that stopped the script, if any.
func (c *Controller) Err() error { return c.err }

// Running reports whether the script is still scheduled.
func (c *Controller) Running() bool { return c.callback != 0 }

// Global returns a script global after the last run.
func (c *Controller) Global(name string) any {
	if c.compiled == nil || !c.compiled.IsDefined(name) {
		return nil
	}
	return c.compiled.Get(name).Value()
}

func (c *Controller) Initialize() (native.Handle, error) {
	if strings.TrimSpace(c.source) == "" {
		return nil, fmt.Errorf("%w: %s: empty script", ErrScript, c.origin)
	}
	bodies := make(map[string]*entity.RigidBody, len(c.targets))
	for _, name := range c.targets {
		var rb *entity.RigidBody
		if c.lookup != nil {
			rb, _ = c.lookup(name)
		}
		if err := entity.Require(rb, fmt.Sprintf("target %q", name)); err != nil {
			return nil, err
		}
		bodies[name] = rb
	}
	c.bodies = bodies
	c.state = &tengo.Map{Value: map[string]tengo.Object{}}

	s := tengo.NewScript([]byte(c.source))
	_ = s.Add("dt", 0.0)
	_ = s.Add("tick", 0)
	_ = s.Add("state", c.state)
	for name, fn := range c.functions() {
		_ = s.Add(name, fn)
	}
	s.SetImports(stdlib.GetModuleMap(Modules...))

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrScript, c.origin, err)
	}
	c.compiled = compiled
	c.runs, c.err = 0, nil
	c.callback = c.Schedule(sim.PreStep, c.step)
	return nil, nil
}

func (c *Controller) OnDestroy() {
	c.callback = 0
	c.compiled = nil
}

func (c *Controller) step(dt float64) {
	if c.compiled == nil {
		return
	}
	err := c.compiled.Set("dt", dt)
	if err == nil {
		err = c.compiled.Set("tick", int64(c.World().Ticks()))
	}
	if err == nil {
		err = c.compiled.Run()
	}
	if err != nil {
		c.err = err
		c.Unschedule(c.callback)
		c.callback = 0
		c.Log().Error("script stopped", zap.String("script", c.origin), zap.Int("runs", c.runs), zap.Error(err))
		return
	}
	c.runs++
}

func (c *Controller) functions() map[string]tengo.Object {
	return map[string]tengo.Object{
		"position": &tengo.UserFunction{Name: "position", Value: func(args ...tengo.Object) (tengo.Object, error) {
			rb, err := c.target("position", args, 1)
			if err != nil {
				return nil, err
			}
			return vector(rb.Frame().Position()), nil
		}},
		"velocity": &tengo.UserFunction{Name: "velocity", Value: func(args ...tengo.Object) (tengo.Object, error) {
			rb, err := c.target("velocity", args, 1)
			if err != nil {
				return nil, err
			}
			if body := rb.Body(); body != nil {
				return vector(body.Velocity()), nil
			}
			return vector(rb.Velocity()), nil
		}},
		"set_velocity": &tengo.UserFunction{Name: "set_velocity", Value: func(args ...tengo.Object) (tengo.Object, error) {
			rb, err := c.target("set_velocity", args, 3)
			if err != nil {
				return nil, err
			}
			v, err := vectorArgs("set_velocity", args[1:])
			if err != nil {
				return nil, err
			}
			rb.SetVelocity(v)
			return tengo.TrueValue, nil
		}},
		"apply_force": &tengo.UserFunction{Name: "apply_force", Value: func(args ...tengo.Object) (tengo.Object, error) {
			rb, err := c.target("apply_force", args, 3)
			if err != nil {
				return nil, err
			}
			f, err := vectorArgs("apply_force", args[1:])
			if err != nil {
				return nil, err
			}
			if rb.ApplyForce(f) {
				return tengo.TrueValue, nil
			}
			return tengo.FalseValue, nil
		}},
	}
}

func (c *Controller) target(fn string, args []tengo.Object, want int) (*entity.RigidBody, error) {
	if len(args) != want {
		return nil, fmt.Errorf("%s: want %d arguments, got %d", fn, want, len(args))
	}
	name, ok := tengo.ToString(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: body name must be a string", fn)
	}
	rb, ok := c.bodies[name]
	if !ok {
		return nil, fmt.Errorf("%s: %q is not a target of %s", fn, name, c.Name())
	}
	return rb, nil
}

func vectorArgs(fn string, args []tengo.Object) (cp.Vector, error) {
	x, okX := tengo.ToFloat64(args[0])
	y, okY := tengo.ToFloat64(args[1])
	if !okX || !okY {
		return cp.Vector{}, fmt.Errorf("%s: x and y must be numbers", fn)
	}
	return cp.Vector{X: x, Y: y}, nil
}

func vector(v cp.Vector) tengo.Object {
	return &tengo.Array{Value: []tengo.Object{&tengo.Float{Value: v.X}, &tengo.Float{Value: v.Y}}}
}
