package scene

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/config"
	"github.com/milk9111/simrig/entity"
	"github.com/milk9111/simrig/script"
	"github.com/milk9111/simrig/sim"
	"go.uber.org/zap"
)

var ErrDuplicateName = errors.New("scene: duplicate name")

// Build creates every entity of spec in declaration order, Constructed. A
// name that refers to nothing is not an error here; the referencing entity
// reports it when it initializes. Unknown keywords and duplicate names fail
// the build.
func Build(world *sim.World, spec *Spec, cfg *config.Config, log *zap.Logger) (*Scene, error) {
	s := newScene(world, spec, cfg, log)
	b := &builder{scene: s, names: make(map[string]string)}

	for _, ms := range spec.Materials {
		if err := b.material(ms); err != nil {
			return nil, err
		}
	}
	bodies := make([]*entity.RigidBody, 0, len(spec.Bodies))
	for _, bs := range spec.Bodies {
		rb, err := b.body(bs)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, rb)
	}
	// parents may be declared after their children
	for i, bs := range spec.Bodies {
		if err := b.parent(bodies[i], bs); err != nil {
			return nil, err
		}
	}
	for _, cs := range spec.Constraints {
		if err := b.constraint(cs); err != nil {
			return nil, err
		}
	}
	for _, ws := range spec.Wires {
		if err := b.wire(ws); err != nil {
			return nil, err
		}
	}
	for _, cs := range spec.Controllers {
		if err := b.controller(cs); err != nil {
			return nil, err
		}
	}
	s.log.Debug("scene built", zap.Int("entities", len(s.entities)))
	return s, nil
}

type builder struct {
	scene *Scene
	names map[string]string
}

func (b *builder) claim(kind, name string) error {
	if name == "" {
		return fmt.Errorf("scene: %s without a name", kind)
	}
	if prev, ok := b.names[name]; ok {
		return fmt.Errorf("%w: %s %q already used by a %s", ErrDuplicateName, kind, name, prev)
	}
	b.names[name] = kind
	return nil
}

func (b *builder) material(ms MaterialSpec) error {
	if err := b.claim("material", ms.Name); err != nil {
		return err
	}
	s := b.scene
	m := entity.NewMaterial(s.world, s.log, ms.Name)
	if ms.Friction != nil {
		m.SetFriction(*ms.Friction)
	}
	m.SetElasticity(ms.Elasticity)
	s.materials[ms.Name] = m
	s.add(m)
	return nil
}

func (b *builder) body(bs BodySpec) (*entity.RigidBody, error) {
	if err := b.claim("body", bs.Name); err != nil {
		return nil, err
	}
	motion, err := entity.ParseMotionType(bs.Motion)
	if err != nil {
		return nil, fmt.Errorf("scene: body %q: %w", bs.Name, err)
	}
	s := b.scene
	rb := entity.NewRigidBody(s.world, s.log, bs.Name)
	rb.SetMotion(motion)
	rb.Frame().SetLocalPosition(vec(bs.Position))
	rb.Frame().SetLocalRotation(bs.Rotation)
	if bs.Mass != nil {
		rb.SetMass(*bs.Mass)
	}
	rb.SetMoment(bs.Moment)
	rb.SetFixedRotation(bs.FixedRotation)
	rb.SetVelocity(vec(bs.Velocity))
	rb.SetAngularVelocity(bs.AngularVelocity)
	s.bodies[bs.Name] = rb
	s.add(rb)

	for i, ss := range bs.Shapes {
		if ss.Name == "" {
			ss.Name = fmt.Sprintf("%s/shape%d", bs.Name, i)
		}
		if err := b.shape(rb, ss); err != nil {
			return nil, err
		}
	}
	return rb, nil
}

// parent hangs rb from another body. Positions of parented bodies are local
// to the parent.
func (b *builder) parent(rb *entity.RigidBody, bs BodySpec) error {
	if bs.Parent == "" {
		return nil
	}
	s := b.scene
	p, ok := s.bodies[bs.Parent]
	if !ok {
		s.note(rb, fmt.Sprintf("unknown parent body %q", bs.Parent))
		return nil
	}
	if err := rb.Frame().SetParent(p, false); err != nil {
		return fmt.Errorf("scene: body %q parent %q: %w", bs.Name, bs.Parent, err)
	}
	return nil
}

func (b *builder) shape(rb *entity.RigidBody, ss ShapeSpec) error {
	if err := b.claim("shape", ss.Name); err != nil {
		return err
	}
	geometry, err := entity.ParseGeometry(ss.Geometry)
	if err != nil {
		return fmt.Errorf("scene: shape %q: %w", ss.Name, err)
	}
	s := b.scene
	sh := entity.NewShape(s.world, s.log, ss.Name, geometry)
	sh.SetRigidBody(rb)
	sh.Frame().SetLocalPosition(vec(ss.Offset))
	sh.Frame().SetLocalRotation(ss.Rotation)
	sh.SetBox(ss.Width, ss.Height)
	sh.SetRadius(ss.Radius)
	sh.SetLength(ss.Length)
	sh.SetSensor(ss.Sensor)
	if ss.Material != "" {
		if m, ok := s.materials[ss.Material]; ok {
			sh.SetMaterial(m)
		} else {
			s.note(sh, fmt.Sprintf("unknown material %q", ss.Material))
		}
	}
	s.add(sh)
	return nil
}

func (b *builder) constraint(cs ConstraintSpec) error {
	if err := b.claim("constraint", cs.Name); err != nil {
		return err
	}
	kind, err := entity.ParseConstraintType(cs.Type)
	if err != nil {
		return fmt.Errorf("scene: constraint %q: %w", cs.Name, err)
	}
	s := b.scene
	c := entity.NewConstraint(s.world, s.log, cs.Name, kind)

	bodyA := s.lookupBody(c, "body_a", cs.BodyA)
	var bodyB *entity.RigidBody
	if cs.BodyB != "" {
		bodyB = s.lookupBody(c, "body_b", cs.BodyB)
	}
	c.SetBodies(bodyA, bodyB)
	c.FrameA().SetLocalPosition(vec(cs.AnchorA))
	if cs.BodyB == "" {
		c.FrameB().SetPosition(vec(cs.AnchorB))
	} else {
		c.FrameB().SetLocalPosition(vec(cs.AnchorB))
	}
	if cs.Pivot != nil {
		c.FrameA().SetPosition(vec(*cs.Pivot))
	}

	c.SetLimits(cs.Min, cs.Max)
	c.SetRestLength(cs.RestLength)
	if cs.Stiffness != nil {
		c.SetStiffness(*cs.Stiffness)
	}
	if cs.Damping != nil {
		c.SetDamping(*cs.Damping)
	}
	if cs.MaxForce != nil {
		c.SetMaxForce(*cs.MaxForce)
	}
	c.SetCollideBodies(cs.CollideBodies)
	s.add(c)
	return nil
}

func (b *builder) wire(ws WireSpec) error {
	if err := b.claim("wire", ws.Name); err != nil {
		return err
	}
	s := b.scene
	w := entity.NewWire(s.world, s.log, ws.Name, s.cfg.Route)
	if ws.Radius != nil {
		w.SetRadius(*ws.Radius)
	}
	if ws.Resolution != nil {
		w.SetResolution(*ws.Resolution)
	}
	if ws.MassPerLength != nil {
		w.SetMassPerLength(*ws.MassPerLength)
	}
	if ws.MinSeparation != nil {
		w.SetMinSeparation(*ws.MinSeparation)
	}
	if ws.Material != "" {
		if m, ok := s.materials[ws.Material]; ok {
			w.SetMaterial(m)
		} else {
			s.note(w, fmt.Sprintf("unknown material %q", ws.Material))
		}
	}
	s.wires[ws.Name] = w
	s.add(w)

	for i, ns := range ws.Nodes {
		if ns.Name == "" {
			ns.Name = fmt.Sprintf("%s/node%d", ws.Name, i)
		}
		if err := b.claim("route node", ns.Name); err != nil {
			return err
		}
		typ, err := entity.ParseNodeType(ns.Type)
		if err != nil {
			return fmt.Errorf("scene: route node %q: %w", ns.Name, err)
		}
		n := entity.NewRouteNode(s.world, s.log, ns.Name, typ)
		n.Frame().SetPosition(vec(ns.Position))
		if ns.Body != "" {
			n.SetRigidBody(s.lookupBody(n, "body", ns.Body))
		}
		n.SetPayout(ns.Payout)
		if err := w.Route().Add(n); err != nil {
			return fmt.Errorf("scene: wire %q: %w", ws.Name, err)
		}
		s.add(n)
	}
	return nil
}

func (b *builder) controller(cs ControllerSpec) error {
	if err := b.claim("controller", cs.Name); err != nil {
		return err
	}
	s := b.scene
	c := script.NewController(s.world, s.log, cs.Name, s.lookupTarget(cs.Name))
	switch {
	case cs.Source != "":
		c.SetSource(cs.Source, cs.Name+" (inline)")
	case cs.Script != "":
		if data, err := s.readScript(cs.Script); err != nil {
			s.note(c, fmt.Sprintf("script %s: %v", cs.Script, err))
		} else {
			c.SetSource(string(data), cs.Script)
		}
	}
	c.SetTargets(cs.Targets...)
	s.controllers[cs.Name] = c
	s.add(c)
	return nil
}

func vec(v Vec) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}
