package entity

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/frame"
	"github.com/milk9111/simrig/native"
	"github.com/milk9111/simrig/sim"
	"go.uber.org/zap"
)

type ConstraintType int

const (
	Hinge ConstraintType = iota
	Distance
	Slide
	Spring
)

func (c ConstraintType) String() string {
	switch c {
	case Hinge:
		return "hinge"
	case Distance:
		return "distance"
	case Slide:
		return "slide"
	case Spring:
		return "spring"
	default:
		return "unknown"
	}
}

func ParseConstraintType(s string) (ConstraintType, error) {
	switch s {
	case "hinge":
		return Hinge, nil
	case "distance":
		return Distance, nil
	case "slide":
		return Slide, nil
	case "spring":
		return Spring, nil
	default:
		return Hinge, fmt.Errorf("%w: constraint type %q", ErrInvalidProperty, s)
	}
}

// Constraint joins body A to body B, or to the world when B is nil. The
// attachment frames are authored anywhere and projected into each body's
// local space at initialization.
type Constraint struct {
	*Base

	kind   ConstraintType
	bodyA  *RigidBody
	bodyB  *RigidBody
	frameA *frame.Frame
	frameB *frame.Frame

	maxForce      float64
	min, max      float64
	restLength    float64
	stiffness     float64
	damping       float64
	collideBodies bool
}

func NewConstraint(w *sim.World, log *zap.Logger, name string, kind ConstraintType) *Constraint {
	c := &Constraint{
		kind:      kind,
		frameA:    frame.New(nil, cp.Vector{}, 0),
		frameB:    frame.New(nil, cp.Vector{}, 0),
		maxForce:  math.Inf(1),
		stiffness: 100,
		damping:   10,
	}
	c.Base = NewBase(w, log, "constraint", name, c)
	return c
}

func (c *Constraint) Type() ConstraintType { return c.kind }
func (c *Constraint) BodyA() *RigidBody { return c.bodyA }
func (c *Constraint) BodyB() *RigidBody { return c.bodyB }

// FrameA is the attachment on body A; for hinges it is the pivot.
func (c *Constraint) FrameA() *frame.Frame { return c.frameA }

// FrameB is the attachment on body B or the world.
func (c *Constraint) FrameB() *frame.Frame { return c.frameB }

// SetBodies sets the connected bodies. b may be nil for a world attachment.
// Unparented attachment frames are parented to their bodies.
func (c *Constraint) SetBodies(a, b *RigidBody) {
	c.bodyA, c.bodyB = a, b
	if a != nil && c.frameA.Parent() == nil {
		_ = c.frameA.SetParent(a, false)
	}
	if b != nil && c.frameB.Parent() == nil {
		_ = c.frameB.SetParent(b, false)
	}
}

func (c *Constraint) SetLimits(min, max float64) {
	c.min, c.max = min, max
	if sj, ok := c.joint().(*cp.SlideJoint); ok {
		sj.Min, sj.Max = min, max
	}
}

func (c *Constraint) SetRestLength(l float64) {
	c.restLength = l
	if ds, ok := c.joint().(*cp.DampedSpring); ok {
		ds.RestLength = l
	}
}

func (c *Constraint) SetStiffness(k float64) {
	c.stiffness = k
	if ds, ok := c.joint().(*cp.DampedSpring); ok {
		ds.Stiffness = k
	}
}

func (c *Constraint) SetDamping(d float64) {
	c.damping = d
	if ds, ok := c.joint().(*cp.DampedSpring); ok {
		ds.Damping = d
	}
}

func (c *Constraint) SetMaxForce(f float64) {
	c.maxForce = f
	if cons := c.CPConstraint(); cons != nil {
		cons.SetMaxForce(f)
	}
}

func (c *Constraint) SetCollideBodies(collide bool) {
	c.collideBodies = collide
	if cons := c.CPConstraint(); cons != nil {
		cons.SetCollideBodies(collide)
	}
}

func (c *Constraint) MaxForce() float64 { return c.maxForce }

// CPConstraint returns the engine constraint, nil unless initialized.
func (c *Constraint) CPConstraint() *cp.Constraint {
	if h, ok := c.Handle().(*native.Composite); ok {
		return h.Constraint()
	}
	return nil
}

func (c *Constraint) joint() any {
	if cons := c.CPConstraint(); cons != nil {
		return cons.Class
	}
	return nil
}

func (c *Constraint) Initialize() (native.Handle, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if err := Require(c.bodyA, "body A"); err != nil {
		return nil, err
	}
	var b *cp.Body
	var nodeB frame.Node
	if c.bodyB != nil {
		if err := Require(c.bodyB, "body B"); err != nil {
			return nil, err
		}
		b = c.bodyB.Body()
		nodeB = c.bodyB
	} else {
		space := c.World().GetOrCreate()
		if space == nil {
			return nil, ErrWorldUnavailable
		}
		b = space.StaticBody
	}
	a := c.bodyA.Body()

	anchorA := c.frameA.CalculateLocalPosition(c.bodyA)
	anchorB := c.frameB.CalculateLocalPosition(nodeB)
	pivotB := c.frameA.CalculateLocalPosition(nodeB)

	return native.Build(func(bld *native.Builder) error {
		var cons *cp.Constraint
		switch c.kind {
		case Hinge:
			cons = cp.NewPivotJoint2(a, b, anchorA, pivotB)
		case Distance:
			cons = cp.NewPinJoint(a, b, anchorA, anchorB)
		case Slide:
			cons = cp.NewSlideJoint(a, b, anchorA, anchorB, c.min, c.max)
		case Spring:
			cons = cp.NewDampedSpring(a, b, anchorA, anchorB, c.restLength, c.stiffness, c.damping)
		default:
			return fmt.Errorf("%w: constraint type %d", ErrInvalidProperty, c.kind)
		}
		cons.SetMaxForce(c.maxForce)
		cons.SetCollideBodies(c.collideBodies)
		bld.Constraint(cons)
		return nil
	})
}

func (c *Constraint) validate() error {
	if c.bodyA != nil && c.bodyA == c.bodyB {
		return fmt.Errorf("%w: body A and body B are the same body %q", ErrInvalidProperty, c.bodyA.Name())
	}
	if c.maxForce < 0 {
		return fmt.Errorf("%w: max force %v < 0", ErrInvalidProperty, c.maxForce)
	}
	switch c.kind {
	case Slide:
		if c.min < 0 || c.max < c.min {
			return fmt.Errorf("%w: slide limits [%v, %v]", ErrInvalidProperty, c.min, c.max)
		}
	case Spring:
		if c.stiffness <= 0 || c.damping < 0 || c.restLength < 0 {
			return fmt.Errorf("%w: spring k=%v d=%v rest=%v", ErrInvalidProperty, c.stiffness, c.damping, c.restLength)
		}
	}
	return nil
}
