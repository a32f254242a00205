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

type MotionType int

const (
	Dynamic MotionType = iota
	Kinematic
	Static
)

func (m MotionType) String() string {
	switch m {
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	case Static:
		return "static"
	default:
		return "unknown"
	}
}

// ParseMotionType maps a scene keyword to a MotionType.
func ParseMotionType(s string) (MotionType, error) {
	switch s {
	case "", "dynamic":
		return Dynamic, nil
	case "kinematic":
		return Kinematic, nil
	case "static":
		return Static, nil
	default:
		return Dynamic, fmt.Errorf("%w: motion type %q", ErrInvalidProperty, s)
	}
}

// RigidBody owns one Chipmunk body. Its frame is the authored pose; after
// every step the simulated pose of a dynamic body is written back into it.
type RigidBody struct {
	*Base

	frame           *frame.Frame
	motion          MotionType
	mass            float64
	moment          float64
	fixedRotation   bool
	velocity        cp.Vector
	angularVelocity float64

	shapeMoment float64
	synced      frame.Pose
}

func NewRigidBody(w *sim.World, log *zap.Logger, name string) *RigidBody {
	rb := &RigidBody{frame: frame.New(nil, cp.Vector{}, 0), mass: 1}
	rb.Base = NewBase(w, log, "rigidbody", name, rb)
	return rb
}

// Frame is the authored pose of the body.
func (rb *RigidBody) Frame() *frame.Frame { return rb.frame }

// WorldPose implements frame.Node.
func (rb *RigidBody) WorldPose() frame.Pose { return rb.frame.WorldPose() }

// Parent implements frame.Parented.
func (rb *RigidBody) Parent() frame.Node { return rb.frame.Parent() }

func (rb *RigidBody) Motion() MotionType { return rb.motion }
func (rb *RigidBody) Mass() float64 { return rb.mass }
func (rb *RigidBody) Velocity() cp.Vector { return rb.velocity }
func (rb *RigidBody) FixedRotation() bool { return rb.fixedRotation }

// Body returns the engine body, nil unless initialized.
func (rb *RigidBody) Body() *cp.Body {
	if h, ok := rb.Handle().(*native.Composite); ok {
		return h.Body()
	}
	return nil
}

// SetMotion only takes effect at the next initialization.
func (rb *RigidBody) SetMotion(m MotionType) {
	rb.motion = m
}

func (rb *RigidBody) SetFixedRotation(fixed bool) {
	rb.fixedRotation = fixed
	if body := rb.Body(); body != nil && rb.motion == Dynamic {
		body.SetMoment(rb.currentMoment())
	}
}

func (rb *RigidBody) SetMass(mass float64) {
	rb.mass = mass
	if body := rb.Body(); body != nil && rb.motion == Dynamic && mass > 0 {
		body.SetMass(mass)
	}
}

// SetMoment sets an explicit moment of inertia; zero derives it from shapes.
func (rb *RigidBody) SetMoment(moment float64) {
	rb.moment = moment
	if body := rb.Body(); body != nil && rb.motion == Dynamic {
		body.SetMoment(rb.currentMoment())
	}
}

func (rb *RigidBody) SetVelocity(v cp.Vector) {
	rb.velocity = v
	if body := rb.Body(); body != nil && rb.motion != Static {
		body.SetVelocityVector(v)
	}
}

func (rb *RigidBody) SetAngularVelocity(w float64) {
	rb.angularVelocity = w
	if body := rb.Body(); body != nil && rb.motion != Static {
		body.SetAngularVelocity(w)
	}
}

// SetPosition moves the authored pose and, when live, the body.
func (rb *RigidBody) SetPosition(p cp.Vector) {
	rb.frame.SetPosition(p)
	rb.pushPose()
}

func (rb *RigidBody) SetRotation(r float64) {
	rb.frame.SetRotation(r)
	rb.pushPose()
}

// ApplyForce applies a world force at the center of gravity of a live body.
func (rb *RigidBody) ApplyForce(f cp.Vector) bool {
	body := rb.Body()
	if body == nil || rb.motion != Dynamic {
		return false
	}
	body.ApplyForceAtLocalPoint(f.Unrotate(cp.ForAngle(body.Angle())), cp.Vector{})
	return true
}

func (rb *RigidBody) Initialize() (native.Handle, error) {
	if rb.motion == Dynamic && rb.mass <= 0 {
		return nil, fmt.Errorf("%w: mass %v must be positive", ErrInvalidProperty, rb.mass)
	}
	// a body hung from another body needs that body placed first
	if parent, ok := rb.frame.Parent().(*RigidBody); ok {
		if err := Require(parent, "parent body"); err != nil {
			return nil, err
		}
	}

	pose := rb.frame.WorldPose()
	rb.shapeMoment = 0
	h, err := native.Build(func(b *native.Builder) error {
		var body *cp.Body
		switch rb.motion {
		case Static:
			body = cp.NewStaticBody()
		case Kinematic:
			body = cp.NewKinematicBody()
		default:
			body = cp.NewBody(rb.mass, rb.currentMoment())
		}
		body.SetPosition(pose.Position)
		body.SetAngle(pose.Rotation)
		if rb.motion != Static {
			body.SetVelocityVector(rb.velocity)
			body.SetAngularVelocity(rb.angularVelocity)
		}
		body.UserData = rb
		b.Body(body)
		return nil
	})
	if err != nil {
		return nil, err
	}
	rb.synced = pose

	rb.Schedule(sim.PreTransformSync, rb.preSync)
	if rb.motion == Dynamic {
		rb.Schedule(sim.PostTransformSync, rb.postSync)
	}
	return h, nil
}

func (rb *RigidBody) OnDestroy() {
	rb.shapeMoment = 0
}

// addShapeMoment accumulates a shape's moment when the body derives its
// inertia from its shapes.
func (rb *RigidBody) addShapeMoment(m float64) {
	rb.shapeMoment += m
	if rb.shapeMoment < 0 {
		rb.shapeMoment = 0
	}
	if body := rb.Body(); body != nil && rb.motion == Dynamic {
		body.SetMoment(rb.currentMoment())
	}
}

func (rb *RigidBody) currentMoment() float64 {
	switch {
	case rb.fixedRotation:
		return math.Inf(1)
	case rb.moment > 0:
		return rb.moment
	case rb.shapeMoment > 0:
		return rb.shapeMoment
	default:
		return cp.MomentForBox(rb.mass, 1, 1)
	}
}

// preSync pushes authored poses that moved with a parent chain into
// kinematic and static bodies.
func (rb *RigidBody) preSync(float64) {
	if rb.motion == Dynamic {
		return
	}
	pose := rb.frame.WorldPose()
	if pose == rb.synced {
		return
	}
	rb.pushPose()
}

// postSync copies the simulated pose back into the authored frame.
func (rb *RigidBody) postSync(float64) {
	body := rb.Body()
	if body == nil {
		return
	}
	pose := frame.Pose{Position: body.Position(), Rotation: frame.NormalizeAngle(body.Angle())}
	rb.frame.SetWorldPose(pose)
	rb.velocity = body.Velocity()
	rb.angularVelocity = body.AngularVelocity()
	rb.synced = rb.frame.WorldPose()
}

func (rb *RigidBody) pushPose() {
	body := rb.Body()
	if body == nil {
		return
	}
	pose := rb.frame.WorldPose()
	body.SetPosition(pose.Position)
	body.SetAngle(pose.Rotation)
	if rb.motion == Static {
		if space := rb.World().Space(); space != nil && space.ContainsBody(body) {
			reindexStatic(space, body)
		}
	}
	rb.synced = pose
}

// reindexStatic re-adds a static body's shapes so the static index picks up
// the moved pose.
func reindexStatic(space *cp.Space, body *cp.Body) {
	var shapes []*cp.Shape
	body.EachShape(func(s *cp.Shape) {
		shapes = append(shapes, s)
	})
	for _, s := range shapes {
		space.RemoveShape(s)
		space.AddShape(s)
	}
}
