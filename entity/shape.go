package entity

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/frame"
	"github.com/milk9111/simrig/native"
	"github.com/milk9111/simrig/sim"
	"go.uber.org/zap"
)

type Geometry int

const (
	Box Geometry = iota
	Circle
	Segment
)

func (g Geometry) String() string {
	switch g {
	case Box:
		return "box"
	case Circle:
		return "circle"
	case Segment:
		return "segment"
	default:
		return "unknown"
	}
}

func ParseGeometry(s string) (Geometry, error) {
	switch s {
	case "box":
		return Box, nil
	case "circle":
		return Circle, nil
	case "segment":
		return Segment, nil
	default:
		return Box, fmt.Errorf("%w: geometry %q", ErrInvalidProperty, s)
	}
}

// Shape is collision geometry attached to a rigid body. Its frame is usually
// parented to the body but may hang from any node; the offset is projected
// into the body's space at initialization.
type Shape struct {
	*Base

	body     *RigidBody
	material *Material
	frame    *frame.Frame

	geometry Geometry
	width    float64
	height   float64
	radius   float64
	length   float64
	sensor   bool

	moment float64
}

func NewShape(w *sim.World, log *zap.Logger, name string, geometry Geometry) *Shape {
	s := &Shape{geometry: geometry, frame: frame.New(nil, cp.Vector{}, 0)}
	s.Base = NewBase(w, log, "shape", name, s)
	return s
}

func (s *Shape) Frame() *frame.Frame { return s.frame }
func (s *Shape) Geometry() Geometry { return s.geometry }
func (s *Shape) RigidBody() *RigidBody { return s.body }
func (s *Shape) Material() *Material { return s.material }

// SetRigidBody attaches the shape to body. When the shape frame has no
// parent yet it is parented to the body keeping its local offset.
func (s *Shape) SetRigidBody(body *RigidBody) {
	s.body = body
	if body != nil && s.frame.Parent() == nil {
		_ = s.frame.SetParent(body, false)
	}
}

func (s *Shape) SetMaterial(m *Material) {
	if prev := s.material; prev != nil && prev != m {
		prev.Unbind(s.CPShape())
	}
	s.material = m
	if shape := s.CPShape(); shape != nil && m != nil {
		if m.EnsureInitialized() {
			m.Bind(shape)
		}
	}
}

// SetBox sets box extents.
func (s *Shape) SetBox(width, height float64) {
	s.width, s.height = width, height
}

// SetRadius sets the circle radius, or the bevel of boxes and segments.
// Geometry changes apply at the next initialization.
func (s *Shape) SetRadius(radius float64) {
	s.radius = radius
}

// SetLength sets the segment length along the local x axis.
func (s *Shape) SetLength(length float64) {
	s.length = length
}

func (s *Shape) SetSensor(sensor bool) {
	s.sensor = sensor
	if shape := s.CPShape(); shape != nil {
		shape.SetSensor(sensor)
	}
}

// CPShape returns the engine shape, nil unless initialized.
func (s *Shape) CPShape() *cp.Shape {
	if h, ok := s.Handle().(*native.Composite); ok {
		return h.Shape()
	}
	return nil
}

func (s *Shape) Initialize() (native.Handle, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if err := Require(s.body, "rigid body"); err != nil {
		return nil, err
	}
	if s.material != nil {
		if err := Require(s.material, "material"); err != nil {
			return nil, err
		}
	}

	if s.World().GetOrCreate() == nil {
		return nil, ErrWorldUnavailable
	}

	body := s.body.Body()
	offset := s.frame.CalculateLocalPosition(s.body)
	angle := s.frame.CalculateLocalRotation(s.body)
	mass := s.body.Mass()

	h, err := native.Build(func(b *native.Builder) error {
		var shape *cp.Shape
		switch s.geometry {
		case Circle:
			shape = cp.NewCircle(body, s.radius, offset)
			s.moment = cp.MomentForCircle(mass, 0, s.radius, offset)
		case Segment:
			half := cp.ForAngle(angle).Mult(s.length / 2)
			a, c := offset.Sub(half), offset.Add(half)
			shape = cp.NewSegment(body, a, c, s.radius)
			s.moment = mass * (s.length*s.length/12 + offset.LengthSq())
		default:
			shape = cp.NewPolyShapeRaw(body, 4, s.boxVerts(offset, angle), s.radius)
			s.moment = cp.MomentForBox(mass, s.width, s.height) + mass*offset.LengthSq()
		}
		shape.SetSensor(s.sensor)
		shape.UserData = s
		b.Shape(shape)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.material == nil {
		h.Shape().SetFriction(0.8)
	}
	return h, nil
}

// OnInitialized binds the material and adds the moment once the shape is
// registered, so a failed registration leaves the body and material alone.
func (s *Shape) OnInitialized() {
	shape := s.CPShape()
	if shape == nil {
		return
	}
	if s.material != nil {
		s.material.Bind(shape)
	}
	s.body.addShapeMoment(s.moment)
}

func (s *Shape) OnDestroy() {
	if shape := s.CPShape(); shape != nil {
		if s.material != nil {
			s.material.Unbind(shape)
		}
		if s.body != nil && s.body.IsInitialized() {
			s.body.addShapeMoment(-s.moment)
		}
	}
	s.moment = 0
}

func (s *Shape) validate() error {
	switch s.geometry {
	case Box:
		if s.width <= 0 || s.height <= 0 {
			return fmt.Errorf("%w: box %vx%v", ErrInvalidProperty, s.width, s.height)
		}
	case Circle:
		if s.radius <= 0 {
			return fmt.Errorf("%w: circle radius %v", ErrInvalidProperty, s.radius)
		}
	case Segment:
		if s.length <= 0 {
			return fmt.Errorf("%w: segment length %v", ErrInvalidProperty, s.length)
		}
	default:
		return fmt.Errorf("%w: geometry %d", ErrInvalidProperty, s.geometry)
	}
	return nil
}

// boxVerts returns the box corners in body space, counter-clockwise.
func (s *Shape) boxVerts(offset cp.Vector, angle float64) []cp.Vector {
	hw, hh := s.width/2, s.height/2
	rot := cp.ForAngle(angle)
	corners := []cp.Vector{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}}
	for i, c := range corners {
		corners[i] = offset.Add(c.Rotate(rot))
	}
	return corners
}
