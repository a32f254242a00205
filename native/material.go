package native

import "github.com/jakecoffman/cp"

// Surface is the value-only handle of a material. The engine has no material
// object, so attaching only records the registration.
type Surface struct {
	Friction   float64
	Elasticity float64

	space    *cp.Space
	released bool
}

func NewSurface(friction, elasticity float64) *Surface {
	return &Surface{Friction: friction, Elasticity: elasticity}
}

// Apply copies the surface values onto shape.
func (s *Surface) Apply(shape *cp.Shape) {
	if s == nil || s.released || shape == nil {
		return
	}
	shape.SetFriction(s.Friction)
	shape.SetElasticity(s.Elasticity)
}

func (s *Surface) Attach(space *cp.Space) bool {
	if s == nil || s.released || space == nil || s.space == space {
		return false
	}
	s.space = space
	return true
}

func (s *Surface) Detach(space *cp.Space) bool {
	if s == nil || space == nil || s.space != space {
		return false
	}
	s.space = nil
	return true
}

func (s *Surface) Release() {
	if s == nil {
		return
	}
	s.space = nil
	s.released = true
}

func (s *Surface) Released() bool {
	return s == nil || s.released
}
