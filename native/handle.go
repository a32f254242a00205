// Package native wraps the Chipmunk objects owned by one simulated entity.
//
// A Handle is the only owner of its bodies, shapes and constraints. The space
// it is attached to holds a non-owning registration that is added after
// construction and removed before release.
package native

import (
	"github.com/jakecoffman/cp"
)

// Handle is an opaque ownership wrapper around engine objects.
type Handle interface {
	// Attach registers the objects with space. Attaching twice is a no-op.
	Attach(space *cp.Space) bool
	// Detach removes the objects from space. Detaching an unattached handle is a no-op.
	Detach(space *cp.Space) bool
	// Release detaches if needed and drops every engine reference.
	Release()
	Released() bool
}

// Composite owns any mix of bodies, shapes and constraints.
type Composite struct {
	bodies      []*cp.Body
	shapes      []*cp.Shape
	constraints []*cp.Constraint

	space    *cp.Space
	released bool
}

// NewComposite wraps already constructed engine objects.
func NewComposite(bodies []*cp.Body, shapes []*cp.Shape, constraints []*cp.Constraint) *Composite {
	return &Composite{
		bodies:      append([]*cp.Body(nil), bodies...),
		shapes:      append([]*cp.Shape(nil), shapes...),
		constraints: append([]*cp.Constraint(nil), constraints...),
	}
}

func (c *Composite) Bodies() []*cp.Body {
	if c == nil {
		return nil
	}
	return c.bodies
}

func (c *Composite) Shapes() []*cp.Shape {
	if c == nil {
		return nil
	}
	return c.shapes
}

func (c *Composite) Constraints() []*cp.Constraint {
	if c == nil {
		return nil
	}
	return c.constraints
}

// Body returns the first owned body, if any.
func (c *Composite) Body() *cp.Body {
	if c == nil || len(c.bodies) == 0 {
		return nil
	}
	return c.bodies[0]
}

// Shape returns the first owned shape, if any.
func (c *Composite) Shape() *cp.Shape {
	if c == nil || len(c.shapes) == 0 {
		return nil
	}
	return c.shapes[0]
}

// Constraint returns the first owned constraint, if any.
func (c *Composite) Constraint() *cp.Constraint {
	if c == nil || len(c.constraints) == 0 {
		return nil
	}
	return c.constraints[0]
}

// Space returns the space the handle is attached to.
func (c *Composite) Space() *cp.Space {
	if c == nil {
		return nil
	}
	return c.space
}

func (c *Composite) Attach(space *cp.Space) bool {
	if c == nil || c.released || space == nil {
		return false
	}
	if c.space == space {
		return false
	}
	if c.space != nil {
		c.Detach(c.space)
	}
	c.space = space

	// bodies before shapes before constraints
	for _, body := range c.bodies {
		if body != nil && !space.ContainsBody(body) {
			space.AddBody(body)
		}
	}
	for _, shape := range c.shapes {
		if shape != nil && !space.ContainsShape(shape) {
			space.AddShape(shape)
		}
	}
	for _, constraint := range c.constraints {
		if constraint != nil && !space.ContainsConstraint(constraint) {
			space.AddConstraint(constraint)
		}
	}
	return true
}

func (c *Composite) Detach(space *cp.Space) bool {
	if c == nil || space == nil || c.space != space {
		return false
	}

	for _, constraint := range c.constraints {
		if constraint != nil && space.ContainsConstraint(constraint) {
			space.RemoveConstraint(constraint)
		}
	}
	for _, shape := range c.shapes {
		if shape != nil && space.ContainsShape(shape) {
			space.RemoveShape(shape)
		}
	}
	for _, body := range c.bodies {
		if body == nil || !space.ContainsBody(body) {
			continue
		}
		detachDependents(space, body)
		space.RemoveBody(body)
	}
	c.space = nil
	return true
}

func (c *Composite) Release() {
	if c == nil || c.released {
		return
	}
	if c.space != nil {
		c.Detach(c.space)
	}
	for _, body := range c.bodies {
		if body != nil {
			body.UserData = nil
		}
	}
	for _, shape := range c.shapes {
		if shape != nil {
			shape.UserData = nil
		}
	}
	c.bodies = nil
	c.shapes = nil
	c.constraints = nil
	c.released = true
}

func (c *Composite) Released() bool {
	return c == nil || c.released
}

// detachDependents removes shapes and constraints owned by other handles that
// still reference body. Destruction order between entities is unspecified, so
// a body may leave the space before the shapes built on it.
func detachDependents(space *cp.Space, body *cp.Body) {
	var shapes []*cp.Shape
	body.EachShape(func(shape *cp.Shape) {
		shapes = append(shapes, shape)
	})
	var constraints []*cp.Constraint
	body.EachConstraint(func(constraint *cp.Constraint) {
		constraints = append(constraints, constraint)
	})

	for _, constraint := range constraints {
		if space.ContainsConstraint(constraint) {
			space.RemoveConstraint(constraint)
		}
	}
	for _, shape := range shapes {
		if space.ContainsShape(shape) {
			space.RemoveShape(shape)
		}
	}
}
