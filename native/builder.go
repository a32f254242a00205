package native

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"
)

// ErrEngine marks a construction the engine rejected.
var ErrEngine = errors.New("native: engine rejected construction")

// Builder collects engine objects while an entity constructs them so that a
// failed construction can be rolled back as a unit.
type Builder struct {
	bodies      []*cp.Body
	shapes      []*cp.Shape
	constraints []*cp.Constraint
}

func (b *Builder) Body(body *cp.Body) *cp.Body {
	if body != nil {
		b.bodies = append(b.bodies, body)
	}
	return body
}

func (b *Builder) Shape(shape *cp.Shape) *cp.Shape {
	if shape != nil {
		b.shapes = append(b.shapes, shape)
	}
	return shape
}

func (b *Builder) Constraint(constraint *cp.Constraint) *cp.Constraint {
	if constraint != nil {
		b.constraints = append(b.constraints, constraint)
	}
	return constraint
}

// Len reports how many objects the builder currently holds.
func (b *Builder) Len() int {
	return len(b.bodies) + len(b.shapes) + len(b.constraints)
}

// Rollback drops everything built so far.
func (b *Builder) Rollback() {
	for _, body := range b.bodies {
		body.UserData = nil
	}
	for _, shape := range b.shapes {
		shape.UserData = nil
	}
	b.bodies = nil
	b.shapes = nil
	b.constraints = nil
}

func (b *Builder) handle() *Composite {
	h := NewComposite(b.bodies, b.shapes, b.constraints)
	b.bodies = nil
	b.shapes = nil
	b.constraints = nil
	return h
}

// Build runs fn with a fresh builder. If fn fails or the engine panics, the
// partial objects are rolled back and nil is returned.
func Build(fn func(b *Builder) error) (*Composite, error) {
	b := &Builder{}
	if err := Try(func() error { return fn(b) }); err != nil {
		b.Rollback()
		return nil, err
	}
	return b.handle(), nil
}

// Fatal is implemented by panic values that must never be converted into
// errors, such as a reentrant initialization.
type Fatal interface {
	Fatal()
}

// Try runs fn and converts an engine panic into an ErrEngine error. Fatal
// panics are re-raised.
func Try(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(Fatal); ok {
				panic(r)
			}
			err = fmt.Errorf("%w: %v", ErrEngine, r)
		}
	}()
	return fn()
}
