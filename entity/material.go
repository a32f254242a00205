package entity

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/native"
	"github.com/milk9111/simrig/sim"
	"go.uber.org/zap"
)

// Material is a surface asset shared by shapes. Setters push into every live
// shape using it.
type Material struct {
	*Base

	friction   float64
	elasticity float64

	surface *native.Surface
	users   map[*cp.Shape]struct{}
}

func NewMaterial(w *sim.World, log *zap.Logger, name string) *Material {
	m := &Material{friction: 0.8, users: make(map[*cp.Shape]struct{})}
	m.Base = NewBase(w, log, "material", name, m)
	return m
}

func (m *Material) Friction() float64 { return m.friction }
func (m *Material) Elasticity() float64 { return m.elasticity }

func (m *Material) SetFriction(v float64) {
	m.friction = v
	if m.surface != nil {
		m.surface.Friction = v
		m.push()
	}
}

func (m *Material) SetElasticity(v float64) {
	m.elasticity = v
	if m.surface != nil {
		m.surface.Elasticity = v
		m.push()
	}
}

func (m *Material) Initialize() (native.Handle, error) {
	if m.friction < 0 {
		return nil, fmt.Errorf("%w: friction %v < 0", ErrInvalidProperty, m.friction)
	}
	if m.elasticity < 0 {
		return nil, fmt.Errorf("%w: elasticity %v < 0", ErrInvalidProperty, m.elasticity)
	}
	m.surface = native.NewSurface(m.friction, m.elasticity)
	return m.surface, nil
}

// Bind applies the material to shape and keeps it updated. It is a no-op
// unless the material is initialized.
func (m *Material) Bind(shape *cp.Shape) bool {
	if m == nil || m.surface == nil || shape == nil || !m.IsInitialized() {
		return false
	}
	m.surface.Apply(shape)
	m.users[shape] = struct{}{}
	return true
}

// Unbind stops pushing updates to shape.
func (m *Material) Unbind(shape *cp.Shape) {
	if m == nil {
		return
	}
	delete(m.users, shape)
}

// Users reports how many live shapes the material is bound to.
func (m *Material) Users() int {
	return len(m.users)
}

func (m *Material) OnDestroy() {
	m.users = make(map[*cp.Shape]struct{})
	m.surface = nil
}

func (m *Material) push() {
	for shape := range m.users {
		m.surface.Apply(shape)
	}
}
