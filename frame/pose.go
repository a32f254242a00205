package frame

import (
	"math"

	"github.com/jakecoffman/cp"
)

// Pose is a 2D position and orientation (radians).
type Pose struct {
	Position cp.Vector
	Rotation float64
}

// Identity is the pose of the world origin.
var Identity = Pose{}

// Mul composes p with a child pose expressed in p's local space.
func (p Pose) Mul(child Pose) Pose {
	return Pose{
		Position: p.Apply(child.Position),
		Rotation: NormalizeAngle(p.Rotation + child.Rotation),
	}
}

// Inverse returns the pose that maps p back to the identity.
func (p Pose) Inverse() Pose {
	return Pose{
		Position: p.Position.Neg().Unrotate(cp.ForAngle(p.Rotation)),
		Rotation: NormalizeAngle(-p.Rotation),
	}
}

// Apply transforms a point from p's local space into the parent space.
func (p Pose) Apply(point cp.Vector) cp.Vector {
	return p.Position.Add(point.Rotate(cp.ForAngle(p.Rotation)))
}

// ApplyInverse transforms a point from the parent space into p's local space.
func (p Pose) ApplyInverse(point cp.Vector) cp.Vector {
	return point.Sub(p.Position).Unrotate(cp.ForAngle(p.Rotation))
}

// NormalizeAngle wraps a to (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
