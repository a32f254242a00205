// Package frame holds relative poses and the owning-node chains they hang from.
//
// A Frame stores only its local pose. The world pose is always derived from
// the current parent chain, so moving a parent moves every frame below it.
package frame

import (
	"errors"

	"github.com/jakecoffman/cp"
)

// ErrParentCycle is returned when a frame would become its own ancestor.
var ErrParentCycle = errors.New("frame: parent cycle")

// Node is anything with a world pose a frame can hang from.
type Node interface {
	WorldPose() Pose
}

// Parented is implemented by nodes that are themselves attached to a parent.
type Parented interface {
	Parent() Node
}

// Framed is implemented by nodes that carry their pose in a Frame.
type Framed interface {
	Frame() *Frame
}

// Frame is a pose relative to an optional owning node; nil means world.
type Frame struct {
	parent Node
	local  Pose
}

// New creates a frame with a local pose under parent.
func New(parent Node, localPosition cp.Vector, localRotation float64) *Frame {
	return &Frame{
		parent: normalizeNode(parent),
		local:  Pose{Position: localPosition, Rotation: NormalizeAngle(localRotation)},
	}
}

// AtWorld creates a frame under parent whose world pose is pose.
func AtWorld(parent Node, pose Pose) *Frame {
	f := &Frame{parent: normalizeNode(parent)}
	f.SetWorldPose(pose)
	return f
}

func (f *Frame) Parent() Node {
	if f == nil {
		return nil
	}
	return f.parent
}

// SetParent moves f under node. With preserveWorldPose the local pose is
// recomputed so the world pose does not change; otherwise the local pose is
// kept and the world pose follows the new parent.
func (f *Frame) SetParent(node Node, preserveWorldPose bool) error {
	node = normalizeNode(node)
	if node == f.parent {
		return nil
	}
	if createsCycle(f, node) {
		return ErrParentCycle
	}
	if !preserveWorldPose {
		f.parent = node
		return nil
	}
	world := f.WorldPose()
	f.parent = node
	f.SetWorldPose(world)
	return nil
}

// WorldPose implements Node.
func (f *Frame) WorldPose() Pose {
	if f.parent == nil {
		return f.local
	}
	return f.parent.WorldPose().Mul(f.local)
}

// LocalPose returns the pose relative to the parent.
func (f *Frame) LocalPose() Pose {
	return f.local
}

// SetWorldPose moves f so its world pose becomes pose.
func (f *Frame) SetWorldPose(pose Pose) {
	f.local = parentPose(f.parent).Inverse().Mul(pose)
}

func (f *Frame) Position() cp.Vector {
	return f.WorldPose().Position
}

func (f *Frame) Rotation() float64 {
	return f.WorldPose().Rotation
}

func (f *Frame) LocalPosition() cp.Vector {
	return f.local.Position
}

func (f *Frame) LocalRotation() float64 {
	return f.local.Rotation
}

func (f *Frame) SetPosition(position cp.Vector) {
	f.local.Position = parentPose(f.parent).ApplyInverse(position)
}

func (f *Frame) SetRotation(rotation float64) {
	f.local.Rotation = NormalizeAngle(rotation - parentPose(f.parent).Rotation)
}

func (f *Frame) SetLocalPosition(position cp.Vector) {
	f.local.Position = position
}

func (f *Frame) SetLocalRotation(rotation float64) {
	f.local.Rotation = NormalizeAngle(rotation)
}

// CalculateLocalPosition projects the current world position of f into the
// local space of other, ignoring f's own parent.
func (f *Frame) CalculateLocalPosition(other Node) cp.Vector {
	return parentPose(normalizeNode(other)).ApplyInverse(f.Position())
}

// CalculateLocalRotation projects the current world rotation of f into the
// local space of other.
func (f *Frame) CalculateLocalRotation(other Node) float64 {
	return NormalizeAngle(f.Rotation() - parentPose(normalizeNode(other)).Rotation)
}

// TransformPoint maps a point in f's space to world space.
func (f *Frame) TransformPoint(point cp.Vector) cp.Vector {
	return f.WorldPose().Apply(point)
}

// InverseTransformPoint maps a world point into f's space.
func (f *Frame) InverseTransformPoint(point cp.Vector) cp.Vector {
	return f.WorldPose().ApplyInverse(point)
}

func parentPose(node Node) Pose {
	if node == nil {
		return Identity
	}
	return node.WorldPose()
}

func createsCycle(f *Frame, node Node) bool {
	for n := node; n != nil; {
		if fr, ok := n.(*Frame); ok && fr == f {
			return true
		}
		if fd, ok := n.(Framed); ok && fd.Frame() == f {
			return true
		}
		p, ok := n.(Parented)
		if !ok {
			return false
		}
		n = p.Parent()
	}
	return false
}

func normalizeNode(node Node) Node {
	if fr, ok := node.(*Frame); ok && fr == nil {
		return nil
	}
	return node
}
