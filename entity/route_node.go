package entity

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/frame"
	"github.com/milk9111/simrig/native"
	"github.com/milk9111/simrig/sim"
	"go.uber.org/zap"
)

// NodeType is the role a node plays in a wire route.
type NodeType int

const (
	// Free nodes only shape the path.
	Free NodeType = iota
	// BodyFixed nodes pin the wire to a rigid body.
	BodyFixed
	// Winch nodes hold a wire end on a reelable slide joint. They are only
	// legal at the ends of a route.
	Winch
)

func (t NodeType) String() string {
	switch t {
	case Free:
		return "free"
	case BodyFixed:
		return "body_fixed"
	case Winch:
		return "winch"
	default:
		return "unknown"
	}
}

func ParseNodeType(s string) (NodeType, error) {
	switch s {
	case "", "free":
		return Free, nil
	case "body_fixed", "fixed":
		return BodyFixed, nil
	case "winch":
		return Winch, nil
	default:
		return Free, fmt.Errorf("%w: node type %q", ErrInvalidProperty, s)
	}
}

// RouteNode is one point of a wire route. It owns no native resource; the
// wire that routes through it builds everything.
type RouteNode struct {
	*Base

	frame    *frame.Frame
	nodeType NodeType
	body     *RigidBody
	payout   float64

	// wire is a non-owning back-reference maintained by the wire's route.
	wire *Wire
}

func NewRouteNode(w *sim.World, log *zap.Logger, name string, nodeType NodeType) *RouteNode {
	n := &RouteNode{
		nodeType: nodeType,
		frame:    frame.New(nil, cp.Vector{}, 0),
	}
	n.Base = NewBase(w, log, "route node", name, n)
	return n
}

func (n *RouteNode) Frame() *frame.Frame { return n.frame }
func (n *RouteNode) Type() NodeType { return n.nodeType }
func (n *RouteNode) RigidBody() *RigidBody { return n.body }
func (n *RouteNode) Wire() *Wire { return n.wire }
func (n *RouteNode) Payout() float64 { return n.payout }
func (n *RouteNode) Position() cp.Vector { return n.frame.Position() }

// SetRigidBody sets the body the node is fixed to. An unparented frame is
// parented to it, keeping its world position.
func (n *RouteNode) SetRigidBody(body *RigidBody) {
	n.body = body
	if body != nil && n.frame.Parent() == nil {
		_ = n.frame.SetParent(body, true)
	}
}

// SetPayout sets how much wire a winch lets out. It pushes into a live wire.
func (n *RouteNode) SetPayout(payout float64) {
	n.payout = payout
	if n.wire != nil {
		n.wire.pushPayout(n)
	}
}

func (n *RouteNode) Initialize() (native.Handle, error) {
	if n.payout < 0 {
		return nil, fmt.Errorf("%w: payout %v < 0", ErrInvalidProperty, n.payout)
	}
	switch {
	case n.nodeType == BodyFixed:
		if err := Require(n.body, "fixed body"); err != nil {
			return nil, err
		}
	case n.body != nil:
		if err := Require(n.body, "body"); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
