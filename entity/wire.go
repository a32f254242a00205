package entity

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/config"
	"github.com/milk9111/simrig/native"
	"github.com/milk9111/simrig/route"
	"github.com/milk9111/simrig/sim"
	"go.uber.org/zap"
)

var wireGroups atomic.Uint64

// Wire is a flexible body laid along a route of nodes. It is built as a
// chain of beads joined by pin joints.
type Wire struct {
	*Base

	route         *route.Route[*RouteNode]
	material      *Material
	radius        float64
	resolution    float64
	massPerLength float64
	minSeparation float64

	group   uint
	beads   []*cp.Body
	shapes  []*cp.Shape
	winches map[*RouteNode]winch
	members map[*RouteNode]struct{}
	kept    []*RouteNode
	points  []cp.Vector
	pending *wireBuild
	stale   bool
}

func NewWire(w *sim.World, log *zap.Logger, name string, cfg config.Route) *Wire {
	wire := &Wire{
		route:         &route.Route[*RouteNode]{},
		radius:        0.25,
		resolution:    cfg.Resolution,
		massPerLength: 0.1,
		minSeparation: cfg.MinSeparation,
		group:         uint(wireGroups.Add(1)),
		members:       make(map[*RouteNode]struct{}),
	}
	wire.Base = NewBase(w, log, "wire", name, wire)
	wire.route.OnChange(wire.routeChanged)
	return wire
}

// Route exposes the node sequence for authoring.
func (w *Wire) Route() *route.Route[*RouteNode] { return w.route }
func (w *Wire) Material() *Material { return w.material }
func (w *Wire) Radius() float64 { return w.radius }
func (w *Wire) Resolution() float64 { return w.resolution }

// Stale reports whether the route changed after the wire was built.
func (w *Wire) Stale() bool { return w.stale }

func (w *Wire) SetMaterial(m *Material) {
	if len(w.shapes) > 0 && m != nil {
		m.EnsureInitialized()
	}
	for _, shape := range w.shapes {
		w.material.Unbind(shape)
		m.Bind(shape)
	}
	w.material = m
}

func (w *Wire) SetRadius(r float64) { w.radius = r }
func (w *Wire) SetResolution(r float64) { w.resolution = r }
func (w *Wire) SetMassPerLength(m float64) { w.massPerLength = m }
func (w *Wire) SetMinSeparation(d float64) { w.minSeparation = d }

// Points returns the bead positions as of the last transform sync.
func (w *Wire) Points() []cp.Vector {
	out := make([]cp.Vector, len(w.points))
	copy(out, w.points)
	return out
}

// Kept returns the nodes the wire was built through.
func (w *Wire) Kept() []*RouteNode {
	out := make([]*RouteNode, len(w.kept))
	copy(out, w.kept)
	return out
}

// Length sums the distances between consecutive cached points.
func (w *Wire) Length() float64 {
	var l float64
	for i := 1; i < len(w.points); i++ {
		l += w.points[i].Sub(w.points[i-1]).Length()
	}
	return l
}

func (w *Wire) Initialize() (native.Handle, error) {
	if w.radius <= 0 || w.resolution <= 0 || w.massPerLength <= 0 || w.minSeparation < 0 {
		return nil, fmt.Errorf("%w: radius=%v resolution=%v mass_per_length=%v min_separation=%v",
			ErrInvalidProperty, w.radius, w.resolution, w.massPerLength, w.minSeparation)
	}
	nodes := w.route.Nodes()
	v := ValidateRoute(nodes, w.minSeparation)
	if err := v.Err(); err != nil {
		return nil, err
	}
	for _, s := range v.Skipped {
		w.Log().Warn("route node skipped",
			zap.String("node", s.Node.Name()),
			zap.Int("index", s.Index),
			zap.Float64("distance", s.Distance),
			zap.Float64("min_separation", w.minSeparation))
	}
	if len(v.Kept) < 2 {
		return nil, fmt.Errorf("%w: %d usable nodes, need at least 2", ErrInvalidRoute, len(v.Kept))
	}

	// order matters: endpoints are attached in route order
	for i, n := range nodes {
		if err := Require(n, fmt.Sprintf("route node %d", i)); err != nil {
			return nil, err
		}
	}
	if w.material != nil {
		if err := Require(w.material, "material"); err != nil {
			return nil, err
		}
	}

	space := w.World().GetOrCreate()
	if space == nil {
		return nil, ErrWorldUnavailable
	}
	static := space.StaticBody

	points, anchors := w.layout(v.Kept)
	winches := make(map[*RouteNode]winch)
	filter := cp.NewShapeFilter(w.group, cp.ALL_CATEGORIES, cp.ALL_CATEGORIES)

	h, err := native.Build(func(b *native.Builder) error {
		beads := make([]*cp.Body, len(points))
		for i, p := range points {
			mass := w.massPerLength * w.beadSpan(points, i)
			body := b.Body(cp.NewBody(mass, cp.MomentForCircle(mass, 0, w.radius, cp.Vector{})))
			body.SetPosition(p)
			body.UserData = w
			shape := b.Shape(cp.NewCircle(body, w.radius, cp.Vector{}))
			shape.SetFilter(filter)
			shape.UserData = w
			beads[i] = body
			if i > 0 {
				joint := b.Constraint(cp.NewPinJoint(beads[i-1], body, cp.Vector{}, cp.Vector{}))
				joint.SetCollideBodies(false)
			}
		}
		for _, a := range anchors {
			n, bead := a.node, beads[a.bead]
			switch n.Type() {
			case BodyFixed:
				b.Constraint(cp.NewPivotJoint(bead, n.RigidBody().Body(), n.Position()))
			case Winch:
				anchor := static
				if n.RigidBody() != nil {
					anchor = n.RigidBody().Body()
				}
				joint := cp.NewSlideJoint(bead, anchor, cp.Vector{}, anchor.WorldToLocal(n.Position()), 0, n.Payout())
				winches[n] = winch{joint: b.Constraint(joint), bead: bead}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.pending = &wireBuild{winches: winches, kept: v.Kept, points: points}
	w.Schedule(sim.PostTransformSync, w.sync)
	return h, nil
}

// OnInitialized publishes the built chain once its handle is registered.
func (w *Wire) OnInitialized() {
	h, ok := w.Handle().(*native.Composite)
	if !ok || w.pending == nil {
		return
	}
	w.beads = h.Bodies()
	w.shapes = h.Shapes()
	w.winches = w.pending.winches
	w.kept = w.pending.kept
	w.points = w.pending.points
	w.pending = nil
	w.stale = false
	for _, shape := range w.shapes {
		w.material.Bind(shape)
	}
}

func (w *Wire) OnDestroy() {
	for _, shape := range w.shapes {
		w.material.Unbind(shape)
	}
	w.beads, w.shapes, w.winches, w.pending = nil, nil, nil, nil
}

// wireBuild holds what Initialize built until the handle is registered.
type wireBuild struct {
	winches map[*RouteNode]winch
	kept    []*RouteNode
	points  []cp.Vector
}

type winch struct {
	joint *cp.Constraint
	bead  *cp.Body
}

type nodeAnchor struct {
	node *RouteNode
	bead int
}

// layout subdivides the kept polyline into beads no further apart than the
// resolution and records which bead sits on each kept node.
func (w *Wire) layout(kept []*RouteNode) ([]cp.Vector, []nodeAnchor) {
	points := []cp.Vector{kept[0].Position()}
	anchors := []nodeAnchor{{node: kept[0], bead: 0}}
	for i := 1; i < len(kept); i++ {
		from, to := kept[i-1].Position(), kept[i].Position()
		steps := int(math.Ceil(to.Sub(from).Length() / w.resolution))
		if steps < 1 {
			steps = 1
		}
		for s := 1; s <= steps; s++ {
			points = append(points, from.Add(to.Sub(from).Mult(float64(s)/float64(steps))))
		}
		anchors = append(anchors, nodeAnchor{node: kept[i], bead: len(points) - 1})
	}
	return points, anchors
}

// beadSpan is the wire length a bead stands for: half of each adjacent
// segment.
func (w *Wire) beadSpan(points []cp.Vector, i int) float64 {
	var span float64
	if i > 0 {
		span += points[i].Sub(points[i-1]).Length() / 2
	}
	if i < len(points)-1 {
		span += points[i+1].Sub(points[i]).Length() / 2
	}
	return math.Max(span, 1e-3)
}

func (w *Wire) sync(float64) {
	for i, bead := range w.beads {
		if i < len(w.points) {
			w.points[i] = bead.Position()
		}
	}
}

func (w *Wire) pushPayout(n *RouteNode) {
	wn, ok := w.winches[n]
	if !ok {
		return
	}
	if sj, ok := wn.joint.Class.(*cp.SlideJoint); ok {
		sj.Max = n.Payout()
		wn.bead.Activate()
	}
}

func (w *Wire) routeChanged(c route.Change[*RouteNode]) {
	switch c.Op {
	case route.OpInsert:
		c.Node.wire = w
		w.members[c.Node] = struct{}{}
	case route.OpRemove:
		w.release(c.Node)
	case route.OpClear:
		for n := range w.members {
			w.release(n)
		}
	}
	if w.IsInitialized() && !w.stale {
		w.stale = true
		w.Log().Info("route changed after build, wire is stale", zap.String("op", c.Op.String()))
	}
}

func (w *Wire) release(n *RouteNode) {
	delete(w.members, n)
	if n.wire == w {
		n.wire = nil
	}
}
