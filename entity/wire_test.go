package entity

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/config"
	"github.com/milk9111/simrig/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newNode(t *testing.T, w *sim.World, name string, typ NodeType, at cp.Vector) *RouteNode {
	t.Helper()
	n := NewRouteNode(w, zaptest.NewLogger(t), name, typ)
	n.Frame().SetPosition(at)
	n.Awake()
	return n
}

func newWire(t *testing.T, w *sim.World, nodes ...*RouteNode) *Wire {
	t.Helper()
	wire := NewWire(w, zaptest.NewLogger(t), "cable", config.Defaults().Route)
	wire.SetResolution(5)
	for _, n := range nodes {
		require.NoError(t, wire.Route().Add(n))
	}
	wire.Awake()
	return wire
}

func names(nodes []*RouteNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

func TestValidateRoute(t *testing.T) {
	type node struct {
		name string
		typ  NodeType
		x    float64
	}
	tests := []struct {
		name        string
		nodes       []node
		valid       bool
		wantKept    []string
		wantSkipped []string
	}{
		{"empty", nil, true, []string{}, nil},
		{"single winch", []node{{"w", Winch, 0}}, true, []string{"w"}, nil},
		{"two winches", []node{{"a", Winch, 0}, {"b", Winch, 5}}, true, []string{"a", "b"}, nil},
		{"winch at ends", []node{{"a", Winch, 0}, {"m", Free, 5}, {"b", Winch, 10}}, true, []string{"a", "m", "b"}, nil},
		{"winch in the middle", []node{{"a", Free, 0}, {"w", Winch, 5}, {"b", Free, 10}}, false, []string{"a", "w", "b"}, nil},
		{"crowded interior node", []node{{"a", Free, 0}, {"m", Free, 0.1}, {"b", Free, 10}}, true, []string{"a", "b"}, []string{"m"}},
		{"crowded last node", []node{{"a", Free, 0}, {"m", Free, 5}, {"b", Free, 5.2}}, true, []string{"a", "b"}, []string{"m"}},
		{"crowded pair", []node{{"a", Free, 0}, {"b", Free, 0.2}}, true, []string{"a"}, []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t)
			var nodes []*RouteNode
			for _, n := range tt.nodes {
				nodes = append(nodes, newNode(t, w, n.name, n.typ, cp.Vector{X: n.x}))
			}

			v := ValidateRoute(nodes, 0.5)

			assert.Equal(t, tt.valid, v.Valid())
			if !tt.valid {
				assert.ErrorIs(t, v.Err(), ErrInvalidRoute)
			}
			assert.Equal(t, tt.wantKept, names(v.Kept))
			var skipped []string
			for _, s := range v.Skipped {
				skipped = append(skipped, s.Node.Name())
			}
			assert.Equal(t, tt.wantSkipped, skipped)
		})
	}
}

func TestWireBuildsBeadChain(t *testing.T) {
	w := newTestWorld(t)
	anchor := newBody(t, w, "anchor", cp.Vector{})
	anchor.SetMotion(Static)
	a := newNode(t, w, "a", BodyFixed, cp.Vector{})
	a.SetRigidBody(anchor)
	m := newNode(t, w, "m", Free, cp.Vector{X: 10})
	b := newNode(t, w, "b", Free, cp.Vector{X: 20})
	wire := newWire(t, w, a, m, b)

	require.True(t, wire.EnsureInitialized())
	for _, n := range []*RouteNode{a, m, b} {
		assert.True(t, n.IsInitialized(), n.Name())
		assert.Nil(t, n.Handle(), "route nodes own nothing native")
		assert.Same(t, wire, n.Wire())
	}
	assert.True(t, anchor.IsInitialized())

	pts := wire.Points()
	require.Len(t, pts, 5)
	assert.Equal(t, cp.Vector{X: 5}, pts[1])
	assert.Equal(t, cp.Vector{X: 20}, pts[4])
	assert.InDelta(t, 20, wire.Length(), 1e-9)

	for i := 0; i < 30; i++ {
		w.Tick(0.01)
	}
	pts = wire.Points()
	assert.InDelta(t, 0, pts[0].Length(), 0.5, "fixed end stays on its body")
	assert.Greater(t, pts[4].Y, 0.0, "free end sags")
}

func TestWireNodeFailureAbortsInOrder(t *testing.T) {
	w := newTestWorld(t)
	a := newNode(t, w, "a", Free, cp.Vector{})
	broken := newNode(t, w, "broken", BodyFixed, cp.Vector{X: 10})
	c := newNode(t, w, "c", Free, cp.Vector{X: 20})
	wire := newWire(t, w, a, broken, c)

	require.False(t, wire.EnsureInitialized())
	assert.ErrorIs(t, wire.LastError(), ErrDependencyFailed)
	assert.ErrorContains(t, wire.LastError(), "route node 1")
	assert.True(t, a.IsInitialized())
	assert.ErrorIs(t, broken.LastError(), ErrMissingDependency)
	assert.Equal(t, Awake, c.State(), "nodes after the failure are never asked")
	assert.Zero(t, w.Handles())
}

func TestWireRejectsInvalidRoutes(t *testing.T) {
	tests := []struct {
		name  string
		nodes func(t *testing.T, w *sim.World) []*RouteNode
	}{
		{"winch in the middle", func(t *testing.T, w *sim.World) []*RouteNode {
			return []*RouteNode{
				newNode(t, w, "a", Free, cp.Vector{}),
				newNode(t, w, "w", Winch, cp.Vector{X: 5}),
				newNode(t, w, "b", Free, cp.Vector{X: 10}),
			}
		}},
		{"too few usable nodes", func(t *testing.T, w *sim.World) []*RouteNode {
			return []*RouteNode{
				newNode(t, w, "a", Free, cp.Vector{}),
				newNode(t, w, "b", Free, cp.Vector{X: 0.1}),
			}
		}},
		{"empty", func(t *testing.T, w *sim.World) []*RouteNode { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t)
			nodes := tt.nodes(t, w)
			wire := newWire(t, w, nodes...)

			require.False(t, wire.EnsureInitialized())
			assert.ErrorIs(t, wire.LastError(), ErrInvalidRoute)
			assert.Equal(t, Awake, wire.State())
			for _, n := range nodes {
				assert.Equal(t, Awake, n.State(), "validation happens before nodes initialize")
			}
		})
	}
}

func TestWireSkipsCrowdedNodes(t *testing.T) {
	w := newTestWorld(t)
	a := newNode(t, w, "a", Free, cp.Vector{})
	crowded := newNode(t, w, "crowded", Free, cp.Vector{X: 0.2})
	b := newNode(t, w, "b", Free, cp.Vector{X: 5})
	wire := newWire(t, w, a, crowded, b)

	require.True(t, wire.EnsureInitialized())
	assert.Equal(t, []string{"a", "b"}, names(wire.Kept()))
	assert.Len(t, wire.Points(), 2)
}

func TestWireRouteBackReferencesAndStale(t *testing.T) {
	w := newTestWorld(t)
	a := newNode(t, w, "a", Free, cp.Vector{})
	b := newNode(t, w, "b", Free, cp.Vector{X: 10})
	wire := newWire(t, w, a, b)
	assert.False(t, wire.Stale())

	require.NoError(t, wire.Route().Remove(b))
	assert.Nil(t, b.Wire())
	assert.False(t, wire.Stale(), "edits before build are not stale")
	require.NoError(t, wire.Route().Add(b))

	require.True(t, wire.EnsureInitialized())
	extra := newNode(t, w, "extra", Free, cp.Vector{X: 20})
	require.NoError(t, wire.Route().InsertAfter(b, extra))
	assert.True(t, wire.Stale())
	assert.Same(t, wire, extra.Wire())

	wire.Route().Clear()
	for _, n := range []*RouteNode{a, b, extra} {
		assert.Nil(t, n.Wire(), n.Name())
	}
}

func TestWinchPayoutPushIfLive(t *testing.T) {
	w := newTestWorld(t)
	a := newNode(t, w, "a", Free, cp.Vector{})
	reel := newNode(t, w, "reel", Winch, cp.Vector{X: 10})
	reel.SetPayout(1)
	wire := newWire(t, w, a, reel)

	require.True(t, wire.EnsureInitialized())
	wn, ok := wire.winches[reel]
	require.True(t, ok)
	sj := wn.joint.Class.(*cp.SlideJoint)
	assert.Equal(t, 1.0, sj.Max)

	reel.SetPayout(4)
	assert.Equal(t, 4.0, sj.Max)
}

func TestWireSetMaterialInitializesAndBinds(t *testing.T) {
	w := newTestWorld(t)
	log := zaptest.NewLogger(t)
	first := NewMaterial(w, log, "nylon")
	first.Awake()
	a := newNode(t, w, "a", Free, cp.Vector{})
	b := newNode(t, w, "b", Free, cp.Vector{X: 10})
	wire := newWire(t, w, a, b)
	wire.SetMaterial(first)
	require.True(t, wire.EnsureInitialized())
	beads := len(wire.Points())
	assert.Equal(t, beads, first.Users())

	steel := NewMaterial(w, log, "steel")
	steel.SetFriction(0.3)
	steel.Awake()
	wire.SetMaterial(steel)

	assert.True(t, steel.IsInitialized())
	assert.Equal(t, beads, steel.Users())
	assert.Zero(t, first.Users())
	for _, shape := range wire.shapes {
		assert.Equal(t, 0.3, shape.Friction())
	}
}

func TestWireFailedRegistrationPublishesNothing(t *testing.T) {
	w := newTestWorld(t)
	log := zaptest.NewLogger(t)
	rope := NewMaterial(w, log, "rope")
	rope.Awake()
	require.True(t, rope.EnsureInitialized())
	a := newNode(t, w, "a", Free, cp.Vector{})
	b := newNode(t, w, "b", Free, cp.Vector{X: 10})
	wire := newWire(t, w, a, b)
	wire.SetMaterial(rope)

	w.Teardown()
	require.False(t, wire.EnsureInitialized())
	assert.ErrorIs(t, wire.LastError(), ErrWorldUnavailable)
	assert.Empty(t, wire.Points())
	assert.Empty(t, wire.Kept())
	assert.Zero(t, rope.Users())
}
