package scene

import (
	"bytes"
	"testing"
	"time"

	"github.com/milk9111/simrig/config"
	"github.com/milk9111/simrig/entity"
	"github.com/milk9111/simrig/frame"
	"github.com/milk9111/simrig/sim"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func build(t *testing.T, spec *Spec, cfg *config.Config) *Scene {
	t.Helper()
	log := zaptest.NewLogger(t)
	s, err := Build(sim.NewWorld(cfg.Simulation, log), spec, cfg, log)
	require.NoError(t, err)
	t.Cleanup(s.Teardown)
	return s
}

func workshop(t *testing.T) *Spec {
	t.Helper()
	spec, err := Load("testdata/workshop.yaml")
	require.NoError(t, err)
	return spec
}

func TestWorkshopReport(t *testing.T) {
	s := build(t, workshop(t), config.Defaults())
	s.Start()

	var buf bytes.Buffer
	require.NoError(t, s.Report().WriteText(&buf))

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "workshop_report", buf.Bytes())
}

func TestStartOrderDoesNotChangeOutcome(t *testing.T) {
	base := build(t, workshop(t), config.Defaults())
	base.Start()
	want := base.Report().Entries

	tests := []struct {
		traversal string
		seed      int64
	}{
		{config.TraversalReverse, 0},
		{config.TraversalShuffled, 1},
		{config.TraversalShuffled, 7},
		{config.TraversalShuffled, 42},
		{config.TraversalShuffled, 1234},
	}
	for _, tt := range tests {
		cfg := config.Defaults()
		cfg.Host.Traversal = tt.traversal
		cfg.Host.Seed = tt.seed

		s := build(t, workshop(t), cfg)
		s.Start()
		assert.Equal(t, want, s.Report().Entries, "%s/%d", tt.traversal, tt.seed)
	}
}

func TestOrderTraversals(t *testing.T) {
	cfg := config.Defaults()
	s := build(t, workshop(t), cfg)
	declared := s.Order()
	require.Len(t, declared, 15)
	assert.Equal(t, "steel", declared[0].Name())

	s.cfg.Host.Traversal = config.TraversalReverse
	reverse := s.Order()
	assert.Equal(t, "shaker", reverse[0].Name())

	s.cfg.Host.Traversal = config.TraversalShuffled
	s.cfg.Host.Seed = 3
	first, second := s.Order(), s.Order()
	assert.Equal(t, first, second, "the same seed gives the same order")
	assert.ElementsMatch(t, declared, first)
}

func TestEntitiesWaitForConstruct(t *testing.T) {
	s := build(t, workshop(t), config.Defaults())
	for _, e := range s.Entities() {
		assert.Equal(t, entity.Constructed, e.State(), e.Name())
	}
	s.Construct()
	for _, e := range s.Entities() {
		assert.Equal(t, entity.Awake, e.State(), e.Name())
	}
	assert.Nil(t, s.World().Space(), "nothing touches the simulation before start")
}

func TestRunAndUpdate(t *testing.T) {
	s := build(t, workshop(t), config.Defaults())
	s.Start()
	crate, ok := s.Body("crate")
	require.True(t, ok)
	shaker, ok := s.Controller("shaker")
	require.True(t, ok)

	s.Run(10)
	assert.Equal(t, uint64(10), s.World().Ticks())
	assert.Equal(t, 10, shaker.Runs())
	assert.NotEqual(t, 0.0, crate.Frame().Position().Y)

	assert.Equal(t, 3, s.Update(50*time.Millisecond))
	assert.Equal(t, uint64(13), s.World().Ticks())

	cable, ok := s.Wire("cable")
	require.True(t, ok)
	assert.Len(t, cable.Points(), 5)
}

func TestTeardownDestroysEverything(t *testing.T) {
	s := build(t, workshop(t), config.Defaults())
	s.Start()
	require.NotZero(t, s.World().Handles())

	s.Teardown()
	s.Teardown()

	assert.True(t, s.World().Closed())
	assert.Zero(t, s.World().Handles())
	for _, e := range s.Entities() {
		assert.Equal(t, entity.Destroyed, e.State(), e.Name())
	}
	s.Run(5)
	assert.Zero(t, s.World().Ticks())
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{"unknown motion", `
bodies:
  - name: a
    motion: floaty
`, entity.ErrInvalidProperty},
		{"unknown geometry", `
bodies:
  - name: a
    shapes: [{name: s, geometry: blob}]
`, entity.ErrInvalidProperty},
		{"unknown node type", `
wires:
  - name: w
    nodes: [{type: anchor}]
`, entity.ErrInvalidProperty},
		{"duplicate name", `
materials: [{name: a}]
bodies: [{name: a}]
`, ErrDuplicateName},
		{"parent cycle", `
bodies:
  - {name: a, parent: b}
  - {name: b, parent: a}
`, frame.ErrParentCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Parse([]byte(tt.yaml), tt.name+".yaml")
			require.NoError(t, err)
			log := zaptest.NewLogger(t)
			_, err = Build(sim.NewWorld(config.Defaults().Simulation, log), spec, config.Defaults(), log)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse(t *testing.T) {
	spec, err := Parse([]byte("bodies: [{name: a, position: {x: 1, y: 2}}]"), "dir/lonely.yaml")
	require.NoError(t, err)
	assert.Equal(t, "lonely", spec.Name)
	assert.Equal(t, Vec{X: 1, Y: 2}, spec.Bodies[0].Position)

	_, err = Parse([]byte("bodies: {"), "broken.yaml")
	assert.ErrorContains(t, err, "broken.yaml")
}

func TestScriptWithoutSourceIsReported(t *testing.T) {
	spec, err := Parse([]byte(`
bodies: [{name: a}]
controllers: [{name: c, script: missing.tengo, targets: [a]}]
`), "inline.yaml")
	require.NoError(t, err)
	s := build(t, spec, config.Defaults())
	s.Start()

	r := s.Report()
	require.Len(t, r.Failed(), 1)
	assert.Equal(t, "c", r.Failed()[0].Name)
	assert.Contains(t, r.Failed()[0].Reason, "empty script")
	assert.Contains(t, r.Failed()[0].Reason, ErrNoScriptSource.Error())
}

func TestOpenEmbeddedScenes(t *testing.T) {
	for _, name := range []string{"pendulum", "bridge.yaml"} {
		t.Run(name, func(t *testing.T) {
			spec, err := Open(name)
			require.NoError(t, err)
			s := build(t, spec, config.Defaults())
			s.Start()

			r := s.Report()
			assert.True(t, r.OK(), "failed: %+v", r.Failed())
			s.Run(30)
		})
	}
}

func TestBridgeSkipsCrowdedNode(t *testing.T) {
	spec, err := Open("bridge")
	require.NoError(t, err)
	s := build(t, spec, config.Defaults())
	s.Start()

	span, ok := s.Wire("span")
	require.True(t, ok)
	assert.Len(t, span.Kept(), 4)
	assert.Equal(t, 5, span.Route().Len())
}

func TestWiresInDeclarationOrder(t *testing.T) {
	spec, err := Open("bridge")
	require.NoError(t, err)
	s := build(t, spec, config.Defaults())

	var names []string
	for _, w := range s.Wires() {
		names = append(names, w.Name())
	}
	assert.Equal(t, []string{"span", "hoist"}, names)
}
