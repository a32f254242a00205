package sim

import (
	"testing"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/config"
	"github.com/milk9111/simrig/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	cfg := config.Defaults().Simulation
	cfg.TimeStep = 0.01
	cfg.MaxSubSteps = 3
	return NewWorld(cfg, zaptest.NewLogger(t))
}

func dynamicBox() *native.Composite {
	body := cp.NewBody(1, cp.MomentForBox(1, 2, 2))
	return native.NewComposite([]*cp.Body{body}, []*cp.Shape{cp.NewBox(body, 2, 2, 0)}, nil)
}

func TestWorldLazySingleInstance(t *testing.T) {
	w := newTestWorld(t)
	assert.Nil(t, w.Space(), "nothing allocated before first access")

	space := w.GetOrCreate()
	require.NotNil(t, space)
	assert.Same(t, space, w.GetOrCreate())
	assert.Same(t, space, w.Space())
	assert.Equal(t, 1, w.created)
	assert.Equal(t, uint(20), space.Iterations)
	assert.Equal(t, 980.0, space.Gravity().Y)
}

func TestWorldAddRemoveIdempotent(t *testing.T) {
	w := newTestWorld(t)
	h := dynamicBox()

	require.True(t, w.Add(h))
	assert.False(t, w.Add(h))
	assert.Equal(t, 1, w.Handles())
	assert.True(t, w.Contains(h))
	assert.True(t, w.Space().ContainsBody(h.Body()))

	require.True(t, w.Remove(h))
	assert.False(t, w.Remove(h))
	assert.Zero(t, w.Handles())
	assert.False(t, w.Space().ContainsBody(h.Body()))

	h.Release()
	assert.False(t, w.Add(h), "released handles are rejected")
}

func TestWorldTickPhaseOrder(t *testing.T) {
	w := newTestWorld(t)
	h := dynamicBox()
	require.True(t, w.Add(h))
	body := h.Body()

	var got []string
	var before, after cp.Vector
	s := w.Scheduler()
	s.Add(PostStep, nil, func(float64) { got = append(got, "d") })
	s.Add(PostTransformSync, nil, func(float64) {
		after = body.Velocity()
		got = append(got, "c")
	})
	s.Add(PreTransformSync, nil, func(float64) {
		before = body.Velocity()
		got = append(got, "b")
	})
	s.Add(PreStep, nil, func(float64) { got = append(got, "a") })

	w.Tick(0.01)
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	assert.Greater(t, after.Y, before.Y, "gravity is integrated between the transform sync phases")
	assert.Equal(t, uint64(1), w.Ticks())
}

func TestWorldUpdateAccumulates(t *testing.T) {
	w := newTestWorld(t)

	assert.Equal(t, 0, w.Update(5*time.Millisecond))
	assert.Equal(t, 1, w.Update(5*time.Millisecond))
	assert.Equal(t, 2, w.Update(25*time.Millisecond))
	assert.Equal(t, uint64(3), w.Ticks())

	// capped at MaxSubSteps, remainder dropped below one interval
	assert.Equal(t, 3, w.Update(time.Second))
	assert.Less(t, w.accumulated, 10*time.Millisecond)
	assert.Equal(t, 0, w.Update(0))
}

func TestWorldTeardown(t *testing.T) {
	w := newTestWorld(t)
	h := dynamicBox()
	left := dynamicBox()
	require.True(t, w.Add(h))
	require.True(t, w.Add(left))
	space := w.Space()

	var during *cp.Space
	resurrected := true
	w.OnTeardown(func() {
		assert.True(t, w.TearingDown())
		during = w.Space()
		resurrected = w.GetOrCreate() != nil
		assert.False(t, w.Add(dynamicBox()))
		assert.True(t, w.Remove(h))
	})
	w.Scheduler().Add(PreStep, nil, func(float64) {})

	w.Teardown()
	assert.Same(t, space, during, "listeners still see the space")
	assert.False(t, resurrected)
	assert.True(t, w.Closed())
	assert.Nil(t, w.Space())
	assert.Nil(t, w.GetOrCreate())
	assert.Zero(t, w.Handles())
	assert.Zero(t, w.Scheduler().Len(PreStep))
	assert.False(t, space.ContainsBody(left.Body()))

	w.Teardown()
	w.Tick(0.01)
	assert.Zero(t, w.Ticks())
	assert.Equal(t, 1, w.created)
}

func TestNilWorldIsInert(t *testing.T) {
	var w *World
	assert.Nil(t, w.GetOrCreate())
	assert.False(t, w.Add(dynamicBox()))
	assert.Zero(t, w.Update(time.Second))
	w.Teardown()
}
