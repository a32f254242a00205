package entity

import (
	"errors"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/config"
	"github.com/milk9111/simrig/native"
	"github.com/milk9111/simrig/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestWorld(t *testing.T) *sim.World {
	t.Helper()
	cfg := config.Defaults().Simulation
	cfg.TimeStep = 0.01
	return sim.NewWorld(cfg, zaptest.NewLogger(t))
}

// stub is a scriptable entity for exercising the lifecycle.
type stub struct {
	*Base
	init      func(p *stub) (native.Handle, error)
	destroyed int
	committed []State
}

func newStub(t *testing.T, w *sim.World, name string, init func(p *stub) (native.Handle, error)) *stub {
	t.Helper()
	p := &stub{init: init}
	p.Base = NewBase(w, zaptest.NewLogger(t), "stub", name, p)
	p.Awake()
	return p
}

func (p *stub) Initialize() (native.Handle, error) {
	if p.init == nil {
		return nil, nil
	}
	return p.init(p)
}

func (p *stub) OnDestroy() {
	p.destroyed++
}

func (p *stub) OnInitialized() {
	p.committed = append(p.committed, p.State())
}

func boxHandle() *native.Composite {
	body := cp.NewBody(1, cp.MomentForBox(1, 1, 1))
	return native.NewComposite([]*cp.Body{body}, []*cp.Shape{cp.NewBox(body, 1, 1, 0)}, nil)
}

func TestEnsureInitializedIdempotent(t *testing.T) {
	w := newTestWorld(t)
	p := newStub(t, w, "a", func(*stub) (native.Handle, error) { return boxHandle(), nil })

	require.True(t, p.EnsureInitialized())
	require.True(t, p.EnsureInitialized())
	p.Start()

	assert.Equal(t, 1, p.InitializeCalls())
	assert.Equal(t, Initialized, p.State())
	assert.Equal(t, 1, w.Handles())
	assert.True(t, w.Contains(p.Handle()))
}

func TestEnsureInitializedIneligible(t *testing.T) {
	w := newTestWorld(t)
	p := &stub{}
	p.Base = NewBase(w, zaptest.NewLogger(t), "stub", "cold", p)

	assert.False(t, p.EnsureInitialized(), "constructed entities are not active yet")
	assert.Equal(t, Constructed, p.State())
	assert.Zero(t, p.InitializeCalls())

	p.Awake()
	p.Destroy()
	assert.False(t, p.EnsureInitialized())
	assert.Zero(t, p.InitializeCalls())
}

func TestDependencyResolvedRegardlessOfStartOrder(t *testing.T) {
	w := newTestWorld(t)
	var order []string
	body := newStub(t, w, "body", func(*stub) (native.Handle, error) {
		order = append(order, "body")
		return boxHandle(), nil
	})
	joint := newStub(t, w, "joint", func(*stub) (native.Handle, error) {
		if err := Require(body, "body"); err != nil {
			return nil, err
		}
		order = append(order, "joint")
		return nil, nil
	})

	// the dependent starts first
	joint.Start()
	body.Start()

	assert.Equal(t, []string{"body", "joint"}, order)
	assert.Equal(t, 1, body.InitializeCalls())
	assert.Equal(t, 1, joint.InitializeCalls())
	assert.True(t, joint.IsInitialized())
	assert.True(t, body.IsInitialized())
}

func TestReentrancyPanicsWithChain(t *testing.T) {
	w := newTestWorld(t)
	var a, b *stub
	a = newStub(t, w, "a", func(p *stub) (native.Handle, error) {
		p.Schedule(sim.PreStep, func(float64) {})
		return nil, Require(b, "b")
	})
	b = newStub(t, w, "b", func(*stub) (native.Handle, error) {
		return boxHandle(), Require(a, "a")
	})

	require.PanicsWithError(t,
		`reentrant initialization: stub "a" -> stub "b" -> stub "a"`,
		func() { a.EnsureInitialized() })

	for _, p := range []*stub{a, b} {
		assert.Equal(t, Awake, p.State(), p.Name())
		assert.Nil(t, p.Handle(), p.Name())
	}
	assert.Zero(t, w.Handles())
	assert.Zero(t, w.Scheduler().Len(sim.PreStep), "callbacks of unwound entities are dropped")
}

func TestReentrancyEscapesTry(t *testing.T) {
	w := newTestWorld(t)
	var a *stub
	a = newStub(t, w, "self", func(p *stub) (native.Handle, error) {
		err := native.Try(func() error {
			p.EnsureInitialized()
			return nil
		})
		return nil, err
	})

	defer func() {
		r := recover()
		var re *ReentrancyError
		require.True(t, errors.As(r.(error), &re))
		assert.Equal(t, []string{`stub "self"`, `stub "self"`}, re.Chain)
		assert.Equal(t, Awake, a.State())
	}()
	a.EnsureInitialized()
	t.Fatal("expected panic")
}

func TestFailureLeavesEntityRetryable(t *testing.T) {
	w := newTestWorld(t)
	bad := errors.New("not yet")
	var built *native.Composite
	fail := true
	p := newStub(t, w, "flaky", func(p *stub) (native.Handle, error) {
		p.Schedule(sim.PostStep, func(float64) {})
		built = boxHandle()
		if fail {
			return built, bad
		}
		return built, nil
	})

	require.False(t, p.EnsureInitialized())
	assert.Equal(t, Awake, p.State())
	assert.True(t, built.Released(), "partial handle is released")
	assert.Zero(t, w.Handles())
	assert.Zero(t, w.Scheduler().Len(sim.PostStep))

	var ie *InitError
	require.ErrorAs(t, p.LastError(), &ie)
	assert.Equal(t, "flaky", ie.Entity)
	assert.Equal(t, p.ID(), ie.ID)
	assert.ErrorIs(t, p.LastError(), bad)

	fail = false
	require.True(t, p.EnsureInitialized())
	assert.NoError(t, p.LastError())
	assert.Equal(t, 2, p.InitializeCalls())
	assert.Equal(t, 1, w.Scheduler().Len(sim.PostStep))
}

func TestInitializePanicBecomesError(t *testing.T) {
	w := newTestWorld(t)
	p := newStub(t, w, "boom", func(*stub) (native.Handle, error) {
		panic("engine assertion")
	})

	require.False(t, p.EnsureInitialized())
	assert.Equal(t, Awake, p.State())
	assert.ErrorContains(t, p.LastError(), "engine assertion")
}

func TestWorldUnavailableFailsInitialize(t *testing.T) {
	w := newTestWorld(t)
	w.Teardown()
	h := boxHandle()
	p := newStub(t, w, "late", func(*stub) (native.Handle, error) { return h, nil })

	require.False(t, p.EnsureInitialized())
	assert.ErrorIs(t, p.LastError(), ErrWorldUnavailable)
	assert.True(t, h.Released())
}

func TestOnInitializedRunsOnlyAfterRegistration(t *testing.T) {
	w := newTestWorld(t)
	p := newStub(t, w, "a", func(*stub) (native.Handle, error) { return boxHandle(), nil })
	require.True(t, p.EnsureInitialized())
	require.True(t, p.EnsureInitialized())
	assert.Equal(t, []State{Initialized}, p.committed)
	assert.True(t, w.Contains(p.Handle()))

	closed := newTestWorld(t)
	closed.Teardown()
	late := newStub(t, closed, "late", func(*stub) (native.Handle, error) { return boxHandle(), nil })
	require.False(t, late.EnsureInitialized())
	require.False(t, late.EnsureInitialized())
	assert.Empty(t, late.committed)
}

func TestDestroy(t *testing.T) {
	w := newTestWorld(t)
	dep := newStub(t, w, "dep", func(*stub) (native.Handle, error) { return boxHandle(), nil })
	p := newStub(t, w, "owner", func(p *stub) (native.Handle, error) {
		if err := Require(dep, "dep"); err != nil {
			return nil, err
		}
		p.Schedule(sim.PreStep, func(float64) {})
		return boxHandle(), nil
	})
	require.True(t, p.EnsureInitialized())
	h := p.Handle()
	require.Equal(t, 2, w.Handles())

	p.Destroy()
	p.Destroy()

	assert.Equal(t, Destroyed, p.State())
	assert.Equal(t, 1, p.destroyed)
	assert.True(t, h.Released())
	assert.False(t, w.Contains(h))
	assert.Zero(t, w.Scheduler().Len(sim.PreStep))
	assert.False(t, p.EnsureInitialized())
	assert.True(t, dep.IsInitialized(), "dependencies are not touched")
}

func TestDestroyDuringInitialize(t *testing.T) {
	w := newTestWorld(t)
	h := boxHandle()
	p := newStub(t, w, "quitter", func(p *stub) (native.Handle, error) {
		p.Destroy()
		return h, nil
	})

	assert.False(t, p.EnsureInitialized())
	assert.Equal(t, Destroyed, p.State())
	assert.True(t, h.Released())
	assert.Zero(t, w.Handles())
}

func TestRequire(t *testing.T) {
	w := newTestWorld(t)
	var missing *stub
	assert.ErrorIs(t, Require(missing, "thing"), ErrMissingDependency)

	broken := newStub(t, w, "broken", func(*stub) (native.Handle, error) {
		return nil, errors.New("nope")
	})
	err := Require(broken, "thing")
	assert.ErrorIs(t, err, ErrDependencyFailed)
	assert.ErrorContains(t, err, `thing "broken"`)
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Constructed, "Constructed"},
		{Awake, "Awake"},
		{Initializing, "Initializing"},
		{Initialized, "Initialized"},
		{Destroyed, "Destroyed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
