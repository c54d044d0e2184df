package sweep

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetawatch/pkg/zeta"
)

// manualClock hands out unbuffered channels so a test decides when each
// tick fires.
type manualClock struct {
	mu      sync.Mutex
	current chan time.Time
	started int
}

func (m *manualClock) ticker(time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = make(chan time.Time)
	m.started++
	return m.current, func() {}
}

func (m *manualClock) waitStarted(t *testing.T, n int) chan time.Time {
	t.Helper()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.started >= n
	}, time.Second, time.Millisecond)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

type engineHarness struct {
	*Engine
	clock *manualClock
	ticks chan Tick
}

func newHarness(t *testing.T, eval zeta.Evaluator) *engineHarness {
	t.Helper()
	clock := &manualClock{}
	e, err := NewEngine(unitConfig(),
		WithEvaluator(eval),
		WithLogger(quietLogger()),
		WithTicker(clock.ticker),
	)
	require.NoError(t, err)
	h := &engineHarness{Engine: e, clock: clock, ticks: make(chan Tick, 64)}
	e.OnTick(func(tk Tick) { h.ticks <- tk })
	t.Cleanup(func() {
		if e.Running() {
			_ = e.Stop()
		}
	})
	return h
}

// fire sends one tick and waits for the subscriber to see it.
func (h *engineHarness) fire(t *testing.T, c chan time.Time) Tick {
	t.Helper()
	c <- time.Now()
	select {
	case tk := <-h.ticks:
		return tk
	case <-time.After(time.Second):
		t.Fatal("no tick delivered")
		return Tick{}
	}
}

func TestEngineScenario(t *testing.T) {
	h := newHarness(t, table(1, 0.5, 0.31, 0.29, 0.04))
	require.NoError(t, h.Start(400, 300))
	c := h.clock.waitStarted(t, 1)

	var states []State
	for i := 0; i < 4; i++ {
		states = append(states, h.fire(t, c).State)
	}
	assert.Equal(t, []State{Cruising, Cruising, Approaching, AtZero}, states)

	log := h.Log()
	require.Len(t, log, 1)
	assert.Equal(t, 3.0, log[0].Parameter)
	assert.Len(t, h.Trail(), 4)
	vp, ok := h.Viewport()
	require.True(t, ok)
	assert.Equal(t, 400.0, vp.Width)
}

func TestEngineStopStartResets(t *testing.T) {
	h := newHarness(t, table(1, 0.5, 0.01, 0.5))
	require.NoError(t, h.Start(0, 0))
	c := h.clock.waitStarted(t, 1)
	h.fire(t, c)
	h.fire(t, c)
	require.Equal(t, 2.0, h.Parameter())

	require.NoError(t, h.Stop())
	assert.False(t, h.Running())
	assert.Equal(t, 0.0, h.Parameter())
	assert.Empty(t, h.Trail())
	assert.Equal(t, Cruising, h.State())
	_, ok := h.Viewport()
	assert.False(t, ok)
	assert.Len(t, h.Log(), 1, "log survives stop")

	require.NoError(t, h.Start(0, 0))
	c = h.clock.waitStarted(t, 2)
	tk := h.fire(t, c)
	assert.Equal(t, 0.0, tk.Sample.Parameter)
	assert.Len(t, tk.Trail, 1)
	assert.Len(t, h.Log(), 1)
}

func TestEngineMisuse(t *testing.T) {
	h := newHarness(t, table(1, 1))
	assert.ErrorIs(t, h.Stop(), ErrNotRunning)
	require.NoError(t, h.Start(0, 0))
	assert.ErrorIs(t, h.Start(0, 0), ErrAlreadyRunning)
	require.NoError(t, h.Stop())
	assert.ErrorIs(t, h.Stop(), ErrNotRunning)
}

func TestEngineStaleTickIgnored(t *testing.T) {
	h := newHarness(t, table(1, 1, 1, 1))
	require.NoError(t, h.Start(0, 0))
	h.clock.waitStarted(t, 1)

	h.mu.Lock()
	stale := h.gen
	h.mu.Unlock()

	require.NoError(t, h.Stop())
	_, ok := h.step(stale)
	assert.False(t, ok)

	require.NoError(t, h.Start(0, 0))
	h.clock.waitStarted(t, 2)
	_, ok = h.step(stale)
	assert.False(t, ok, "a tick from an earlier session must not touch the new one")
	assert.Equal(t, 0.0, h.Parameter())
}

func TestEngineSkipsFailedTicks(t *testing.T) {
	h := newHarness(t, table(1, 1, 1, 1))
	require.NoError(t, h.Start(0, 0))
	c := h.clock.waitStarted(t, 1)
	for i := 0; i < 3; i++ {
		h.fire(t, c)
	}

	// t=3 fails: no tick is delivered but the parameter still moves on.
	c <- time.Now()
	require.Eventually(t, func() bool { return h.Parameter() == 4 }, time.Second, time.Millisecond)
	assert.Len(t, h.Trail(), 3)
	assert.Empty(t, h.ticks)
	assert.True(t, h.Running())
}

func TestEngineRecoversFromPanic(t *testing.T) {
	var calls int
	eval := zeta.Func(func(float64) (complex128, error) {
		calls++
		if calls == 1 {
			panic("bad evaluator")
		}
		return 1, nil
	})
	h := newHarness(t, eval)
	require.NoError(t, h.Start(0, 0))
	c := h.clock.waitStarted(t, 1)

	c <- time.Now()
	tk := h.fire(t, c)
	assert.Equal(t, 1.0, tk.Sample.Parameter)
	assert.True(t, h.Running())
}

func TestEngineClearLog(t *testing.T) {
	h := newHarness(t, table(1, 0.01, 1, 1, 1, 0.01))
	require.NoError(t, h.Start(0, 0))
	c := h.clock.waitStarted(t, 1)
	h.fire(t, c)
	require.Len(t, h.Log(), 1)

	h.ClearLog()
	assert.Empty(t, h.Log())
	for i := 0; i < 4; i++ {
		h.fire(t, c)
	}
	log := h.Log()
	require.Len(t, log, 1)
	assert.Equal(t, 1, log[0].Seq)
	assert.Equal(t, 4.0, log[0].Parameter)
}

func TestEngineOnTickCancel(t *testing.T) {
	h := newHarness(t, table(1, 1, 1))
	var extra []Tick
	var mu sync.Mutex
	cancel := h.OnTick(func(tk Tick) {
		mu.Lock()
		extra = append(extra, tk)
		mu.Unlock()
	})
	require.NoError(t, h.Start(0, 0))
	c := h.clock.waitStarted(t, 1)
	h.fire(t, c)
	cancel()
	h.fire(t, c)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, extra, 1)
}

func TestEngineWallClock(t *testing.T) {
	cfg := unitConfig()
	cfg.Period = 2 * time.Millisecond
	e, err := NewEngine(cfg,
		WithEvaluator(zeta.Func(func(float64) (complex128, error) { return 1, nil })),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, e.Start(0, 0))
	require.Eventually(t, func() bool { return e.Parameter() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, e.Stop())
	assert.Equal(t, 0.0, e.Parameter())
}

func TestEngineSurvivesPanickingSubscriber(t *testing.T) {
	h := newHarness(t, table(1, 1, 1, 1))
	h.OnTick(func(Tick) { panic("display bug") })
	require.NoError(t, h.Start(0, 0))
	c := h.clock.waitStarted(t, 1)

	first := h.fire(t, c)
	second := h.fire(t, c)
	assert.Equal(t, 0.0, first.Sample.Parameter)
	assert.Equal(t, 1.0, second.Sample.Parameter)
	assert.True(t, h.Running())
}

// blockingEval parks every evaluation until release is closed.
func blockingEval() (zeta.Evaluator, chan float64, chan struct{}) {
	entered := make(chan float64, 1)
	release := make(chan struct{})
	eval := zeta.Func(func(p float64) (complex128, error) {
		entered <- p
		<-release
		return 1, nil
	})
	return eval, entered, release
}

func TestEngineReadersDoNotWaitForEvaluation(t *testing.T) {
	eval, entered, release := blockingEval()
	h := newHarness(t, eval)
	require.NoError(t, h.Start(0, 0))
	c := h.clock.waitStarted(t, 1)

	c <- time.Now()
	assert.Equal(t, 0.0, <-entered)

	read := make(chan struct{})
	go func() {
		defer close(read)
		h.Parameter()
		h.State()
		h.Trail()
		h.Running()
	}()
	select {
	case <-read:
	case <-time.After(time.Second):
		t.Fatal("readers blocked behind an evaluation")
	}
	assert.Equal(t, 1.0, h.Parameter())
	assert.Empty(t, h.Trail())

	close(release)
	select {
	case tk := <-h.ticks:
		assert.Equal(t, 0.0, tk.Sample.Parameter)
	case <-time.After(time.Second):
		t.Fatal("no tick delivered")
	}
	assert.Len(t, h.Trail(), 1)
}

func TestEngineStopDiscardsInFlightSample(t *testing.T) {
	eval, entered, release := blockingEval()
	h := newHarness(t, eval)
	require.NoError(t, h.Start(0, 0))
	c := h.clock.waitStarted(t, 1)

	c <- time.Now()
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- h.Stop() }()
	require.Eventually(t, func() bool { return !h.Running() }, time.Second, time.Millisecond)
	close(release)
	require.NoError(t, <-stopped)

	assert.Empty(t, h.ticks)
	assert.Empty(t, h.Trail())
	assert.Equal(t, 0.0, h.Parameter())
}
