package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"zetawatch/pkg/zeta"
)

var (
	// ErrAlreadyRunning is returned by Start on a running engine.
	ErrAlreadyRunning = errors.New("sweep: already running")
	// ErrNotRunning is returned by Stop on a stopped engine.
	ErrNotRunning = errors.New("sweep: not running")
)

// TickerFunc starts a periodic clock and returns its channel and a stop
// function. It exists so tests can drive ticks by hand.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Engine runs sessions on a fixed period and fans tick payloads out to
// subscribers. At most one tick stream exists at a time; every tick checks
// the session generation under the lock before touching state, so nothing
// mutates after Stop returns.
type Engine struct {
	cfg    Config
	eval   zeta.Evaluator
	refs   ReferenceSet
	log    *DiscoveryLog
	logger *logrus.Entry
	ticker TickerFunc

	mu      sync.Mutex
	active  bool
	gen     uint64
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}

	subMu   sync.Mutex
	subs    map[int]func(Tick)
	nextSub int
}

// Option customises an Engine.
type Option func(*Engine)

// WithEvaluator overrides the evaluator built from the config.
func WithEvaluator(e zeta.Evaluator) Option { return func(en *Engine) { en.eval = e } }

// WithReferences replaces KnownZeros.
func WithReferences(r ReferenceSet) Option { return func(en *Engine) { en.refs = r } }

// WithDiscoveryLog shares an existing log.
func WithDiscoveryLog(l *DiscoveryLog) Option { return func(en *Engine) { en.log = l } }

// WithLogger sets the logger. Default: the logrus standard logger.
func WithLogger(l *logrus.Entry) Option { return func(en *Engine) { en.logger = l } }

// WithTicker replaces the wall-clock ticker.
func WithTicker(f TickerFunc) Option { return func(en *Engine) { en.ticker = f } }

// NewEngine validates cfg and returns a stopped engine.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		refs:   KnownZeros,
		ticker: realTicker,
		subs:   make(map[int]func(Tick)),
	}
	for _, o := range opts {
		o(e)
	}
	if e.eval == nil {
		ev, err := cfg.Evaluator()
		if err != nil {
			return nil, err
		}
		e.eval = ev
	}
	if e.log == nil {
		e.log = NewDiscoveryLog()
	}
	if e.logger == nil {
		e.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// OnTick registers fn for every tick and returns a function that removes it.
// fn runs on the scheduler goroutine and must not call Stop.
func (e *Engine) OnTick(fn func(Tick)) (cancel func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

// Start begins a session for a display of the given size. The sweep starts
// at t=0 with an empty trail; the discovery log is kept.
func (e *Engine) Start(width, height float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return ErrAlreadyRunning
	}
	vp := NewViewport(width, height)
	e.session = NewSession(e.cfg, e.eval, vp, e.refs, e.log)
	e.active = true
	e.gen++

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx, e.gen, e.done)

	e.logger.WithFields(logrus.Fields{
		"width":  vp.Width,
		"height": vp.Height,
		"period": e.cfg.Period,
		"step":   e.cfg.Step,
	}).Info("sweep started")
	return nil
}

// Stop ends the session, discards trail and detector memory, and waits for
// the scheduler goroutine to exit. An evaluation already in flight is allowed
// to finish but its result is discarded. The discovery log is kept.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotRunning
	}
	e.active = false
	e.gen++
	e.cancel()
	done := e.done
	var at float64
	if e.session != nil {
		at = e.session.Parameter()
		e.session.Reset()
		e.session = nil
	}
	e.mu.Unlock()

	<-done
	e.logger.WithField("t", at).Info("sweep stopped")
	return nil
}

// Running reports whether a session is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Parameter returns the t of the next tick, or 0 when stopped.
func (e *Engine) Parameter() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return 0
	}
	return e.session.Parameter()
}

// Trail returns a copy of the current trail; empty when stopped.
func (e *Engine) Trail() []Sample {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return []Sample{}
	}
	return e.session.Trail()
}

// State returns the detector state; Cruising when stopped.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Cruising
	}
	return e.session.State()
}

// Viewport returns the active session's viewport.
func (e *Engine) Viewport() (Viewport, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Viewport{}, false
	}
	return e.session.Viewport(), true
}

// ClearLog empties the discovery log and restarts numbering at 1.
func (e *Engine) ClearLog() {
	e.log.Clear()
	e.logger.Info("discovery log cleared")
}

// Log returns the discovery log in order.
func (e *Engine) Log() []ZeroEvent { return e.log.All() }

// DiscoveryLog exposes the shared log.
func (e *Engine) DiscoveryLog() *DiscoveryLog { return e.log }

func (e *Engine) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	c, stop := e.ticker(e.cfg.Period)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c:
			// A stop may have raced with the tick; the generation check in
			// step discards it.
			if ctx.Err() != nil {
				return
			}
			tick, ok := e.step(gen)
			if ok {
				e.notify(tick)
			}
		}
	}
}

// step runs one tick for generation gen. The evaluation happens outside the
// lock so readers and Stop are not held up by a slow evaluator; the result is
// dropped if the session changed meanwhile.
func (e *Engine) step(gen uint64) (tick Tick, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("panic", fmt.Sprint(r)).Error("tick aborted")
			tick, ok = Tick{}, false
		}
	}()

	sess, t, ok := e.advance(gen)
	if !ok {
		return Tick{}, false
	}
	sample, err := sess.Sample(t)
	return e.apply(gen, sess, t, sample, err)
}

func (e *Engine) advance(gen uint64) (*Session, float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(gen) {
		return nil, 0, false
	}
	return e.session, e.session.Advance(), true
}

func (e *Engine) apply(gen uint64, sess *Session, t float64, sample Sample, err error) (Tick, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(gen) || e.session != sess {
		e.logger.WithField("t", t).Debug("session ended during evaluation, sample dropped")
		return Tick{}, false
	}

	tick, ok, err := sess.Apply(sample, err)
	if err != nil {
		e.logger.WithError(err).WithField("t", t).Warn("tick skipped")
		return Tick{}, false
	}
	if !ok {
		e.logger.WithField("t", t).Debug("numeric failure, tick skipped")
		return Tick{}, false
	}
	if tick.Event != nil {
		e.logger.WithFields(logrus.Fields{
			"seq":       tick.Event.Seq,
			"t":         tick.Event.Parameter,
			"magnitude": tick.Event.Magnitude,
			"verified":  tick.Event.Verified,
		}).Info("zero found")
	}
	return tick, true
}

// current reports whether gen is the live session. Callers hold e.mu.
func (e *Engine) current(gen uint64) bool {
	return e.active && e.gen == gen && e.session != nil
}

func (e *Engine) notify(tick Tick) {
	e.subMu.Lock()
	fns := make([]func(Tick), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()
	for _, fn := range fns {
		e.deliver(fn, tick)
	}
}

// deliver calls one subscriber; a panic there is logged and does not reach
// the scheduler or the other subscribers.
func (e *Engine) deliver(fn func(Tick), tick Tick) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"panic": fmt.Sprint(r),
				"t":     tick.Sample.Parameter,
			}).Error("tick subscriber failed")
		}
	}()
	fn(tick)
}
