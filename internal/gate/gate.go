// Package gate implements a minimum-dwell visibility state machine used by
// the startup splash and the operation loader.
package gate

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Minimum dwell times for the two surfaces that use a gate.
const (
	SplashDwell = 3 * time.Second
	LoaderDwell = 5 * time.Second
)

// State is the gate's position.
type State int

const (
	Hidden State = iota
	Showing
	PendingHide
)

func (s State) String() string {
	switch s {
	case Showing:
		return "showing"
	case PendingHide:
		return "pending-hide"
	default:
		return "hidden"
	}
}

// Gate keeps a surface visible for at least minDwell from its first show,
// regardless of when the hide is requested.
type Gate struct {
	mu       sync.Mutex
	clock    clock.WithDelayedExecution
	minDwell time.Duration

	state   State
	shownAt time.Time
	timer   clock.Timer
	// gen is bumped whenever a scheduled hide becomes stale.
	gen    uint64
	closed bool

	listeners []func(State)
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the real clock.
func WithClock(c clock.WithDelayedExecution) Option {
	return func(g *Gate) { g.clock = c }
}

// New returns a hidden gate.
func New(minDwell time.Duration, opts ...Option) *Gate {
	g := &Gate{
		clock:    clock.RealClock{},
		minDwell: minDwell,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OnChange registers fn to be called after every state transition.
func (g *Gate) OnChange(fn func(State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Visible reports whether the surface is on screen.
func (g *Gate) Visible() bool {
	return g.State() != Hidden
}

// RequestShow shows a hidden gate. It is ignored while the gate is already
// Showing or PendingHide; the dwell clock is never restarted.
func (g *Gate) RequestShow() {
	g.mu.Lock()
	if g.closed || g.state != Hidden {
		g.mu.Unlock()
		return
	}
	g.state = Showing
	g.shownAt = g.clock.Now()
	g.mu.Unlock()

	g.notify(Showing)
}

// RequestHide hides the gate once minDwell has elapsed since it was shown.
func (g *Gate) RequestHide() {
	g.mu.Lock()
	if g.closed || g.state != Showing {
		g.mu.Unlock()
		return
	}

	remaining := g.minDwell - g.clock.Since(g.shownAt)
	if remaining <= 0 {
		g.state = Hidden
		g.mu.Unlock()
		g.notify(Hidden)
		return
	}

	g.state = PendingHide
	g.gen++
	gen := g.gen
	g.mu.Unlock()

	g.notify(PendingHide)

	t := g.clock.AfterFunc(remaining, func() { g.fire(gen) })

	g.mu.Lock()
	if g.gen == gen && g.state == PendingHide {
		g.timer = t
		t = nil
	}
	g.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

func (g *Gate) fire(gen uint64) {
	g.mu.Lock()
	if g.closed || g.gen != gen || g.state != PendingHide {
		g.mu.Unlock()
		return
	}
	g.state = Hidden
	g.timer = nil
	g.mu.Unlock()

	g.notify(Hidden)
}

// Close cancels any pending hide. Later requests and timer fires are ignored.
func (g *Gate) Close() {
	g.mu.Lock()
	g.closed = true
	g.gen++
	t := g.timer
	g.timer = nil
	g.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

func (g *Gate) notify(s State) {
	g.mu.Lock()
	listeners := append([]func(State){}, g.listeners...)
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}
