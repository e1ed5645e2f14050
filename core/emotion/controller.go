package emotion

import (
	"sync"
	"time"
)

// Transition is a mode change decided by the Arbitrator.
type Transition struct {
	From Mode      `json:"from"`
	To   Mode      `json:"to"`
	At   time.Time `json:"at"`
	// Module is the module captured when entering calming, or the module to resume when leaving it.
	// 0 when there is none.
	Module int `json:"module,omitempty"`
	// Window holds the samples that triggered the transition.
	Window []Sample `json:"window"`
}

// Resume returns the module the host page must reactivate, if any.
func (t Transition) Resume() (int, bool) {
	if t.To != ModeLearning || t.Module <= 0 {
		return 0, false
	}
	return t.Module, true
}

// Listener observes transitions (the hosting page, persistence, notifications..).
type Listener interface {
	OnTransition(t Transition)
}

type ListenerFunc func(t Transition)

func (fn ListenerFunc) OnTransition(t Transition) { fn(t) }

// State is a snapshot of a Controller.
type State struct {
	Mode          Mode     `json:"mode"`
	ActiveModule  int      `json:"active_module,omitempty"`
	PendingModule int      `json:"pending_module,omitempty"`
	Samples       []Sample `json:"samples"`
}

// Controller owns the mode state machine of one child's session.
// The mode & pending module are only mutated through Observe and Evaluate.
type Controller struct {
	mu         sync.Mutex
	mode       Mode
	active     int
	smoother   *Smoother
	arbitrator Arbitrator
	continuity ContinuityTracker
	listeners  []Listener
	now        func() time.Time
}

func NewController(listeners ...Listener) *Controller {
	return &Controller{
		mode:       ModeLearning,
		smoother:   NewSmoother(SmootherCapacity),
		arbitrator: NewArbitrator(),
		listeners:  listeners,
		now:        time.Now,
	}
}

// AddListener registers l for the transitions to come.
func (c *Controller) AddListener(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// SetActiveModule tells the controller which learning module the child is currently in (0 for none).
func (c *Controller) SetActiveModule(moduleID int) {
	if moduleID < 0 {
		moduleID = 0
	}
	c.mu.Lock()
	c.active = moduleID
	c.mu.Unlock()
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending, _ := c.continuity.Pending()
	return State{
		Mode:          c.mode,
		ActiveModule:  c.active,
		PendingModule: pending,
		Samples:       c.smoother.RecentWindow(SmootherCapacity),
	}
}

// Observe records s & evaluates the arbitrator. It returns the transition it caused, if any.
func (c *Controller) Observe(s Sample) (Transition, bool) {
	c.mu.Lock()
	c.smoother.Record(s)
	t, ok := c.evaluate()
	listeners := c.listeners
	c.mu.Unlock()

	if ok {
		c.notify(listeners, t)
	}
	return t, ok
}

// Evaluate re-runs arbitration over the current window without recording a sample.
func (c *Controller) Evaluate() (Transition, bool) {
	c.mu.Lock()
	t, ok := c.evaluate()
	listeners := c.listeners
	c.mu.Unlock()

	if ok {
		c.notify(listeners, t)
	}
	return t, ok
}

// evaluate must be called with c.mu held.
func (c *Controller) evaluate() (Transition, bool) {
	window := c.smoother.RecentWindow(c.arbitrator.Window)
	next, changed := c.arbitrator.Evaluate(window, c.mode)
	if !changed {
		return Transition{}, false
	}

	t := Transition{From: c.mode, To: next, At: c.now(), Window: window}
	switch next {
	case ModeCalming:
		c.continuity.Capture(c.active)
		t.Module, _ = c.continuity.Pending()
	case ModeLearning:
		// decision history must not leak across a calming episode
		c.smoother.Reset()
		if id, ok := c.continuity.Take(); ok {
			t.Module = id
			c.active = id
		}
	}
	c.mode = next
	return t, true
}

func (c *Controller) notify(listeners []Listener, t Transition) {
	for _, l := range listeners {
		l.OnTransition(t)
	}
}
