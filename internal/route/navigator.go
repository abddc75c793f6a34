package route

import (
	"errors"
	"fmt"
	"sync"

	"github.com/avvvet/sightline/internal/models"
)

// ErrNotActive is returned by Advance when no route is in progress
var ErrNotActive = errors.New("navigation is not active")

// NotActiveStep is the sentinel instruction of an inactive session
var NotActiveStep = models.RouteStep{
	Action:      models.ActionStop,
	Description: "Navigation is not active. Please start a route.",
}

// Session is an immutable snapshot of a Navigator
type Session struct {
	Active    bool
	StepIndex int
	route     Route
}

// Destination is empty for an inactive session
func (s Session) Destination() string {
	if !s.Active {
		return ""
	}
	return s.route.Destination()
}

// CurrentInstruction returns the step at the pointer, or NotActiveStep.
func (s Session) CurrentInstruction() (models.RouteStep, bool) {
	if !s.Active {
		return NotActiveStep, false
	}
	return s.route.Step(s.StepIndex), true
}

// Final reports whether the pointer sits on the last step of the route
func (s Session) Final() bool {
	return s.Active && s.StepIndex == s.route.Len()-1
}

// Status converts the snapshot for the wire
func (s Session) Status() models.SessionStatus {
	st := models.SessionStatus{Active: s.Active, StepIndex: s.StepIndex}
	if step, ok := s.CurrentInstruction(); ok {
		st.Destination = s.Destination()
		st.Instruction = &step
	}
	return st
}

// Navigator is the route state machine of one conversation. It is
// INACTIVE or ACTIVE(destination, index) and only moves on explicit calls.
type Navigator struct {
	mu     sync.Mutex
	table  *Table
	active bool
	route  Route
	index  int
}

func NewNavigator(table *Table) *Navigator {
	return &Navigator{table: table}
}

// Start begins a route at step 0. An unknown destination leaves the
// current state untouched.
func (n *Navigator) Start(destination string) error {
	r, err := n.table.Lookup(destination)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = true
	n.route = r
	n.index = 0
	n.check()
	return nil
}

// Advance moves to the next step, staying on the last one once reached.
func (n *Navigator) Advance() (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.active {
		return 0, ErrNotActive
	}
	if n.index < n.route.Len()-1 {
		n.index++
	}
	n.check()
	return n.index, nil
}

// Stop returns to INACTIVE from any state
func (n *Navigator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = false
	n.route = Route{}
	n.index = 0
}

// CurrentInstruction returns the current step or NotActiveStep
func (n *Navigator) CurrentInstruction() (models.RouteStep, bool) {
	return n.Snapshot().CurrentInstruction()
}

// Snapshot copies the current state
func (n *Navigator) Snapshot() Session {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Session{Active: n.active, StepIndex: n.index, route: n.route}
}

// Table returns the route table the navigator was built with
func (n *Navigator) Table() *Table {
	return n.table
}

// check must hold after every transition
func (n *Navigator) check() {
	if n.active && (n.index < 0 || n.index >= n.route.Len()) {
		panic(fmt.Sprintf("route: step index %d out of bounds for %q (%d steps)", n.index, n.route.Destination(), n.route.Len()))
	}
}
