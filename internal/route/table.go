// Package route holds the static route table and the per-conversation
// navigation state machine that walks it.
package route

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/avvvet/sightline/internal/models"
)

// ErrInvalidDestination is matched by every lookup failure
var ErrInvalidDestination = errors.New("invalid destination")

// InvalidDestinationError reports a destination missing from the table
type InvalidDestinationError struct {
	Destination string
	Known       []string
}

func (e *InvalidDestinationError) Error() string {
	return fmt.Sprintf("unknown destination %q (available: %s)", e.Destination, strings.Join(e.Known, ", "))
}

func (e *InvalidDestinationError) Unwrap() error {
	return ErrInvalidDestination
}

// Route is an immutable ordered list of steps to one destination
type Route struct {
	destination string
	steps       []models.RouteStep
}

func (r Route) Destination() string { return r.destination }

func (r Route) Len() int { return len(r.steps) }

// Step returns step i. An index outside the route is a state machine bug.
func (r Route) Step(i int) models.RouteStep {
	if i < 0 || i >= len(r.steps) {
		panic(fmt.Sprintf("route: step index %d out of bounds for %q (%d steps)", i, r.destination, len(r.steps)))
	}
	return r.steps[i]
}

// Steps returns a copy of the route's steps
func (r Route) Steps() []models.RouteStep {
	out := make([]models.RouteStep, len(r.steps))
	copy(out, r.steps)
	return out
}

// Table is the set of known routes keyed by destination. It is built once
// at startup and never mutated.
type Table struct {
	routes map[string]Route
	names  []string
}

// NewTable validates and freezes a route table
func NewTable(routes map[string][]models.RouteStep) (*Table, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("route table is empty")
	}

	t := &Table{routes: make(map[string]Route, len(routes))}
	for name, steps := range routes {
		key := Normalize(name)
		if key == "" {
			return nil, fmt.Errorf("route with empty destination name")
		}
		if _, dup := t.routes[key]; dup {
			return nil, fmt.Errorf("duplicate destination %q", key)
		}
		if len(steps) == 0 {
			return nil, fmt.Errorf("route %q has no steps", key)
		}
		frozen := make([]models.RouteStep, len(steps))
		for i, s := range steps {
			s.Action = models.Action(strings.ToUpper(strings.TrimSpace(string(s.Action))))
			if !s.Action.Valid() {
				return nil, fmt.Errorf("route %q step %d: invalid action %q", key, i, s.Action)
			}
			if strings.TrimSpace(s.Description) == "" {
				return nil, fmt.Errorf("route %q step %d: empty description", key, i)
			}
			frozen[i] = s
		}
		t.routes[key] = Route{destination: key, steps: frozen}
		t.names = append(t.names, key)
	}
	sort.Strings(t.names)

	return t, nil
}

// DefaultTable returns the built-in routes
func DefaultTable() *Table {
	t, err := NewTable(map[string][]models.RouteStep{
		"cafeteria": {
			{Action: models.ActionForward, Description: "Walk straight down the hallway"},
			{Action: models.ActionForward, Description: "Continue past the water fountain"},
			{Action: models.ActionLeft, Description: "Turn left at the corner"},
			{Action: models.ActionForward, Description: "Walk straight into the cafeteria entrance"},
			{Action: models.ActionStop, Description: "You have arrived at the cafeteria"},
		},
		"washroom": {
			{Action: models.ActionForward, Description: "Walk straight down the current hallway"},
			{Action: models.ActionRight, Description: "Turn right at the first intersection"},
			{Action: models.ActionForward, Description: "The washroom is on your left"},
			{Action: models.ActionStop, Description: "You have arrived at the washroom"},
		},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup finds the route for a destination
func (t *Table) Lookup(destination string) (Route, error) {
	r, ok := t.routes[Normalize(destination)]
	if !ok {
		return Route{}, &InvalidDestinationError{Destination: destination, Known: t.Destinations()}
	}
	return r, nil
}

// Canonical returns the table key for destination when it is known
func (t *Table) Canonical(destination string) (string, bool) {
	key := Normalize(destination)
	_, ok := t.routes[key]
	return key, ok
}

// Destinations lists the known destinations in sorted order
func (t *Table) Destinations() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Normalize folds a destination name to its table key
func Normalize(destination string) string {
	return strings.ToLower(strings.TrimSpace(destination))
}
