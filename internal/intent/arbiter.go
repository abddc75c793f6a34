package intent

import (
	"sync"

	"github.com/avvvet/sightline/internal/models"
	"github.com/avvvet/sightline/internal/safety"
)

// Rank orders intents for conflict resolution; higher wins.
func Rank(n models.IntentNode) int {
	switch n {
	case models.IntentEmergencyStop:
		return 6
	case models.IntentStopSession:
		return 5
	case models.IntentSafetyCheck:
		return 4
	case models.IntentNavigate:
		return 3
	case models.IntentWhatIsAhead:
		return 2
	case models.IntentDescribeSurroundings:
		return 1
	default:
		return 0
	}
}

// AutoTrigger returns the intent the engine raises on its own for a verdict:
// EMERGENCY_STOP for a center hazard, SAFETY_CHECK for a crowded path.
func AutoTrigger(v models.SafetyVerdict) (models.IntentNode, bool) {
	switch {
	case v.Status == models.StatusDanger:
		return models.IntentEmergencyStop, true
	case safety.Crowded(v):
		return models.IntentSafetyCheck, true
	default:
		return "", false
	}
}

// Policy decides what happens to a user request pre-empted by an emergency stop
type Policy int

const (
	// ResumeAfterHazard hands the request back on the first clear cycle
	ResumeAfterHazard Policy = iota
	// RequireReRequest drops it; the user has to ask again
	RequireReRequest
)

// Arbiter holds the single pending-intent slot of a conversation and picks
// the effective intent of each cycle.
type Arbiter struct {
	mu        sync.Mutex
	policy    Policy
	pending   *Resolution
	preempted bool
}

func NewArbiter(policy Policy) *Arbiter {
	return &Arbiter{policy: policy}
}

// Submit records an explicit user request, overwriting any pending one
func (a *Arbiter) Submit(r Resolution) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r.Auto = false
	a.pending = &r
	a.preempted = false
}

// Pending returns the request waiting in the slot
func (a *Arbiter) Pending() (Resolution, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return Resolution{}, false
	}
	return *a.pending, true
}

// Clear empties the slot
func (a *Arbiter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = nil
	a.preempted = false
}

// Next returns the effective intent for one cycle. An auto trigger that
// outranks the pending request wins the cycle without erasing the request.
// Otherwise the pending request is consumed. ok is false when neither exists.
func (a *Arbiter) Next(v models.SafetyVerdict) (Resolution, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if auto, ok := AutoTrigger(v); ok {
		if a.pending == nil || Rank(auto) > Rank(a.pending.Intent) {
			if auto == models.IntentEmergencyStop && a.pending != nil {
				a.preempted = true
			}
			return Resolution{Intent: auto, Auto: true}, true
		}
	}

	if a.pending == nil {
		return Resolution{}, false
	}

	r := *a.pending
	dropped := a.preempted && a.policy == RequireReRequest
	a.pending = nil
	a.preempted = false
	if dropped {
		return Resolution{}, false
	}
	return r, true
}
