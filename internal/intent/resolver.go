// Package intent turns recognized speech into one authoritative intent per cycle.
package intent

import (
	"strings"

	"github.com/avvvet/sightline/internal/models"
)

// Destinations is the whitelist a resolved destination must belong to.
// *route.Table satisfies it.
type Destinations interface {
	Canonical(destination string) (string, bool)
	Destinations() []string
}

// Resolution is the outcome of resolving one request
type Resolution struct {
	Intent      models.IntentNode
	Destination *string
	// NeedsDestination is set when a navigation request was downgraded
	// because its destination is missing or unknown.
	NeedsDestination bool
	// Auto marks intents raised by the engine rather than the user
	Auto bool
}

// Resolver validates labels and destinations. It never fails.
type Resolver struct {
	known Destinations
}

func NewResolver(known Destinations) *Resolver {
	return &Resolver{known: known}
}

// Resolve maps a label onto the closed intent set. Unknown or empty labels
// resolve to DESCRIBE_SURROUNDINGS with no destination; NAVIGATE without a
// known destination is downgraded the same way.
func (r *Resolver) Resolve(label string, destination *string) Resolution {
	node, ok := ParseIntent(label)
	if !ok {
		return Resolution{Intent: models.IntentDescribeSurroundings}
	}

	var dest *string
	if destination != nil {
		if key, known := r.known.Canonical(*destination); known {
			dest = &key
		}
	}

	if node == models.IntentNavigate && dest == nil {
		return Resolution{Intent: models.IntentDescribeSurroundings, NeedsDestination: true}
	}

	return Resolution{Intent: node, Destination: dest}
}

// KnownDestinations lists the whitelist
func (r *Resolver) KnownDestinations() []string {
	return r.known.Destinations()
}

// ParseIntent matches a label case-insensitively against the vocabulary
func ParseIntent(label string) (models.IntentNode, bool) {
	switch models.IntentNode(strings.ToUpper(strings.TrimSpace(label))) {
	case models.IntentNavigate:
		return models.IntentNavigate, true
	case models.IntentDescribeSurroundings:
		return models.IntentDescribeSurroundings, true
	case models.IntentSafetyCheck:
		return models.IntentSafetyCheck, true
	case models.IntentWhatIsAhead:
		return models.IntentWhatIsAhead, true
	case models.IntentEmergencyStop:
		return models.IntentEmergencyStop, true
	case models.IntentStopSession:
		return models.IntentStopSession, true
	case models.IntentHelp:
		return models.IntentHelp, true
	default:
		return "", false
	}
}
