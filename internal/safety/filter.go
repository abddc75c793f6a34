package safety

import (
	"strings"

	"github.com/avvvet/sightline/internal/models"
)

// CautiousPhrase replaces text that quotes a distance
const CautiousPhrase = "Move carefully. Let me guide you step by step."

// unknownHazard is spoken in place of a hazard name that cannot be said safely
const unknownHazard = "obstacle"

var (
	directionTokens = []string{"stop", "left", "right"}
	unitTokens      = []string{"meters", "feet", "yards", "inches", "centimeters"}
)

// Filter vets text before it reaches the speaker. With a center hazard the
// text must tell the user to stop or steer, otherwise it is replaced by a stop
// phrase. Text quoting a unit of measure is replaced as a whole. Neither
// replacement contains a token that would trigger another replacement, so
// Filter(Filter(t, o), o) == Filter(t, o).
func Filter(text string, objects []models.DetectedObject) string {
	hazards := CenterHazards(objects)
	lower := strings.ToLower(text)

	if len(hazards) > 0 && !containsAny(lower, directionTokens) {
		return StopPhrase(hazards)
	}

	if containsAny(lower, unitTokens) {
		if len(hazards) > 0 {
			return StopPhrase(hazards)
		}
		return CautiousPhrase
	}

	return text
}

// StopPhrase names up to two hazards, e.g. "Stop! chair ahead."
func StopPhrase(hazards []models.DetectedObject) string {
	spoken := names(hazards, namedHazards)
	for i, n := range spoken {
		if strings.TrimSpace(n) == "" || containsAny(strings.ToLower(n), unitTokens) {
			spoken[i] = unknownHazard
		}
	}
	if len(spoken) == 0 {
		spoken = []string{unknownHazard}
	}
	return "Stop! " + strings.Join(spoken, ", ") + " ahead."
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
