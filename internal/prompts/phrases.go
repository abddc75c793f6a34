package prompts

import (
	"fmt"
	"strings"

	"github.com/avvvet/sightline/internal/models"
)

// Static phrases spoken when no generator is available or it fails.
// None of them quotes a unit of measure.
const (
	HazardFallback    = "Stop. Obstacle ahead. Wait."
	HelpText          = "You can say: take me to a place, what's ahead, is it safe, describe my surroundings, next step, or stop."
	StopSessionPhrase = "Navigation stopped."
)

var fallbacks = map[models.IntentNode]string{
	models.IntentNavigate:             "Wait. Processing path.",
	models.IntentDescribeSurroundings: "One moment. Analyzing surroundings.",
	models.IntentSafetyCheck:          "Checking safety. Stand still.",
	models.IntentWhatIsAhead:          "Checking ahead. Hold on.",
	models.IntentEmergencyStop:        "Stop. Wait for guidance.",
	models.IntentStopSession:          StopSessionPhrase,
	models.IntentHelp:                 HelpText,
}

// Fallback returns the static phrase for an intent. A known center hazard
// always wins.
func Fallback(intent models.IntentNode, centerHazard bool) string {
	if centerHazard {
		return HazardFallback
	}
	if phrase, ok := fallbacks[intent]; ok {
		return phrase
	}
	return "Wait for guidance."
}

// StartPhrase announces a new route
func StartPhrase(destination string) string {
	return fmt.Sprintf("Going to %s. Follow me.", destination)
}

// ClarifyDestination asks for one of the known destinations,
// e.g. "Where do you want to go? Cafeteria or washroom?"
func ClarifyDestination(destinations []string) string {
	if len(destinations) == 0 {
		return "Where do you want to go?"
	}

	choices := make([]string, len(destinations))
	copy(choices, destinations)
	choices[0] = capitalize(choices[0])

	list := choices[0]
	if n := len(choices); n > 1 {
		list = strings.Join(choices[:n-1], ", ") + " or " + choices[n-1]
	}
	return "Where do you want to go? " + list + "?"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
