package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avvvet/sightline/internal/models"
)

const PersonalityCore = `You are a calm, confident navigation assistant for a visually impaired person.

CORE TRAITS:
- Speak naturally like a trusted friend
- Keep responses under 20 words
- Never use meta-commentary (don't say "I can help you with" or "let me assist")
- Just state what you see and give clear directions
- Prioritize safety: warn about obstacles immediately if they are close
- Ignore objects that are far away
- Never state distances in meters, feet or any other unit
- Use simple, direct language

TONE:
- "Walk forward. Path is clear."
- "Stop. Chair directly ahead."
- "You're in a hallway. Tables on your right."`

const SafetyRules = `SAFETY FIRST:
- If obstacle ahead: immediate warning
- If path blocked: suggest alternative
- If uncertain: tell user to wait
- Always prioritize caution`

// Situation is everything a guidance prompt is built from
type Situation struct {
	Intent           models.IntentNode
	Verdict          models.SafetyVerdict
	Objects          []models.DetectedObject
	SceneDescription string
	Destination      string
	Decision         *models.GuidanceDecision
	History          string
}

// BuildGuidancePrompt renders the prompt for one intent
func BuildGuidancePrompt(s Situation) string {
	var b strings.Builder

	b.WriteString(PersonalityCore)
	b.WriteString("\n\n")
	b.WriteString(SafetyRules)
	b.WriteString("\n\nSITUATION:\n")
	b.WriteString(sceneSection(s))
	b.WriteString("\n\nSAFETY: ")
	b.WriteString(s.Verdict.Summary)
	if s.History != "" {
		b.WriteString("\n\nRECENTLY SAID (do not repeat word for word):\n")
		b.WriteString(s.History)
	}
	b.WriteString("\n\n")
	b.WriteString(taskSection(s))
	b.WriteString("\n\nOutput the spoken text only, no markdown.")

	return b.String()
}

func sceneSection(s Situation) string {
	var parts []string
	if s.SceneDescription != "" {
		parts = append(parts, "Scene: "+s.SceneDescription)
	}
	if len(s.Objects) > 0 {
		data, err := json.Marshal(s.Objects)
		if err == nil {
			parts = append(parts, "Detected objects (relative to user): "+string(data))
		}
	}
	if len(parts) == 0 {
		return "No visual data available."
	}
	return strings.Join(parts, "\n")
}

func taskSection(s Situation) string {
	switch s.Intent {
	case models.IntentNavigate:
		if s.Decision == nil {
			return fmt.Sprintf("Guide them one step toward %s. Give ONE clear direction based on what is actually there.", destinationOr(s.Destination))
		}
		return fmt.Sprintf(`ROUTE:
- Destination: %s
- Planned instruction: %q (step: %s)
- Safety override active: %t
- Notes: %s

TASK:
1. If the safety override is active, warn the user to stop for the obstacle ahead and ignore the planned instruction.
2. Otherwise give the planned instruction clearly.
3. Mention an object only if it helps, e.g. "Pass the bench on your left".
4. Keep it under 2 sentences.`,
			destinationOr(s.Destination), s.Decision.Description, s.Decision.AnnouncedStep,
			s.Decision.SafetyOverride, s.Decision.NarrationHint)
	case models.IntentSafetyCheck:
		return "Is the path clear? Answer directly: safe or not safe, and name specific obstacles if any."
	case models.IntentWhatIsAhead:
		return "Describe what is directly ahead. Don't guess or make assumptions."
	case models.IntentEmergencyStop:
		return "DANGER AHEAD. Say STOP and name the obstacle. Be firm but calm."
	default:
		return `Tell them what's around and how to move around it.
- Mention only objects that are near and could be hit.
- If a close obstacle is in the center, suggest moving to the clearer side.
- Prefer actionable directions: "Move left", "Go right", "Continue straight".
- Keep it under 12 words.`
	}
}

func destinationOr(d string) string {
	if d == "" {
		return "the destination"
	}
	return d
}

// Clean strips markdown the generator sometimes adds
func Clean(text string) string {
	text = strings.NewReplacer("*", "", "`", "", "#", "").Replace(text)
	return strings.Join(strings.Fields(text), " ")
}
