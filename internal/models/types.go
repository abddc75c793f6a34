package models

import (
	"encoding/json"
	"strings"
)

// Position is the horizontal bucket of a detection within the frame
type Position string

const (
	PositionLeft    Position = "left"
	PositionCenter  Position = "center"
	PositionRight   Position = "right"
	PositionUnknown Position = "unknown"
)

// ParsePosition maps a collaborator string onto a bucket. Anything else,
// including the "general" label used for scene labels, is unknown.
func ParsePosition(s string) Position {
	switch Position(strings.ToLower(strings.TrimSpace(s))) {
	case PositionLeft:
		return PositionLeft
	case PositionCenter:
		return PositionCenter
	case PositionRight:
		return PositionRight
	default:
		return PositionUnknown
	}
}

// DefaultDistanceMeters is assumed when the vision collaborator sends no estimate
const DefaultDistanceMeters = 2.0

// DetectedObject is one detection from the vision collaborator
type DetectedObject struct {
	Name           string   `json:"name"`
	Confidence     float64  `json:"confidence"`
	Position       Position `json:"position"`
	DistanceMeters float64  `json:"distance_meters"`
}

// UnmarshalJSON normalizes collaborator output so the analyzer only ever
// sees values inside the documented ranges.
func (o *DetectedObject) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name           string   `json:"name"`
		Confidence     float64  `json:"confidence"`
		Position       string   `json:"position"`
		DistanceMeters *float64 `json:"distance_meters"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	distance := DefaultDistanceMeters
	if raw.DistanceMeters != nil {
		distance = *raw.DistanceMeters
	}

	*o = NewDetectedObject(raw.Name, raw.Confidence, ParsePosition(raw.Position), distance)
	return nil
}

// NewDetectedObject builds a detection with confidence clamped to [0,1]
// and distance clamped to be non-negative.
func NewDetectedObject(name string, confidence float64, position Position, distance float64) DetectedObject {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	if distance < 0 {
		distance = 0
	}
	if position == "" {
		position = PositionUnknown
	}
	return DetectedObject{
		Name:           name,
		Confidence:     confidence,
		Position:       position,
		DistanceMeters: distance,
	}
}

// SafetyStatus is the qualitative verdict on the path ahead
type SafetyStatus string

const (
	StatusClear   SafetyStatus = "CLEAR"
	StatusCaution SafetyStatus = "CAUTION"
	StatusNarrow  SafetyStatus = "NARROW"
	StatusDanger  SafetyStatus = "DANGER"
)

// SafetyVerdict is recomputed every frame and never stored
type SafetyVerdict struct {
	Status        SafetyStatus     `json:"status"`
	Summary       string           `json:"summary"`
	HazardObjects []DetectedObject `json:"hazard_objects"`
}

// IntentNode is one discrete category of user request
type IntentNode string

const (
	IntentNavigate             IntentNode = "NAVIGATE"
	IntentDescribeSurroundings IntentNode = "DESCRIBE_SURROUNDINGS"
	IntentSafetyCheck          IntentNode = "SAFETY_CHECK"
	IntentWhatIsAhead          IntentNode = "WHAT_IS_AHEAD"
	IntentEmergencyStop        IntentNode = "EMERGENCY_STOP"
	IntentStopSession          IntentNode = "STOP_SESSION"
	IntentHelp                 IntentNode = "HELP"
)

// AllIntents is the closed intent vocabulary
var AllIntents = []IntentNode{
	IntentNavigate,
	IntentDescribeSurroundings,
	IntentSafetyCheck,
	IntentWhatIsAhead,
	IntentEmergencyStop,
	IntentStopSession,
	IntentHelp,
}

// Action is the movement a route step asks for
type Action string

const (
	ActionForward Action = "FORWARD"
	ActionLeft    Action = "LEFT"
	ActionRight   Action = "RIGHT"
	ActionStop    Action = "STOP"
)

// Valid reports whether a is one of the four route actions
func (a Action) Valid() bool {
	switch a {
	case ActionForward, ActionLeft, ActionRight, ActionStop:
		return true
	}
	return false
}

// RouteStep is one pre-authored waypoint instruction
type RouteStep struct {
	Action      Action `json:"action" yaml:"action"`
	Description string `json:"description" yaml:"description"`
}

// GuidanceDecision is produced once per guidance cycle
type GuidanceDecision struct {
	AnnouncedStep  Action        `json:"announced_step"`
	SafetyOverride bool          `json:"safety_override"`
	NarrationHint  string        `json:"narration_hint"`
	Description    string        `json:"description"`
	StepIndex      int           `json:"step_index"`
	FinalStep      bool          `json:"final_step"`
	Verdict        SafetyVerdict `json:"verdict"`
}

// SessionStatus is a read-only snapshot of a conversation's navigation state
type SessionStatus struct {
	Active      bool       `json:"active"`
	Destination string     `json:"destination,omitempty"`
	StepIndex   int        `json:"step_index"`
	Instruction *RouteStep `json:"instruction,omitempty"`
}
