package models

// Request types accepted on every transport
const (
	RequestCommand = "command"
	RequestStart   = "start"
	RequestAdvance = "advance"
	RequestStop    = "stop"
	RequestFrame   = "frame"
	RequestStatus  = "status"
	RequestPing    = "ping"
)

// BoundingBox is a normalized polygon from the vision collaborator
type BoundingBox struct {
	Vertices []Vertex `json:"vertices"`
}

type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Annotation is a raw localized object before position and distance are derived
type Annotation struct {
	Name  string      `json:"name"`
	Score float64     `json:"score"`
	Box   BoundingBox `json:"bounding_box"`
}

// AssistRequest is the envelope sent by the request layer
type AssistRequest struct {
	SessionID        string           `json:"session_id"`
	Type             string           `json:"type,omitempty"`
	Text             string           `json:"text,omitempty"`
	Intent           string           `json:"intent,omitempty"`
	Destination      *string          `json:"destination,omitempty"`
	Objects          []DetectedObject `json:"objects,omitempty"`
	Annotations      []Annotation     `json:"annotations,omitempty"`
	SceneDescription string           `json:"scene_description,omitempty"`
}

// AssistResponse is returned for every request, errors included
type AssistResponse struct {
	SessionID    string            `json:"session_id"`
	Intent       IntentNode        `json:"intent,omitempty"`
	Destination  *string           `json:"destination,omitempty"`
	SpeechText   string            `json:"speech_text"`
	Speak        bool              `json:"speak"`
	Decision     *GuidanceDecision `json:"decision,omitempty"`
	Status       SessionStatus     `json:"status"`
	ErrorCode    *string           `json:"error_code,omitempty"`
	ErrorMessage *string           `json:"error_message,omitempty"`
}

// Error codes
const (
	ErrorInvalidDestination = "INVALID_DESTINATION"
	ErrorNotActive          = "NOT_ACTIVE"
	ErrorParseError         = "PARSE_ERROR"
	ErrorUnknownType        = "UNKNOWN_TYPE"
)
