package memory

import (
	"context"
	"time"
)

// Roles recorded in a conversation
const (
	RoleUser      = "user"      // transcripts heard from the user
	RoleAssistant = "assistant" // utterances spoken by the engine
)

// Message is one line of a conversation
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionData is the stored history of one conversation
type SessionData struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	Metadata  Metadata  `json:"metadata"`
}

// Metadata contains session information
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Store keeps utterance history. Implementations bound the history they keep;
// navigation state is never stored.
type Store interface {
	// LoadSession returns an empty session when none is stored
	LoadSession(ctx context.Context, sessionID string) (*SessionData, error)

	// SaveMessage appends a message to a session
	SaveMessage(ctx context.Context, sessionID string, msg Message) error

	// ClearSession removes a session from storage
	ClearSession(ctx context.Context, sessionID string) error
}

func newSession(sessionID string) *SessionData {
	now := time.Now()
	return &SessionData{
		SessionID: sessionID,
		Messages:  []Message{},
		Metadata: Metadata{
			StartedAt:    now,
			LastActivity: now,
		},
	}
}

// appendMessage adds msg and keeps only the newest limit messages when limit > 0
func appendMessage(session *SessionData, msg Message, limit int) {
	session.Messages = append(session.Messages, msg)
	if limit > 0 && len(session.Messages) > limit {
		session.Messages = session.Messages[len(session.Messages)-limit:]
	}
	session.Metadata.LastActivity = time.Now()
	session.Metadata.MessageCount++
	if session.Metadata.MessageCount == 1 {
		session.Metadata.StartedAt = msg.Timestamp
	}
}
