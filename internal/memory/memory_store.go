package memory

import (
	"context"
	"sync"
)

// InMemoryStore is the Store used when no Redis URL is configured
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*SessionData
	limit    int
}

// NewInMemoryStore keeps at most limit messages per session; 0 keeps all.
func NewInMemoryStore(limit int) *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*SessionData),
		limit:    limit,
	}
}

func (s *InMemoryStore) LoadSession(ctx context.Context, sessionID string) (*SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return newSession(sessionID), nil
	}

	out := *session
	out.Messages = make([]Message, len(session.Messages))
	copy(out.Messages, session.Messages)
	return &out, nil
}

func (s *InMemoryStore) SaveMessage(ctx context.Context, sessionID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		session = newSession(sessionID)
		s.sessions[sessionID] = session
	}
	appendMessage(session, msg, s.limit)
	return nil
}

func (s *InMemoryStore) ClearSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

