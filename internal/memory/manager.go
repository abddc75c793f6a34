package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"go.uber.org/zap"
)

// Manager keeps a LangChainGo buffer per conversation in front of a Store
type Manager struct {
	mu       sync.Mutex
	store    Store
	sessions map[string]*memory.ConversationBuffer
	maxTurns int
	logger   *zap.Logger
}

// NewManager creates a manager whose formatted history holds at most maxTurns lines
func NewManager(store Store, maxTurns int, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		sessions: make(map[string]*memory.ConversationBuffer),
		maxTurns: maxTurns,
		logger:   logger,
	}
}

// GetOrCreateSession returns the cached buffer, loading stored history on first use
func (m *Manager) GetOrCreateSession(ctx context.Context, sessionID string) (*memory.ConversationBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mem, exists := m.sessions[sessionID]; exists {
		return mem, nil
	}

	mem := memory.NewConversationBuffer()

	sessionData, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	for _, msg := range sessionData.Messages {
		var chatMsg llms.ChatMessage

		switch msg.Role {
		case RoleUser:
			chatMsg = llms.HumanChatMessage{Content: msg.Content}
		case RoleAssistant:
			chatMsg = llms.AIChatMessage{Content: msg.Content}
		default:
			m.logger.Warn("Unknown message role, skipping", zap.String("role", msg.Role))
			continue
		}

		if err := mem.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return nil, fmt.Errorf("failed to add message to memory: %w", err)
		}
	}

	m.sessions[sessionID] = mem

	m.logger.Debug("Loaded session history",
		zap.String("session_id", sessionID),
		zap.Int("messages", len(sessionData.Messages)))

	return mem, nil
}

// RecordUser stores a transcript heard from the user
func (m *Manager) RecordUser(ctx context.Context, sessionID, text string) error {
	return m.record(ctx, sessionID, RoleUser, text)
}

// RecordAssistant stores an utterance the engine spoke
func (m *Manager) RecordAssistant(ctx context.Context, sessionID, text string) error {
	return m.record(ctx, sessionID, RoleAssistant, text)
}

func (m *Manager) record(ctx context.Context, sessionID, role, text string) error {
	mem, err := m.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if role == RoleUser {
		err = mem.ChatHistory.AddUserMessage(ctx, text)
	} else {
		err = mem.ChatHistory.AddAIMessage(ctx, text)
	}
	if err != nil {
		return fmt.Errorf("failed to add %s message to memory: %w", role, err)
	}

	msg := Message{Role: role, Content: text, Timestamp: time.Now()}
	if err := m.store.SaveMessage(ctx, sessionID, msg); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

// History formats the most recent lines of a conversation for a prompt.
// It is empty when nothing has been said yet.
func (m *Manager) History(ctx context.Context, sessionID string) (string, error) {
	mem, err := m.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	messages, err := mem.ChatHistory.Messages(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get messages: %w", err)
	}

	if m.maxTurns > 0 && len(messages) > m.maxTurns {
		messages = messages[len(messages)-m.maxTurns:]
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg := msg.(type) {
		case llms.HumanChatMessage:
			fmt.Fprintf(&b, "User: %s\n", msg.Content)
		case llms.AIChatMessage:
			fmt.Fprintf(&b, "Assistant: %s\n", msg.Content)
		}
	}

	return b.String(), nil
}

// ClearSession forgets a conversation in both cache and store
func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if err := m.store.ClearSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	m.logger.Debug("Cleared session history", zap.String("session_id", sessionID))

	return nil
}

// Evict drops the cached buffer but keeps the stored history, which the
// store expires on its own.
func (m *Manager) Evict(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Close closes the underlying store
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
