package guidance

import (
	"context"

	"go.uber.org/zap"

	"github.com/avvvet/sightline/internal/llm"
	"github.com/avvvet/sightline/internal/memory"
	"github.com/avvvet/sightline/internal/models"
	"github.com/avvvet/sightline/internal/prompts"
	"github.com/avvvet/sightline/internal/safety"
)

// Utterance is what one cycle asks the speaker to say
type Utterance struct {
	SessionID        string
	Intent           models.IntentNode
	Objects          []models.DetectedObject
	Verdict          models.SafetyVerdict
	SceneDescription string
	Destination      string
	Decision         *models.GuidanceDecision
	// Ephemeral utterances neither read nor write history
	Ephemeral bool
}

// Narrator phrases utterances. The generator and the history are optional;
// whatever comes out always passes the safety filter.
type Narrator struct {
	provider llm.LLMProvider
	memory   *memory.Manager
	logger   *zap.Logger
}

func NewNarrator(provider llm.LLMProvider, mem *memory.Manager, logger *zap.Logger) *Narrator {
	return &Narrator{provider: provider, memory: mem, logger: logger}
}

// Speak returns the text to speak for u. It does not fail: generator errors
// fall back to the static phrase of the intent.
func (n *Narrator) Speak(ctx context.Context, u Utterance) string {
	text := n.generate(ctx, u)
	if text == "" {
		text = fallback(u)
	}

	text = safety.Filter(text, u.Objects)

	if n.remembers(u) {
		if err := n.memory.RecordAssistant(ctx, u.SessionID, text); err != nil {
			n.logger.Warn("Failed to record utterance", zap.String("session_id", u.SessionID), zap.Error(err))
		}
	}

	return text
}

func (n *Narrator) generate(ctx context.Context, u Utterance) string {
	switch u.Intent {
	case models.IntentHelp, models.IntentStopSession:
		return ""
	}
	if n.provider == nil {
		return ""
	}

	situation := prompts.Situation{
		Intent:           u.Intent,
		Verdict:          u.Verdict,
		Objects:          u.Objects,
		SceneDescription: u.SceneDescription,
		Destination:      u.Destination,
		Decision:         u.Decision,
	}
	if n.remembers(u) {
		history, err := n.memory.History(ctx, u.SessionID)
		if err != nil {
			n.logger.Warn("Failed to load history", zap.String("session_id", u.SessionID), zap.Error(err))
		}
		situation.History = history
	}

	resp, err := n.provider.Generate(ctx, &llm.LLMRequest{
		Prompt:      prompts.BuildGuidancePrompt(situation),
		MaxTokens:   60,
		Temperature: 0.3,
	})
	if err != nil {
		n.logger.Warn("Phrasing failed, using fallback",
			zap.String("intent", string(u.Intent)),
			zap.Error(err))
		return ""
	}

	return prompts.Clean(resp.Content)
}

func (n *Narrator) remembers(u Utterance) bool {
	return n.memory != nil && u.SessionID != "" && !u.Ephemeral
}

func fallback(u Utterance) string {
	centerHazard := len(safety.CenterHazards(u.Objects)) > 0
	if u.Intent == models.IntentNavigate && !centerHazard && u.Decision != nil && u.Decision.Description != "" {
		return u.Decision.Description
	}
	return prompts.Fallback(u.Intent, centerHazard)
}
