package intent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/avvvet/sightline/internal/llm"
	"github.com/avvvet/sightline/internal/models"
	"github.com/avvvet/sightline/internal/prompts"
)

// Classifier labels a free-form transcript and resolves the label.
type Classifier struct {
	provider llm.LLMProvider
	resolver *Resolver
	logger   *zap.Logger
}

// NewClassifier builds a classifier. A nil provider selects keyword matching.
func NewClassifier(provider llm.LLMProvider, resolver *Resolver, logger *zap.Logger) *Classifier {
	return &Classifier{provider: provider, resolver: resolver, logger: logger}
}

// Classify never fails; every error path resolves to the safe default.
func (c *Classifier) Classify(ctx context.Context, transcript string) Resolution {
	if strings.TrimSpace(transcript) == "" {
		return c.resolver.Resolve("", nil)
	}

	if c.provider == nil {
		label, dest := matchKeywords(transcript, c.resolver.KnownDestinations())
		return c.resolver.Resolve(label, dest)
	}

	resp, err := c.provider.Generate(ctx, &llm.LLMRequest{
		Prompt:      prompts.BuildCommandPrompt(transcript, c.resolver.KnownDestinations()),
		MaxTokens:   100,
		Temperature: 0.1,
		JSON:        true,
	})
	if err != nil {
		c.logger.Warn("Command classification failed", zap.Error(err))
		return c.resolver.Resolve("", nil)
	}

	cmd, err := prompts.ParseCommand(resp.Content)
	if err != nil {
		c.logger.Warn("Unparseable classification", zap.Error(err), zap.String("content", resp.Content))
		return c.resolver.Resolve("", nil)
	}

	r := c.resolver.Resolve(cmd.Intent, cmd.Destination)
	c.logger.Debug("Classified command",
		zap.String("transcript", transcript),
		zap.String("label", cmd.Intent),
		zap.String("intent", string(r.Intent)))
	return r
}

var keywordRules = []struct {
	intent   models.IntentNode
	keywords []string
}{
	{models.IntentStopSession, []string{"stop", "cancel", "quit", "end navigation"}},
	{models.IntentHelp, []string{"help", "what can i say"}},
	{models.IntentNavigate, []string{"take me", "go to", "guide me", "navigate", "bring me", "get to"}},
	{models.IntentSafetyCheck, []string{"safe", "can i walk", "can i move", "obstacle", "clear path"}},
	{models.IntentWhatIsAhead, []string{"ahead", "in front"}},
	{models.IntentDescribeSurroundings, []string{"around", "where am i", "describe", "surround"}},
}

func matchKeywords(transcript string, destinations []string) (string, *string) {
	text := strings.ToLower(transcript)

	var dest *string
	for _, d := range destinations {
		if strings.Contains(text, d) {
			found := d
			dest = &found
			break
		}
	}

	for _, rule := range keywordRules {
		for _, k := range rule.keywords {
			if strings.Contains(text, k) {
				return string(rule.intent), dest
			}
		}
	}
	return "", dest
}
