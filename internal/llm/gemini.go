package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiProvider generates text with Google's Gemini models
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, timeout time.Duration, logger *zap.Logger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger = logger.With(zap.String("component", "gemini"), zap.String("model", model))
	logger.Info("Gemini provider initialized")

	return &GeminiProvider{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		Temperature:     ptrFloat32(float32(request.Temperature)),
		MaxOutputTokens: int32(request.MaxTokens),
	}
	if request.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(request.Prompt), config)
	if err != nil {
		return nil, fmt.Errorf("gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates: %w", ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no content parts: %w", ErrEmptyResponse)
	}

	var text string
	for _, part := range candidate.Content.Parts {
		text += part.Text
	}

	g.logger.Debug("Gemini completion",
		zap.Int("prompt_length", len(request.Prompt)),
		zap.Int("response_length", len(text)))

	return &LLMResponse{Content: text}, nil
}

func ptrFloat32(v float32) *float32 {
	return &v
}
