package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers with no text
var ErrEmptyResponse = errors.New("llm returned no content")

// LLMProvider defines the interface for the generative-text collaborator
type LLMProvider interface {
	Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error)
}

// LLMRequest represents the structured request to LLM
type LLMRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSON asks providers that support it for a JSON-only answer
	JSON bool
}

// LLMResponse represents the raw response from LLM
type LLMResponse struct {
	Content string
}
