package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainProvider adapts any langchaingo model to LLMProvider
type LangChainProvider struct {
	model   llms.Model
	timeout time.Duration
}

func NewLangChainProvider(model llms.Model, timeout time.Duration) *LangChainProvider {
	return &LangChainProvider{model: model, timeout: timeout}
}

// NewOpenAIProvider builds a LangChainProvider backed by OpenAI chat models
func NewOpenAIProvider(apiKey, model string, timeout time.Duration) (*LangChainProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	opts := []openai.Option{openai.WithToken(apiKey)}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}

	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return NewLangChainProvider(m, timeout), nil
}

func (p *LangChainProvider) Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	opts := []llms.CallOption{llms.WithTemperature(request.Temperature)}
	if request.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(request.MaxTokens))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, p.model, request.Prompt, opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain completion failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	return &LLMResponse{Content: text}, nil
}
