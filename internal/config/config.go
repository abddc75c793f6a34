package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

type Config struct {
	// Service configuration
	ServiceName string
	LogLevel    string

	// NATS configuration
	NatsURL           string
	NatsSubjectPrefix string
	NatsTimeout       time.Duration

	// HTTP / websocket listener
	HTTPAddr string

	// Utterance history
	RedisURL          string
	MemoryTTL         time.Duration
	MemoryMaxTurns    int
	MemoryMaxMessages int

	// Phrasing and classification
	LLMProvider   string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	PhraseTimeout time.Duration

	// Engine
	RoutesFile          string
	VisionMinConfidence float64
	ResumeAfterHazard   bool
	SessionIdleTimeout  time.Duration
}

func Load() *Config {
	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "sightline"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),

		NatsURL:           getEnv("NATS_URL", "nats://localhost:4222"),
		NatsSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "assist"),
		NatsTimeout:       getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		RedisURL:          getEnv("REDIS_URL", ""),
		MemoryTTL:         getDurationEnv("MEMORY_TTL", 30*time.Minute),
		MemoryMaxTurns:    getIntEnv("MEMORY_MAX_TURNS", 6),
		MemoryMaxMessages: getIntEnv("MEMORY_MAX_MESSAGES", 50),

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		PhraseTimeout: getDurationEnv("PHRASE_TIMEOUT", 8*time.Second),

		RoutesFile:          getEnv("ROUTES_FILE", ""),
		VisionMinConfidence: getFloatEnv("VISION_MIN_CONFIDENCE", 0),
		ResumeAfterHazard:   getBoolEnv("RESUME_AFTER_HAZARD", true),
		SessionIdleTimeout:  getDurationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),
	}
}

// Validate rejects values the service cannot run with
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=%s", ProviderGemini)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=%s", ProviderOpenAI)
		}
	case ProviderNone:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (want gemini, openai or none)", c.LLMProvider)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}

	if c.NatsURL == "" && c.HTTPAddr == "" {
		return fmt.Errorf("at least one of NATS_URL or HTTP_ADDR must be set")
	}
	if c.NatsURL != "" && c.NatsSubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must not be empty")
	}
	if c.VisionMinConfidence < 0 || c.VisionMinConfidence > 1 {
		return fmt.Errorf("VISION_MIN_CONFIDENCE must be within [0,1], got %v", c.VisionMinConfidence)
	}
	if c.MemoryMaxTurns < 0 || c.MemoryMaxMessages < 0 {
		return fmt.Errorf("memory limits must not be negative")
	}
	if c.PhraseTimeout <= 0 {
		return fmt.Errorf("PHRASE_TIMEOUT must be positive")
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
