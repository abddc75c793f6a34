package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/avvvet/sightline/internal/config"
	"github.com/avvvet/sightline/internal/guidance"
	"github.com/avvvet/sightline/internal/handlers"
	"github.com/avvvet/sightline/internal/intent"
	"github.com/avvvet/sightline/internal/llm"
	"github.com/avvvet/sightline/internal/logging"
	"github.com/avvvet/sightline/internal/memory"
	"github.com/avvvet/sightline/internal/route"
	"github.com/avvvet/sightline/internal/transport"
	"github.com/avvvet/sightline/internal/vision"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level (overrides LOG_LEVEL)")
	dev := cli.Bool("dev", false, "Human-readable development logging")
	cli.Parse()

	envErr := godotenv.Load(*envFile)

	cfg := config.Load()
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger, err := logging.New(cfg.LogLevel, *dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Info("No .env file found, using environment variables", zap.String("path", *envFile))
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Starting sightline",
		zap.String("service", cfg.ServiceName),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("nats_url", cfg.NatsURL),
		zap.String("http_addr", cfg.HTTPAddr))

	table := route.DefaultTable()
	if cfg.RoutesFile != "" {
		table, err = route.LoadFile(cfg.RoutesFile)
		if err != nil {
			logger.Fatal("Failed to load routes", zap.String("path", cfg.RoutesFile), zap.Error(err))
		}
	}
	logger.Info("Route table loaded", zap.Strings("destinations", table.Destinations()))

	memoryManager := newMemory(cfg, logger)
	defer memoryManager.Close()

	provider, err := newProvider(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM provider", zap.Error(err))
	}

	policy := intent.ResumeAfterHazard
	if !cfg.ResumeAfterHazard {
		policy = intent.RequireReRequest
	}

	registry := handlers.NewRegistry(table, policy, logger)
	resolver := intent.NewResolver(table)
	assistHandler := handlers.NewAssistHandler(handlers.Deps{
		Registry:   registry,
		Resolver:   resolver,
		Classifier: intent.NewClassifier(provider, resolver, logger),
		Narrator:   guidance.NewNarrator(provider, memoryManager, logger),
		Localizer:  vision.NewLocalizer(cfg.VisionMinConfidence),
		Memory:     memoryManager,
		Logger:     logger,
	})

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go registry.Janitor(janitorCtx, cfg.SessionIdleTimeout, assistHandler.ExpireSession)

	var natsTransport *transport.NATSTransport
	if cfg.NatsURL != "" {
		natsTransport, err = transport.NewNATSTransport(cfg, assistHandler, logger)
		if err != nil {
			logger.Fatal("Failed to initialize NATS transport", zap.Error(err))
		}
		if err := natsTransport.Start(); err != nil {
			logger.Fatal("Failed to start NATS transport", zap.Error(err))
		}
	}

	var wsServer *transport.WebSocketServer
	if cfg.HTTPAddr != "" {
		wsServer = transport.NewWebSocketServer(cfg.HTTPAddr, assistHandler, cfg.PhraseTimeout+5*time.Second, logger)
		if err := wsServer.Start(); err != nil {
			logger.Fatal("Failed to start websocket server", zap.Error(err))
		}
	}

	logger.Info("Sightline is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))

	if wsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := wsServer.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down websocket server", zap.Error(err))
		}
		cancel()
	}

	if natsTransport != nil {
		if err := natsTransport.Close(); err != nil {
			logger.Warn("Error closing NATS transport", zap.Error(err))
		}
	}

	stopJanitor()
	logger.Info("Final session count", zap.Int("sessions", registry.Len()))
	registry.Close()

	logger.Info("Sightline stopped")
}

// newMemory uses Redis when configured and reachable, in-process memory otherwise
func newMemory(cfg *config.Config, logger *zap.Logger) *memory.Manager {
	var store memory.Store = memory.NewInMemoryStore(cfg.MemoryMaxMessages)

	if cfg.RedisURL != "" {
		redisStore, err := memory.NewRedisStore(cfg.RedisURL, cfg.MemoryTTL, cfg.MemoryMaxMessages)
		if err != nil {
			logger.Warn("Redis unavailable, keeping history in memory", zap.Error(err))
		} else {
			logger.Info("Redis connected", zap.Duration("ttl", cfg.MemoryTTL))
			store = redisStore
		}
	}

	return memory.NewManager(store, cfg.MemoryMaxTurns, logger)
}

// newProvider returns nil for LLM_PROVIDER=none; the engine then speaks
// static phrases and classifies by keyword.
func newProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llm.LLMProvider, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.PhraseTimeout, logger)
	case config.ProviderOpenAI:
		p, err := llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.PhraseTimeout)
		if err != nil {
			return nil, err
		}
		logger.Info("OpenAI provider initialized", zap.String("model", cfg.OpenAIModel))
		return p, nil
	default:
		logger.Info("No LLM provider configured, using static phrases")
		return nil, nil
	}
}
