package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/illude/illude/internal/config"
	"github.com/illude/illude/internal/engine"
	"github.com/illude/illude/internal/llm"
	"github.com/illude/illude/internal/server"
	"github.com/illude/illude/internal/storage"
	"github.com/illude/illude/internal/storage/postgres"
	"github.com/illude/illude/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (overrides ILLUDE_CONFIG_FILE)")
	flag.Parse()

	// Load .env when present; variables already set in the environment win.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadConfigFromFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	stories, users, err := openStores(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer stories.Close()
	defer users.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen, err := llm.NewTextGenerator(ctx, llm.ProviderConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      providerAPIKey(cfg),
		BaseURL:     providerBaseURL(cfg),
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to initialize generation backend: %v", err)
	}
	log.Printf("Generation backend: %s (%s)", cfg.LLM.Provider, gen.GetModel())

	eng := engine.NewStoryEngine(stories, gen)

	addr, _, err := server.Start(ctx, cfg, stories, users, eng)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Illude API running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStores builds the story and user stores for the configured engine.
// Both stores share one database handle.
func openStores(cfg *config.Config) (storage.StoryStore, storage.UserStore, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		stories, err := postgres.NewStoryStore(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return stories, postgres.NewUserStoreWithDB(stories.DB()), nil
	case "sqlite":
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		stories, err := sqlite.NewStoryStore(cfg.Storage.DataPath + "/illude.db")
		if err != nil {
			return nil, nil, err
		}
		return stories, sqlite.NewUserStoreWithDB(stories.DB()), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage engine: %q", cfg.Storage.Engine)
	}
}

func providerAPIKey(cfg *config.Config) string {
	switch cfg.LLM.Provider {
	case "gemini":
		return cfg.LLM.GeminiAPIKey
	case "openai":
		return cfg.LLM.OpenAIAPIKey
	}
	return ""
}

func providerBaseURL(cfg *config.Config) string {
	switch cfg.LLM.Provider {
	case "openai":
		return cfg.LLM.OpenAIURL
	case "ollama":
		return cfg.LLM.OllamaURL
	}
	return ""
}
