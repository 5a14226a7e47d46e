package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/seanblong/pdfchat/internal/ai"
	"github.com/seanblong/pdfchat/internal/api"
	"github.com/seanblong/pdfchat/internal/chunker"
	"github.com/seanblong/pdfchat/internal/config"
	"github.com/seanblong/pdfchat/internal/gateway"
	"github.com/seanblong/pdfchat/internal/search"
	"github.com/seanblong/pdfchat/internal/settings"
	"github.com/spf13/pflag"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	// Create flagset for configuration
	fs := pflag.NewFlagSet("pdfchat-api", pflag.ExitOnError)

	// Load configuration
	cfg, err := config.Load("", fs, os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	provider, err := ai.ParseProvider(cfg.Provider)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid provider")
	}
	client, err := ai.NewClient(&ai.ClientConfig{
		Provider:  provider,
		ProjectID: cfg.ProjectID,
		Location:  cfg.Location,
		BaseURL:   cfg.BaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create AI client")
	}

	ch, err := chunker.New(cfg.ChunkerConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid chunking configuration")
	}

	var store settings.Store = settings.NewMemoryStore()
	if cfg.SettingsFile != "" {
		store = settings.NewFileStore(cfg.SettingsFile, logger.With().Str("component", "settings").Logger())
	}

	gw := gateway.New(client, gateway.Options{
		DefaultQuestionCount: cfg.QuestionCount,
		Logger:               logger.With().Str("component", "gateway").Logger(),
	})
	svc := search.NewService(cfg.MaxContextChunks, logger.With().Str("component", "search").Logger())

	srv := api.New(gw, svc, ch, store, api.Defaults{APIKey: cfg.APIKey, Model: cfg.Model}, cfg.MaxUploadBytes(), logger)

	logger.Info().
		Str("provider", string(provider)).
		Str("model", cfg.Model).
		Str("log_level", cfg.LogLevel).
		Int("chunk_size", cfg.ChunkSize).
		Int("chunk_overlap", cfg.ChunkOverlap).
		Bool("settings_file", cfg.SettingsFile != "").
		Msg("starting pdfchat api")

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{
		Addr:              address,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	log.Fatal(s.ListenAndServe())
}
