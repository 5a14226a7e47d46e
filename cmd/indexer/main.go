package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/seanblong/pdfchat/internal/ai"
	"github.com/seanblong/pdfchat/internal/chunker"
	"github.com/seanblong/pdfchat/internal/config"
	"github.com/seanblong/pdfchat/internal/gateway"
	"github.com/seanblong/pdfchat/internal/indexer"
	"github.com/seanblong/pdfchat/internal/store"
	"github.com/seanblong/pdfchat/pkg/models"
	"github.com/spf13/pflag"
)

func main() {
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("pdfchat-indexer", pflag.ExitOnError)

	cfg, err := config.Load("", fs, os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	zlog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ch, err := chunker.New(cfg.ChunkerConfig())
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid chunking configuration")
	}

	st, err := store.New(cfg.Indexer.Output)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to open manifest store")
	}

	ix := indexer.New(st, cfg.Indexer.Root, ch)
	ix.Workers = cfg.Indexer.Workers

	// Summaries come from the model only when a credential is configured.
	provider, err := ai.ParseProvider(cfg.Provider)
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid provider")
	}
	if cfg.APIKey != "" || provider == ai.ProviderStub {
		client, err := ai.NewClient(&ai.ClientConfig{
			Provider:  provider,
			ProjectID: cfg.ProjectID,
			Location:  cfg.Location,
			BaseURL:   cfg.BaseURL,
		})
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to create AI client")
		}
		ix.Summarizer = gateway.New(client, gateway.Options{Logger: zlog.Logger})
		ix.SummaryRequest = models.GenerationRequest{APIKey: cfg.APIKey, Model: cfg.Model}
		if ix.SummaryRequest.APIKey == "" {
			ix.SummaryRequest.APIKey = "stub"
		}
		zlog.Info().Str("provider", string(provider)).Str("model", cfg.Model).Msg("model summaries enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	stats, err := ix.Run(ctx)
	if err != nil {
		zlog.Fatal().Err(err).Msg("indexing failed")
	}

	fmt.Printf("%s %s\n", color.GreenString("indexed:"), color.New(color.Bold).Sprint(stats.Indexed))
	fmt.Printf("%s %d\n", color.CyanString("unchanged:"), stats.Skipped)
	if stats.Failed > 0 {
		fmt.Printf("%s %d\n", color.RedString("failed:"), stats.Failed)
	}
	fmt.Printf("%s %s in %s\n", color.HiBlackString("manifests:"), st.Dir(), time.Since(start).Round(time.Millisecond))
}
