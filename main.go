package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"paperlens/internal/adapter/gemini"
	"paperlens/internal/app"
	"paperlens/internal/config"
	"paperlens/internal/logger"
	"paperlens/internal/pipeline"
)

func main() {
	filePath := flag.String("file", "", "analyze a single document from a file and print the result as JSON")
	flag.Parse()

	// Initialize structured logger
	base := slog.NewJSONHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Providers
	embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel)
	if err != nil {
		slog.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	defer embedder.Close()

	generator, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GenerationModel)
	if err != nil {
		slog.Error("failed to create generator", "error", err)
		os.Exit(1)
	}
	defer generator.Close()

	// 3. Pipeline
	p := pipeline.New(embedder, generator, pipeline.Options{
		ChunkMaxTokens:       cfg.ChunkMaxTokens,
		ChunkOverlap:         cfg.ChunkOverlap,
		RetrievalTopK:        cfg.RetrievalTopK,
		SynthesisMaxAttempts: cfg.SynthesisMaxAttempts,
		EmbedConcurrency:     cfg.EmbedConcurrency,
	})

	// One-shot mode: analyze a file and print the run result
	if *filePath != "" {
		content, err := os.ReadFile(*filePath)
		if err != nil {
			slog.Error("failed to read document", "error", err, "path", *filePath)
			os.Exit(1)
		}

		rc := p.Run(ctx, *filePath, string(content))
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rc); err != nil {
			slog.Error("failed to encode run result", "error", err)
			os.Exit(1)
		}
		if rc.State != pipeline.StateCompleted {
			os.Exit(1)
		}
		return
	}

	// 4. Serve
	a := app.New(cfg, p)
	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
