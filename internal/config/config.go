package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

type Config struct {
	// Chunking
	ChunkMaxTokens int `envconfig:"CHUNK_MAX_TOKENS" default:"1500"`
	ChunkOverlap   int `envconfig:"CHUNK_OVERLAP" default:"250"`

	// Retrieval & Synthesis
	RetrievalTopK        int `envconfig:"RETRIEVAL_TOP_K" default:"4"`
	SynthesisMaxAttempts int `envconfig:"SYNTHESIS_MAX_ATTEMPTS" default:"3"`
	EmbedConcurrency     int `envconfig:"EMBED_CONCURRENCY" default:"8"`

	// Providers
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	EmbedModel      string `envconfig:"EMBED_MODEL" default:"gemini-embedding-001"`
	GenerationModel string `envconfig:"GENERATION_MODEL" default:"gemini-2.0-flash"`

	// Server
	ServerPort int `envconfig:"SERVER_PORT" default:"8081"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell instead, so a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ChunkMaxTokens <= 0 {
		return fmt.Errorf("%w: CHUNK_MAX_TOKENS must be positive, got %d", ErrInvalidValue, c.ChunkMaxTokens)
	}
	if c.ChunkOverlap <= 0 || c.ChunkOverlap >= c.ChunkMaxTokens {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be between 1 and CHUNK_MAX_TOKENS-1, got %d", ErrInvalidValue, c.ChunkOverlap)
	}
	if c.RetrievalTopK < 1 {
		return fmt.Errorf("%w: RETRIEVAL_TOP_K must be at least 1, got %d", ErrInvalidValue, c.RetrievalTopK)
	}
	if c.SynthesisMaxAttempts < 1 {
		return fmt.Errorf("%w: SYNTHESIS_MAX_ATTEMPTS must be at least 1, got %d", ErrInvalidValue, c.SynthesisMaxAttempts)
	}
	if c.EmbedConcurrency < 1 {
		return fmt.Errorf("%w: EMBED_CONCURRENCY must be at least 1, got %d", ErrInvalidValue, c.EmbedConcurrency)
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
	}
	return nil
}
