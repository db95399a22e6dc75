package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"paperlens/internal/text"
	"paperlens/internal/vector"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Options struct {
	MaxTokens   int
	Overlap     int
	Concurrency int
}

// Ingestor turns a raw document into chunks plus a populated vector index.
// Embedding is all-or-nothing: a single failed chunk fails the whole ingest,
// so later stages never see a silently degraded index.
type Ingestor struct {
	embedder Embedder
	opts     Options
}

func New(embedder Embedder, opts Options) *Ingestor {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Ingestor{embedder: embedder, opts: opts}
}

func (ing *Ingestor) Ingest(ctx context.Context, docID, content string) ([]text.Chunk, *vector.Index, error) {
	chunks, err := text.SplitTokens(content, ing.opts.MaxTokens, ing.opts.Overlap)
	if err != nil {
		return nil, nil, fmt.Errorf("chunking document %s: %w", docID, err)
	}

	slog.InfoContext(ctx, "document chunked", "document_id", docID, "chunks", len(chunks))

	// Per-chunk embedding calls are independent, so they run concurrently
	// up to the configured bound. g.Wait blocks until every call finished
	// or one failed, so partial completion is never observable downstream.
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.opts.Concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			vec, err := ing.embedder.Embed(gctx, c.Text)
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", c.Index, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	index := vector.NewIndex()
	for i, c := range chunks {
		if err := index.Add(c.Index, vectors[i]); err != nil {
			return nil, nil, fmt.Errorf("indexing chunk %d: %w", c.Index, err)
		}
	}

	slog.InfoContext(ctx, "document indexed", "document_id", docID, "vectors", index.Size())
	return chunks, index, nil
}
