package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"paperlens/internal/text"
	"paperlens/internal/vector"
)

// ErrEmptyIndex is returned when retrieval is attempted against an index
// with no vectors. Extraction and synthesis must never proceed ungrounded,
// so this is an error rather than an empty result.
var ErrEmptyIndex = errors.New("vector index is empty or uninitialized")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service answers similarity queries against one run's vector index,
// resolving hits back to the chunks they were built from.
type Service struct {
	embedder Embedder
	index    *vector.Index
	chunks   []text.Chunk
}

func NewService(embedder Embedder, index *vector.Index, chunks []text.Chunk) *Service {
	return &Service{embedder: embedder, index: index, chunks: chunks}
}

// Retrieve embeds the query, finds the k nearest chunks, and returns them in
// descending score order. k is clamped to [1, index size].
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]text.Chunk, error) {
	if s.index == nil || s.index.Size() == 0 {
		return nil, ErrEmptyIndex
	}

	if k < 1 {
		k = 1
	}
	if size := s.index.Size(); k > size {
		k = size
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits := s.index.Query(vec, k)
	results := make([]text.Chunk, 0, len(hits))
	for _, h := range hits {
		if h.ID < 0 || h.ID >= len(s.chunks) {
			return nil, fmt.Errorf("index returned unknown chunk id %d", h.ID)
		}
		results = append(results, s.chunks[h.ID])
	}

	slog.DebugContext(ctx, "retrieval completed", "query_len", len(query), "k", k, "results", len(results))
	return results, nil
}
