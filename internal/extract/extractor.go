package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"paperlens/internal/text"
)

// ErrNoStructure is returned when no field heuristic recovers anything from
// the retrieved passages, which usually means the document is not an
// academic text at all.
var ErrNoStructure = errors.New("no extractable structure found in document")

const (
	FieldHypothesis  = "hypothesis"
	FieldKeywords    = "keywords"
	FieldMethodology = "methodology"
)

// Fixed per-field query templates. Extraction is grounded exclusively in the
// passages these queries retrieve, never in the full raw document.
const (
	queryHypothesis  = "main hypothesis, claim, or objective of the paper"
	queryKeywords    = "technical keywords describing the methods used in the paper"
	queryMethodology = "methodology, experimental setup, and evaluation procedure"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]text.Chunk, error)
}

// Result is the candidate structured extraction. Provenance maps each field
// name to the chunk ids that supported it; a non-empty field always cites at
// least one chunk.
type Result struct {
	Hypothesis  string
	Keywords    []string
	Methodology []string
	Provenance  map[string][]int
}

// SupportingChunks returns the union of all cited chunk ids.
func (r *Result) SupportingChunks() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, field := range []string{FieldHypothesis, FieldKeywords, FieldMethodology} {
		for _, id := range r.Provenance[field] {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

type Extractor struct {
	retriever Retriever
	topK      int
}

func New(retriever Retriever, topK int) *Extractor {
	return &Extractor{retriever: retriever, topK: topK}
}

// Extract runs the fixed query per field, applies the field heuristic to the
// retrieved chunk texts, and records which chunks contributed.
func (e *Extractor) Extract(ctx context.Context) (*Result, error) {
	result := &Result{Provenance: make(map[string][]int)}

	hypoChunks, err := e.retriever.Retrieve(ctx, queryHypothesis, e.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving hypothesis passages: %w", err)
	}
	if hypothesis, chunkID, ok := findHypothesis(hypoChunks); ok {
		result.Hypothesis = hypothesis
		result.Provenance[FieldHypothesis] = []int{chunkID}
	}

	kwChunks, err := e.retriever.Retrieve(ctx, queryKeywords, e.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving keyword passages: %w", err)
	}
	if keywords, chunkIDs := surfaceKeywords(kwChunks, maxKeywords); len(keywords) > 0 {
		result.Keywords = keywords
		result.Provenance[FieldKeywords] = chunkIDs
	}

	methodChunks, err := e.retriever.Retrieve(ctx, queryMethodology, e.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving methodology passages: %w", err)
	}
	if signals, chunkIDs := findMethodologySignals(methodChunks, maxSignals); len(signals) > 0 {
		result.Methodology = signals
		result.Provenance[FieldMethodology] = chunkIDs
	}

	if result.Hypothesis == "" && len(result.Keywords) == 0 && len(result.Methodology) == 0 {
		return nil, ErrNoStructure
	}

	slog.InfoContext(ctx, "extraction completed",
		"has_hypothesis", result.Hypothesis != "",
		"keywords", len(result.Keywords),
		"methodology_signals", len(result.Methodology))
	return result, nil
}
