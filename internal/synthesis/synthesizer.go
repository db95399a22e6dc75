package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"paperlens/internal/extract"
	"paperlens/internal/text"
)

// ErrSchemaValidation marks a synthesis run whose output never conformed to
// the summary schema within the configured attempt bound.
var ErrSchemaValidation = errors.New("summary failed schema validation")

const synthesisQuery = "main argument, methodology, and key results of the document"

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]text.Chunk, error)
}

type Options struct {
	TopK        int
	MaxAttempts int
}

// Synthesizer turns an extraction plus retrieved passages into a validated
// Summary, re-prompting with the validation error when the model's output
// does not conform.
type Synthesizer struct {
	generator Generator
	retriever Retriever
	opts      Options
}

func New(generator Generator, retriever Retriever, opts Options) *Synthesizer {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Synthesizer{generator: generator, retriever: retriever, opts: opts}
}

// Synthesize returns the validated summary and the ids of the chunks whose
// text grounded it.
func (s *Synthesizer) Synthesize(ctx context.Context, extraction *extract.Result) (*Summary, []int, error) {
	passages, err := s.retriever.Retrieve(ctx, synthesisQuery, s.opts.TopK)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieving synthesis passages: %w", err)
	}

	prompt := buildPrompt(extraction, passages)

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		raw, err := s.generator.Generate(ctx, prompt)
		if err != nil {
			return nil, nil, fmt.Errorf("generation provider failed: %w", err)
		}

		summary, parseErr := ParseSummary(raw)
		if parseErr == nil {
			groundKeywords(summary, extraction, passages)
			slog.InfoContext(ctx, "synthesis completed", "attempt", attempt)
			return summary, supportingChunks(extraction, passages), nil
		}

		lastErr = parseErr
		slog.WarnContext(ctx, "summary failed validation, re-prompting", "attempt", attempt, "error", parseErr)
		prompt = buildRepairPrompt(prompt, raw, parseErr)
	}

	return nil, nil, fmt.Errorf("%w after %d attempts: %v", ErrSchemaValidation, s.opts.MaxAttempts, lastErr)
}

func buildPrompt(extraction *extract.Result, passages []text.Chunk) string {
	var b strings.Builder
	b.WriteString("You are an expert academic synthesizer. Using ONLY the core thesis data and the retrieved passages below, produce a structured summary of the paper.\n\n")

	thesis, _ := json.Marshal(map[string]interface{}{
		"hypothesis":          extraction.Hypothesis,
		"keywords":            extraction.Keywords,
		"methodology_signals": extraction.Methodology,
	})
	b.WriteString("CORE THESIS DATA:\n")
	b.Write(thesis)
	b.WriteString("\n\nRETRIEVED PASSAGES:\n")
	for _, p := range passages {
		b.WriteString("---\n")
		b.WriteString(p.Text)
		b.WriteString("\n")
	}

	b.WriteString("\nRespond with a single JSON object and nothing else, with exactly these fields:\n")
	b.WriteString(`{"hypothesis": string, "methodology": string, "findings": [string], "keywords": [string]}`)
	b.WriteString("\nIf the passages do not support a field, set it to an empty string or empty array. Never invent content that is absent from the passages.\n")
	return b.String()
}

func buildRepairPrompt(original, invalidOutput string, validationErr error) string {
	var b strings.Builder
	b.WriteString(original)
	b.WriteString("\n\nYour previous response was rejected.\nPREVIOUS RESPONSE:\n")
	b.WriteString(invalidOutput)
	b.WriteString("\nVALIDATION ERROR: ")
	b.WriteString(validationErr.Error())
	b.WriteString("\nReturn a corrected JSON object that conforms to the schema.\n")
	return b.String()
}

// groundKeywords drops generated keywords that appear neither in the
// extraction nor in any retrieved passage, so the summary cannot carry
// terms with no supporting evidence.
func groundKeywords(summary *Summary, extraction *extract.Result, passages []text.Chunk) {
	var corpus strings.Builder
	for _, kw := range extraction.Keywords {
		corpus.WriteString(strings.ToLower(kw))
		corpus.WriteString(" ")
	}
	for _, p := range passages {
		corpus.WriteString(strings.ToLower(p.Text))
		corpus.WriteString(" ")
	}
	haystack := corpus.String()

	grounded := make([]string, 0, len(summary.Keywords))
	for _, kw := range summary.Keywords {
		if strings.Contains(haystack, strings.ToLower(strings.TrimSpace(kw))) {
			grounded = append(grounded, kw)
		}
	}
	summary.Keywords = grounded
}

func supportingChunks(extraction *extract.Result, passages []text.Chunk) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, id := range extraction.SupportingChunks() {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, p := range passages {
		if !seen[p.Index] {
			seen[p.Index] = true
			ids = append(ids, p.Index)
		}
	}
	return ids
}
