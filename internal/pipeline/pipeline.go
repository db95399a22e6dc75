package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"paperlens/internal/extract"
	"paperlens/internal/ingest"
	"paperlens/internal/retrieval"
	"paperlens/internal/synthesis"
	"paperlens/internal/text"
	"paperlens/internal/vector"
)

// State names the lifecycle position of an analysis run. Transitions are
// strictly linear; any stage error moves the run to StateFailed and no
// further stage executes.
type State string

const (
	StateUploaded    State = "uploaded"
	StateIngested    State = "ingested"
	StateExtracted   State = "extracted"
	StateSynthesized State = "synthesized"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

const (
	StageIngest     = "ingest"
	StageExtract    = "extract"
	StageSynthesize = "synthesize"
)

// Kind classifies a failure independently of the stage it surfaced in.
type Kind string

const (
	IngestionError  Kind = "ingestion_error"
	RetrievalError  Kind = "retrieval_error"
	ExtractionError Kind = "extraction_error"
	SynthesisError  Kind = "synthesis_error"
)

// Failure records where and why a run stopped.
type Failure struct {
	Stage   string `json:"stage"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", f.Stage, f.Kind, f.Message)
}

// RunContext is the mutable state of a single analysis run. Every run gets
// a fresh context; nothing is shared across documents.
type RunContext struct {
	RunID      string
	DocumentID string
	Text       string

	Chunks     []text.Chunk
	Index      *vector.Index
	Extraction *extract.Result

	Summary          *synthesis.Summary
	SupportingChunks []int

	State   State
	Failure *Failure
}

// Result returns the summary only once the run has completed; a failed or
// in-flight run yields nothing.
func (rc *RunContext) Result() (*synthesis.Summary, bool) {
	if rc.State != StateCompleted {
		return nil, false
	}
	return rc.Summary, true
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Options struct {
	ChunkMaxTokens       int
	ChunkOverlap         int
	RetrievalTopK        int
	SynthesisMaxAttempts int
	EmbedConcurrency     int
}

// Pipeline drives a document through ingest, extract, and synthesize in
// order, as an explicit state machine.
type Pipeline struct {
	embedder  Embedder
	generator Generator
	opts      Options
}

func New(embedder Embedder, generator Generator, opts Options) *Pipeline {
	return &Pipeline{embedder: embedder, generator: generator, opts: opts}
}

// Run executes the full analysis for one document. It never returns an
// error: failures are captured on the RunContext so callers can report the
// stage and kind.
func (p *Pipeline) Run(ctx context.Context, documentID, content string) *RunContext {
	if documentID == "" {
		documentID = uuid.NewString()
	}
	rc := &RunContext{
		RunID:      uuid.NewString(),
		DocumentID: documentID,
		Text:       content,
		State:      StateUploaded,
	}

	log := slog.With("run_id", rc.RunID, "document_id", rc.DocumentID)
	log.InfoContext(ctx, "analysis run started")

	for rc.State != StateCompleted && rc.State != StateFailed {
		switch rc.State {
		case StateUploaded:
			p.runIngest(ctx, rc)
		case StateIngested:
			p.runExtract(ctx, rc)
		case StateExtracted:
			p.runSynthesize(ctx, rc)
		case StateSynthesized:
			rc.State = StateCompleted
		}
	}

	if rc.State == StateFailed {
		log.WarnContext(ctx, "analysis run failed",
			"stage", rc.Failure.Stage, "kind", rc.Failure.Kind, "error", rc.Failure.Message)
	} else {
		log.InfoContext(ctx, "analysis run completed", "chunks", len(rc.Chunks))
	}
	return rc
}

func (p *Pipeline) runIngest(ctx context.Context, rc *RunContext) {
	ingestor := ingest.New(p.embedder, ingest.Options{
		MaxTokens:   p.opts.ChunkMaxTokens,
		Overlap:     p.opts.ChunkOverlap,
		Concurrency: p.opts.EmbedConcurrency,
	})
	chunks, index, err := ingestor.Ingest(ctx, rc.DocumentID, rc.Text)
	if err != nil {
		p.fail(rc, StageIngest, err)
		return
	}
	rc.Chunks = chunks
	rc.Index = index
	rc.State = StateIngested
}

func (p *Pipeline) runExtract(ctx context.Context, rc *RunContext) {
	svc := retrieval.NewService(p.embedder, rc.Index, rc.Chunks)
	extractor := extract.New(svc, p.opts.RetrievalTopK)
	result, err := extractor.Extract(ctx)
	if err != nil {
		p.fail(rc, StageExtract, err)
		return
	}
	rc.Extraction = result
	rc.State = StateExtracted
}

func (p *Pipeline) runSynthesize(ctx context.Context, rc *RunContext) {
	svc := retrieval.NewService(p.embedder, rc.Index, rc.Chunks)
	syn := synthesis.New(p.generator, svc, synthesis.Options{
		TopK:        p.opts.RetrievalTopK,
		MaxAttempts: p.opts.SynthesisMaxAttempts,
	})
	summary, supporting, err := syn.Synthesize(ctx, rc.Extraction)
	if err != nil {
		p.fail(rc, StageSynthesize, err)
		return
	}
	rc.Summary = summary
	rc.SupportingChunks = supporting
	rc.State = StateSynthesized
}

func (p *Pipeline) fail(rc *RunContext, stage string, err error) {
	rc.State = StateFailed
	rc.Failure = &Failure{
		Stage:   stage,
		Kind:    classify(stage, err),
		Message: err.Error(),
	}
}

// classify maps sentinel errors onto failure kinds regardless of the stage
// that surfaced them; anything unrecognized takes its stage's default kind.
func classify(stage string, err error) Kind {
	switch {
	case errors.Is(err, text.ErrEmptyDocument):
		return IngestionError
	case errors.Is(err, retrieval.ErrEmptyIndex):
		return RetrievalError
	case errors.Is(err, extract.ErrNoStructure):
		return ExtractionError
	case errors.Is(err, synthesis.ErrSchemaValidation):
		return SynthesisError
	}
	switch stage {
	case StageIngest:
		return IngestionError
	case StageExtract:
		return ExtractionError
	default:
		return SynthesisError
	}
}

// MarshalJSON serializes the terminal view of a run for API responses.
func (rc *RunContext) MarshalJSON() ([]byte, error) {
	type view struct {
		RunID            string             `json:"runId"`
		DocumentID       string             `json:"documentId"`
		State            State              `json:"state"`
		Summary          *synthesis.Summary `json:"summary,omitempty"`
		SupportingChunks []int              `json:"supportingChunks,omitempty"`
		Failure          *Failure           `json:"failure,omitempty"`
	}
	return json.Marshal(view{
		RunID:            rc.RunID,
		DocumentID:       rc.DocumentID,
		State:            rc.State,
		Summary:          rc.Summary,
		SupportingChunks: rc.SupportingChunks,
		Failure:          rc.Failure,
	})
}
