package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperlens/internal/pipeline"
)

const paperText = `We hypothesize that retrieval grounding reduces hallucination in
generated summaries. Retrieval over indexed passages keeps the model anchored
to the source document. We evaluate on a public benchmark dataset of academic
papers. The experiment compares grounded generation against a free-form
baseline. Error rates dropped by forty percent when retrieval grounding was
enabled. These results suggest retrieval is the dominant factor.`

const validSummary = `{"hypothesis": "Retrieval grounding reduces hallucination.",
"methodology": "Benchmark evaluation against a free-form baseline.",
"findings": ["Error rates dropped by forty percent."],
"keywords": ["retrieval", "grounding"]}`

// hashEmbedder produces a deterministic nonzero vector per input so the
// in-memory index has something meaningful to rank.
type hashEmbedder struct {
	err error
}

func (e *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, 4)
	for i, r := range text {
		vec[i%4] += float32(r%13) + 1
	}
	return vec, nil
}

type scriptedGenerator struct {
	responses []string
	err       error
	calls     int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return validSummary, nil
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

func testOptions() pipeline.Options {
	return pipeline.Options{
		ChunkMaxTokens:       40,
		ChunkOverlap:         10,
		RetrievalTopK:        2,
		SynthesisMaxAttempts: 3,
		EmbedConcurrency:     2,
	}
}

func TestPipeline_Run(t *testing.T) {
	t.Run("Completes For Well Formed Document", func(t *testing.T) {
		gen := &scriptedGenerator{}
		p := pipeline.New(&hashEmbedder{}, gen, testOptions())

		rc := p.Run(context.Background(), "doc-1", paperText)

		assert.Equal(t, pipeline.StateCompleted, rc.State)
		assert.Nil(t, rc.Failure)
		assert.NotEmpty(t, rc.Chunks)
		require.NotNil(t, rc.Summary)
		assert.Equal(t, "Retrieval grounding reduces hallucination.", rc.Summary.Hypothesis)
		assert.NotEmpty(t, rc.SupportingChunks)

		summary, ok := rc.Result()
		require.True(t, ok)
		assert.Same(t, rc.Summary, summary)
	})

	t.Run("Empty Document Fails At Ingest", func(t *testing.T) {
		gen := &scriptedGenerator{}
		p := pipeline.New(&hashEmbedder{}, gen, testOptions())

		rc := p.Run(context.Background(), "doc-2", "   \n\t  ")

		assert.Equal(t, pipeline.StateFailed, rc.State)
		require.NotNil(t, rc.Failure)
		assert.Equal(t, pipeline.StageIngest, rc.Failure.Stage)
		assert.Equal(t, pipeline.IngestionError, rc.Failure.Kind)
		assert.Contains(t, rc.Failure.Message, "document text is empty")
		assert.Zero(t, gen.calls, "no generation for a failed ingest")

		_, ok := rc.Result()
		assert.False(t, ok, "failed run exposes no summary")
	})

	t.Run("Embedding Failure Aborts The Run", func(t *testing.T) {
		p := pipeline.New(&hashEmbedder{err: errors.New("quota exceeded")}, &scriptedGenerator{}, testOptions())

		rc := p.Run(context.Background(), "doc-3", paperText)

		assert.Equal(t, pipeline.StateFailed, rc.State)
		require.NotNil(t, rc.Failure)
		assert.Equal(t, pipeline.StageIngest, rc.Failure.Stage)
		assert.Equal(t, pipeline.IngestionError, rc.Failure.Kind)
		assert.Nil(t, rc.Index)
	})

	t.Run("Unstructured Document Fails At Extract", func(t *testing.T) {
		junk := strings.Repeat("zz9 qq8 xx7 ww6 ", 20)
		p := pipeline.New(&hashEmbedder{}, &scriptedGenerator{}, testOptions())

		rc := p.Run(context.Background(), "doc-4", junk)

		assert.Equal(t, pipeline.StateFailed, rc.State)
		require.NotNil(t, rc.Failure)
		assert.Equal(t, pipeline.StageExtract, rc.Failure.Stage)
		assert.Equal(t, pipeline.ExtractionError, rc.Failure.Kind)
	})

	t.Run("Repair Loop Recovers Within Bound", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{
			"The paper seems to be about retrieval.",
			`{"hypothesis": "h"}`,
			validSummary,
		}}
		p := pipeline.New(&hashEmbedder{}, gen, testOptions())

		rc := p.Run(context.Background(), "doc-5", paperText)

		assert.Equal(t, pipeline.StateCompleted, rc.State)
		assert.Equal(t, 3, gen.calls)
	})

	t.Run("Persistent Schema Violations Fail Synthesis", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{"junk", "junk", "junk"}}
		p := pipeline.New(&hashEmbedder{}, gen, testOptions())

		rc := p.Run(context.Background(), "doc-6", paperText)

		assert.Equal(t, pipeline.StateFailed, rc.State)
		require.NotNil(t, rc.Failure)
		assert.Equal(t, pipeline.StageSynthesize, rc.Failure.Stage)
		assert.Equal(t, pipeline.SynthesisError, rc.Failure.Kind)
		assert.Equal(t, 3, gen.calls)
		assert.Nil(t, rc.Summary)
	})

	t.Run("Runs Are Isolated", func(t *testing.T) {
		p := pipeline.New(&hashEmbedder{}, &scriptedGenerator{}, testOptions())

		first := p.Run(context.Background(), "doc-a", paperText)
		second := p.Run(context.Background(), "doc-b", paperText)

		assert.NotEqual(t, first.RunID, second.RunID)
		assert.NotSame(t, first.Index, second.Index)
		assert.Equal(t, pipeline.StateCompleted, first.State)
		assert.Equal(t, pipeline.StateCompleted, second.State)
	})

	t.Run("Generates Document ID When Absent", func(t *testing.T) {
		p := pipeline.New(&hashEmbedder{}, &scriptedGenerator{}, testOptions())

		rc := p.Run(context.Background(), "", paperText)
		assert.NotEmpty(t, rc.DocumentID)
	})
}

func TestFailure_Error(t *testing.T) {
	f := &pipeline.Failure{Stage: pipeline.StageExtract, Kind: pipeline.ExtractionError, Message: "no structure"}
	assert.Equal(t, fmt.Sprintf("%s failed (%s): %s", "extract", "extraction_error", "no structure"), f.Error())
}
