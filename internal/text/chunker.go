package text

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyDocument is returned when a document contains no tokens at all.
	ErrEmptyDocument = errors.New("document text is empty")
)

// Chunk is a contiguous window of a document's token stream. StartToken and
// EndToken are offsets into the stream produced by Tokenize (EndToken is
// exclusive), so the union of all chunk spans covers the whole document.
type Chunk struct {
	Index      int
	StartToken int
	EndToken   int
	Text       string
}

// TokenCount reports the number of tokens covered by the chunk.
func (c Chunk) TokenCount() int {
	return c.EndToken - c.StartToken
}

// Tokenize splits text on whitespace. The same input always yields the same
// token stream, which is what makes chunk boundaries reproducible.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// SplitTokens slides a window of maxTokens over the token stream with a
// stride of maxTokens-overlap, so consecutive chunks share exactly overlap
// tokens. The final window may be shorter but always ends at the last token.
// A document that fits in a single window produces one chunk with no overlap.
func SplitTokens(text string, maxTokens, overlap int) ([]Chunk, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}
	if overlap <= 0 || overlap >= maxTokens {
		return nil, fmt.Errorf("overlap must be between 1 and %d, got %d", maxTokens-1, overlap)
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, ErrEmptyDocument
	}

	if len(tokens) <= maxTokens {
		return []Chunk{{
			Index:      0,
			StartToken: 0,
			EndToken:   len(tokens),
			Text:       strings.Join(tokens, " "),
		}}, nil
	}

	stride := maxTokens - overlap
	var chunks []Chunk
	for start := 0; start < len(tokens); start += stride {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			StartToken: start,
			EndToken:   end,
			Text:       strings.Join(tokens[start:end], " "),
		})
	}

	return chunks, nil
}
