package extract

import (
	"regexp"
	"sort"
	"strings"

	"paperlens/internal/text"
)

const (
	maxKeywords = 7
	maxSignals  = 5
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]`)

// Cue phrases that academic papers use to state their central claim.
var hypothesisPattern = regexp.MustCompile(`(?i)\b(we hypothesi[sz]e|we propose|we argue|we conjecture|we investigate whether|this (?:paper|study|work) (?:presents|proposes|introduces|investigates|examines|addresses)|the (?:aim|goal|objective|purpose) of this (?:paper|study|work)|our (?:hypothesis|central claim|main contribution) is)\b`)

// Cue terms that signal a description of method rather than motivation
// or results.
var methodologyPattern = regexp.MustCompile(`(?i)\b(we (?:use|used|employ|employed|train|trained|apply|applied|conduct|conducted|evaluate|evaluated|measure|measured|collect|collected|sample|sampled)|dataset|corpus|benchmark|experiment|simulation|survey|regression|ablation|protocol|procedure|baseline)\b`)

// findHypothesis scans the retrieved chunks in score order and returns the
// first sentence matching a hypothesis cue, with the chunk it came from.
func findHypothesis(chunks []text.Chunk) (string, int, bool) {
	for _, c := range chunks {
		for _, sentence := range sentencePattern.FindAllString(c.Text, -1) {
			if hypothesisPattern.MatchString(sentence) {
				return strings.TrimSpace(sentence), c.Index, true
			}
		}
	}
	return "", 0, false
}

// surfaceKeywords ranks non-stopword terms across the retrieved chunks by
// frequency, breaking ties by first appearance so the ranking is stable.
// Each keyword keeps the casing of its first occurrence.
func surfaceKeywords(chunks []text.Chunk, limit int) ([]string, []int) {
	type candidate struct {
		display  string
		count    int
		firstPos int
		chunkIDs map[int]bool
	}

	seen := make(map[string]*candidate)
	var order []string
	pos := 0

	for _, c := range chunks {
		for _, token := range text.Tokenize(c.Text) {
			pos++
			word := strings.Trim(token, `.,;:!?()[]{}"'`)
			lower := strings.ToLower(word)
			if len(lower) < 4 || isStopword(lower) || !isWordLike(lower) {
				continue
			}
			cand, ok := seen[lower]
			if !ok {
				cand = &candidate{display: word, firstPos: pos, chunkIDs: make(map[int]bool)}
				seen[lower] = cand
				order = append(order, lower)
			}
			cand.count++
			cand.chunkIDs[c.Index] = true
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := seen[order[i]], seen[order[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.firstPos < b.firstPos
	})

	if limit > len(order) {
		limit = len(order)
	}

	keywords := make([]string, 0, limit)
	citedSet := make(map[int]bool)
	for _, key := range order[:limit] {
		cand := seen[key]
		keywords = append(keywords, cand.display)
		for id := range cand.chunkIDs {
			citedSet[id] = true
		}
	}

	cited := make([]int, 0, len(citedSet))
	for id := range citedSet {
		cited = append(cited, id)
	}
	sort.Ints(cited)
	return keywords, cited
}

// findMethodologySignals collects sentences matching methodology cues, in
// chunk score order, up to the limit.
func findMethodologySignals(chunks []text.Chunk, limit int) ([]string, []int) {
	var signals []string
	citedSet := make(map[int]bool)
	dedupe := make(map[string]bool)

	for _, c := range chunks {
		for _, sentence := range sentencePattern.FindAllString(c.Text, -1) {
			if len(signals) >= limit {
				break
			}
			trimmed := strings.TrimSpace(sentence)
			if dedupe[trimmed] || !methodologyPattern.MatchString(trimmed) {
				continue
			}
			dedupe[trimmed] = true
			signals = append(signals, trimmed)
			citedSet[c.Index] = true
		}
	}

	cited := make([]int, 0, len(citedSet))
	for id := range citedSet {
		cited = append(cited, id)
	}
	sort.Ints(cited)
	return signals, cited
}

func isWordLike(word string) bool {
	for _, r := range word {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

func isStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"about", "above", "after", "again", "also", "among", "been", "before",
		"being", "below", "between", "both", "cannot", "could", "does", "doing",
		"down", "during", "each", "else", "every", "from", "further", "have",
		"having", "here", "however", "into", "itself", "more", "most", "much",
		"only", "other", "over", "paper", "rather", "results", "same", "should",
		"show", "shown", "since", "some", "study", "such", "than", "that",
		"their", "them", "then", "there", "these", "they", "this", "those",
		"through", "thus", "under", "until", "upon", "used", "using", "very",
		"well", "were", "what", "when", "where", "which", "while", "will",
		"with", "within", "without", "work", "would",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
