package vector

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Hit is a single nearest-neighbor match.
type Hit struct {
	ID    int
	Score float32
}

// Index is a brute-force in-memory cosine-similarity index. One Index belongs
// to exactly one pipeline run and is discarded with it, so it never needs to
// be shared across runs.
type Index struct {
	mu        sync.RWMutex
	dimension int
	ids       []int
	vectors   map[int][]float32
}

func NewIndex() *Index {
	return &Index{vectors: make(map[int][]float32)}
}

// Add registers a chunk vector under the given chunk id. All vectors in one
// index must share a dimension; duplicate ids are rejected.
func (ix *Index) Add(id int, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("vector for chunk %d is empty", id)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dimension == 0 {
		ix.dimension = len(vec)
	} else if len(vec) != ix.dimension {
		return fmt.Errorf("vector for chunk %d has dimension %d, index has %d", id, len(vec), ix.dimension)
	}
	if _, exists := ix.vectors[id]; exists {
		return fmt.Errorf("chunk %d already indexed", id)
	}

	ix.ids = append(ix.ids, id)
	ix.vectors[id] = vec
	return nil
}

func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ids)
}

// Query returns up to k hits ordered by descending cosine similarity. Equal
// scores are broken by lower chunk id so rankings are reproducible. Querying
// an empty index returns an empty result, letting callers decide whether
// "nothing retrieved" is an error.
func (ix *Index) Query(vec []float32, k int) []Hit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.ids) == 0 || k <= 0 {
		return []Hit{}
	}

	hits := make([]Hit, 0, len(ix.ids))
	for _, id := range ix.ids {
		hits = append(hits, Hit{ID: id, Score: cosine(ix.vectors[id], vec)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
