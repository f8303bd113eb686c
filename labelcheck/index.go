package labelcheck

import (
	"math"
	"sync"
)

// VectorItem represents an entry within a vector index.
type VectorItem struct {
	ID     string
	Vector []float32
}

// Hit is a search result. Pos is the item's position in the index.
type Hit struct {
	Pos   int
	ID    string
	Score float32
}

// InMemoryIndex is a brute-force cosine similarity index used for
// neighbourhood queries during clustering.
type InMemoryIndex struct {
	mu    sync.RWMutex
	items []VectorItem
}

// NewInMemoryIndex constructs an empty index.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{}
}

// Replace swaps the stored items atomically.
func (idx *InMemoryIndex) Replace(items []VectorItem) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.items = make([]VectorItem, len(items))
	for i, it := range items {
		idx.items[i] = VectorItem{
			ID:     it.ID,
			Vector: cloneVector(it.Vector),
		}
	}
}

// Size returns the current number of vectors stored.
func (idx *InMemoryIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.items)
}

// Within returns every item whose cosine similarity to vec is at least
// minScore, in index order.
func (idx *InMemoryIndex) Within(vec []float32, minScore float32) []Hit {
	hits := idx.scoreAll(vec)
	out := hits[:0]
	for _, h := range hits {
		if h.Score >= minScore {
			out = append(out, h)
		}
	}
	return out
}

func (idx *InMemoryIndex) scoreAll(vec []float32) []Hit {
	idx.mu.RLock()
	items := idx.items
	idx.mu.RUnlock()
	if len(items) == 0 || len(vec) == 0 {
		return nil
	}
	hits := make([]Hit, len(items))
	for i, it := range items {
		hits[i] = Hit{Pos: i, ID: it.ID, Score: cosineSimilarity(vec, it.Vector)}
	}
	return hits
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// l2Normalize returns a unit length copy of v.
func l2Normalize(v []float32) []float32 {
	out := cloneVector(v)
	var sum float64
	for _, x := range out {
		sum += float64(x) * float64(x)
	}
	if norm := math.Sqrt(sum); norm > 0 {
		scale := float32(1 / norm)
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}

func cloneVector(vec []float32) []float32 {
	if vec == nil {
		return nil
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
