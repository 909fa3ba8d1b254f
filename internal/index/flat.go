package index

import (
	"fmt"
	"sort"

	"github.com/clipdex/clipdex/internal/embedding"
	"github.com/clipdex/clipdex/internal/model"
)

// Flat is an exact inner-product index over unit-normalized vectors, which
// makes every score a cosine similarity. Brute force is the right trade at
// the corpus sizes this engine targets (tens of thousands of vectors).
//
// Vectors and entries are ordinal-aligned; the position is the only join
// key. Add does not normalize: callers own normalization, and the embedder
// already rejects zero-norm vectors before they can get here.
type Flat struct {
	dim     int
	vectors [][]float32
	entries []model.IndexEntry
}

func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

func (f *Flat) Len() int {
	return len(f.vectors)
}

func (f *Flat) Dim() int {
	return f.dim
}

func (f *Flat) Entries() []model.IndexEntry {
	return f.entries
}

func (f *Flat) Add(vectors [][]float32, entries []model.IndexEntry) error {
	if len(vectors) != len(entries) {
		return fmt.Errorf("add: %d vectors but %d entries", len(vectors), len(entries))
	}
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("add: vector %d has dim %d, index dim %d", i, len(v), f.dim)
		}
	}
	f.vectors = append(f.vectors, vectors...)
	f.entries = append(f.entries, entries...)
	return nil
}

// Search returns up to k entries ordered by non-increasing similarity. The
// query is normalized defensively in case the caller skipped it; ties keep
// insertion order.
func (f *Flat) Search(query []float32, k int) ([]model.ScoredEntry, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("search: query dim %d, index dim %d", len(query), f.dim)
	}
	if k <= 0 || f.Len() == 0 {
		return nil, nil
	}
	q, err := embedding.Normalize(cloneVector(query))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	type hit struct {
		pos   int
		score float32
	}
	hits := make([]hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = hit{pos: i, score: dot(q, v)}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})
	if k > len(hits) {
		k = len(hits)
	}
	results := make([]model.ScoredEntry, 0, k)
	for _, h := range hits[:k] {
		results = append(results, model.ScoredEntry{
			IndexEntry: f.entries[h.pos],
			Similarity: h.score,
		})
	}
	return results, nil
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}

func cloneVector(v []float32) []float32 {
	clone := make([]float32, len(v))
	copy(clone, v)
	return clone
}
