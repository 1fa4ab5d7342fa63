// Package vectorindex holds the per-bot similarity index: building, searching,
// persisting it with bbolt and managing its lifecycle on disk.
package vectorindex

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/twinlyai/bot-backend/internal/entity"
)

const DefaultTopK = 4

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index is immutable once built, so it can be searched concurrently
type Index struct {
	chunks    []string
	vectors   [][]float32
	dimension int
	createdAt time.Time
}

// Build creates an index from chunk texts and their L2-normalized embeddings
func Build(chunks []string, embeddings [][]float32) (*Index, error) {
	if len(chunks) == 0 {
		return nil, entity.ErrEmptyDocument
	}
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(chunks))
	}

	dim := len(embeddings[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrDimensionMismatch)
	}
	for i, vec := range embeddings {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d values, expected %d", ErrDimensionMismatch, i, len(vec), dim)
		}
	}

	return &Index{
		chunks:    slices.Clone(chunks),
		vectors:   slices.Clone(embeddings),
		dimension: dim,
		createdAt: time.Now().UTC(),
	}, nil
}

func (ix *Index) Len() int {
	return len(ix.chunks)
}

func (ix *Index) Dimension() int {
	return ix.dimension
}

func (ix *Index) CreatedAt() time.Time {
	return ix.createdAt
}

// Search returns the k chunks most similar to query, best first.
// Equal scores keep chunk order. k <= 0 means DefaultTopK.
func (ix *Index) Search(query []float32, k int) ([]entity.SearchResult, error) {
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", ErrDimensionMismatch, len(query), ix.dimension)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	results := make([]entity.SearchResult, len(ix.chunks))
	for i, vec := range ix.vectors {
		results[i] = entity.SearchResult{
			Chunk: entity.Chunk{Seq: i, Text: ix.chunks[i]},
			Score: dot(query, vec),
		}
	}

	slices.SortStableFunc(results, func(a, b entity.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return results[:min(k, len(results))], nil
}

// dot is the cosine similarity of two normalized vectors
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
