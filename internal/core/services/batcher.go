package services

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// Batch is a contiguous run of chunks sent to the embedding service in one request.
type Batch struct {
	// Number is the 1-based batch number.
	Number int

	// From is the index of the first chunk.
	From int

	// To is one past the index of the last chunk.
	To int

	// Chunks holds chunks[From:To].
	Chunks []domain.Chunk
}

// Texts returns the chunk contents in request order.
func (b Batch) Texts() []string {
	texts := make([]string, len(b.Chunks))
	for i, c := range b.Chunks {
		texts[i] = c.Content
	}
	return texts
}

// Batches splits chunks into consecutive groups of at most size.
// Order is preserved within and across batches. A size below 1 is treated as 1.
func Batches(chunks []domain.Chunk, size int) []Batch {
	if size < 1 {
		size = 1
	}
	if len(chunks) == 0 {
		return nil
	}

	batches := make([]Batch, 0, (len(chunks)+size-1)/size)
	for from := 0; from < len(chunks); from += size {
		to := min(from+size, len(chunks))
		batches = append(batches, Batch{
			Number: len(batches) + 1,
			From:   from,
			To:     to,
			Chunks: chunks[from:to],
		})
	}
	return batches
}

// PairEmbeddings aligns embedding items with the batch that produced them.
// Items are matched by their reported index, not by response order. Every
// request position must receive exactly one non-empty vector, otherwise
// ErrEnrichmentFailure is returned and nothing is paired.
func PairEmbeddings(batch []domain.Chunk, items []domain.Embedding) ([][]float32, error) {
	if len(items) != len(batch) {
		return nil, fmt.Errorf("%w: requested %d embeddings, received %d",
			domain.ErrEnrichmentFailure, len(batch), len(items))
	}

	sorted := make([]domain.Embedding, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	vectors := make([][]float32, len(batch))
	for i, item := range sorted {
		if item.Index != i {
			return nil, fmt.Errorf("%w: embedding index %d does not match request position %d",
				domain.ErrEnrichmentFailure, item.Index, i)
		}
		if len(item.Vector) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", domain.ErrEnrichmentFailure, i)
		}
		vectors[i] = item.Vector
	}
	return vectors, nil
}
