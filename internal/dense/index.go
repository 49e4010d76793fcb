// Package dense wraps an in-process chromem-go collection as the embedding
// similarity index for one document snapshot.
package dense

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"docqa/internal/chunker"
	"docqa/internal/fusion"
)

const collectionName = "docs"

// Index is a vector index over a fixed chunk set. Scores are cosine
// similarities (higher is better) and results arrive best-first.
type Index struct {
	coll   *chromem.Collection
	chunks []chunker.Chunk
	logger *zap.Logger
}

// Build embeds every chunk into a fresh collection. Zero chunks produce an
// empty index without calling the embedder.
func Build(
	ctx context.Context,
	chunks []chunker.Chunk,
	embed chromem.EmbeddingFunc,
	concurrency int,
	logger *zap.Logger,
) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}

	db := chromem.NewDB()
	coll, err := db.CreateCollection(collectionName, map[string]string{}, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	idx := &Index{coll: coll, chunks: chunks, logger: logger}
	if len(chunks) == 0 {
		return idx, nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = chromem.Document{
			ID:      strconv.Itoa(i),
			Content: ch.Text,
			Metadata: map[string]string{
				"page": ch.Locator.String(),
				"kind": string(ch.Locator.Kind),
			},
		}
	}
	if err := coll.AddDocuments(ctx, docs, concurrency); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}

	logger.Debug("dense index built", zap.Int("documents", coll.Count()))
	return idx, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Query returns at most k chunks ordered by descending similarity. An empty
// index returns nothing.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]fusion.Ranked, error) {
	if k <= 0 || idx.coll.Count() == 0 {
		return nil, nil
	}
	if n := idx.coll.Count(); k > n {
		k = n
	}

	res, err := idx.coll.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	out := make([]fusion.Ranked, 0, len(res))
	for _, r := range res {
		i, err := strconv.Atoi(r.ID)
		if err != nil || i < 0 || i >= len(idx.chunks) {
			idx.logger.Warn("dropping result with unknown id", zap.String("id", r.ID))
			continue
		}
		out = append(out, fusion.Ranked{Chunk: idx.chunks[i], Score: float64(r.Similarity)})
	}
	return out, nil
}
