package dense

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
)

const dims = 64

// bagOfWords is a deterministic embedding: hashed word counts, normalized.
func bagOfWords(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%dims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / math.Sqrt(norm))
	}
	return vec, nil
}

func chunksOf(texts ...string) []chunker.Chunk {
	out := make([]chunker.Chunk, len(texts))
	for i, t := range texts {
		out[i] = chunker.Chunk{Text: t, Locator: chunker.Locator{Kind: chunker.KindPage, Number: i + 1}}
	}
	return out
}

func TestBuild_Empty(t *testing.T) {
	var calls atomic.Int32
	embed := func(ctx context.Context, text string) ([]float32, error) {
		calls.Add(1)
		return bagOfWords(ctx, text)
	}

	idx, err := Build(context.Background(), nil, embed, 2, nil)
	require.NoError(t, err)
	assert.Zero(t, idx.Len())

	results, err := idx.Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, calls.Load())
}

func TestQuery_SimilarityBestFirst(t *testing.T) {
	chunks := chunksOf(
		"rust borrow checker lifetimes",
		"golang goroutines and channels",
		"baking sourdough bread at home",
	)
	idx, err := Build(context.Background(), chunks, bagOfWords, 2, nil)
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	results, err := idx.Query(context.Background(), "golang goroutines and channels", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Higher is better: the exact match has cosine similarity 1.
	assert.Equal(t, "golang goroutines and channels", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.Equal(t, 2, results[0].Chunk.Locator.Number)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestQuery_ClampsK(t *testing.T) {
	idx, err := Build(context.Background(), chunksOf("one chunk", "two chunk"), bagOfWords, 1, nil)
	require.NoError(t, err)

	results, err := idx.Query(context.Background(), "chunk", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = idx.Query(context.Background(), "chunk", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBuild_EmbedderError(t *testing.T) {
	boom := errors.New("model offline")
	embed := func(context.Context, string) ([]float32, error) { return nil, boom }

	_, err := Build(context.Background(), chunksOf("text"), embed, 1, nil)
	assert.ErrorContains(t, err, boom.Error())
}

func TestQuery_EmbedderErrorOnQuery(t *testing.T) {
	var fail atomic.Bool
	embed := func(ctx context.Context, text string) ([]float32, error) {
		if fail.Load() {
			return nil, errors.New("gone")
		}
		return bagOfWords(ctx, text)
	}

	idx, err := Build(context.Background(), chunksOf("text"), embed, 1, nil)
	require.NoError(t, err)

	fail.Store(true)
	_, err = idx.Query(context.Background(), "text", 1)
	assert.Error(t, err)
}
