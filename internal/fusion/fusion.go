// Package fusion merges independently scored rankings into one ordered,
// deduplicated result list.
package fusion

import (
	"sort"

	"docqa/internal/chunker"
)

// Ranked is a chunk with an index-specific relevance score. Lists of Ranked
// are always ordered best-first by the index that produced them.
type Ranked struct {
	Chunk chunker.Chunk
	Score float64
}

// Result is a fused entry. Score is the sum of the weighted, rank-discounted,
// normalized contributions from every list the chunk appeared in.
type Result struct {
	Chunk chunker.Chunk
	Score float64
}

// Citation is the presentation view of a result.
type Citation struct {
	Content string          `json:"content"`
	Locator chunker.Locator `json:"locator"`
}

func (r Result) Citation() Citation {
	return Citation{Content: r.Chunk.Text, Locator: r.Chunk.Locator}
}

// Weights scale each list's contributions.
type Weights struct {
	Lexical float64
	Dense   float64
}

// DefaultWeights favour the dense signal.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.25, Dense: 0.75}
}

// Normalize min-max scales scores to [0, 1]. When every score is equal
// (including a single score) all normalized values are 1.
func Normalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	out := make([]float64, len(scores))
	if hi == lo {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}

// Fuse merges the lexical and dense lists and returns at most k results.
//
// Each result at rank r (0-based) with normalized score s contributes
// weight*s/(r+1). Contributions are summed per chunk identity. Equal fused
// scores keep first-insertion order: lexical ranks first, then dense-only
// entries in dense rank order.
func Fuse(lexical, dense []Ranked, w Weights, k int) []Result {
	if k <= 0 {
		return nil
	}
	merged := make(map[chunker.Identity]*Result, len(lexical)+len(dense))
	var entries []*Result // insertion order

	add := func(list []Ranked, weight float64) {
		norm := Normalize(scores(list))
		for rank, r := range list {
			contrib := weight * norm[rank] / float64(rank+1)
			id := r.Chunk.Identity()
			if e, ok := merged[id]; ok {
				e.Score += contrib
				continue
			}
			e := &Result{Chunk: r.Chunk, Score: contrib}
			merged[id] = e
			entries = append(entries, e)
		}
	}
	add(lexical, w.Lexical)
	add(dense, w.Dense)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	if len(entries) > k {
		entries = entries[:k]
	}
	results := make([]Result, len(entries))
	for i, e := range entries {
		results[i] = *e
	}
	return results
}

func scores(list []Ranked) []float64 {
	out := make([]float64, len(list))
	for i, r := range list {
		out[i] = r.Score
	}
	return out
}
