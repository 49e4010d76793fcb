// Package lexical ranks chunks by keyword overlap using BM25 (Okapi variant).
package lexical

import (
	"math"
	"sort"
	"strings"

	"docqa/internal/chunker"
	"docqa/internal/fusion"
)

// Params are the BM25Okapi tuning constants.
type Params struct {
	K1      float64
	B       float64
	Epsilon float64 // floor for negative IDF, as a fraction of the average IDF
}

func DefaultParams() Params {
	return Params{K1: 1.5, B: 0.75, Epsilon: 0.25}
}

// Index is an immutable BM25 model over a fixed chunk set.
type Index struct {
	params   Params
	chunks   []chunker.Chunk
	docFreqs []map[string]int
	docLen   []float64
	avgdl    float64
	idf      map[string]float64
}

// Tokenize splits on whitespace. No stemming, no stopwords, case preserved.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Build computes term frequencies and IDF for the chunks.
func Build(chunks []chunker.Chunk, params Params) *Index {
	idx := &Index{
		params:   params,
		chunks:   chunks,
		docFreqs: make([]map[string]int, len(chunks)),
		docLen:   make([]float64, len(chunks)),
		idf:      make(map[string]float64),
	}
	if len(chunks) == 0 {
		return idx
	}

	nd := make(map[string]int)
	var vocab []string // first-seen order keeps the IDF sum reproducible
	total := 0
	for i, ch := range chunks {
		tokens := Tokenize(ch.Text)
		idx.docLen[i] = float64(len(tokens))
		total += len(tokens)

		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		seen := make(map[string]bool, len(freqs))
		idx.docFreqs[i] = freqs
		for _, tok := range tokens {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			if _, ok := nd[tok]; !ok {
				vocab = append(vocab, tok)
			}
			nd[tok]++
		}
	}
	idx.avgdl = float64(total) / float64(len(chunks))
	idx.computeIDF(vocab, nd)
	return idx
}

func (idx *Index) computeIDF(vocab []string, nd map[string]int) {
	if len(vocab) == 0 {
		return
	}
	n := float64(len(idx.chunks))
	idfSum := 0.0
	var negative []string
	for _, word := range vocab {
		f := float64(nd[word])
		v := math.Log(n-f+0.5) - math.Log(f+0.5)
		idx.idf[word] = v
		idfSum += v
		if v < 0 {
			negative = append(negative, word)
		}
	}
	eps := idx.params.Epsilon * idfSum / float64(len(vocab))
	for _, word := range negative {
		idx.idf[word] = eps
	}
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Scores returns the BM25 score of every chunk for the query, in chunk order.
// Repeated query tokens contribute once per occurrence.
func (idx *Index) Scores(query string) []float64 {
	scores := make([]float64, len(idx.chunks))
	if len(idx.chunks) == 0 || idx.avgdl == 0 {
		return scores
	}
	k1, b := idx.params.K1, idx.params.B
	for _, q := range Tokenize(query) {
		idf, ok := idx.idf[q]
		if !ok {
			continue
		}
		for i, freqs := range idx.docFreqs {
			tf := float64(freqs[q])
			if tf == 0 {
				continue
			}
			norm := k1 * (1 - b + b*idx.docLen[i]/idx.avgdl)
			scores[i] += idf * (tf * (k1 + 1) / (tf + norm))
		}
	}
	return scores
}

// Query returns the top-k chunks by descending score. Equal scores keep chunk
// order. k larger than the index returns every chunk; an empty index returns
// nothing.
func (idx *Index) Query(query string, k int) []fusion.Ranked {
	if len(idx.chunks) == 0 || k <= 0 {
		return nil
	}
	scores := idx.Scores(query)

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]fusion.Ranked, 0, k)
	for _, i := range order[:k] {
		results = append(results, fusion.Ranked{Chunk: idx.chunks[i], Score: scores[i]})
	}
	return results
}
